package tidy

import (
	"fmt"
	"iter"
)

// Mode selects how a batch transfers files.
type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy"
)

// ParseMode validates a mode string. An empty string means ModeMove.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMove:
		return ModeMove, nil
	case ModeCopy:
		return ModeCopy, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want move or copy)", s)
	}
}

// Move is a single source -> destination pair.
type Move struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// BatchRecord is one line of the undo log: everything a single apply did.
type BatchRecord struct {
	ID          string   `json:"id"`
	Time        string   `json:"time"`
	Mode        Mode     `json:"mode"`
	Moves       []Move   `json:"moves"`
	CreatedDirs []string `json:"created_dirs"`
}

// MoveMap is an insertion-ordered mapping of source path to destination path.
// Each source appears once; setting an existing source replaces its destination
// but keeps its original position.
type MoveMap struct {
	order []string
	dst   map[string]string
}

// NewMoveMap returns an empty MoveMap.
func NewMoveMap() *MoveMap {
	return &MoveMap{dst: make(map[string]string)}
}

// Set maps src to dst.
func (m *MoveMap) Set(src, dst string) {
	if m.dst == nil {
		m.dst = make(map[string]string)
	}
	if _, ok := m.dst[src]; !ok {
		m.order = append(m.order, src)
	}
	m.dst[src] = dst
}

// Get returns the destination for src.
func (m *MoveMap) Get(src string) (string, bool) {
	if m == nil {
		return "", false
	}
	dst, ok := m.dst[src]
	return dst, ok
}

// Len returns the number of pairs.
func (m *MoveMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// All iterates pairs in insertion order.
func (m *MoveMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if m == nil {
			return
		}
		for _, src := range m.order {
			if !yield(src, m.dst[src]) {
				return
			}
		}
	}
}

// Moves returns the pairs in insertion order.
func (m *MoveMap) Moves() []Move {
	moves := make([]Move, 0, m.Len())
	for src, dst := range m.All() {
		moves = append(moves, Move{Src: src, Dst: dst})
	}
	return moves
}
