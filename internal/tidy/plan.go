package tidy

import "path/filepath"

// MovePlan summarizes a MoveMap for display before it is applied.
type MovePlan struct {
	Total int
	// PerDest counts moves by destination parent directory.
	PerDest map[string]int
	// PerDestItems lists moves by destination parent directory, in input order.
	PerDestItems map[string][]Move
	// DestOrder lists destination directories in first-seen order.
	DestOrder []string
	// Changes is every move in input order.
	Changes []Move
}

// Plan aggregates a MoveMap. It does no I/O.
func Plan(moves *MoveMap) *MovePlan {
	p := &MovePlan{
		PerDest:      make(map[string]int),
		PerDestItems: make(map[string][]Move),
	}
	for src, dst := range moves.All() {
		mv := Move{Src: src, Dst: dst}
		p.Changes = append(p.Changes, mv)

		key := filepath.Dir(dst)
		if _, seen := p.PerDest[key]; !seen {
			p.DestOrder = append(p.DestOrder, key)
		}
		p.PerDest[key]++
		p.PerDestItems[key] = append(p.PerDestItems[key], mv)
	}
	p.Total = len(p.Changes)
	return p
}
