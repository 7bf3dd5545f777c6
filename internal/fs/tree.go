package fs

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tidy-go/internal/tidy"
)

// FileMeta is a file leaf in a DirNode tree.
type FileMeta struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// DirNode is one directory in a tree built from scan entries.
type DirNode struct {
	Name    string
	Files   []FileMeta
	Subdirs map[string]*DirNode
}

// NewDirNode returns an empty node.
func NewDirNode(name string) *DirNode {
	return &DirNode{Name: name, Subdirs: make(map[string]*DirNode)}
}

// child returns the named subdirectory, creating it if needed.
func (n *DirNode) child(name string) *DirNode {
	c, ok := n.Subdirs[name]
	if !ok {
		c = NewDirNode(name)
		n.Subdirs[name] = c
	}
	return c
}

// Insert places an entry under the node following the relative path parts.
// Empty parts are ignored.
func (n *DirNode) Insert(parts []string, e tidy.FileEntry) {
	if len(parts) == 0 {
		return
	}
	node := n
	for _, part := range parts[:len(parts)-1] {
		node = node.child(part)
	}
	last := parts[len(parts)-1]
	if e.IsDir {
		node.child(last)
		return
	}
	node.Files = append(node.Files, FileMeta{Name: last, Path: e.Path, Size: e.Size, ModTime: e.ModTime})
}

// SubdirNames returns the subdirectory names in sorted order.
func (n *DirNode) SubdirNames() []string {
	names := make([]string, 0, len(n.Subdirs))
	for name := range n.Subdirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileCount counts files in the node and all descendants.
func (n *DirNode) FileCount() int {
	total := len(n.Files)
	for _, c := range n.Subdirs {
		total += c.FileCount()
	}
	return total
}

// TotalSize sums file sizes in the node and all descendants.
func (n *DirNode) TotalSize() int64 {
	var total int64
	for _, f := range n.Files {
		total += f.Size
	}
	for _, c := range n.Subdirs {
		total += c.TotalSize()
	}
	return total
}

// BuildTree arranges entries under root into a DirNode tree.
// Entries outside root are ignored.
func BuildTree(root string, entries []tidy.FileEntry) *DirNode {
	tree := NewDirNode(filepath.Base(root))
	for _, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		tree.Insert(strings.Split(rel, string(filepath.Separator)), e)
	}
	return tree
}
