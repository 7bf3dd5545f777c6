package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// claims tracks destinations taken on disk or by earlier decisions in the plan.
type claims struct {
	planned map[string]struct{}
	exists  func(path string) bool
}

func newClaims() *claims {
	return &claims{planned: make(map[string]struct{}), exists: pathExists}
}

func (c *claims) taken(path string) bool {
	if _, ok := c.planned[path]; ok {
		return true
	}
	return c.exists(path)
}

func (c *claims) claim(path string) {
	c.planned[path] = struct{}{}
}

// freeVariant returns the first "name (N).ext" beside path that is not taken.
func (c *claims) freeVariant(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if !c.taken(candidate) {
			return candidate
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
