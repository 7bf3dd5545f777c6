// Package classify assigns destination labels to files and resolves the
// resulting destination paths.
package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// Waterfall thresholds.
const (
	nameThreshold     = 0.8
	neighborThreshold = 0.7
	metaThreshold     = 0.75
)

// ReviewDir and UnsortedDir are relative to the organize destination.
var (
	ReviewDir   = filepath.Join("others", "needs-review")
	UnsortedDir = "Unsorted"
)

var (
	photoNames   = regexp.MustCompile(`(img_|dsc_|screenshot|스크린샷)`)
	receiptNames = regexp.MustCompile(`(영수증|청구서|invoice|receipt)`)
	imageExts    = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".heic": {}}
)

// NameBasedLabel labels a file from its name and extension alone.
func NameBasedLabel(e tidy.FileEntry) tidy.Recommendation {
	name := strings.ToLower(e.Name())
	ext := filepath.Ext(name)

	if _, ok := imageExts[ext]; ok {
		if photoNames.MatchString(name) {
			return tidy.Recommendation{Rule: tidy.PhotoLabel, Score: 0.9, Reason: "name:photo"}
		}
		return tidy.Recommendation{Rule: tidy.PhotoLabel, Score: 0.7, Reason: "ext:photo"}
	}
	if ext == ".pdf" {
		if receiptNames.MatchString(name) {
			return tidy.Recommendation{Rule: tidy.ReceiptLabel, Score: 0.9, Reason: "name:receipt"}
		}
		return tidy.Recommendation{Score: 0.4, Reason: "ext:pdf"}
	}
	return tidy.Recommendation{Reason: "none"}
}

// NeighborMajority votes with the name-based labels of the other files in
// siblings. Only labels scoring at least 0.7 count. Ties go to the label seen first.
func NeighborMajority(e tidy.FileEntry, siblings []tidy.FileEntry) tidy.Recommendation {
	counts := make(map[string]int)
	var order []string
	for _, s := range siblings {
		if s.IsDir || s.Path == e.Path {
			continue
		}
		r := NameBasedLabel(s)
		if !r.Labeled() || r.Score < 0.7 {
			continue
		}
		if counts[r.Rule] == 0 {
			order = append(order, r.Rule)
		}
		counts[r.Rule]++
	}

	best, bestCount := "", 0
	for _, label := range order {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	if bestCount == 0 {
		return tidy.Recommendation{Reason: "none"}
	}
	return tidy.Recommendation{
		Rule:   best,
		Score:  0.7 + min(0.2, float64(bestCount)/50),
		Reason: fmt.Sprintf("neighbor(%d)", bestCount),
	}
}

// Recommender runs the classification waterfall.
type Recommender struct {
	// Peeker is consulted only when UseMeta is set.
	Peeker  tidy.MetadataPeeker
	UseMeta bool
}

// Recommend tries the name heuristic, then the neighbor vote, then metadata,
// in that order with fixed thresholds, and falls back to the review label.
func (r Recommender) Recommend(e tidy.FileEntry, siblings []tidy.FileEntry) tidy.Recommendation {
	if rec := NameBasedLabel(e); rec.Labeled() && rec.Score >= nameThreshold {
		return rec
	}
	if rec := NeighborMajority(e, siblings); rec.Labeled() && rec.Score >= neighborThreshold {
		return rec
	}
	if r.UseMeta && r.Peeker != nil {
		label, score, reason := r.Peeker.Peek(e.Path)
		if label != "" && score >= metaThreshold {
			return tidy.Recommendation{Rule: label, Score: score, Reason: reason}
		}
	}
	return tidy.Recommendation{Rule: tidy.ReviewLabel, Score: 0, Reason: "fallback"}
}

// AutoLabel uses the name heuristic only: its label if any, else the review label.
func AutoLabel(e tidy.FileEntry) tidy.Recommendation {
	if rec := NameBasedLabel(e); rec.Labeled() {
		return tidy.Recommendation{Rule: rec.Rule, Score: rec.Score, Reason: "auto"}
	}
	return tidy.Recommendation{Rule: tidy.ReviewLabel, Score: 0, Reason: "auto"}
}

// ResolveDestination returns the absolute destination for e under baseDest.
func ResolveDestination(ruleMap map[string]rules.Rule, rec tidy.Recommendation, e tidy.FileEntry, baseDest string) string {
	if rec.Rule == tidy.ReviewLabel {
		return filepath.Join(baseDest, ReviewDir, e.Name())
	}
	rule, ok := ruleMap[rec.Rule]
	if !ok {
		return filepath.Join(baseDest, UnsortedDir, e.Name())
	}
	return filepath.Join(baseDest, rules.Render(rule, e.Name(), e.ModTime))
}

// SiblingsByDir groups file entries by containing directory, preserving order.
func SiblingsByDir(entries []tidy.FileEntry) map[string][]tidy.FileEntry {
	groups := make(map[string][]tidy.FileEntry)
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		groups[e.Dir()] = append(groups[e.Dir()], e)
	}
	return groups
}
