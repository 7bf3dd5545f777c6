package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tidy-go/internal/dupes"
	"tidy-go/internal/fs"
	"tidy-go/internal/organizer"
	"tidy-go/internal/report"
	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

func TestHumanSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := report.HumanSize(tt.n); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPrinter_Preview(t *testing.T) {
	t.Parallel()
	moves := tidy.NewMoveMap()
	moves.Set("/in/a.jpg", "/out/Photos/a.jpg")
	moves.Set("/in/b.jpg", "/out/Photos/b.jpg")
	moves.Set("/in/c.txt", "/out/others/needs-review/c.txt")

	pv := &organizer.Preview{
		Scan: &organizer.ScanResult{Root: "/in", Diagnostics: &fs.Diagnostics{}},
		Files: []tidy.FileEntry{
			{Path: "/in/a.jpg"}, {Path: "/in/b.jpg"}, {Path: "/in/c.txt"}, {Path: "/in/d.jpg"},
		},
		Decisions: []organizer.Decision{
			{Entry: tidy.FileEntry{Path: "/in/a.jpg"}, Recommendation: tidy.Recommendation{Rule: "photos_by_date", Score: 0.9, Reason: "name:photo"}, Action: organizer.ActionMove},
			{Entry: tidy.FileEntry{Path: "/in/b.jpg"}, Recommendation: tidy.Recommendation{Rule: "photos_by_date", Score: 0.9, Reason: "name:photo"}, Action: organizer.ActionOverwrite},
			{Entry: tidy.FileEntry{Path: "/in/c.txt"}, Recommendation: tidy.Recommendation{Rule: tidy.ReviewLabel, Reason: "fallback"}, Action: organizer.ActionMove},
			{Entry: tidy.FileEntry{Path: "/in/d.jpg"}, Action: organizer.ActionSkip},
		},
		Moves: moves,
		Plan:  tidy.Plan(moves),
	}

	var buf bytes.Buffer
	report.NewPrinter(&buf).Preview(pv, 1)
	out := buf.String()

	for _, want := range []string{
		"Plan: 3 move(s) from /in",
		"/out/Photos (2)",
		"a.jpg <- /in/a.jpg [photos_by_date 0.90 name:photo]",
		"... 1 more",
		"c.txt <- /in/c.txt [others_review 0.00 fallback]",
		"4 file(s) considered, 0 already in place, 1 skipped, 0 renamed, 1 overwrite(s)",
		"will be replaced",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "b.jpg <-") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestPrinter_Duplicates(t *testing.T) {
	t.Parallel()
	groups := []dupes.Group{{
		Key:   dupes.Key{Size: 2048, HeadHash: "0123456789abcdef0123"},
		Files: []tidy.FileEntry{{Path: "/x/a.bin"}, {Path: "/y/a.bin"}, {Path: "/z/a.bin"}},
	}}

	var buf bytes.Buffer
	p := report.NewPrinter(&buf)
	p.Duplicates(groups)
	out := buf.String()
	for _, want := range []string{"#1 2.0 KiB", "0123456789ab", "/y/a.bin", "1 group(s), 4.0 KiB reclaimable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	p.Duplicates(nil)
	if !strings.Contains(buf.String(), "No duplicate candidates") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrinter_HistoryAndTree(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := report.NewPrinter(&buf)

	p.History([]tidy.BatchRecord{{ID: "20240115T103000000000Z", Time: "2024-01-15T10:30:00Z", Mode: tidy.ModeCopy, Moves: make([]tidy.Move, 2)}})
	if out := buf.String(); !strings.Contains(out, "20240115T103000000000Z") || !strings.Contains(out, "2 file(s)") {
		t.Errorf("history output:\n%s", out)
	}

	buf.Reset()
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tree := fs.BuildTree("/r", []tidy.FileEntry{
		{Path: "/r/docs", IsDir: true},
		{Path: "/r/docs/a.pdf", Size: 10, ModTime: now},
		{Path: "/r/docs/b.pdf", Size: 10, ModTime: now},
		{Path: "/r/top.txt", Size: 2048, ModTime: now},
	})
	p.Tree(tree, 1)
	out := buf.String()
	for _, want := range []string{"r/ 3 file(s), 2.0 KiB", "docs/ (2)", "  a.pdf 10 B", "  ... 1 more", "top.txt 2.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_BlacklistAndRules(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := report.NewPrinter(&buf)

	p.Blacklist([]string{"/proc"}, nil)
	out := buf.String()
	if !strings.Contains(out, "Defaults (read-only)") || !strings.Contains(out, "/proc") || !strings.Contains(out, "(none)") {
		t.Errorf("blacklist output:\n%s", out)
	}

	buf.Reset()
	list, err := rules.Parse([]byte(rules.DefaultRulesYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p.Rules(list)
	out = buf.String()
	if !strings.Contains(out, "photos_by_date -> Photos/{year}/{month}") || !strings.Contains(out, "conflict=rename") {
		t.Errorf("rules output:\n%s", out)
	}
}
