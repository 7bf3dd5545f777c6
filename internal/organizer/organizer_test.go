package organizer_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tidy-go/internal/dupes"
	"tidy-go/internal/journal"
	"tidy-go/internal/organizer"
	"tidy-go/internal/rules"
	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
)

type staticBlacklist []string

func (b staticBlacklist) Combined() []string { return b }

type recordingOpener struct {
	opened []string
}

func (o *recordingOpener) Open(path string) error {
	o.opened = append(o.opened, path)
	return nil
}

type fixture struct {
	root   string
	in     string
	out    string
	opener *recordingOpener
	svc    *organizer.Service
}

func newFixture(t *testing.T, rulesYAML string, mutate func(*organizer.Options)) *fixture {
	t.Helper()
	root := testutil.TempDir(t)
	f := &fixture{
		root:   root,
		in:     testutil.Mkdir(t, filepath.Join(root, "in")),
		out:    filepath.Join(root, "out"),
		opener: &recordingOpener{},
	}
	rulesPath := filepath.Join(root, "state", "rules.yaml")
	if rulesYAML != "" {
		testutil.WriteFile(t, rulesPath, rulesYAML)
	}
	opts := organizer.Options{
		MaxDepth:    5,
		Destination: f.out,
		RulesPath:   rulesPath,
	}
	if mutate != nil {
		mutate(&opts)
	}
	j := journal.New(filepath.Join(root, "state", "undo.jsonl"), testutil.FixedClock(), tidy.NewNopLogger())
	finder := dupes.NewDetector(2, nil, tidy.NewNopLogger())
	f.svc = organizer.NewService(opts, staticBlacklist(nil), j, nil, finder, f.opener, tidy.NewNopLogger())
	return f
}

func (f *fixture) write(t *testing.T, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := testutil.WriteFile(t, filepath.Join(f.root, filepath.FromSlash(rel)), content)
		testutil.SetModTime(t, p, testutil.FixedClock().Now())
	}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func decisionFor(t *testing.T, p *organizer.Preview, src string) organizer.Decision {
	t.Helper()
	for _, d := range p.Decisions {
		if d.Entry.Path == src {
			return d
		}
	}
	t.Fatalf("no decision for %s", src)
	return organizer.Decision{}
}

func TestService_Preview_RoutesByLabel(t *testing.T) {
	t.Parallel()
	f := newFixture(t, rules.DefaultRulesYAML, nil)
	f.write(t, map[string]string{
		"in/IMG_0001.jpg": "jpeg",
		"in/invoice.pdf":  "pdf",
		"in/misc/notes.txt": "text",
	})

	p, err := f.svc.Preview(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	want := map[string]string{
		"in/IMG_0001.jpg": "out/Photos/2024/01/IMG_0001.jpg",
		"in/invoice.pdf":  "out/Documents/Receipts/2024/invoice.pdf",
		"in/misc/notes.txt": "out/others/needs-review/notes.txt",
	}
	if p.Moves.Len() != len(want) {
		t.Fatalf("moves = %d, want %d", p.Moves.Len(), len(want))
	}
	for src, dst := range want {
		got, ok := p.Moves.Get(f.path(src))
		if !ok || got != f.path(dst) {
			t.Errorf("move %s = %q (%v), want %q", src, got, ok, f.path(dst))
		}
	}
	if p.Plan.Total != 3 {
		t.Errorf("plan total = %d, want 3", p.Plan.Total)
	}

	// Dry run.
	testutil.AssertExists(t, f.path("in/IMG_0001.jpg"))
	testutil.AssertNotExists(t, f.out)
}

func TestService_Preview_ConflictPolicies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		conflict   string
		wantAction organizer.Action
		wantDst    string
		wantPlans  int
	}{
		{name: "rename", conflict: "rename", wantAction: organizer.ActionRename, wantDst: "out/Photos/IMG_0001 (1).jpg", wantPlans: 1},
		{name: "skip", conflict: "skip", wantAction: organizer.ActionSkip, wantDst: "out/Photos/IMG_0001.jpg", wantPlans: 0},
		{name: "overwrite", conflict: "overwrite", wantAction: organizer.ActionOverwrite, wantDst: "out/Photos/IMG_0001.jpg", wantPlans: 1},
		{name: "unset defaults to overwrite", conflict: "", wantAction: organizer.ActionOverwrite, wantDst: "out/Photos/IMG_0001.jpg", wantPlans: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := "rules:\n  - name: photos_by_date\n    dest: Photos\n"
			if tt.conflict != "" {
				doc += "    options:\n      conflict: " + tt.conflict + "\n"
			}
			f := newFixture(t, doc, nil)
			f.write(t, map[string]string{
				"in/IMG_0001.jpg":  "new",
				"out/Photos/IMG_0001.jpg": "old",
			})

			p, err := f.svc.Preview(context.Background(), f.in)
			if err != nil {
				t.Fatalf("Preview: %v", err)
			}
			d := decisionFor(t, p, f.path("in/IMG_0001.jpg"))
			if d.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", d.Action, tt.wantAction)
			}
			if d.Dst != f.path(tt.wantDst) {
				t.Errorf("dst = %q, want %q", d.Dst, f.path(tt.wantDst))
			}
			if p.Moves.Len() != tt.wantPlans {
				t.Errorf("moves = %d, want %d", p.Moves.Len(), tt.wantPlans)
			}
		})
	}
}

func TestService_Preview_RenameAvoidsClaimsWithinPlan(t *testing.T) {
	t.Parallel()
	doc := "rules:\n  - name: photos_by_date\n    dest: Photos\n    options:\n      conflict: rename\n"
	f := newFixture(t, doc, nil)
	f.write(t, map[string]string{
		"in/a/IMG_0001.jpg":          "a",
		"in/b/IMG_0001.jpg":          "b",
		"out/Photos/IMG_0001 (1).jpg": "taken",
	})

	p, err := f.svc.Preview(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	seen := map[string]bool{}
	for _, m := range p.Moves.Moves() {
		if seen[m.Dst] {
			t.Fatalf("destination %s planned twice", m.Dst)
		}
		seen[m.Dst] = true
	}
	for _, rel := range []string{"out/Photos/IMG_0001.jpg", "out/Photos/IMG_0001 (2).jpg"} {
		if !seen[f.path(rel)] {
			t.Errorf("expected a move to %s, got %v", rel, seen)
		}
	}
}

func TestService_Preview_DropsNoops(t *testing.T) {
	t.Parallel()
	f := newFixture(t, rules.DefaultRulesYAML, func(o *organizer.Options) {
		o.Destination = ""
	})
	f.write(t, map[string]string{
		"in/others/needs-review/notes.txt": "already reviewed",
	})

	p, err := f.svc.Preview(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	d := decisionFor(t, p, f.path("in/others/needs-review/notes.txt"))
	if d.Action != organizer.ActionNoop {
		t.Errorf("action = %q, want noop", d.Action)
	}
	if p.Moves.Len() != 0 {
		t.Errorf("moves = %d, want 0", p.Moves.Len())
	}
}

func TestService_Preview_Filters(t *testing.T) {
	t.Parallel()

	t.Run("extensions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, rules.DefaultRulesYAML, func(o *organizer.Options) {
			o.Extensions = []string{"PDF"}
		})
		f.write(t, map[string]string{"in/invoice.pdf": "p", "in/IMG_1.jpg": "j"})

		p, err := f.svc.Preview(context.Background(), f.in)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		if len(p.Files) != 1 || p.Files[0].Name() != "invoice.pdf" {
			t.Errorf("files = %v, want only invoice.pdf", p.Files)
		}
	})

	t.Run("ignore file and ignored dirs are never planned", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, rules.DefaultRulesYAML, nil)
		f.write(t, map[string]string{"in/.tidyignore": "cache\n", "in/cache/a.tmp": "x", "in/b.txt": "y"})

		p, err := f.svc.Preview(context.Background(), f.in)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		if len(p.Files) != 1 || p.Files[0].Name() != "b.txt" {
			t.Errorf("files = %v, want only b.txt", p.Files)
		}
	})

	t.Run("destination inside root is not rescanned", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, rules.DefaultRulesYAML, nil)
		f.write(t, map[string]string{"out/Photos/2024/01/IMG_9.jpg": "done", "loose.txt": "x"})

		p, err := f.svc.Preview(context.Background(), f.root)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		for _, e := range p.Files {
			if strings.HasPrefix(e.Path, f.out) {
				t.Errorf("destination file %s was scanned", e.Path)
			}
		}
	})
}

func TestService_Preview_Strategies(t *testing.T) {
	t.Parallel()

	t.Run("auto uses the name heuristic only", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, rules.DefaultRulesYAML, func(o *organizer.Options) {
			o.Strategy = "auto"
		})
		f.write(t, map[string]string{"in/holiday.png": "p"})

		p, err := f.svc.Preview(context.Background(), f.in)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		d := decisionFor(t, p, f.path("in/holiday.png"))
		if d.Recommendation.Reason != "auto" || d.Recommendation.Rule != "photos_by_date" {
			t.Errorf("recommendation = %+v", d.Recommendation)
		}
	})

	t.Run("recommend sends a weak match to review", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, rules.DefaultRulesYAML, nil)
		f.write(t, map[string]string{"in/holiday.png": "p"})

		p, err := f.svc.Preview(context.Background(), f.in)
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		d := decisionFor(t, p, f.path("in/holiday.png"))
		if d.Recommendation.Rule != tidy.ReviewLabel {
			t.Errorf("recommendation = %+v, want review", d.Recommendation)
		}
	})
}

func TestService_Preview_MissingOrInvalidRules(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{"missing": "", "invalid": "rules: [{name: x, dest: /abs}]\n"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, doc, nil)
			f.write(t, map[string]string{"in/IMG_0001.jpg": "j"})

			p, err := f.svc.Preview(context.Background(), f.in)
			if err != nil {
				t.Fatalf("Preview: %v", err)
			}
			got, _ := p.Moves.Get(f.path("in/IMG_0001.jpg"))
			if want := f.path("out/Unsorted/IMG_0001.jpg"); got != want {
				t.Errorf("dst = %q, want %q", got, want)
			}
		})
	}
}

func TestService_ApplyHistoryRollback(t *testing.T) {
	t.Parallel()
	f := newFixture(t, rules.DefaultRulesYAML, nil)
	f.write(t, map[string]string{"in/IMG_0001.jpg": "jpeg", "in/misc/notes.txt": "text"})

	p, err := f.svc.Preview(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	id, err := f.svc.Apply(p.Moves, tidy.ModeMove, true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	testutil.AssertExists(t, f.path("out/Photos/2024/01/IMG_0001.jpg"))
	testutil.AssertNotExists(t, f.path("in/IMG_0001.jpg"))
	if len(f.opener.opened) != 1 || f.opener.opened[0] != f.out {
		t.Errorf("opened = %v, want [%s]", f.opener.opened, f.out)
	}

	history, err := f.svc.History()
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ID != id || len(history[0].Moves) != 2 {
		t.Fatalf("history = %+v", history)
	}

	restored, err := f.svc.Rollback(id)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if restored != 2 {
		t.Errorf("restored = %d, want 2", restored)
	}
	if got := testutil.ReadFile(t, f.path("in/IMG_0001.jpg")); got != "jpeg" {
		t.Errorf("restored content = %q", got)
	}
	testutil.AssertNotExists(t, f.path("out/Photos/2024/01"))
}

func TestService_Apply_OpenOnlyWhenAsked(t *testing.T) {
	t.Parallel()
	f := newFixture(t, rules.DefaultRulesYAML, nil)
	f.write(t, map[string]string{"in/notes.txt": "text"})

	p, err := f.svc.Preview(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if _, err := f.svc.Apply(p.Moves, tidy.ModeCopy, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(f.opener.opened) != 0 {
		t.Errorf("opened = %v, want none", f.opener.opened)
	}
	testutil.AssertExists(t, f.path("in/notes.txt"))
	testutil.AssertExists(t, f.path("out/others/needs-review/notes.txt"))
}

func TestService_Duplicates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "", nil)
	f.write(t, map[string]string{
		"in/a.bin":     "same bytes",
		"in/sub/b.bin": "same bytes",
		"in/c.bin":     "diff bytes",
		"in/d.bin":     "short",
	})

	groups, err := f.svc.Duplicates(context.Background(), f.in)
	if err != nil {
		t.Fatalf("Duplicates: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Files) != 2 {
		t.Errorf("group members = %d, want 2", len(groups[0].Files))
	}
}

func TestService_Scan_BlacklistedRoot(t *testing.T) {
	t.Parallel()
	root := testutil.TempDir(t)
	testutil.WriteTree(t, root, map[string]string{"keep/a.txt": "a", "secret/b.txt": "b"})
	j := journal.New(filepath.Join(root, "undo.jsonl"), testutil.FixedClock(), tidy.NewNopLogger())
	svc := organizer.NewService(organizer.Options{}, staticBlacklist{filepath.Join(root, "secret")}, j, nil, nil, nil, tidy.NewNopLogger())

	res, err := svc.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, e := range res.Entries {
		if strings.Contains(e.Path, "secret") {
			t.Errorf("blacklisted entry %s was yielded", e.Path)
		}
	}
	if n := res.Diagnostics.Count("blacklisted"); n != 1 {
		t.Errorf("blacklisted skips = %d, want 1", n)
	}

	if _, err := svc.Duplicates(context.Background(), root); err == nil {
		t.Error("Duplicates without a finder should fail")
	}
}
