// Package report renders plans, duplicate groups, history and trees for the
// terminal. Colors are dropped automatically when the writer is not a terminal.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tidy-go/internal/dupes"
	"tidy-go/internal/fs"
	"tidy-go/internal/organizer"
	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// Printer writes styled reports to w.
type Printer struct {
	w  io.Writer
	st styles
}

// NewPrinter creates a Printer whose color profile follows w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Preview prints the plan grouped by destination directory. At most limit
// items are listed per directory; limit <= 0 lists all of them.
func (p *Printer) Preview(pv *organizer.Preview, limit int) {
	plan := pv.Plan
	p.printf("%s\n", p.st.title.Render(fmt.Sprintf("Plan: %d move(s) from %s", plan.Total, pv.Scan.Root)))

	reasons := make(map[string]tidy.Recommendation, len(pv.Decisions))
	for _, d := range pv.Decisions {
		reasons[d.Entry.Path] = d.Recommendation
	}

	for _, dir := range plan.DestOrder {
		p.printf("\n%s %s\n", p.st.header.Render(dir), p.st.dim.Render(fmt.Sprintf("(%d)", plan.PerDest[dir])))
		items := plan.PerDestItems[dir]
		for i, mv := range items {
			if limit > 0 && i >= limit {
				p.printf("  %s\n", p.st.dim.Render(fmt.Sprintf("... %d more", len(items)-limit)))
				break
			}
			rec := reasons[mv.Src]
			p.printf("  %s %s %s\n",
				filepath.Base(mv.Dst),
				p.st.dim.Render("<- "+mv.Src),
				p.st.tag.Render(fmt.Sprintf("[%s %.2f %s]", rec.Rule, rec.Score, rec.Reason)),
			)
		}
	}

	var skipped, noops, renamed, overwritten int
	for _, d := range pv.Decisions {
		switch d.Action {
		case organizer.ActionSkip:
			skipped++
		case organizer.ActionNoop:
			noops++
		case organizer.ActionRename:
			renamed++
		case organizer.ActionOverwrite:
			overwritten++
		}
	}
	p.printf("\n%s\n", p.st.dim.Render(fmt.Sprintf(
		"%d file(s) considered, %d already in place, %d skipped, %d renamed, %d overwrite(s)",
		len(pv.Files), noops, skipped, renamed, overwritten)))
	if overwritten > 0 {
		p.printf("%s\n", p.st.warn.Render("Some destinations already exist and will be replaced."))
	}
	if n := len(pv.Scan.Diagnostics.Skips); n > 0 {
		p.printf("%s\n", p.st.dim.Render(fmt.Sprintf("%d path(s) skipped while scanning (see log for details)", n)))
	}
}

// Duplicates prints each group and the total space held by extra copies.
func (p *Printer) Duplicates(groups []dupes.Group) {
	if len(groups) == 0 {
		p.printf("No duplicate candidates found.\n")
		return
	}
	for i, g := range groups {
		p.printf("%s %s\n",
			p.st.header.Render(fmt.Sprintf("#%d %s", i+1, HumanSize(g.Size))),
			p.st.dim.Render(shortHash(g.HeadHash)))
		for _, f := range g.Files {
			p.printf("  %s\n", f.Path)
		}
	}
	p.printf("\n%s\n", p.st.warn.Render(fmt.Sprintf("%d group(s), %s reclaimable", len(groups), HumanSize(dupes.Wasted(groups)))))
}

// History prints batches in the order given.
func (p *Printer) History(records []tidy.BatchRecord) {
	if len(records) == 0 {
		p.printf("No batches recorded.\n")
		return
	}
	for _, r := range records {
		p.printf("%s  %s  %-4s  %s\n",
			p.st.header.Render(r.ID),
			r.Time,
			r.Mode,
			p.st.dim.Render(fmt.Sprintf("%d file(s)", len(r.Moves))))
	}
}

// Tree prints node and its descendants. At most maxFiles files are listed per
// directory; maxFiles <= 0 lists all of them.
func (p *Printer) Tree(node *fs.DirNode, maxFiles int) {
	p.printf("%s %s\n", p.st.title.Render(node.Name+"/"),
		p.st.dim.Render(fmt.Sprintf("%d file(s), %s", node.FileCount(), HumanSize(node.TotalSize()))))
	p.tree(node, "", maxFiles)
}

func (p *Printer) tree(node *fs.DirNode, indent string, maxFiles int) {
	names := node.SubdirNames()
	for _, name := range names {
		child := node.Subdirs[name]
		p.printf("%s%s %s\n", indent, p.st.header.Render(name+"/"), p.st.dim.Render(fmt.Sprintf("(%d)", child.FileCount())))
		p.tree(child, indent+"  ", maxFiles)
	}
	for i, f := range node.Files {
		if maxFiles > 0 && i >= maxFiles {
			p.printf("%s%s\n", indent, p.st.dim.Render(fmt.Sprintf("... %d more", len(node.Files)-maxFiles)))
			return
		}
		p.printf("%s%s %s\n", indent, f.Name, p.st.dim.Render(HumanSize(f.Size)))
	}
}

// Blacklist prints the read-only defaults and the user entries separately.
func (p *Printer) Blacklist(defaults, user []string) {
	p.printf("%s\n", p.st.header.Render("Defaults (read-only)"))
	for _, d := range defaults {
		p.printf("  %s\n", p.st.dim.Render(d))
	}
	p.printf("%s\n", p.st.header.Render("User"))
	if len(user) == 0 {
		p.printf("  %s\n", p.st.dim.Render("(none)"))
	}
	for _, u := range user {
		p.printf("  %s\n", u)
	}
}

// Rules prints each rule with its destination template and predicates.
func (p *Printer) Rules(list []rules.Rule) {
	if len(list) == 0 {
		p.printf("No rules defined.\n")
		return
	}
	for _, r := range list {
		preds := make([]string, 0, len(r.Predicates))
		for _, pr := range r.Predicates {
			preds = append(preds, pr.String())
		}
		conflict := string(r.Conflict)
		if conflict == "" {
			conflict = "overwrite"
		}
		p.printf("%s -> %s %s\n", p.st.header.Render(r.Name), r.Dest,
			p.st.dim.Render(fmt.Sprintf("[%s] conflict=%s", strings.Join(preds, " "), conflict)))
	}
}

// Success prints a highlighted one-line confirmation.
func (p *Printer) Success(format string, args ...any) {
	p.printf("%s\n", p.st.ok.Render(fmt.Sprintf(format, args...)))
}

// HumanSize formats n bytes with binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
