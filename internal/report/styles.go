package report

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	dim    lipgloss.Style
	warn   lipgloss.Style
	ok     lipgloss.Style
	tag    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")),
		dim: r.NewStyle().
			Foreground(lipgloss.Color("242")),
		warn: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ok: r.NewStyle().
			Foreground(lipgloss.Color("42")),
		tag: r.NewStyle().
			Foreground(lipgloss.Color("208")),
	}
}
