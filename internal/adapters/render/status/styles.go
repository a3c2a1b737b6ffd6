package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	account    lipgloss.Style
	detail     lipgloss.Style
	blocked    lipgloss.Style
	active     lipgloss.Style
	protected  lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	limitKey   lipgloss.Style
	limitMeta  lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	barWarn    lipgloss.Style
	barOver    lipgloss.Style
}

// newStyles returns the colored palette, or unstyled text when plain is set.
func newStyles(plain bool) styles {
	if plain {
		base := lipgloss.NewStyle()
		return styles{
			title:      base,
			header:     base,
			account:    base,
			detail:     base,
			blocked:    base,
			active:     base,
			protected:  base,
			section:    base.MarginTop(1),
			empty:      base,
			limitKey:   base,
			limitMeta:  base,
			barBracket: base,
			barFill:    base,
			barEmpty:   base,
			barWarn:    base,
			barOver:    base,
		}
	}
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		blocked:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		active:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		protected:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		limitKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		limitMeta:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		barWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		barOver:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}
