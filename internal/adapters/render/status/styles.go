package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	tenant    lipgloss.Style
	detail    lipgloss.Style
	warning   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	fieldKey  lipgloss.Style
	connected lipgloss.Style
	pending   lipgloss.Style
	retrying  lipgloss.Style
	loggedOut lipgloss.Style
	qrPayload lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		tenant:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		fieldKey:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		connected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		pending:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		retrying:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		loggedOut: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		qrPayload: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
	}
}
