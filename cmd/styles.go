package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/copilot-session/internal"
)

// ANSI 256 palette shared by every command
const (
	colorAccent  = lipgloss.Color("62")
	colorTitle   = lipgloss.Color("212")
	colorMuted   = lipgloss.Color("240")
	colorDate    = lipgloss.Color("243")
	colorGood    = lipgloss.Color("42")
	colorWarn    = lipgloss.Color("214")
	colorBad     = lipgloss.Color("196")
	colorInfo    = lipgloss.Color("39")
	colorInsider = lipgloss.Color("35")
	colorCLI     = lipgloss.Color("208")
	colorStable  = lipgloss.Color("135")
)

var (
	base = lipgloss.NewStyle()
	bold = base.Bold(true)

	headerStyle    = bold.Foreground(colorAccent).Padding(0, 1)
	sectionStyle   = bold.Foreground(colorAccent).Underline(true)
	titleStyle     = bold.Foreground(colorTitle)
	idStyle        = base.Foreground(colorMuted).Italic(true)
	dateStyle      = base.Foreground(colorDate)
	countStyle     = bold.Foreground(colorGood)
	workspaceStyle = base.Foreground(colorStable).Italic(true)
	infoStyle      = base.Foreground(colorInfo)
	successStyle   = bold.Foreground(colorGood)
	warningStyle   = bold.Foreground(colorWarn)
	errorStyle     = bold.Foreground(colorBad)

	// search hits wrapped in <mark>
	markStyle = bold.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
)

// editionStyle colors an edition label so stable, Insiders and CLI sessions
// are told apart at a glance
func editionStyle(edition string) lipgloss.Style {
	switch edition {
	case internal.EditionInsider:
		return base.Foreground(colorInsider)
	case internal.EditionCLI:
		return base.Foreground(colorCLI)
	default:
		return base.Foreground(colorStable)
	}
}
