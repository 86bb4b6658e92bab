package tui

import "github.com/charmbracelet/lipgloss"

type styleID int

const (
	stNormal styleID = iota
	stTitle
	stStatus
	stWarn
	stBorder
	stBorderFocus
	stBorderFlash
	stCaret
	stList
	stListBorder
	stSelected
	stMatch
	stSelectedMatch
	stHint
	styleCount
)

// palette maps style ids to lipgloss styles.
type palette struct {
	styles [styleCount]lipgloss.Style
}

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorFlash  = lipgloss.AdaptiveColor{Light: "#00A66F", Dark: "#12C78F"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#E55B5B", Dark: "#FF6B6B"}
	colorListBg = lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: "#2A2A2A"}
	colorSelBg  = lipgloss.AdaptiveColor{Light: "#D6D4FF", Dark: "#403C8F"}
)

func defaultPalette() *palette {
	p := &palette{}
	p.styles[stNormal] = lipgloss.NewStyle()
	p.styles[stTitle] = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	p.styles[stStatus] = lipgloss.NewStyle().Foreground(colorMuted)
	p.styles[stWarn] = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	p.styles[stBorder] = lipgloss.NewStyle().Foreground(colorMuted)
	p.styles[stBorderFocus] = lipgloss.NewStyle().Foreground(colorAccent)
	p.styles[stBorderFlash] = lipgloss.NewStyle().Bold(true).Foreground(colorFlash)
	p.styles[stCaret] = lipgloss.NewStyle().Reverse(true)
	p.styles[stList] = lipgloss.NewStyle().Background(colorListBg)
	p.styles[stListBorder] = lipgloss.NewStyle().Background(colorListBg).Foreground(colorAccent)
	p.styles[stSelected] = lipgloss.NewStyle().Background(colorSelBg)
	p.styles[stMatch] = lipgloss.NewStyle().Background(colorListBg).Foreground(colorAccent).Bold(true)
	p.styles[stSelectedMatch] = lipgloss.NewStyle().Background(colorSelBg).Bold(true).Underline(true)
	p.styles[stHint] = lipgloss.NewStyle().Background(colorListBg).Foreground(colorMuted)
	return p
}

func (p *palette) style(id styleID) lipgloss.Style {
	if id < 0 || id >= styleCount {
		return p.styles[stNormal]
	}
	return p.styles[id]
}
