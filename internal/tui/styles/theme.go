package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport/internal/tui/colors"
)

// ContentBorderStyle separates the data view from the input and status bar
var ContentBorderStyle = lipgloss.NewStyle().
	BorderTop(true).
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(colors.Surface1)

// InputStyle frames the connect input line
var InputStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colors.Surface2).
	Padding(0, 1)

// HelpStyle frames the expanded key help
var HelpStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colors.Surface2).
	Padding(1, 2)

var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colors.Red).
	Align(lipgloss.Center)

var InfoStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colors.Mauve).
	Align(lipgloss.Center)

// StatusType classifies the port connection shown in the status bar
type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
	StatusError
)

var statusColors = map[StatusType]lipgloss.Color{
	StatusConnected:  colors.Green,
	StatusConnecting: colors.Yellow,
}

// GetStatusStyle returns the indicator style for status. Disconnected and
// failed ports share the red style.
func GetStatusStyle(status StatusType) lipgloss.Style {
	c, ok := statusColors[status]
	if !ok {
		c = colors.Red
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

var modeColors = map[string]lipgloss.Color{
	"INSERT": colors.Green,
	"LISTEN": colors.Mauve,
	"PAUSED": colors.Yellow,
	"VISUAL": colors.Peach,
}

// ModeStyle renders the status bar mode label. Unknown modes get the NORMAL
// colors.
func ModeStyle(mode string) lipgloss.Style {
	bg, ok := modeColors[mode]
	if !ok {
		bg = colors.Blue
	}
	return lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(bg).
		Bold(true).
		Padding(0, 1)
}
