package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/allbin/go-serialport/internal/tui/styles"
)

// ModemStatusMsg carries a modem status line change
type ModemStatusMsg struct {
	Status    serialport.ModemStatus
	Timestamp time.Time
}

// ConnectionInfo is the line setup shown on the right of the status bar
type ConnectionInfo struct {
	BaudRate int
	Mode     string // "8N1" style framing
	Lock     bool
	Modem    *serialport.ModemStatus
}

// NewConnectionInfo describes the connection configured by cfg
func NewConnectionInfo(cfg serialport.Config) *ConnectionInfo {
	return &ConnectionInfo{
		BaudRate: cfg.BaudRate,
		Mode:     fmt.Sprintf("%d%s%s", cfg.DataBits, cfg.Parity.Letter(), cfg.StopBits),
		Lock:     cfg.Lock,
	}
}

type StatusBar struct {
	portPath       string
	state          styles.StatusType
	err            error
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		state:    styles.StatusConnecting,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

func (sb *StatusBar) UpdateModemStatus(status serialport.ModemStatus) {
	if sb.connectionInfo != nil {
		sb.connectionInfo.Modem = &status
	}
}

func (sb *StatusBar) SetConnecting() {
	sb.state = styles.StatusConnecting
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.state = styles.StatusConnected
	sb.err = nil
}

// SetDisconnected marks the port as gone; a non-nil err shows it as failed
func (sb *StatusBar) SetDisconnected(err error) {
	sb.state = styles.StatusDisconnected
	if err != nil {
		sb.state = styles.StatusError
	}
	sb.err = err
}

// statusType classifies the connection and picks its indicator symbol
func (sb *StatusBar) statusType(connected bool) (styles.StatusType, string) {
	switch {
	case sb.err != nil:
		return styles.StatusError, "✗"
	case connected:
		return styles.StatusConnected, "●"
	case sb.state == styles.StatusConnecting:
		return styles.StatusConnecting, "○"
	default:
		return styles.StatusDisconnected, "○"
	}
}

// lineFlag renders one modem status line as NAME:✓ or NAME:✗
func lineFlag(name string, on bool) string {
	if on {
		return name + ":✓"
	}
	return name + ":✗"
}

// section renders one padded status bar segment
func section(fg lipgloss.Color, bold bool, text string) string {
	return lipgloss.NewStyle().Foreground(fg).Bold(bold).Padding(0, 1).Render(text)
}

func (sb *StatusBar) connectionDetails() string {
	info := sb.connectionInfo
	if info == nil {
		return "⚡ serial"
	}

	s := fmt.Sprintf("⚡ %d baud %s", info.BaudRate, info.Mode)
	if m := info.Modem; m != nil {
		s += " " + lineFlag("CTS", m.CTS) + " " + lineFlag("DSR", m.DSR) + " " + lineFlag("DCD", m.DCD)
	}
	return s
}

// ComprehensiveStatusBar renders the nvim style status line. The left side
// holds the mode, port, connection state and view mode, the right side the
// line settings and timestamp.
func (sb *StatusBar) ComprehensiveStatusBar(inputMode, sendingMode, viewMode string, connected bool, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}
	if inputMode == "" {
		inputMode = "NORMAL"
	}

	status, symbol := sb.statusType(connected)
	divider := section(colors.Surface2, false, "│")

	left := []string{
		styles.ModeStyle(inputMode).Render(inputMode),
		section(colors.Mauve, true, sb.portPath),
		styles.GetStatusStyle(status).Render(symbol),
	}
	// The sending mode only matters while typing
	if inputMode == "INSERT" {
		left = append(left, section(colors.Peach, true, fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	if viewMode != "" {
		left = append(left, section(colors.Teal, false, viewMode))
	}
	left = append(left, divider)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left,
		section(colors.Subtext0, false, sb.connectionDetails()),
		divider,
		section(colors.Subtext1, false, timestamp),
	)

	spacer := lipgloss.NewStyle().
		Width(max(width-lipgloss.Width(leftSide)-lipgloss.Width(rightSide), 1)).
		Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
