package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport/internal/tui/colors"
)

// TX statuses carried by DataReceivedMsg.Status
const (
	StatusPending = "PENDING"
	StatusWritten = "WRITTEN"
	StatusError   = "ERROR"
)

type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    string // For TX messages: one of the Status constants, empty for RX
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:        showHex,
			ShowASCII:      showASCII,
			ShowTimestamps: true,
			ShowIndicators: true,
		},
	}
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

// SetFormatOptions turns the timestamp and RX/TX indicator prefixes on or off
func (df *DataFormatter) SetFormatOptions(showTimestamps, showIndicators bool) {
	df.mode.ShowTimestamps = showTimestamps
	df.mode.ShowIndicators = showIndicators
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

// indicator renders the styled direction arrow and TX status of msg
func indicator(msg DataReceivedMsg) string {
	if !msg.IsTX {
		return lipgloss.NewStyle().
			Foreground(colors.RX).
			Bold(true).
			Render("↙ RX")
	}

	var txColor lipgloss.Color
	var statusText string

	switch msg.Status {
	case StatusPending:
		txColor = colors.TXPending
		statusText = "TX ○"
	case StatusWritten:
		txColor = colors.TXWritten
		statusText = "TX ✓"
	case StatusError:
		txColor = colors.TXError
		statusText = "TX ✗"
	default:
		txColor = colors.TX
		statusText = "TX"
	}

	return lipgloss.NewStyle().
		Foreground(txColor).
		Bold(true).
		Render("↗ " + statusText)
}

// hexString renders data as space separated upper case hex
func hexString(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// asciiString renders data with non-printable bytes replaced by dots, so no
// terminal control sequence reaches the screen
func asciiString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	var parts []string

	if df.mode.ShowHex {
		parts = append(parts, "HEX: "+hexString(msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+asciiString(msg.Data))
	}

	// If both are disabled, show raw bytes count
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	body := strings.Join(parts, "  ")

	var prefix []string
	if df.mode.ShowTimestamps {
		prefix = append(prefix, lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000"))))
	}
	if df.mode.ShowIndicators {
		prefix = append(prefix, indicator(msg)+":")
	}

	if len(prefix) == 0 {
		return body
	}
	return strings.Join(prefix, " ") + " " + body
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

func (df *DataFormatter) ToggleIndicators() {
	df.mode.ShowIndicators = !df.mode.ShowIndicators
}
