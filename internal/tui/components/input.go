package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/allbin/go-serialport/internal/tui/styles"
)

// SendingMode selects how the input line is turned into bytes
type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

// maxHistory is the number of sent lines kept for recall
const maxHistory = 100

var placeholders = map[SendingMode]string{
	SendingModeASCII: "Type message and press Enter to send...",
	SendingModeHex:   "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)...",
}

// lineHistory recalls previously sent lines, shell style
type lineHistory struct {
	lines []string
	pos   int    // index into lines while browsing, len(lines) otherwise
	draft string // line being typed when browsing started
}

func (h *lineHistory) add(line string) {
	line = strings.TrimSpace(line)
	if line != "" && (len(h.lines) == 0 || h.lines[len(h.lines)-1] != line) {
		h.lines = append(h.lines, line)
		if len(h.lines) > maxHistory {
			h.lines = h.lines[len(h.lines)-maxHistory:]
		}
	}
	h.pos = len(h.lines)
	h.draft = ""
}

// prev steps back one line. current becomes the draft when browsing starts.
func (h *lineHistory) prev(current string) (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	if h.pos == len(h.lines) {
		h.draft = current
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.lines[h.pos], true
}

// next steps forward one line, ending at the draft
func (h *lineHistory) next() (string, bool) {
	if h.pos >= len(h.lines) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.lines) {
		return h.draft, true
	}
	return h.lines[h.pos], true
}

// Input is the connect command's line editor
type Input struct {
	textInput textinput.Model
	mode      SendingMode
	history   lineHistory
	width     int
}

func NewInput() *Input {
	ti := textinput.New()
	ti.Placeholder = placeholders[SendingModeASCII]
	ti.CharLimit = 256
	ti.Prompt = "" // rendered by View
	ti.Focus()

	return &Input{textInput: ti}
}

// SetWidth fits the input box into a screen width columns wide
func (i *Input) SetWidth(width int) {
	i.width = width
	// border, padding, prompt symbol and the space after it
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() {
	i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) ToggleSendingMode() {
	if i.mode == SendingModeASCII {
		i.mode = SendingModeHex
	} else {
		i.mode = SendingModeASCII
	}
	i.textInput.Placeholder = placeholders[i.mode]
}

func (i *Input) GetSendingMode() SendingMode {
	return i.mode
}

// AddToHistory records a sent line. Blank lines and repeats of the last line
// are skipped.
func (i *Input) AddToHistory(line string) {
	i.history.add(line)
}

func (i *Input) NavigateHistoryUp() {
	if line, ok := i.history.prev(i.textInput.Value()); ok {
		i.textInput.SetValue(line)
	}
}

func (i *Input) NavigateHistoryDown() {
	if line, ok := i.history.next(); ok {
		i.textInput.SetValue(line)
	}
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

// View renders the input box. Outside insert mode it shows how to start
// typing instead of the line being edited.
func (i *Input) View(insert bool) string {
	symbol, color := ">", colors.Green
	if i.mode == SendingModeHex {
		symbol, color = "#", colors.Yellow
	}
	prompt := lipgloss.NewStyle().Foreground(color).Bold(true).Render(symbol)

	line := lipgloss.NewStyle().
		Foreground(colors.Overlay0).
		Render("Press 'i' to enter insert mode")
	if insert {
		line = i.textInput.View()
	}

	// The rounded border and padding take four columns
	style := styles.InputStyle.
		Width(max(i.width-4, 10)).
		AlignHorizontal(lipgloss.Left)
	if insert {
		style = style.BorderForeground(colors.Green)
	}

	return style.Render(lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", line))
}
