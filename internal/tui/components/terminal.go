package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal is the scrolling traffic log of the listen and connect commands
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	lines     []string
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) GetViewport() viewport.Model {
	return t.viewport
}

// SetFormatOptions hides the timestamp and RX/TX indicator prefixes
func (t *Terminal) SetFormatOptions(hideTimestamps, hideIndicators bool) {
	t.formatter.SetFormatOptions(!hideTimestamps, !hideIndicators)
}

// render shows the lines and keeps the newest one visible
func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) AddMessage(msg DataReceivedMsg) {
	t.lines = append(t.lines, t.formatter.FormatMessage(msg))
	t.render()
}

// RefreshDisplayWithRawData reformats every message, after a display mode
// change, a TX status update or a history trim
func (t *Terminal) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	t.lines = t.formatter.FormatMessages(rawData)
	t.render()
}

func (t *Terminal) Lines() []string {
	return t.lines
}

func (t *Terminal) Clear() {
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
}

func (t *Terminal) ToggleIndicators() {
	t.formatter.ToggleIndicators()
}

func (t *Terminal) GetDisplayMode() DisplayMode {
	return t.formatter.GetDisplayMode()
}

// Update scrolls the viewport. Key messages are not passed on so they stay
// free for the command's own bindings.
func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
