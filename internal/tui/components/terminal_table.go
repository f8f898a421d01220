package components

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport/internal/tui/colors"
)

type ViewMode int

const (
	ViewModeFollow ViewMode = iota
	ViewModeVisual
)

func (v ViewMode) String() string {
	if v == ViewModeVisual {
		return "VISUAL"
	}
	return "FOLLOW"
}

// TerminalTable shows the message history as a navigable table. In follow
// mode it sticks to the newest row; in visual mode the cursor can be moved.
type TerminalTable struct {
	table    table.Model
	mode     DisplayMode
	viewMode ViewMode
	rawData  []DataReceivedMsg
	width    int
}

func NewTerminalTable(width, height int) *TerminalTable {
	// Ensure minimum dimensions for proper table initialization
	if width < 80 {
		width = 80
	}
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithFocused(false), // Start unfocused in follow mode
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	tt := &TerminalTable{
		table:    t,
		mode:     DisplayMode{ShowHex: true, ShowASCII: true},
		viewMode: ViewModeFollow,
		width:    width,
	}
	tt.updateColumns()
	return tt
}

func (tt *TerminalTable) SetSize(width, height int) {
	if width < 80 {
		width = 80
	}
	if height < 5 {
		height = 5
	}
	tt.width = width
	tt.updateColumns()
	tt.table.SetHeight(height)
	tt.table.SetWidth(width)
	tt.refreshTable()
}

// SetDisplayMode picks which data columns are shown
func (tt *TerminalTable) SetDisplayMode(mode DisplayMode) {
	tt.mode = mode
	tt.updateColumns()
	tt.refreshTable()
}

// columns returns the column layout for the current display mode
func (tt *TerminalTable) columns() []table.Column {
	const (
		timeWidth  = 14 // "15:04:05.000"
		dirWidth   = 3
		bytesWidth = 6
	)

	// Account for borders and separators
	remaining := tt.width - (timeWidth + dirWidth + bytesWidth + 10)
	if remaining < 20 {
		remaining = 20
	}

	columns := []table.Column{
		{Title: "Time", Width: timeWidth},
		{Title: "↕", Width: dirWidth},
	}
	switch {
	case tt.mode.ShowHex && tt.mode.ShowASCII:
		// Hex is typically three times longer than ASCII
		columns = append(columns,
			table.Column{Title: "Hex", Width: remaining * 7 / 10},
			table.Column{Title: "ASCII", Width: remaining * 3 / 10},
		)
	case tt.mode.ShowHex:
		columns = append(columns, table.Column{Title: "Hex", Width: remaining})
	case tt.mode.ShowASCII:
		columns = append(columns, table.Column{Title: "ASCII", Width: remaining})
	default:
		columns = append(columns, table.Column{Title: "Data", Width: remaining})
	}
	return append(columns, table.Column{Title: "Bytes", Width: bytesWidth})
}

func (tt *TerminalTable) updateColumns() {
	// Rows must match the new column count before the table renders
	tt.table.SetRows(nil)
	tt.table.SetColumns(tt.columns())
}

func (tt *TerminalTable) refreshTable() {
	rows := make([]table.Row, len(tt.rawData))
	for i, msg := range tt.rawData {
		rows[i] = tt.row(msg)
	}
	tt.table.SetRows(rows)

	if tt.viewMode == ViewModeFollow {
		tt.table.GotoBottom()
	}
}

func (tt *TerminalTable) row(msg DataReceivedMsg) table.Row {
	direction := "↙"
	if msg.IsTX {
		direction = "↗"
	}

	r := table.Row{msg.Timestamp.Format("15:04:05.000"), direction}
	switch {
	case tt.mode.ShowHex && tt.mode.ShowASCII:
		r = append(r, hexString(msg.Data), asciiString(msg.Data))
	case tt.mode.ShowHex:
		r = append(r, hexString(msg.Data))
	case tt.mode.ShowASCII:
		r = append(r, asciiString(msg.Data))
	default:
		r = append(r, strconv.Itoa(len(msg.Data))+" bytes")
	}
	return append(r, strconv.Itoa(len(msg.Data)))
}

// RefreshDisplayWithRawData replaces the table content with rawData
func (tt *TerminalTable) RefreshDisplayWithRawData(rawData []DataReceivedMsg) {
	tt.rawData = rawData
	tt.refreshTable()
}

func (tt *TerminalTable) Rows() []table.Row {
	return tt.table.Rows()
}

func (tt *TerminalTable) Cursor() int {
	return tt.table.Cursor()
}

func (tt *TerminalTable) Clear() {
	tt.rawData = nil
	tt.table.SetRows(nil)
}

func (tt *TerminalTable) GetViewMode() ViewMode {
	return tt.viewMode
}

func (tt *TerminalTable) SetViewMode(mode ViewMode) {
	tt.viewMode = mode
	if mode == ViewModeFollow {
		tt.table.GotoBottom()
		tt.table.Blur()
	} else {
		tt.table.Focus()
	}
	tt.table.UpdateViewport()
}

func (tt *TerminalTable) GotoTop() {
	tt.table.GotoTop()
}

func (tt *TerminalTable) GotoBottom() {
	tt.table.GotoBottom()
}

func (tt *TerminalTable) MoveUp() {
	tt.table.MoveUp(1)
}

func (tt *TerminalTable) MoveDown() {
	tt.table.MoveDown(1)
}

func (tt *TerminalTable) Init() tea.Cmd {
	return nil
}

func (tt *TerminalTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Only allow table navigation in visual mode
	if tt.viewMode == ViewModeVisual {
		tt.table, cmd = tt.table.Update(msg)
	}

	return tt, cmd
}

func (tt *TerminalTable) View() string {
	return tt.table.View()
}
