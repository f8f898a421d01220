/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/allbin/go-serialport/internal/tui/styles"
)

// lineEndings maps the --eol names to what is appended to ASCII lines
var lineEndings = map[string]string{
	"lf":   "\n",
	"crlf": "\r\n",
	"cr":   "\r",
	"none": "",
}

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with a bidirectional terminal interface.

Incoming data is shown as in listen, and lines typed in insert mode (i) are
written to the port, as text followed by the --eol line ending or as hex bytes
(Tab switches). Each sent line is marked pending until the device accepted
it. Visual mode (v) browses the traffic as a table. The status bar follows the
CTS, DSR and DCD modem lines.

Example usage:
  serialport connect /dev/ttyUSB0
  serialport connect /dev/ttyUSB0 --baud 9600 --eol crlf
  serialport connect /dev/ttyMOCK0 --mock`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eolName, _ := cmd.Flags().GetString("eol")
		eol, ok := lineEndings[strings.ToLower(eolName)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown line ending %q (use lf, crlf, cr or none)\n", eolName)
			os.Exit(1)
		}

		port, err := newPort(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := runConnectTUI(port, eol); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().String("eol", "lf", "Line ending appended to ASCII input: lf, crlf, cr or none")
}

// connectModel is the interactive terminal: a traffic log, a history table
// for visual mode and an input line
type connectModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	history   *components.TerminalTable
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys
	eol       string
}

func newConnectModel(portPath string, info *components.ConnectionInfo, eol string) *connectModel {
	// Sizes are set by the first WindowSizeMsg
	m := &connectModel{
		SerialModel: models.NewSerialModel(portPath),
		terminal:    components.NewTerminal(0, 0),
		history:     components.NewTerminalTable(0, 0),
		statusBar:   components.NewStatusBar(portPath),
		input:       components.NewInput(),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
		eol:         eol,
	}
	m.statusBar.SetConnectionInfo(info)
	return m
}

func runConnectTUI(port *serialport.Port, eol string) error {
	m := newConnectModel(port.Path(), components.NewConnectionInfo(port.Config()), eol)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go startPort(p, m.SerialModel, port, true)

	_, err := p.Run()
	m.Cleanup()
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return nil
}

// encodeInput converts the input line to the bytes sent and the bytes shown.
// ASCII lines get eol appended on the wire only.
func encodeInput(input string, mode components.SendingMode, eol string) (send, display []byte, err error) {
	if mode == components.SendingModeHex {
		data, err := parseHexString(input)
		if err != nil {
			return nil, nil, err
		}
		return data, data, nil
	}
	return []byte(input + eol), []byte(input), nil
}

// addNotice shows msg in the terminal without recording it as traffic
func (m *connectModel) addNotice(msg string) {
	m.terminal.AddMessage(components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      []byte(msg),
	})
}

// refresh redraws both history views from the raw data
func (m *connectModel) refresh() {
	m.terminal.RefreshDisplayWithRawData(m.GetRawData())
	m.history.RefreshDisplayWithRawData(m.GetRawData())
}

// record adds traffic to the history and both views
func (m *connectModel) record(msg components.DataReceivedMsg) {
	recordData(m.SerialModel, m.terminal, msg)
	m.history.RefreshDisplayWithRawData(m.GetRawData())
}

// send queues the input line for writing. The line is shown as pending until
// the write completes.
func (m *connectModel) send() tea.Cmd {
	port := m.GetPort()
	line := m.input.Value()
	if line == "" || port == nil {
		return nil
	}

	data, display, err := encodeInput(line, m.input.GetSendingMode(), m.eol)
	if err != nil {
		m.addNotice(fmt.Sprintf("Invalid hex input: %v", err))
		return nil
	}

	tx := components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      display,
		IsTX:      true,
		Status:    components.StatusPending,
	}
	m.record(tx)

	m.input.AddToHistory(line)
	m.input.SetValue("")

	return writeCmd(m.GetContext(), port, tx.Timestamp, data)
}

// updateInsert handles keys while typing. It reports false for keys that
// belong to the text input.
func (m *connectModel) updateInsert(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.SetInputMode(models.InputModeNormal)
		m.input.Blur()
	case key.Matches(msg, m.keys.Send):
		return m.send(), true
	case key.Matches(msg, m.keys.HistoryPrev):
		m.input.NavigateHistoryUp()
	case key.Matches(msg, m.keys.HistoryNext):
		m.input.NavigateHistoryDown()
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
	default:
		return nil, false
	}
	return nil, true
}

// updateVisual moves through the history table
func (m *connectModel) updateVisual(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.VisualMode):
		m.history.SetViewMode(components.ViewModeFollow)
	case key.Matches(msg, m.keys.Quit):
		m.Cleanup()
		return tea.Quit
	case key.Matches(msg, m.keys.GotoTop):
		m.history.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.history.GotoBottom()
	case key.Matches(msg, m.keys.RowUp):
		m.history.MoveUp()
	case key.Matches(msg, m.keys.RowDown):
		m.history.MoveDown()
	}
	return nil
}

func (m *connectModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Cleanup()
		return tea.Quit

	case key.Matches(msg, m.keys.InsertMode):
		m.SetInputMode(models.InputModeInsert)
		m.input.Focus()

	case key.Matches(msg, m.keys.VisualMode):
		m.history.SetDisplayMode(m.terminal.GetDisplayMode())
		m.history.RefreshDisplayWithRawData(m.GetRawData())
		m.history.SetViewMode(components.ViewModeVisual)

	case key.Matches(msg, m.keys.Clear):
		m.ClearData()
		m.terminal.Clear()
		m.history.Clear()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()

	case toggleDisplay(msg, m.keys.TerminalKeys, m.terminal):
		m.refresh()
	}
	return nil
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Input box with its border, then the status bar
		height := msg.Height - 3 - 1
		m.terminal.SetSize(msg.Width, height)
		m.history.SetSize(msg.Width, height)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.ConnectionStatusMsg:
		applyConnectionStatus(m.SerialModel, m.statusBar, msg)
		if msg.Connected {
			m.input.Focus()
		}

	case components.ModemStatusMsg:
		m.statusBar.UpdateModemStatus(msg.Status)

	case txStatusMsg:
		status := components.StatusWritten
		if msg.err != nil {
			status = components.StatusError
		}
		if m.SetTXStatus(msg.sent, status) {
			m.refresh()
		}
		if msg.err != nil {
			m.addNotice(fmt.Sprintf("Write failed: %v", msg.err))
		}

	case components.DataReceivedMsg:
		// Wait for the first WindowSizeMsg
		if m.IsReady() {
			m.record(msg)
		}

	case tea.KeyMsg:
		switch {
		case m.IsInInsertMode():
			if cmd, handled := m.updateInsert(msg); handled {
				return m, cmd
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		case m.history.GetViewMode() == components.ViewModeVisual:
			return m, m.updateVisual(msg)
		default:
			return m, m.updateNormal(msg)
		}
	}

	// Blink and other text input messages
	var cmds []tea.Cmd
	if m.IsInInsertMode() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	_, cmd := m.terminal.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// modeLabel names the status bar mode; visual mode overrides normal
func (m *connectModel) modeLabel() string {
	if !m.IsInInsertMode() && m.history.GetViewMode() == components.ViewModeVisual {
		return components.ViewModeVisual.String()
	}
	return m.GetInputMode().String()
}

func (m *connectModel) View() string {
	var content string
	switch {
	case !m.IsReady():
		content = styles.InfoStyle.Render("Initializing...")
	case m.history.GetViewMode() == components.ViewModeVisual:
		content = m.history.View()
	default:
		content = m.terminal.View()
	}

	input := m.input.View(m.IsInInsertMode())
	if err := m.GetError(); err != nil && !m.IsConnected() {
		input = styles.ErrorStyle.Render(err.Error())
	}

	if m.IsReady() {
		m.statusBar.SetWidth(m.terminal.GetViewport().Width)
	}
	statusBar := m.statusBar.ComprehensiveStatusBar(
		m.modeLabel(),
		m.input.GetSendingMode().String(),
		m.history.GetViewMode().String(),
		m.IsConnected(),
		time.Now().Format("15:04:05"),
	)

	var helpView string
	if m.help.ShowAll {
		helpView = m.help.View(m.keys.ForMode(m.IsInInsertMode()))
	}
	return screen(content, helpView, input, statusBar)
}
