/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
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

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

The port is opened with the global line settings and every chunk read from it
is shown as it arrives, with timestamps and in hex and ASCII. The display can
be paused with space while data keeps being recorded, and the status bar shows
when the device goes away.

Example usage:
  serialport listen /dev/ttyUSB0
  serialport listen /dev/ttyUSB0 --baud 9600
  serialport listen /dev/ttyUSB0 --raw`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		rawMode, _ := cmd.Flags().GetBool("raw")

		port, err := newPort(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := runListenTUI(port, noTimestamps, showIndicators, rawMode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators (off by default)")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
}

// listenModel is the read-only traffic view
type listenModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.ListenKeys
}

func newListenModel(portPath string, info *components.ConnectionInfo) *listenModel {
	m := &listenModel{
		SerialModel: models.NewSerialModel(portPath),
		terminal:    components.NewTerminal(80, 20),
		statusBar:   components.NewStatusBar(portPath),
		help:        help.New(),
		keys:        keys.NewListenKeys(),
	}
	m.statusBar.SetConnectionInfo(info)
	return m
}

func runListenTUI(port *serialport.Port, noTimestamps, showIndicators, rawMode bool) error {
	m := newListenModel(port.Path(), components.NewConnectionInfo(port.Config()))
	m.terminal.SetFormatOptions(displayOptions(noTimestamps, showIndicators, rawMode))

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go startPort(p, m.SerialModel, port, false)

	_, err := p.Run()
	m.Cleanup()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return nil
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Leave a line for the status bar
		m.terminal.SetSize(msg.Width, msg.Height-1)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.ConnectionStatusMsg:
		applyConnectionStatus(m.SerialModel, m.statusBar, msg)

	case components.DataReceivedMsg:
		if m.IsPaused() {
			m.AddRawData(msg)
			break
		}
		recordData(m.SerialModel, m.terminal, msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Pause):
			// Catch up on what arrived while paused
			if !m.TogglePause() {
				m.terminal.RefreshDisplayWithRawData(m.GetRawData())
			}

		case key.Matches(msg, m.keys.Clear):
			m.ClearData()
			m.terminal.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case toggleDisplay(msg, m.keys.TerminalKeys, m.terminal):
			m.terminal.RefreshDisplayWithRawData(m.GetRawData())
		}
	}

	_, cmd := m.terminal.Update(msg)
	return m, cmd
}

// viewMode labels the status bar; paused takes over from follow
func (m *listenModel) viewMode() string {
	if m.IsPaused() {
		return "PAUSED"
	}
	return components.ViewModeFollow.String()
}

func (m *listenModel) View() string {
	content := styles.InfoStyle.Render("Initializing...")
	if m.IsReady() {
		content = m.terminal.View()
	}

	m.statusBar.SetWidth(m.terminal.GetViewport().Width)
	statusBar := m.statusBar.ComprehensiveStatusBar("LISTEN", "", m.viewMode(), m.IsConnected(), time.Now().Format("15:04:05"))

	var helpView string
	if m.help.ShowAll {
		helpView = m.help.View(m.keys)
	}
	return screen(content, helpView, statusBar)
}
