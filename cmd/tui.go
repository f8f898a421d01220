/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/allbin/go-serialport/internal/tui/styles"
)

const (
	tuiReadBuffer     = 4096
	modemPollInterval = 250 * time.Millisecond
	writeTimeout      = 5 * time.Second
)

// txStatusMsg reports the outcome of a write started from the TUI
type txStatusMsg struct {
	sent time.Time
	err  error
}

// startPort opens port on behalf of a TUI and feeds its data, disconnects
// and, with pollModem, modem status changes into p as messages. It returns
// when the open completed.
func startPort(p *tea.Program, m *models.SerialModel, port *serialport.Port, pollModem bool) {
	ctx := m.GetContext()

	port.On(serialport.EventDisconnect, func(ev serialport.Event) {
		p.Send(models.ConnectionStatusMsg{Connected: false, Error: ev.Err})
	})

	if err := port.OpenContext(ctx); err != nil {
		p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
		return
	}

	m.SetPort(port)
	p.Send(models.ConnectionStatusMsg{Connected: true})

	if pollModem {
		go pollModemStatus(ctx, p, port)
	}
	go readPort(ctx, p, port)
}

// readPort forwards inbound data until ctx is done or the port closed.
func readPort(ctx context.Context, p *tea.Program, port *serialport.Port) {
	buffer := make([]byte, tuiReadBuffer)
	for {
		n, err := port.ReadContext(ctx, buffer)
		if n > 0 {
			// Send raw data with timestamp - formatting will happen in Update method
			data := make([]byte, n)
			copy(data, buffer[:n])
			p.Send(components.DataReceivedMsg{
				Timestamp: time.Now(),
				Data:      data,
			})
		}
		if err != nil {
			return
		}
	}
}

// pollModemStatus reports the modem status lines whenever they change.
func pollModemStatus(ctx context.Context, p *tea.Program, port *serialport.Port) {
	ticker := time.NewTicker(modemPollInterval)
	defer ticker.Stop()

	var last *serialport.ModemStatus
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := port.GetContext(ctx)
		if errors.Is(err, serialport.ErrPortNotOpen) {
			return
		}
		if err != nil {
			continue
		}
		if last == nil || *last != status {
			last = &status
			p.Send(components.ModemStatusMsg{Status: status, Timestamp: time.Now()})
		}
	}
}

// writeCmd writes data in the background and reports the outcome for the TX
// message sent at sent.
func writeCmd(ctx context.Context, port *serialport.Port, sent time.Time, data []byte) tea.Cmd {
	return func() tea.Msg {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()

		_, err := port.WriteContext(wctx, data)
		return txStatusMsg{sent: sent, err: err}
	}
}

// displayOptions picks the terminal prefixes from the listen/connect flags
func displayOptions(noTimestamps, showIndicators, rawMode bool) (hideTimestamps, hideIndicators bool) {
	if rawMode {
		return true, true
	}
	return noTimestamps, !showIndicators
}

// applyConnectionStatus records a connection change in the model and status
// bar
func applyConnectionStatus(m *models.SerialModel, sb *components.StatusBar, msg models.ConnectionStatusMsg) {
	m.SetConnected(msg.Connected)
	switch {
	case msg.Error != nil:
		m.SetError(msg.Error)
		sb.SetDisconnected(msg.Error)
	case msg.Connected:
		sb.SetConnected()
	default:
		sb.SetDisconnected(nil)
	}
}

// recordData adds inbound or outbound data to the history and the terminal.
// The whole terminal is redrawn when the history was trimmed.
func recordData(m *models.SerialModel, term *components.Terminal, msg components.DataReceivedMsg) {
	if m.AddRawData(msg) {
		term.RefreshDisplayWithRawData(m.GetRawData())
		return
	}
	term.AddMessage(msg)
}

// toggleDisplay applies the display toggles shared by listen and connect.
// It reports whether msg was one of them.
func toggleDisplay(msg tea.KeyMsg, k keys.TerminalKeys, term *components.Terminal) bool {
	switch {
	case key.Matches(msg, k.ToggleHex):
		term.ToggleHex()
	case key.Matches(msg, k.ToggleASCII):
		term.ToggleASCII()
	case key.Matches(msg, k.ToggleTimestamps):
		term.ToggleTimestamps()
	case key.Matches(msg, k.ToggleIndicators):
		term.ToggleIndicators()
	default:
		return false
	}
	return true
}

// screen stacks the data view, the help box when shown, and the rows below
// them (input line, status bar)
func screen(content, help string, rows ...string) string {
	parts := []string{styles.ContentBorderStyle.Render(content)}
	if help != "" {
		parts = append(parts, styles.HelpStyle.Render(help))
	}
	parts = append(parts, rows...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
