package models

import (
	"context"
	"sync"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
)

const (
	// closeTimeout bounds how long Cleanup waits for the port to close
	closeTimeout = 2 * time.Second

	// MaxHistory is the number of messages kept once the history is trimmed
	MaxHistory = 10000
)

// InputMode is the vim-like mode of the connect input line
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ConnectionStatusMsg reports that the port opened, failed to open or went
// away
type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// SerialModel is the state shared by the listen and connect programs. The
// port and input mode are read from the port goroutines and guarded by mu;
// the rest is only touched from the bubbletea update loop.
type SerialModel struct {
	portPath string

	mu        sync.RWMutex
	port      *serialport.Port
	inputMode InputMode

	connected bool
	err       error
	ready     bool
	paused    bool
	rawData   []components.DataReceivedMsg
	dropped   int

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSerialModel(portPath string) *SerialModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &SerialModel{
		portPath: portPath,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *SerialModel) GetPort() *serialport.Port {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.port
}

func (m *SerialModel) SetPort(port *serialport.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.port = port
}

func (m *SerialModel) GetPortPath() string {
	return m.portPath
}

func (m *SerialModel) IsConnected() bool {
	return m.connected
}

func (m *SerialModel) SetConnected(connected bool) {
	m.connected = connected
}

func (m *SerialModel) GetError() error {
	return m.err
}

func (m *SerialModel) SetError(err error) {
	m.err = err
}

func (m *SerialModel) IsReady() bool {
	return m.ready
}

func (m *SerialModel) SetReady(ready bool) {
	m.ready = ready
}

// IsPaused reports whether the display is frozen. Data keeps being recorded
// while paused.
func (m *SerialModel) IsPaused() bool {
	return m.paused
}

func (m *SerialModel) TogglePause() bool {
	m.paused = !m.paused
	return m.paused
}

func (m *SerialModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

// AddRawData appends msg to the history. Once the history grows a tenth past
// MaxHistory the oldest messages are dropped down to MaxHistory, and
// AddRawData reports true so views built from the history can be redrawn.
func (m *SerialModel) AddRawData(msg components.DataReceivedMsg) bool {
	m.rawData = append(m.rawData, msg)
	if len(m.rawData) <= MaxHistory+MaxHistory/10 {
		return false
	}

	over := len(m.rawData) - MaxHistory
	m.rawData = append([]components.DataReceivedMsg(nil), m.rawData[over:]...)
	m.dropped += over
	return true
}

// Dropped returns the number of messages trimmed from the history
func (m *SerialModel) Dropped() int {
	return m.dropped
}

// SetTXStatus updates the status of the TX message sent at ts. It reports
// false when the message is no longer in the history.
func (m *SerialModel) SetTXStatus(ts time.Time, status string) bool {
	for i := len(m.rawData) - 1; i >= 0; i-- {
		if m.rawData[i].IsTX && m.rawData[i].Timestamp.Equal(ts) {
			m.rawData[i].Status = status
			return true
		}
	}
	return false
}

func (m *SerialModel) ClearData() {
	m.rawData = nil
	m.dropped = 0
}

func (m *SerialModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *SerialModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *SerialModel) ToggleInputMode() InputMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inputMode == InputModeInsert {
		m.inputMode = InputModeNormal
	} else {
		m.inputMode = InputModeInsert
	}
	return m.inputMode
}

func (m *SerialModel) IsInInsertMode() bool {
	return m.GetInputMode() == InputModeInsert
}

// GetContext returns the context the port goroutines run under. It is
// canceled by Cleanup.
func (m *SerialModel) GetContext() context.Context {
	return m.ctx
}

// Cleanup stops the port goroutines and closes the port. It is safe to call
// more than once.
func (m *SerialModel) Cleanup() {
	m.cancel()

	m.mu.Lock()
	port := m.port
	m.port = nil
	m.mu.Unlock()

	if port != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = port.CloseContext(ctx)
	}
}
