package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/binding/mock"
	"github.com/allbin/go-serialport/internal/tui/components"
)

func TestInputMode(t *testing.T) {
	m := NewSerialModel("/dev/ttyUSB0")
	assert.Equal(t, InputModeNormal, m.GetInputMode())
	assert.False(t, m.IsInInsertMode())

	assert.Equal(t, InputModeInsert, m.ToggleInputMode())
	assert.True(t, m.IsInInsertMode())
	assert.Equal(t, "INSERT", m.GetInputMode().String())

	assert.Equal(t, InputModeNormal, m.ToggleInputMode())
}

func TestSetTXStatus(t *testing.T) {
	m := NewSerialModel("/dev/ttyUSB0")
	sent := time.Now()

	m.AddRawData(components.DataReceivedMsg{Timestamp: sent, Data: []byte("rx")})
	m.AddRawData(components.DataReceivedMsg{Timestamp: sent, Data: []byte("tx"), IsTX: true, Status: components.StatusPending})

	assert.True(t, m.SetTXStatus(sent, components.StatusWritten))
	data := m.GetRawData()
	assert.Equal(t, "", data[0].Status)
	assert.Equal(t, components.StatusWritten, data[1].Status)

	m.ClearData()
	assert.False(t, m.SetTXStatus(sent, components.StatusError))
	assert.Empty(t, m.GetRawData())
}

func TestCleanupClosesPort(t *testing.T) {
	b := mock.New()
	b.CreatePort("/dev/ttyMOCK0", mock.CreatePortOptions{})

	port, err := serialport.New(b, "/dev/ttyMOCK0", serialport.WithAutoOpen(false))
	require.NoError(t, err)
	require.NoError(t, port.OpenContext(context.Background()))

	m := NewSerialModel(port.Path())
	m.SetPort(port)
	m.Cleanup()

	assert.False(t, port.IsOpen())
	assert.Nil(t, m.GetPort())
	assert.Error(t, m.GetContext().Err())

	// Safe without a port
	m.Cleanup()
}

func TestHistoryTrim(t *testing.T) {
	m := NewSerialModel("/dev/ttyUSB0")

	limit := MaxHistory + MaxHistory/10
	for i := 0; i < limit; i++ {
		require.False(t, m.AddRawData(components.DataReceivedMsg{Data: []byte{byte(i)}}))
	}
	assert.True(t, m.AddRawData(components.DataReceivedMsg{Data: []byte("last")}))

	data := m.GetRawData()
	assert.Len(t, data, MaxHistory)
	assert.Equal(t, []byte("last"), data[len(data)-1].Data)
	assert.Equal(t, limit+1-MaxHistory, m.Dropped())

	m.ClearData()
	assert.Zero(t, m.Dropped())
}

func TestTogglePause(t *testing.T) {
	m := NewSerialModel("/dev/ttyUSB0")
	assert.False(t, m.IsPaused())
	assert.True(t, m.TogglePause())
	assert.False(t, m.TogglePause())
}
