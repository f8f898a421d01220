package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/models"
)

// setFlags overrides viper keys for the duration of the test
func setFlags(t *testing.T, values map[string]any) {
	t.Helper()
	for k, v := range values {
		old := viper.Get(k)
		viper.Set(k, v)
		t.Cleanup(func() { viper.Set(k, old) })
	}
}

func mockFlags(t *testing.T) {
	t.Helper()
	setFlags(t, map[string]any{
		"mock":      true,
		"baud":      115200,
		"data-bits": 8,
		"stop-bits": "1",
		"parity":    "none",
		"no-lock":   false,
		"log-level": "error",
	})
}

func TestParseHexString(t *testing.T) {
	tests := []struct {
		input    string
		expected []byte
		wantErr  bool
	}{
		{"48656C6C6F", []byte("Hello"), false},
		{"48 65 6c 6c 6f", []byte("Hello"), false},
		{"0x48 0x69", []byte("Hi"), false},
		{"DE:AD:BE:EF", []byte{0xDE, 0xAD, 0xBE, 0xEF}, false},
		{"  00ff  ", []byte{0x00, 0xFF}, false},
		{"", nil, true},
		{"ABC", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		got, err := parseHexString(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseHexString(%q) expected error, got %X", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseHexString(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if string(got) != string(tt.expected) {
			t.Errorf("parseHexString(%q) = %X, expected %X", tt.input, got, tt.expected)
		}
	}
}

func TestParseSignalState(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
		wantErr  bool
	}{
		{"high", true, false},
		{"ON", true, false},
		{"true", true, false},
		{"1", true, false},
		{"low", false, false},
		{"Off", false, false},
		{"false", false, false},
		{"0", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		got, err := parseSignalState(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSignalState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("parseSignalState(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestFormatSignalState(t *testing.T) {
	assert.Equal(t, "HIGH", formatSignalState(true))
	assert.Equal(t, "LOW", formatSignalState(false))
}

func TestParseSignalMask(t *testing.T) {
	mask, err := parseSignalMask(nil)
	require.NoError(t, err)
	assert.Equal(t, signalCTS|signalDSR|signalDCD, mask)

	mask, err = parseSignalMask([]string{"cts", " DCD"})
	require.NoError(t, err)
	assert.Equal(t, signalCTS|signalDCD, mask)

	_, err = parseSignalMask([]string{"ri"})
	assert.Error(t, err)
}

func TestDiffSignals(t *testing.T) {
	a := serialport.ModemStatus{CTS: true}
	b := serialport.ModemStatus{CTS: false, DSR: true}

	assert.Equal(t, signalCTS|signalDSR, diffSignals(a, b))
	assert.Equal(t, signalMask(0), diffSignals(a, a))
}

func TestWaitForSignalChangeTimesOut(t *testing.T) {
	mockFlags(t)

	port, err := openPort(context.Background(), mockDevice)
	require.NoError(t, err)
	t.Cleanup(func() { closePort(port) })

	last, err := port.GetContext(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, changed, err := waitForSignalChange(ctx, port, last, signalCTS, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, signalMask(0), changed)
}

func TestFilterPorts(t *testing.T) {
	ports := []serialport.PortInfo{
		{Path: "/dev/ttyACM0", Manufacturer: "Arduino"},
		{Path: "/dev/ttyAMA0"},
		{Path: "/dev/ttyS0"},
		{Path: "/dev/ttyUSB0", Manufacturer: "FTDI", VendorID: "0403"},
	}

	paths := func(infos []serialport.PortInfo) []string {
		out := make([]string, 0, len(infos))
		for _, info := range infos {
			out = append(out, info.Path)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   string
		portType string
		expected []string
	}{
		{"no filter", "", "", []string{"/dev/ttyACM0", "/dev/ttyAMA0", "/dev/ttyS0", "/dev/ttyUSB0"}},
		{"all", "", "all", []string{"/dev/ttyACM0", "/dev/ttyAMA0", "/dev/ttyS0", "/dev/ttyUSB0"}},
		{"usb", "", "usb", []string{"/dev/ttyACM0", "/dev/ttyUSB0"}},
		{"standard", "", "standard", []string{"/dev/ttyS0"}},
		{"arm", "", "arm", []string{"/dev/ttyAMA0"}},
		{"unknown type", "", "bogus", []string{}},
		{"text", "ftdi", "", []string{"/dev/ttyUSB0"}},
		{"text and type", "arduino", "standard", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, paths(filterPorts(ports, tt.filter, tt.portType)))
		})
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/dev/ttyUSB0", "USB Serial"},
		{"/dev/ttyACM1", "USB CDC/ACM"},
		{"/dev/ttyAMA0", "ARM Serial"},
		{"/dev/ttymxc2", "i.MX Serial"},
		{"/dev/ttySAC0", "Samsung Serial"},
		{"/dev/ttyTHS1", "Tegra Serial"},
		{"/dev/ttyO0", "OMAP Serial"},
		{"/dev/ttyS3", "Standard Serial"},
		{"COM3", "Serial Port"},
	}

	for _, tt := range tests {
		if got := getPortType(tt.path); got != tt.expected {
			t.Errorf("getPortType(%q) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func TestPortRows(t *testing.T) {
	rows := portRows([]serialport.PortInfo{
		{Path: "/dev/ttyUSB0", VendorID: "0403", ProductID: "6001"},
		{Path: "/dev/ttyS0"},
	})
	require.Len(t, rows, 2)

	assert.Equal(t, "/dev/ttyUSB0", rows[0].Data[columnKeyPort])
	assert.Equal(t, "0403:6001", rows[0].Data[columnKeyUSB])
	assert.Equal(t, "USB Serial Port", rows[0].Data[columnKeyDescription])
	assert.Equal(t, "", rows[1].Data[columnKeyUSB])

	assert.Contains(t, renderTable([]serialport.PortInfo{{Path: "/dev/ttyUSB0"}}), "/dev/ttyUSB0")
}

func TestFindPort(t *testing.T) {
	ports := []serialport.PortInfo{{Path: "/dev/ttyUSB0"}, {Path: "/dev/ttyACM0"}}

	info, ok := findPort(ports, "/dev/ttyACM0")
	assert.True(t, ok)
	assert.Equal(t, "/dev/ttyACM0", info.Path)

	info, ok = findPort(ports, "ttyUSB0")
	assert.True(t, ok)
	assert.Equal(t, "/dev/ttyUSB0", info.Path)

	_, ok = findPort(ports, "/dev/ttyS9")
	assert.False(t, ok)
}

func TestPreviewData(t *testing.T) {
	assert.Equal(t, "Hello", previewData([]byte("Hello"), 50))
	assert.Equal(t, "AT·", previewData([]byte("AT\n"), 50))
	assert.Equal(t, "abc...", previewData([]byte("abcdef"), 3))
}

func TestDisplayOptions(t *testing.T) {
	tests := []struct {
		name  string
		flags [3]bool // no-timestamps, show-indicators, raw
		want  [2]bool // hide timestamps, hide indicators
	}{
		{"defaults", [3]bool{false, false, false}, [2]bool{false, true}},
		{"indicators", [3]bool{false, true, false}, [2]bool{false, false}},
		{"no timestamps", [3]bool{true, true, false}, [2]bool{true, false}},
		{"raw wins", [3]bool{false, true, true}, [2]bool{true, true}},
	}

	for _, tt := range tests {
		hideTS, hideInd := displayOptions(tt.flags[0], tt.flags[1], tt.flags[2])
		if got := [2]bool{hideTS, hideInd}; got != tt.want {
			t.Errorf("%s: displayOptions() = %v, expected %v", tt.name, got, tt.want)
		}
	}
}

func TestPortOptions(t *testing.T) {
	mockFlags(t)
	setFlags(t, map[string]any{
		"baud":      9600,
		"data-bits": 7,
		"stop-bits": "2",
		"parity":    "E",
		"no-lock":   true,
	})

	port, err := newPort(mockDevice)
	require.NoError(t, err)

	cfg := port.Config()
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, 7, cfg.DataBits)
	assert.Equal(t, serialport.StopBitsTwo, cfg.StopBits)
	assert.Equal(t, serialport.ParityEven, cfg.Parity)
	assert.False(t, cfg.Lock)
	assert.False(t, cfg.AutoOpen)
	assert.False(t, port.IsOpen())
}

func TestPortOptionsRejectsBadFlags(t *testing.T) {
	mockFlags(t)

	setFlags(t, map[string]any{"parity": "sideways"})
	_, err := portOptions()
	assert.ErrorIs(t, err, serialport.ErrConfigInvalid)

	setFlags(t, map[string]any{"parity": "none", "stop-bits": "3"})
	_, err = portOptions()
	assert.ErrorIs(t, err, serialport.ErrConfigInvalid)

	setFlags(t, map[string]any{"stop-bits": "1", "baud": 0})
	_, err = newPort(mockDevice)
	assert.ErrorIs(t, err, serialport.ErrConfigInvalid)
}

func TestSendDataToMock(t *testing.T) {
	mockFlags(t)

	require.NoError(t, sendData(mockDevice, []byte("AT\r\n"), time.Second))
}

func TestSendDataMissingPort(t *testing.T) {
	mockFlags(t)
	setFlags(t, map[string]any{"mock": false})

	err := sendData("/dev/serialport-test-missing", []byte("x"), time.Second)
	assert.Error(t, err)
}

func TestSetControlLinesOnMock(t *testing.T) {
	mockFlags(t)

	lines := serialport.DefaultSetOptions()
	lines.DTR = false
	assert.NoError(t, setControlLines(mockDevice, lines))
}

func TestEncodeInput(t *testing.T) {
	send, display, err := encodeInput("hello", components.SendingModeASCII, lineEndings["lf"])
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), send)
	assert.Equal(t, []byte("hello"), display)

	send, _, err = encodeInput("AT", components.SendingModeASCII, lineEndings["crlf"])
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\r\n"), send)

	send, display, err = encodeInput("48 69", components.SendingModeHex, "\r\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("Hi"), send)
	assert.Equal(t, []byte("Hi"), display)

	_, _, err = encodeInput("4", components.SendingModeHex, "")
	assert.Error(t, err)
}

func TestConnectModelSend(t *testing.T) {
	mockFlags(t)

	port, err := openPort(context.Background(), mockDevice)
	require.NoError(t, err)

	m := newConnectModel(port.Path(), components.NewConnectionInfo(port.Config()), "\n")
	m.SetPort(port)
	t.Cleanup(m.Cleanup)

	m.input.SetValue("hello")
	cmd := m.send()
	require.NotNil(t, cmd)

	raw := m.GetRawData()
	require.Len(t, raw, 1)
	assert.Equal(t, components.StatusPending, raw[0].Status)
	assert.Equal(t, []byte("hello"), raw[0].Data)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	status, ok := msg.(txStatusMsg)
	require.True(t, ok)
	require.NoError(t, status.err)

	m.Update(msg)
	assert.Equal(t, components.StatusWritten, m.GetRawData()[0].Status)
}

func TestConnectModelRejectsBadHex(t *testing.T) {
	mockFlags(t)

	port, err := openPort(context.Background(), mockDevice)
	require.NoError(t, err)

	m := newConnectModel(port.Path(), components.NewConnectionInfo(port.Config()), "\n")
	m.SetPort(port)
	t.Cleanup(m.Cleanup)

	m.input.ToggleSendingMode()
	m.input.SetValue("xyz")

	assert.Nil(t, m.send())
	assert.Empty(t, m.GetRawData())
	assert.Equal(t, "xyz", m.input.Value())
}

func TestConnectModelConnectionStatus(t *testing.T) {
	m := newConnectModel("/dev/ttyUSB0", nil, "\n")

	m.Update(models.ConnectionStatusMsg{Connected: true})
	assert.True(t, m.IsConnected())
	assert.NoError(t, m.GetError())

	boom := errors.New("device went away")
	m.Update(models.ConnectionStatusMsg{Connected: false, Error: boom})
	assert.False(t, m.IsConnected())
	assert.Equal(t, boom, m.GetError())
}

func TestConnectModelModes(t *testing.T) {
	m := newConnectModel("/dev/ttyUSB0", nil, "\n")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, "NORMAL", m.modeLabel())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	assert.True(t, m.IsInInsertMode())

	// k is text while typing
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, "k", m.input.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.IsInInsertMode())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	assert.Equal(t, "VISUAL", m.modeLabel())
	assert.Contains(t, m.View(), "VISUAL")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, components.ViewModeFollow, m.history.GetViewMode())
}

func TestListenModelPause(t *testing.T) {
	m := newListenModel("/dev/ttyUSB0", nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Update(components.DataReceivedMsg{Timestamp: time.Now(), Data: []byte("one")})
	require.Len(t, m.terminal.Lines(), 1)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.True(t, m.IsPaused())
	assert.Equal(t, "PAUSED", m.viewMode())

	m.Update(components.DataReceivedMsg{Timestamp: time.Now(), Data: []byte("two")})
	assert.Len(t, m.terminal.Lines(), 1)
	assert.Len(t, m.GetRawData(), 2)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.False(t, m.IsPaused())
	assert.Len(t, m.terminal.Lines(), 2)
}

func TestListenModelToggles(t *testing.T) {
	m := newListenModel("/dev/ttyUSB0", nil)
	m.Update(components.DataReceivedMsg{Timestamp: time.Now(), Data: []byte("ok")})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	assert.False(t, m.terminal.GetDisplayMode().ShowHex)
	assert.NotContains(t, m.terminal.Lines()[0], "HEX:")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Empty(t, m.GetRawData())
	assert.Empty(t, m.terminal.Lines())
}

func TestApplyConnectionStatus(t *testing.T) {
	m := models.NewSerialModel("/dev/ttyUSB0")
	sb := components.NewStatusBar("/dev/ttyUSB0")

	applyConnectionStatus(m, sb, models.ConnectionStatusMsg{Connected: true})
	assert.True(t, m.IsConnected())

	applyConnectionStatus(m, sb, models.ConnectionStatusMsg{Error: serialport.ErrDisconnected})
	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.GetError(), serialport.ErrDisconnected)
}

func TestBuildPayload(t *testing.T) {
	got, err := buildPayload("AT", false, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("AT\n"), got)

	got, err = buildPayload("0x41 0x54", true, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("AT"), got)

	_, err = buildPayload("", false, false)
	assert.Error(t, err)
}

func TestCopyFromPortStopsAtLimit(t *testing.T) {
	mockFlags(t)

	port, err := openPort(context.Background(), mockDevice)
	require.NoError(t, err)
	t.Cleanup(func() { closePort(port) })

	// The mock device echoes what is written
	_, err = port.WriteContext(context.Background(), []byte("hello world"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out bytes.Buffer
	n, err := copyFromPort(ctx, port, &out, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", out.String())
}

func TestCopyFromPortStopsOnContext(t *testing.T) {
	mockFlags(t)

	port, err := openPort(context.Background(), mockDevice)
	require.NoError(t, err)
	t.Cleanup(func() { closePort(port) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	n, err := copyFromPort(ctx, port, &out, 64, 0)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
