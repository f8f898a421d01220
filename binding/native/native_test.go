package native

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/allbin/go-serialport"
)

// fakePort implements the parts of serial.Port the binding uses.
type fakePort struct {
	serial.Port

	mu      sync.Mutex
	mode    serial.Mode
	written []byte
	inbound chan []byte
	closed  bool
	dtr     bool
	rts     bool
	breaks  int
}

func newFakePort(mode *serial.Mode) *fakePort {
	return &fakePort{mode: *mode, inbound: make(chan []byte, 8)}
}

func (f *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (f *fakePort) SetMode(mode *serial.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = *mode
	return nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	select {
	case data := <-f.inbound:
		return copy(p, data), nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakePort) SetDTR(dtr bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dtr = dtr
	return nil
}

func (f *fakePort) SetRTS(rts bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rts = rts
	return nil
}

func (f *fakePort) Break(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaks++
	return nil
}

func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{CTS: true, DCD: true, RI: true}, nil
}

func (f *fakePort) Drain() error { return nil }
func (f *fakePort) ResetInputBuffer() error { return nil }
func (f *fakePort) ResetOutputBuffer() error { return nil }

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestBinding(t *testing.T) (*Binding, map[string]*fakePort) {
	t.Helper()
	ports := make(map[string]*fakePort)
	var mu sync.Mutex

	b := New()
	b.openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
		mu.Lock()
		defer mu.Unlock()
		if name == "/dev/missing" {
			return nil, errors.New("no such device")
		}
		p := newFakePort(mode)
		ports[name] = p
		return p, nil
	}
	b.enrich = func(*serialport.PortInfo) {}
	return b, ports
}

func defaultOpts() serialport.OpenOptions {
	return serialport.OpenOptions{BaudRate: 9600, DataBits: 8, StopBits: serialport.StopBitsOne, Parity: serialport.ParityNone, Lock: true}
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		name     string
		opts     serialport.OpenOptions
		expected serial.Mode
	}{
		{
			name:     "8N1",
			opts:     defaultOpts(),
			expected: serial.Mode{BaudRate: 9600, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			name:     "7E2",
			opts:     serialport.OpenOptions{BaudRate: 115200, DataBits: 7, StopBits: serialport.StopBitsTwo, Parity: serialport.ParityEven},
			expected: serial.Mode{BaudRate: 115200, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{
			name:     "8M1.5",
			opts:     serialport.OpenOptions{BaudRate: 300, DataBits: 8, StopBits: serialport.StopBitsOnePointFive, Parity: serialport.ParityMark},
			expected: serial.Mode{BaudRate: 300, DataBits: 8, Parity: serial.MarkParity, StopBits: serial.OnePointFiveStopBits},
		},
		{
			name:     "5S1",
			opts:     serialport.OpenOptions{BaudRate: 1200, DataBits: 5, StopBits: serialport.StopBitsOne, Parity: serialport.ParitySpace},
			expected: serial.Mode{BaudRate: 1200, DataBits: 5, Parity: serial.SpaceParity, StopBits: serial.OneStopBit},
		},
		{
			name:     "odd",
			opts:     serialport.OpenOptions{BaudRate: 4800, DataBits: 8, StopBits: serialport.StopBitsOne, Parity: serialport.ParityOdd},
			expected: serial.Mode{BaudRate: 4800, DataBits: 8, Parity: serial.OddParity, StopBits: serial.OneStopBit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := modeFor(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *mode)
		})
	}
}

func TestModeForRejects(t *testing.T) {
	opts := defaultOpts()
	opts.RTSCTS = true
	_, err := modeFor(opts)
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	opts = defaultOpts()
	opts.XOn = true
	_, err = modeFor(opts)
	assert.ErrorIs(t, err, ErrFlowControl)

	opts = defaultOpts()
	opts.Parity = "bogus"
	_, err = modeFor(opts)
	assert.ErrorIs(t, err, serialport.ErrConfigInvalid)

	opts = defaultOpts()
	opts.StopBits = 3
	_, err = modeFor(opts)
	assert.ErrorIs(t, err, serialport.ErrConfigInvalid)
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	plain := errors.New("plain")
	assert.Equal(t, plain, mapError(plain))
}

func TestOpenLocking(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBinding(t)

	h, err := b.Open(ctx, "/dev/ttyUSB0", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, serialport.Handle(0), h)

	_, err = b.Open(ctx, "/dev/ttyUSB0", defaultOpts())
	require.ErrorIs(t, err, serialport.ErrPortLocked)

	require.NoError(t, b.Close(ctx, h))
	assert.ErrorIs(t, b.Close(ctx, h), serialport.ErrHandleInvalid)

	h, err = b.Open(ctx, "/dev/ttyUSB0", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, serialport.Handle(1), h)

	_, err = b.Open(ctx, "/dev/missing", defaultOpts())
	assert.Error(t, err)
}

func TestOpenWithoutLockShares(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBinding(t)

	opts := defaultOpts()
	opts.Lock = false
	h1, err := b.Open(ctx, "/dev/ttyUSB0", opts)
	require.NoError(t, err)
	h2, err := b.Open(ctx, "/dev/ttyUSB0", opts)
	require.NoError(t, err)

	require.NoError(t, b.Close(ctx, h1))
	_, err = b.Write(ctx, h2, []byte("x"))
	assert.NoError(t, err)
}

func TestWriteUpdateSetGet(t *testing.T) {
	ctx := context.Background()
	b, ports := newTestBinding(t)

	h, err := b.Open(ctx, "/dev/ttyUSB0", defaultOpts())
	require.NoError(t, err)
	fp := ports["/dev/ttyUSB0"]

	n, err := b.Write(ctx, h, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("hello"), fp.written)

	assert.ErrorIs(t, b.Update(ctx, h, serialport.UpdateOptions{}), serialport.ErrConfigInvalid)
	require.NoError(t, b.Update(ctx, h, serialport.UpdateOptions{BaudRate: 57600}))
	assert.Equal(t, 57600, fp.mode.BaudRate)
	rate, err := b.GetBaudRate(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 57600, rate)

	require.NoError(t, b.Set(ctx, h, serialport.SetOptions{DTR: true, RTS: false, Brk: true}))
	assert.True(t, fp.dtr)
	assert.False(t, fp.rts)
	assert.Equal(t, 1, fp.breaks)

	status, err := b.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, serialport.ModemStatus{CTS: true, DCD: true}, status)

	require.NoError(t, b.Flush(ctx, h))
	require.NoError(t, b.Drain(ctx, h))
}

func TestReadAndClose(t *testing.T) {
	ctx := context.Background()
	b, ports := newTestBinding(t)

	h, err := b.Open(ctx, "/dev/ttyUSB0", defaultOpts())
	require.NoError(t, err)
	ports["/dev/ttyUSB0"].inbound <- []byte("data")

	buf := make([]byte, 16)
	n, err := b.Read(ctx, h, buf)
	require.NoError(t, err)
	assert.Equal(t, "data", string(buf[:n]))

	done := make(chan error, 1)
	go func() {
		_, err := b.Read(ctx, h, buf)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close(ctx, h))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, serialport.ErrCanceled)
	case <-time.After(time.Second):
		t.Fatal("Read did not return after Close")
	}
	assert.True(t, ports["/dev/ttyUSB0"].closed)
}

func TestReadContextCanceled(t *testing.T) {
	b, _ := newTestBinding(t)
	h, err := b.Open(context.Background(), "/dev/ttyUSB0", defaultOpts())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.Read(ctx, h, make([]byte, 4))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestList(t *testing.T) {
	b, _ := newTestBinding(t)
	b.listPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "FT1"},
			{Name: "/dev/ttyS0"},
		}, nil
	}

	ports, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []serialport.PortInfo{
		{Path: "/dev/ttyUSB0", VendorID: "0403", ProductID: "6001", SerialNumber: "FT1"},
		{Path: "/dev/ttyS0"},
	}, ports)
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name        string
		shouldMatch bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"ttymxc2", true},
		{"ttyTHS1", true},
		{"tty1", false},
		{"console", false},
		{"ptmx", false},
		{"ptyp0", false},
		{"random", false},
	}

	for _, tt := range tests {
		if got := isSerialName(tt.name); got != tt.shouldMatch {
			t.Errorf("isSerialName(%s) = %v, expected %v", tt.name, got, tt.shouldMatch)
		}
	}
}

func TestScanDevicesSkipsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ttyUSB0"), nil, 0o644))

	ports, err := scanDevices(dir)
	require.NoError(t, err)
	assert.NotNil(t, ports)
	assert.Empty(t, ports)

	_, err = scanDevices(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{os.TempDir(), false},
		{"/nonexistent", false},
	}

	for _, tt := range tests {
		if got := isCharacterDevice(tt.path); got != tt.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}
