// Package native implements serialport.Binding for real hardware on top of
// go.bug.st/serial.
package native

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/allbin/go-serialport"
)

const (
	// readPoll is the read timeout used so that Read can notice ctx and
	// Close between bytes.
	readPoll = 100 * time.Millisecond

	// breakDuration is how long the line is held in break for Set with Brk.
	breakDuration = 250 * time.Millisecond
)

// ErrFlowControl is returned by Open for flow control settings the
// underlying library cannot apply.
var ErrFlowControl = fmt.Errorf("flow control: %w", errors.ErrUnsupported)

type conn struct {
	path   string
	port   serial.Port
	mode   serial.Mode
	closed atomic.Bool
}

type lockState struct {
	handles int
	lock    bool
}

// Binding talks to serial devices of the host.
type Binding struct {
	mu    sync.Mutex
	locks map[string]*lockState
	next  serialport.Handle
	conns *xsync.MapOf[serialport.Handle, *conn]

	// replaced in tests
	openPort  func(name string, mode *serial.Mode) (serial.Port, error)
	listPorts func() ([]*enumerator.PortDetails, error)
	enrich    func(info *serialport.PortInfo)
}

// Ensure Binding implements serialport.Binding at compile time
var _ serialport.Binding = (*Binding)(nil)

// New returns a binding for the host's serial devices.
func New() *Binding {
	return &Binding{
		locks:     make(map[string]*lockState),
		conns:     xsync.NewMapOf[serialport.Handle, *conn](),
		openPort:  serial.Open,
		listPorts: enumerator.GetDetailedPortsList,
		enrich:    enrichPortInfo,
	}
}

func (b *Binding) Open(ctx context.Context, path string, opts serialport.OpenOptions) (serialport.Handle, error) {
	mode, err := modeFor(opts)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.locks[path]
	if st != nil && st.handles > 0 && st.lock {
		return 0, serialport.ErrPortLocked
	}

	port, err := b.openPort(path, mode)
	if err != nil {
		return 0, mapError(err)
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		_ = port.Close()
		return 0, mapError(err)
	}

	if st == nil {
		st = &lockState{}
		b.locks[path] = st
	}
	st.handles++
	st.lock = opts.Lock

	h := b.next
	b.next++
	b.conns.Store(h, &conn{path: path, port: port, mode: *mode})
	return h, nil
}

func (b *Binding) Close(ctx context.Context, h serialport.Handle) error {
	c, ok := b.conns.LoadAndDelete(h)
	if !ok {
		return fmt.Errorf("handle %d: %w", h, serialport.ErrHandleInvalid)
	}
	c.closed.Store(true)

	b.mu.Lock()
	if st := b.locks[c.path]; st != nil {
		st.handles--
		if st.handles <= 0 {
			delete(b.locks, c.path)
		}
	}
	b.mu.Unlock()

	if err := c.port.Close(); err != nil {
		return mapError(err)
	}
	return nil
}

func (b *Binding) lookup(h serialport.Handle) (*conn, error) {
	c, ok := b.conns.Load(h)
	if !ok || c.closed.Load() {
		return nil, fmt.Errorf("handle %d: %w", h, serialport.ErrHandleInvalid)
	}
	return c, nil
}

func (b *Binding) Update(ctx context.Context, h serialport.Handle, opts serialport.UpdateOptions) error {
	if opts.BaudRate <= 0 {
		return &serialport.ConfigError{Field: "baudRate", Value: opts.BaudRate}
	}
	c, err := b.lookup(h)
	if err != nil {
		return err
	}

	mode := c.mode
	mode.BaudRate = opts.BaudRate
	if err := c.port.SetMode(&mode); err != nil {
		return mapError(err)
	}
	c.mode = mode
	return nil
}

func (b *Binding) Write(ctx context.Context, h serialport.Handle, p []byte) (int, error) {
	c, err := b.lookup(h)
	if err != nil {
		return 0, err
	}
	n, err := c.port.Write(p)
	if err != nil {
		return n, mapError(err)
	}
	return n, nil
}

// Read waits for at least one byte. The port's read timeout is kept short so
// the loop can give up when ctx ends or the handle is closed.
func (b *Binding) Read(ctx context.Context, h serialport.Handle, p []byte) (int, error) {
	c, err := b.lookup(h)
	if err != nil {
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, err := c.port.Read(p)
		if c.closed.Load() {
			return 0, fmt.Errorf("handle %d: %w", h, serialport.ErrCanceled)
		}
		if err != nil {
			return n, mapError(err)
		}
		if n > 0 {
			return n, nil
		}
		// timeout without data
	}
}

func (b *Binding) Drain(ctx context.Context, h serialport.Handle) error {
	c, err := b.lookup(h)
	if err != nil {
		return err
	}
	return mapError(c.port.Drain())
}

func (b *Binding) Flush(ctx context.Context, h serialport.Handle) error {
	c, err := b.lookup(h)
	if err != nil {
		return err
	}
	if err := c.port.ResetInputBuffer(); err != nil {
		return mapError(err)
	}
	return mapError(c.port.ResetOutputBuffer())
}

// Set drives DTR and RTS and sends a break when Brk is set. CTS, DSR and
// LowLatency have no counterpart in go.bug.st/serial and are ignored.
func (b *Binding) Set(ctx context.Context, h serialport.Handle, opts serialport.SetOptions) error {
	c, err := b.lookup(h)
	if err != nil {
		return err
	}
	if err := c.port.SetDTR(opts.DTR); err != nil {
		return mapError(err)
	}
	if err := c.port.SetRTS(opts.RTS); err != nil {
		return mapError(err)
	}
	if opts.Brk {
		if err := c.port.Break(breakDuration); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (b *Binding) Get(ctx context.Context, h serialport.Handle) (serialport.ModemStatus, error) {
	c, err := b.lookup(h)
	if err != nil {
		return serialport.ModemStatus{}, err
	}
	bits, err := c.port.GetModemStatusBits()
	if err != nil {
		return serialport.ModemStatus{}, mapError(err)
	}
	return serialport.ModemStatus{CTS: bits.CTS, DSR: bits.DSR, DCD: bits.DCD}, nil
}

func (b *Binding) GetBaudRate(ctx context.Context, h serialport.Handle) (int, error) {
	c, err := b.lookup(h)
	if err != nil {
		return 0, err
	}
	return c.mode.BaudRate, nil
}

// List returns the serial devices reported by the enumerator, enriched from
// sysfs where available. When the enumerator fails, /dev is scanned for
// well-known device names instead.
func (b *Binding) List(ctx context.Context) ([]serialport.PortInfo, error) {
	details, err := b.listPorts()
	if err != nil {
		paths, scanErr := scanDevices(devDir)
		if scanErr != nil {
			return nil, fmt.Errorf("list ports: %w", errors.Join(err, scanErr))
		}
		ports := make([]serialport.PortInfo, 0, len(paths))
		for _, path := range paths {
			info := serialport.PortInfo{Path: path}
			b.enrich(&info)
			ports = append(ports, info)
		}
		return ports, nil
	}

	ports := make([]serialport.PortInfo, 0, len(details))
	for _, d := range details {
		info := portInfoFromDetails(d)
		b.enrich(&info)
		ports = append(ports, info)
	}
	return ports, nil
}

func portInfoFromDetails(d *enumerator.PortDetails) serialport.PortInfo {
	info := serialport.PortInfo{Path: d.Name}
	if d.IsUSB {
		info.VendorID = d.VID
		info.ProductID = d.PID
		info.SerialNumber = d.SerialNumber
	}
	return info
}

// modeFor converts open options into a serial.Mode.
func modeFor(opts serialport.OpenOptions) (*serial.Mode, error) {
	if opts.XOn || opts.XOff || opts.XAny || opts.RTSCTS {
		return nil, ErrFlowControl
	}
	parity, err := convertParity(opts.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := convertStopBits(opts.StopBits)
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

func convertParity(p serialport.Parity) (serial.Parity, error) {
	switch p {
	case serialport.ParityNone, "":
		return serial.NoParity, nil
	case serialport.ParityOdd:
		return serial.OddParity, nil
	case serialport.ParityEven:
		return serial.EvenParity, nil
	case serialport.ParityMark:
		return serial.MarkParity, nil
	case serialport.ParitySpace:
		return serial.SpaceParity, nil
	}
	return 0, &serialport.ConfigError{Field: "parity", Value: p}
}

func convertStopBits(sb serialport.StopBits) (serial.StopBits, error) {
	switch sb {
	case serialport.StopBitsOne, 0:
		return serial.OneStopBit, nil
	case serialport.StopBitsOnePointFive:
		return serial.OnePointFiveStopBits, nil
	case serialport.StopBitsTwo:
		return serial.TwoStopBits, nil
	}
	return 0, &serialport.ConfigError{Field: "stopBits", Value: sb}
}

// mapError translates serial.PortError codes into serialport errors, keeping
// the original message.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var perr *serial.PortError
	if !errors.As(err, &perr) {
		return err
	}

	switch perr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", serialport.ErrPortMissing, err)
	case serial.PortBusy:
		return fmt.Errorf("%w: %v", serialport.ErrPortLocked, err)
	case serial.PortClosed:
		return fmt.Errorf("%w: %v", serialport.ErrCanceled, err)
	case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
		return fmt.Errorf("%w: %v", serialport.ErrConfigInvalid, err)
	}
	return err
}
