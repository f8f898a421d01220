// Package mock provides an in-memory serialport.Binding.
//
// Devices are registered by path with CreatePort and exist until Reset.
// Handles come and go through Open and Close; the device keeps its inbound
// buffer, last write and recording across them. Tests drive the device side
// with EmitData and Disconnect and inspect what the port did with LastWrite,
// Recording and OpenOptions.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/allbin/go-serialport"
)

// CreatePortOptions describes a simulated device.
type CreatePortOptions struct {
	Echo        bool   // Written bytes are fed back as inbound data
	Record      bool   // Written bytes are appended to the recording
	ReadyData   []byte // Inbound data emitted after every successful open
	MaxReadSize int    // Upper bound for a single Read, 0 for none

	Manufacturer string
	SerialNumber string
	PnpID        string
	LocationID   string
	VendorID     string
	ProductID    string
}

// device is a registry entry.
type device struct {
	path string
	opts CreatePortOptions

	data   []byte
	poller chan struct{} // closed and replaced when data arrives

	handles  map[serialport.Handle]*handle
	openOpts *serialport.OpenOptions
	baudRate int
	lines    serialport.SetOptions

	lastWrite []byte
	recording []byte

	disconnected bool
}

func (d *device) signal() {
	close(d.poller)
	d.poller = make(chan struct{})
}

func (d *device) liveHandles() int {
	n := 0
	for _, hd := range d.handles {
		if hd.err == nil {
			n++
		}
	}
	return n
}

func (d *device) info() serialport.PortInfo {
	return serialport.PortInfo{
		Path:         d.path,
		Manufacturer: d.opts.Manufacturer,
		SerialNumber: d.opts.SerialNumber,
		PnpID:        d.opts.PnpID,
		LocationID:   d.opts.LocationID,
		VendorID:     d.opts.VendorID,
		ProductID:    d.opts.ProductID,
	}
}

type handle struct {
	id  serialport.Handle
	dev *device
	err error         // set once the handle is unusable
	end chan struct{} // closed together with setting err
}

// Binding is an in-memory serialport.Binding. The zero value is not usable;
// create one with New.
type Binding struct {
	mu      sync.Mutex
	devices map[string]*device
	handles *xsync.MapOf[serialport.Handle, *handle]
	next    serialport.Handle
}

// Ensure Binding implements serialport.Binding at compile time
var _ serialport.Binding = (*Binding)(nil)

// New returns an empty binding.
func New() *Binding {
	return &Binding{
		devices: make(map[string]*device),
		handles: xsync.NewMapOf[serialport.Handle, *handle](),
	}
}

// CreatePort registers a device at path, replacing any device registered
// there before.
func (b *Binding) CreatePort(path string, opts CreatePortOptions) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.devices[path]; ok {
		b.endHandles(old, serialport.ErrCanceled, true)
	}
	b.devices[path] = &device{
		path:    path,
		opts:    opts,
		poller:  make(chan struct{}),
		handles: make(map[serialport.Handle]*handle),
	}
}

// Reset drops every device and handle and restarts handle numbering.
func (b *Binding) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, d := range b.devices {
		b.endHandles(d, serialport.ErrCanceled, true)
	}
	b.devices = make(map[string]*device)
	b.handles.Clear()
	b.next = 0
}

// endHandles invalidates the handles of d. Callers hold b.mu.
func (b *Binding) endHandles(d *device, err error, remove bool) {
	for id, hd := range d.handles {
		if hd.err == nil {
			hd.err = err
			close(hd.end)
		}
		if remove {
			delete(d.handles, id)
			b.handles.Delete(id)
		}
	}
}

// lookup returns the live handle h. Callers hold b.mu.
func (b *Binding) lookup(h serialport.Handle) (*handle, error) {
	hd, ok := b.handles.Load(h)
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, serialport.ErrHandleInvalid)
	}
	if hd.err != nil {
		return nil, fmt.Errorf("handle %d: %w", h, hd.err)
	}
	return hd, nil
}

// Open allocates a handle on the device at path.
func (b *Binding) Open(ctx context.Context, path string, opts serialport.OpenOptions) (serialport.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok || d.disconnected {
		return 0, serialport.ErrPortMissing
	}
	if d.liveHandles() > 0 && d.openOpts != nil && d.openOpts.Lock {
		return 0, serialport.ErrPortLocked
	}

	id := b.next
	b.next++
	hd := &handle{id: id, dev: d, end: make(chan struct{})}
	b.handles.Store(id, hd)
	d.handles[id] = hd

	stored := opts
	d.openOpts = &stored
	d.baudRate = opts.BaudRate

	if len(d.opts.ReadyData) > 0 {
		d.data = append(d.data, d.opts.ReadyData...)
		d.signal()
	}

	return id, nil
}

// Close releases h.
func (b *Binding) Close(ctx context.Context, h serialport.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	hd, ok := b.handles.LoadAndDelete(h)
	if !ok {
		return fmt.Errorf("handle %d: %w", h, serialport.ErrHandleInvalid)
	}
	delete(hd.dev.handles, h)
	if hd.err == nil {
		hd.err = serialport.ErrCanceled
		close(hd.end)
	}
	return nil
}

// Update applies a new baud rate to the device behind h.
func (b *Binding) Update(ctx context.Context, h serialport.Handle, opts serialport.UpdateOptions) error {
	if opts.BaudRate <= 0 {
		return &serialport.ConfigError{Field: "baudRate", Value: opts.BaudRate}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	hd, err := b.lookup(h)
	if err != nil {
		return err
	}
	hd.dev.baudRate = opts.BaudRate
	return nil
}

// Write stores p as the last write and, when echoing, feeds it back as input.
func (b *Binding) Write(ctx context.Context, h serialport.Handle, p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hd, err := b.lookup(h)
	if err != nil {
		return 0, err
	}

	d := hd.dev
	d.lastWrite = append([]byte(nil), p...)
	if d.opts.Record {
		d.recording = append(d.recording, p...)
	}
	if d.opts.Echo && len(p) > 0 {
		d.data = append(d.data, p...)
		d.signal()
	}
	return len(p), nil
}

// Read blocks until inbound data is available, h is closed or ctx is done.
func (b *Binding) Read(ctx context.Context, h serialport.Handle, p []byte) (int, error) {
	b.mu.Lock()
	hd, err := b.lookup(h)
	b.mu.Unlock()
	if err != nil {
		return 0, err
	}

	for {
		b.mu.Lock()
		if hd.err != nil {
			b.mu.Unlock()
			return 0, fmt.Errorf("handle %d: %w", h, hd.err)
		}
		d := hd.dev
		if len(d.data) > 0 {
			size := len(p)
			if d.opts.MaxReadSize > 0 {
				size = min(size, d.opts.MaxReadSize)
			}
			n := copy(p[:size], d.data)
			d.data = d.data[n:]
			b.mu.Unlock()
			return n, nil
		}
		wait := d.poller
		b.mu.Unlock()

		select {
		case <-wait:
		case <-hd.end:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Drain returns immediately; writes are never buffered.
func (b *Binding) Drain(ctx context.Context, h serialport.Handle) error {
	return b.validate(h)
}

// Flush only validates h; the device keeps its inbound bytes.
func (b *Binding) Flush(ctx context.Context, h serialport.Handle) error {
	return b.validate(h)
}

// Set records the control line states.
func (b *Binding) Set(ctx context.Context, h serialport.Handle, opts serialport.SetOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	hd, err := b.lookup(h)
	if err != nil {
		return err
	}
	hd.dev.lines = opts
	return nil
}

// Get reports CTS asserted and DSR and DCD cleared.
func (b *Binding) Get(ctx context.Context, h serialport.Handle) (serialport.ModemStatus, error) {
	if err := b.validate(h); err != nil {
		return serialport.ModemStatus{}, err
	}
	return serialport.ModemStatus{CTS: true}, nil
}

// GetBaudRate returns the rate last applied to the device.
func (b *Binding) GetBaudRate(ctx context.Context, h serialport.Handle) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hd, err := b.lookup(h)
	if err != nil {
		return 0, err
	}
	return hd.dev.baudRate, nil
}

// List returns the registered devices that are not disconnected. It never
// fails.
func (b *Binding) List(ctx context.Context) ([]serialport.PortInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ports := make([]serialport.PortInfo, 0, len(b.devices))
	for _, d := range b.devices {
		if d.disconnected {
			continue
		}
		ports = append(ports, d.info())
	}
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Path < ports[j].Path
	})
	return ports, nil
}

func (b *Binding) validate(h serialport.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.lookup(h)
	return err
}

// EmitData appends data to the inbound buffer of the device at path and
// wakes waiting readers.
func (b *Binding) EmitData(path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, serialport.ErrPortMissing)
	}
	d.data = append(d.data, data...)
	d.signal()
	return nil
}

// Disconnect simulates removal of the device at path. Every handle on it
// becomes unusable and reads fail with serialport.ErrDisconnected; the
// handles stay allocated until closed. The device cannot be opened until
// Reconnect.
func (b *Binding) Disconnect(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, serialport.ErrPortMissing)
	}
	d.disconnected = true
	d.data = nil
	b.endHandles(d, serialport.ErrDisconnected, false)
	return nil
}

// Reconnect makes a disconnected device available again.
func (b *Binding) Reconnect(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, serialport.ErrPortMissing)
	}
	d.disconnected = false
	return nil
}

// LastWrite returns a copy of the bytes passed to the most recent Write on
// the device at path.
func (b *Binding) LastWrite(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[path]; ok {
		return append([]byte(nil), d.lastWrite...)
	}
	return nil
}

// Recording returns everything written to a device created with Record.
func (b *Binding) Recording(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[path]; ok {
		return append([]byte(nil), d.recording...)
	}
	return nil
}

// OpenOptions returns the options of the most recent successful open.
func (b *Binding) OpenOptions(path string) (serialport.OpenOptions, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok || d.openOpts == nil {
		return serialport.OpenOptions{}, false
	}
	return *d.openOpts, true
}

// Handles returns the handles currently allocated on path, in order.
func (b *Binding) Handles(path string) []serialport.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[path]
	if !ok {
		return nil
	}
	ids := make([]serialport.Handle, 0, len(d.handles))
	for id := range d.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BaudRate returns the baud rate last applied to the device at path.
func (b *Binding) BaudRate(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[path]; ok {
		return d.baudRate
	}
	return 0
}

// Lines returns the control line states last applied with Set.
func (b *Binding) Lines(path string) serialport.SetOptions {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[path]; ok {
		return d.lines
	}
	return serialport.SetOptions{}
}

// Buffered returns the number of inbound bytes not read yet.
func (b *Binding) Buffered(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[path]; ok {
		return len(d.data)
	}
	return 0
}
