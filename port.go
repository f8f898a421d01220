package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/allbin/go-serialport/internal/taskqueue"
	"github.com/allbin/go-serialport/logger"
)

// Callback receives the outcome of a port operation.
type Callback func(err error)

// WriteCallback receives the outcome of a write.
type WriteCallback func(n int, err error)

// maxReadChunk bounds a single binding read.
const maxReadChunk = 64 * 1024

type portState int

const (
	stateClosed portState = iota
	stateOpening
	stateOpen
	stateClosing
)

func (s portState) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// session is the state tied to one open handle.
type session struct {
	handle Handle
	buffer *inboundBuffer
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the reader goroutine exits
}

func (s *session) stop() {
	s.cancel()
	s.buffer.close()
}

type pendingWrite struct {
	data []byte
	cb   WriteCallback
}

// Port is a serial port connection on top of a Binding.
//
// Operations take an optional callback. When one is given the outcome goes
// to it alone; without one a failure is emitted as an EventError and a
// success is dropped. Callbacks and listeners always run on the port's task
// queue, never on the goroutine that started the operation, and in the order
// the operations were submitted.
//
// A Port is also a byte stream: Read pulls inbound data and Writer returns an
// io.Writer. Inbound data is buffered up to the configured high water mark;
// while the buffer is full the port stops reading from the binding. When an
// EventData listener is registered, data is delivered as events instead and
// the next binding read waits until the listener returned.
type Port struct {
	binding Binding
	log     logger.Logger
	queue   *taskqueue.Queue
	events  *emitter

	mu         sync.Mutex
	config     Config
	state      portState
	session    *session
	pending    []pendingWrite
	openSignal chan struct{} // closed and replaced on every successful open
}

// Ensure Port implements io.Reader at compile time
var _ io.Reader = (*Port)(nil)

// New validates the configuration and creates a Port for path on top of b.
// An invalid configuration fails immediately with an error matching
// ErrConfigInvalid and no binding call is made. With AutoOpen (the default)
// an Open without callback is scheduled; register listeners with
// WithListener to observe its outcome.
func New(b Binding, path string, opts ...Option) (*Port, error) {
	if b == nil {
		return nil, &ConfigError{Field: "binding", Value: nil}
	}

	config := DefaultConfig()
	config.Path = path
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.logger
	if log == nil {
		log = logger.Nop()
	}

	p := &Port{
		binding:    b,
		log:        log.With("path", config.Path),
		queue:      taskqueue.New(),
		events:     newEmitter(),
		openSignal: make(chan struct{}),
	}
	for _, l := range config.listeners {
		p.events.on(l.kind, l.fn)
	}
	config.listeners = nil
	config.logger = nil
	p.config = config

	if config.AutoOpen {
		p.Open(nil)
	}

	return p, nil
}

// Path returns the device path
func (p *Port) Path() string {
	return p.config.Path
}

// Config returns a copy of the current configuration
func (p *Port) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// IsOpen reports whether the port holds a valid handle
func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateOpen || p.state == stateClosing
}

// Handle returns the current binding handle, if any
func (p *Port) Handle() (Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil || (p.state != stateOpen && p.state != stateClosing) {
		return 0, false
	}
	return p.session.handle, true
}

// On registers fn for events of kind and returns a function removing it.
func (p *Port) On(kind EventKind, fn Listener) (remove func()) {
	if fn == nil || !kind.Valid() {
		panic(fmt.Sprintf("serialport: invalid listener for %v", kind))
	}
	return p.events.on(kind, fn)
}

// Open connects to the device. It fails with ErrPortAlreadyOpen when the
// port is open and with ErrPortOpening while an open is in progress; neither
// reaches the binding.
func (p *Port) Open(cb Callback) {
	p.mu.Lock()
	switch p.state {
	case stateOpen, stateClosing:
		p.mu.Unlock()
		p.completeLater(cb, p.wrap("open", ErrPortAlreadyOpen))
		return
	case stateOpening:
		p.mu.Unlock()
		p.completeLater(cb, p.wrap("open", ErrPortOpening))
		return
	}
	p.state = stateOpening
	opts := p.config.openOptions()
	p.mu.Unlock()

	p.queue.Post(func() { p.doOpen(opts, cb) })
}

func (p *Port) doOpen(opts OpenOptions, cb Callback) {
	p.log.Debug("opening", "baudRate", opts.BaudRate, "lock", opts.Lock)

	h, err := p.binding.Open(context.Background(), p.config.Path, opts)
	if err != nil {
		p.mu.Lock()
		p.state = stateClosed
		pending := p.pending
		p.pending = nil
		p.mu.Unlock()

		p.log.Debug("open failed", "error", err)
		p.complete(cb, p.wrap("open", err))
		for _, w := range pending {
			p.completeWrite(w.cb, 0, p.wrap("write", ErrPortNotOpen))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		handle: h,
		buffer: newInboundBuffer(p.config.HighWaterMark),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.state = stateOpen
	p.session = s
	pending := p.pending
	p.pending = nil
	close(p.openSignal)
	p.openSignal = make(chan struct{})
	p.mu.Unlock()

	p.log.Debug("opened", "handle", h)
	go p.readLoop(s)

	p.events.emit(Event{Kind: EventOpen})
	p.complete(cb, nil)
	p.flushPending(h, pending)
}

// flushPending submits the writes queued before the open as a single
// binding write, keeping their order.
func (p *Port) flushPending(h Handle, pending []pendingWrite) {
	if len(pending) == 0 {
		return
	}

	total := 0
	for _, w := range pending {
		total += len(w.data)
	}
	data := make([]byte, 0, total)
	for _, w := range pending {
		data = append(data, w.data...)
	}

	p.log.Debug("flushing queued writes", "writes", len(pending), "bytes", total)
	n, err := p.binding.Write(context.Background(), h, data)
	for _, w := range pending {
		if err != nil {
			p.completeWrite(w.cb, 0, p.wrap("write", err))
			continue
		}
		took := min(n, len(w.data))
		n -= took
		if took < len(w.data) {
			p.completeWrite(w.cb, took, p.wrap("write", io.ErrShortWrite))
			continue
		}
		p.completeWrite(w.cb, took, nil)
	}
}

// Close releases the handle. Operations submitted before Close complete
// first; writes submitted after it fail with ErrPortNotOpen. Buffered inbound
// data remains readable, after which Read returns io.EOF.
func (p *Port) Close(cb Callback) {
	p.mu.Lock()
	if p.state != stateOpen {
		p.mu.Unlock()
		p.completeLater(cb, p.wrap("close", ErrPortNotOpen))
		return
	}
	p.state = stateClosing
	s := p.session
	p.mu.Unlock()

	p.queue.Post(func() { p.doClose(s, cb) })
}

func (p *Port) doClose(s *session, cb Callback) {
	p.mu.Lock()
	if p.session != s || p.state != stateClosing {
		// a disconnect already closed this session
		p.mu.Unlock()
		p.complete(cb, nil)
		return
	}
	p.mu.Unlock()

	p.log.Debug("closing", "handle", s.handle)
	if err := p.binding.Close(context.Background(), s.handle); err != nil {
		p.mu.Lock()
		p.state = stateOpen
		p.mu.Unlock()

		p.complete(cb, p.wrap("close", err))
		return
	}

	p.finishClose(s, nil)
	p.complete(cb, nil)
}

// finishClose must run on the task queue.
func (p *Port) finishClose(s *session, cause error) {
	p.mu.Lock()
	p.state = stateClosed
	p.mu.Unlock()

	s.stop()
	p.log.Debug("closed", "handle", s.handle)
	p.events.emit(Event{Kind: EventClose, Err: cause})
}

func (p *Port) readLoop(s *session) {
	defer close(s.done)

	buf := make([]byte, min(p.config.HighWaterMark, maxReadChunk))
	for {
		room, err := s.buffer.waitRoom(s.ctx)
		if err != nil {
			return
		}

		n, err := p.binding.Read(s.ctx, s.handle, buf[:min(room, len(buf))])
		if n > 0 {
			p.deliver(s, append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			p.queue.Post(func() { p.handleDisconnect(s, err) })
			return
		}
	}
}

// deliver hands a chunk to the data listeners, or to the inbound buffer when
// there are none.
func (p *Port) deliver(s *session, chunk []byte) {
	if p.events.count(EventData) == 0 {
		s.buffer.push(chunk)
		return
	}

	// a listener removed after the count leaves the chunk to the buffer,
	// which may then hold one chunk past the high water mark

	dispatched := make(chan struct{})
	p.queue.Post(func() {
		defer close(dispatched)
		if !p.events.emit(Event{Kind: EventData, Data: chunk}) {
			s.buffer.push(chunk)
		}
	})

	select {
	case <-dispatched:
	case <-s.ctx.Done():
	}
}

func (p *Port) handleDisconnect(s *session, err error) {
	p.mu.Lock()
	if p.session != s || (p.state != stateOpen && p.state != stateClosing) {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if !errors.Is(err, ErrDisconnected) {
		err = fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	p.log.Debug("disconnected", "handle", s.handle, "error", err)
	p.events.emit(Event{Kind: EventDisconnect, Err: err})

	// the handle is unusable already; release whatever the binding still holds
	_ = p.binding.Close(context.Background(), s.handle)

	p.finishClose(s, err)
}

// Write submits data for transmission. data may be a []byte, a string
// (encoded with the configured Encoding) or a []int of byte values; it is
// copied before Write returns. Any other type is returned as ErrInvalidData.
//
// Writes submitted before the first open, or while an open is in progress,
// are held and sent as one binding write once that open succeeds; if it
// fails they fail with ErrPortNotOpen. Once a session has been closed,
// writes fail with ErrPortNotOpen until the port is opened again.
func (p *Port) Write(data any, cb WriteCallback) error {
	b, err := normalize(data, p.config.Encoding)
	if err != nil {
		return err
	}

	p.mu.Lock()
	switch p.state {
	case stateOpen:
		h := p.session.handle
		p.mu.Unlock()
		p.queue.Post(func() { p.doWrite(h, b, cb) })
	case stateClosing:
		p.mu.Unlock()
		p.queue.Post(func() { p.completeWrite(cb, 0, p.wrap("write", ErrPortNotOpen)) })
	case stateClosed:
		if p.session != nil {
			p.mu.Unlock()
			p.queue.Post(func() { p.completeWrite(cb, 0, p.wrap("write", ErrPortNotOpen)) })
			return nil
		}
		fallthrough
	default:
		p.pending = append(p.pending, pendingWrite{data: b, cb: cb})
		p.mu.Unlock()
	}
	return nil
}

func (p *Port) doWrite(h Handle, b []byte, cb WriteCallback) {
	n, err := p.binding.Write(context.Background(), h, b)
	p.log.Debug("write", "handle", h, "bytes", n)
	p.completeWrite(cb, n, p.wrap("write", err))
}

// Update changes the baud rate of the open port. A zero BaudRate is a
// programming error returned immediately; the callback is not called.
func (p *Port) Update(opts UpdateOptions, cb Callback) error {
	if opts.BaudRate <= 0 {
		return &ConfigError{Field: "baudRate", Value: opts.BaudRate}
	}
	p.submit("update", cb, func(ctx context.Context, h Handle) error {
		if err := p.binding.Update(ctx, h, opts); err != nil {
			return err
		}
		p.mu.Lock()
		p.config.BaudRate = opts.BaudRate
		p.mu.Unlock()
		return nil
	})
	return nil
}

// Set changes the modem control lines.
func (p *Port) Set(opts SetOptions, cb Callback) {
	p.submit("set", cb, func(ctx context.Context, h Handle) error {
		return p.binding.Set(ctx, h, opts)
	})
}

// Flush discards unread input and untransmitted output.
func (p *Port) Flush(cb Callback) {
	p.submit("flush", cb, func(ctx context.Context, h Handle) error {
		return p.binding.Flush(ctx, h)
	})
}

// Drain waits until previously submitted writes have been transmitted.
func (p *Port) Drain(cb Callback) {
	p.submit("drain", cb, func(ctx context.Context, h Handle) error {
		return p.binding.Drain(ctx, h)
	})
}

// Get reads the modem status lines.
func (p *Port) Get(cb func(ModemStatus, error)) {
	var status ModemStatus
	p.submit("get", func(err error) {
		if cb != nil {
			cb(status, err)
		} else if err != nil {
			p.emitError(err)
		}
	}, func(ctx context.Context, h Handle) error {
		var err error
		status, err = p.binding.Get(ctx, h)
		return err
	})
}

// GetBaudRate asks the binding for the baud rate in effect.
func (p *Port) GetBaudRate(cb func(int, error)) {
	var rate int
	p.submit("get baud rate", func(err error) {
		if cb != nil {
			cb(rate, err)
		} else if err != nil {
			p.emitError(err)
		}
	}, func(ctx context.Context, h Handle) error {
		var err error
		rate, err = p.binding.GetBaudRate(ctx, h)
		return err
	})
}

// submit runs fn against the open handle on the task queue.
func (p *Port) submit(op string, cb Callback, fn func(ctx context.Context, h Handle) error) {
	p.mu.Lock()
	if p.state != stateOpen {
		p.mu.Unlock()
		p.completeLater(cb, p.wrap(op, ErrPortNotOpen))
		return
	}
	h := p.session.handle
	p.mu.Unlock()

	p.queue.Post(func() {
		p.complete(cb, p.wrap(op, fn(context.Background(), h)))
	})
}

// Read reads inbound data, implementing io.Reader. Before the first open it
// waits for the open to complete. After a close it returns the data that was
// still buffered, then io.EOF.
func (p *Port) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

// ReadContext is Read with cancellation.
func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	for {
		p.mu.Lock()
		s := p.session
		wait := p.openSignal
		opening := p.state == stateOpening
		p.mu.Unlock()

		if s != nil && !opening {
			return s.buffer.read(ctx, buf)
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Buffered returns the number of inbound bytes waiting to be read.
func (p *Port) Buffered() int {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.buffer.len()
}

// Writer returns an io.Writer whose Write blocks until the binding accepted
// the data.
func (p *Port) Writer() io.Writer {
	return portWriter{p}
}

type portWriter struct {
	p *Port
}

func (w portWriter) Write(b []byte) (int, error) {
	return w.p.WriteContext(context.Background(), b)
}

func (p *Port) complete(cb Callback, err error) {
	if cb != nil {
		cb(err)
		return
	}
	if err != nil {
		p.emitError(err)
	}
}

func (p *Port) completeLater(cb Callback, err error) {
	p.queue.Post(func() { p.complete(cb, err) })
}

func (p *Port) completeWrite(cb WriteCallback, n int, err error) {
	if cb != nil {
		cb(n, err)
		return
	}
	if err != nil {
		p.emitError(err)
	}
}

func (p *Port) emitError(err error) {
	if !p.events.emit(Event{Kind: EventError, Err: err}) {
		p.log.Debug("unhandled port error", "error", err)
	}
}

func (p *Port) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, p.config.Path, err)
}
