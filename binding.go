package serialport

import "context"

// Handle identifies one active connection opened through a Binding. It is
// valid from a successful Open until the matching Close.
type Handle uint64

// Binding is the contract every serial backend implements.
//
// Methods block until the operation completes. A Port never calls a binding
// on the goroutine of its own caller: binding calls run on the port's task
// queue (Read runs on the port's reader goroutine), and their outcome is
// handed back through callbacks or events, so implementations are free to
// block. Implementations must be safe for concurrent use; Read in particular
// runs concurrently with every other method.
type Binding interface {
	// Open connects to path. It fails with ErrPortMissing when the backend
	// does not know the path and ErrPortLocked when a lock prevents it.
	Open(ctx context.Context, path string, opts OpenOptions) (Handle, error)
	// Close releases h and cancels its pending reads with ErrCanceled.
	Close(ctx context.Context, h Handle) error
	// Update changes the baud rate of an open handle. An empty BaudRate
	// fails with ErrConfigInvalid before the handle is looked at.
	Update(ctx context.Context, h Handle, opts UpdateOptions) error
	// Write queues p for transmission and reports the bytes accepted.
	// Implementations must not retain p.
	Write(ctx context.Context, h Handle, p []byte) (int, error)
	// Read blocks until inbound data is available and copies it into p.
	// It returns ErrCanceled once h is closed and ErrDisconnected when the
	// device went away.
	Read(ctx context.Context, h Handle, p []byte) (int, error)
	// Drain waits until all written data has been transmitted.
	Drain(ctx context.Context, h Handle) error
	// Flush discards data received but not read and written but not
	// transmitted.
	Flush(ctx context.Context, h Handle) error
	// Set changes the modem control lines.
	Set(ctx context.Context, h Handle, opts SetOptions) error
	// Get reads the modem status lines.
	Get(ctx context.Context, h Handle) (ModemStatus, error)
	// GetBaudRate returns the baud rate currently in effect.
	GetBaudRate(ctx context.Context, h Handle) (int, error)
	// List enumerates the devices known to the backend.
	List(ctx context.Context) ([]PortInfo, error)
}

// OpenOptions is the configuration a binding receives on Open.
type OpenOptions struct {
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity
	XOn      bool
	XOff     bool
	XAny     bool
	RTSCTS   bool
	Lock     bool
	// Platform carries backend specific settings untouched.
	Platform map[string]any
}

// UpdateOptions is the configuration that can change on an open handle.
type UpdateOptions struct {
	BaudRate int
}

// SetOptions describes modem control line states. Use DefaultSetOptions as
// a starting point.
type SetOptions struct {
	Brk        bool
	CTS        bool
	DSR        bool
	DTR        bool
	RTS        bool
	LowLatency bool
}

// DefaultSetOptions returns the line states applied when nothing else is
// requested: DTR and RTS asserted, everything else off.
func DefaultSetOptions() SetOptions {
	return SetOptions{DTR: true, RTS: true}
}

// ModemStatus holds the modem status lines reported by Get.
type ModemStatus struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	DCD bool // Data Carrier Detect
}

// PortInfo describes a device returned by List. Metadata that the backend
// does not know is left empty and omitted from JSON.
type PortInfo struct {
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	PnpID        string `json:"pnpId,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	VendorID     string `json:"vendorId,omitempty"`
	ProductID    string `json:"productId,omitempty"`
}
