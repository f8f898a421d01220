// Package serialport provides serial port communication on top of
// interchangeable backends.
//
// A Binding is the low-level contract a backend implements: open a device,
// read and write bytes, change line settings and control signals, enumerate
// devices. Two bindings ship with the module: binding/native talks to real
// hardware through go.bug.st/serial, binding/mock simulates devices in
// memory for tests.
//
// A Port sits on top of a Binding and owns the lifecycle of one connection.
//
// # Basic Usage
//
//	port, err := serialport.New(native.New(), "/dev/ttyUSB0",
//	    serialport.WithBaudRate(115200),
//	    serialport.WithAutoOpen(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := port.OpenContext(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer port.CloseContext(context.Background())
//
//	n, err := port.WriteContext(ctx, []byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// # Callbacks and Events
//
// Every operation accepts an optional callback. If one is given it receives
// the outcome; otherwise a failure is emitted as an EventError:
//
//	port.On(serialport.EventError, func(ev serialport.Event) {
//	    log.Println("serial:", ev.Err)
//	})
//	port.Write("AT\r\n", nil)
//
// Callbacks and listeners run one at a time on the port's own goroutine, in
// submission order. Writes made before the port is open are held and sent
// once it opens.
//
// An EventData listener switches the port into flowing mode, where inbound
// chunks are delivered as events instead of being buffered for Read.
//
// # Disconnects
//
// When the device goes away the port emits EventDisconnect followed by
// EventClose carrying the cause. The port may be opened again afterwards.
//
// # Error Handling
//
// Use errors.Is with the predefined errors:
//
//	if errors.Is(err, serialport.ErrPortLocked) {
//	    // another handle owns the device
//	}
package serialport
