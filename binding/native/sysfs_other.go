//go:build !linux

package native

import "github.com/allbin/go-serialport"

// enrichPortInfo has nothing to add outside Linux; the enumerator already
// reports what the platform knows.
func enrichPortInfo(*serialport.PortInfo) {}
