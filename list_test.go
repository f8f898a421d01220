package serialport

import (
	"context"
	"errors"
	"testing"
)

type listBinding struct {
	Binding
	ports []PortInfo
	err   error
}

func (b listBinding) List(context.Context) ([]PortInfo, error) {
	return b.ports, b.err
}

func TestListContextSortsAndNeverReturnsNil(t *testing.T) {
	ports, err := ListContext(context.Background(), listBinding{})
	if err != nil {
		t.Fatalf("ListContext failed: %v", err)
	}
	if ports == nil {
		t.Error("ListContext returned nil slice for empty binding")
	}

	ports, err = ListContext(context.Background(), listBinding{ports: []PortInfo{
		{Path: "/dev/ttyUSB1"},
		{Path: "/dev/ttyACM0"},
		{Path: "/dev/ttyUSB0"},
	}})
	if err != nil {
		t.Fatalf("ListContext failed: %v", err)
	}
	for i := 1; i < len(ports); i++ {
		if ports[i-1].Path > ports[i].Path {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1].Path, ports[i].Path)
		}
	}
}

func TestListContextError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := ListContext(context.Background(), listBinding{err: boom}); !errors.Is(err, boom) {
		t.Errorf("ListContext error = %v, expected %v", err, boom)
	}
	if _, err := ListContext(context.Background(), nil); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("ListContext(nil) error = %v, expected ErrConfigInvalid", err)
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		info     PortInfo
		expected string
	}{
		{PortInfo{Path: "/dev/ttyUSB0"}, "USB Serial Port"},
		{PortInfo{Path: "/dev/ttyACM0"}, "USB CDC/ACM Device"},
		{PortInfo{Path: "/dev/ttyS0"}, "Standard Serial Port"},
		{PortInfo{Path: "/dev/ttyAMA0"}, "ARM Serial Port"},
		{PortInfo{Path: "/dev/ttymxc0"}, "i.MX Serial Port"},
		{PortInfo{Path: "/dev/ttyO0"}, "OMAP Serial Port"},
		{PortInfo{Path: "/dev/ttySAC0"}, "Samsung Serial Port"},
		{PortInfo{Path: "/dev/ttyTHS0"}, "Tegra Serial Port"},
		{PortInfo{Path: "COM3"}, "Windows COM Port"},
		{PortInfo{Path: "/dev/cu.usbserial-1410"}, "macOS Serial Port"},
		{PortInfo{Path: "/dev/weird", VendorID: "0403"}, "USB Serial Port"},
		{PortInfo{Path: "/dev/unknown"}, "Serial Port"},
	}

	for _, test := range tests {
		result := Description(test.info)
		if result != test.expected {
			t.Errorf("Description(%s) = %s, expected %s", test.info.Path, result, test.expected)
		}
	}
}

func TestPortInfoMatches(t *testing.T) {
	info := PortInfo{Path: "/dev/ttyUSB0", Manufacturer: "FTDI", SerialNumber: "FT123456", VendorID: "0403"}

	tests := []struct {
		filter   string
		expected bool
	}{
		{"", true},
		{"usb0", true},
		{"ftdi", true},
		{"FT1234", true},
		{"0403", true},
		{"acm", false},
	}

	for _, test := range tests {
		if got := info.Matches(test.filter); got != test.expected {
			t.Errorf("Matches(%q) = %v, expected %v", test.filter, got, test.expected)
		}
	}
}
