package serialport

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// List enumerates the devices known to b and hands them to cb on a separate
// goroutine. The slice is never nil on success.
func List(b Binding, cb func([]PortInfo, error)) {
	go func() {
		ports, err := ListContext(context.Background(), b)
		cb(ports, err)
	}()
}

// ListContext enumerates the devices known to b, sorted by path.
func ListContext(ctx context.Context, b Binding) ([]PortInfo, error) {
	if b == nil {
		return nil, &ConfigError{Field: "binding", Value: nil}
	}

	ports, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	if ports == nil {
		ports = []PortInfo{}
	}

	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Path < ports[j].Path
	})

	return ports, nil
}

// Description returns a human-readable description for the kind of device
// behind info, based on its path.
func Description(info PortInfo) string {
	name := filepath.Base(info.Path)
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(name, "COM"):
		return "Windows COM Port"
	case strings.HasPrefix(name, "cu.") || strings.HasPrefix(name, "tty."):
		return "macOS Serial Port"
	case info.VendorID != "":
		return "USB Serial Port"
	default:
		return "Serial Port"
	}
}

// Matches reports whether any of the path or metadata fields of info
// contains filter, case-insensitively. An empty filter matches everything.
func (info PortInfo) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	for _, field := range []string{
		info.Path, info.Manufacturer, info.SerialNumber, info.PnpID,
		info.LocationID, info.VendorID, info.ProductID,
	} {
		if strings.Contains(strings.ToLower(field), filter) {
			return true
		}
	}
	return false
}
