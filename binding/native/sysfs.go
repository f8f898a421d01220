package native

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/allbin/go-serialport"
)

// readSysfsFile returns the trimmed content of path, or "" if it cannot be
// read.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// findUSBDevice walks up from the sysfs directory of a tty to the USB device
// owning it. ifaceDir is the USB interface directory directly below it.
func findUSBDevice(dir string) (usbDir, ifaceDir string) {
	prev := ""
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, "idVendor")); err == nil {
			return d, prev
		}
		if parent := filepath.Dir(d); parent == d {
			return "", ""
		}
		prev = d
	}
}

// enrichFromSysfs fills the metadata of info that is still unknown from the
// USB device above dir. Fields already set are kept.
func enrichFromSysfs(info *serialport.PortInfo, dir string) {
	usbDir, ifaceDir := findUSBDevice(dir)
	if usbDir == "" {
		return
	}

	setIfEmpty(&info.VendorID, readSysfsFile(filepath.Join(usbDir, "idVendor")))
	setIfEmpty(&info.ProductID, readSysfsFile(filepath.Join(usbDir, "idProduct")))
	setIfEmpty(&info.SerialNumber, readSysfsFile(filepath.Join(usbDir, "serial")))
	setIfEmpty(&info.Manufacturer, readSysfsFile(filepath.Join(usbDir, "manufacturer")))

	location := filepath.Base(usbDir)
	if ifaceDir != "" {
		location = filepath.Base(ifaceDir)
	}
	setIfEmpty(&info.LocationID, location)
}

// pnpID returns the name of the entry in byIDDir (normally
// /dev/serial/by-id) linking to devPath.
func pnpID(byIDDir, devPath string) string {
	target, err := filepath.EvalSymlinks(devPath)
	if err != nil {
		return ""
	}
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		resolved, err := filepath.EvalSymlinks(filepath.Join(byIDDir, entry.Name()))
		if err == nil && resolved == target {
			return entry.Name()
		}
	}
	return ""
}

func setIfEmpty(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
