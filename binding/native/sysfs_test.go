package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/allbin/go-serialport"
)

// TestReadSysfsFile tests the sysfs file reading helper
func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		expected string
		setup    func(string) error
	}{
		{
			name:     "normal file",
			expected: "1234",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("1234\n"), 0644)
			},
		},
		{
			name:     "file with spaces",
			expected: "test value",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("  test value  \n"), 0644)
			},
		},
		{
			name:     "nonexistent file",
			expected: "",
			setup:    func(path string) error { return nil },
		},
		{
			name:     "empty file",
			expected: "",
			setup: func(path string) error {
				return os.WriteFile(path, []byte(""), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, tt.name)
			if err := tt.setup(testFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			result := readSysfsFile(testFile)
			if result != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// mockSysfs builds devices/usb5/5-2.3.1/5-2.3.1:1.0/ttyUSB0/tty/ttyUSB0 under
// a temp dir and returns the tty directory.
func mockSysfs(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()

	devicePath := filepath.Join(root, "devices", "usb5", "5-2.3.1")
	interfacePath := filepath.Join(devicePath, "5-2.3.1:1.0")
	ttyPath := filepath.Join(interfacePath, "ttyUSB0", "tty", "ttyUSB0")

	if err := os.MkdirAll(ttyPath, 0755); err != nil {
		t.Fatalf("Failed to create directory structure: %v", err)
	}
	for filename, content := range files {
		path := filepath.Join(devicePath, filename)
		if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", filename, err)
		}
	}
	return ttyPath
}

func TestEnrichFromSysfs(t *testing.T) {
	ttyPath := mockSysfs(t, map[string]string{
		"idVendor":     "0403",
		"idProduct":    "6010",
		"serial":       "FT123456",
		"manufacturer": "FTDI",
		"product":      "FT2232C Dual USB-UART",
	})

	info := serialport.PortInfo{Path: "/dev/ttyUSB0"}
	enrichFromSysfs(&info, ttyPath)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"VendorID", info.VendorID, "0403"},
		{"ProductID", info.ProductID, "6010"},
		{"SerialNumber", info.SerialNumber, "FT123456"},
		{"Manufacturer", info.Manufacturer, "FTDI"},
		{"LocationID", info.LocationID, "5-2.3.1:1.0"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
		}
	}
}

func TestEnrichFromSysfsKeepsKnownFields(t *testing.T) {
	ttyPath := mockSysfs(t, map[string]string{
		"idVendor": "0403",
		"serial":   "FROM-SYSFS",
	})

	info := serialport.PortInfo{Path: "/dev/ttyUSB0", SerialNumber: "FROM-ENUMERATOR"}
	enrichFromSysfs(&info, ttyPath)

	if info.SerialNumber != "FROM-ENUMERATOR" {
		t.Errorf("SerialNumber = %q, expected it unchanged", info.SerialNumber)
	}
	if info.VendorID != "0403" {
		t.Errorf("VendorID = %q, expected %q", info.VendorID, "0403")
	}
	if info.Manufacturer != "" {
		t.Errorf("Manufacturer = %q, expected empty", info.Manufacturer)
	}
}

// TestEnrichFromSysfsGracefulFailure tests that non-USB devices stay untouched
func TestEnrichFromSysfsGracefulFailure(t *testing.T) {
	info := serialport.PortInfo{Path: "/dev/ttyS0"}
	enrichFromSysfs(&info, t.TempDir())

	if info != (serialport.PortInfo{Path: "/dev/ttyS0"}) {
		t.Errorf("info changed for a non-USB device: %+v", info)
	}
}

func TestPnpID(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "ttyUSB0")
	if err := os.WriteFile(dev, nil, 0644); err != nil {
		t.Fatal(err)
	}
	byID := filepath.Join(root, "by-id")
	if err := os.Mkdir(byID, 0755); err != nil {
		t.Fatal(err)
	}
	name := "usb-FTDI_FT2232C_FT123456-if00-port0"
	if err := os.Symlink(dev, filepath.Join(byID, name)); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	if got := pnpID(byID, dev); got != name {
		t.Errorf("pnpID() = %q, expected %q", got, name)
	}
	if got := pnpID(byID, filepath.Join(root, "missing")); got != "" {
		t.Errorf("pnpID() = %q for a missing device, expected empty", got)
	}
}
