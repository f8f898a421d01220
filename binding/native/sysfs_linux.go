//go:build linux

package native

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/allbin/go-serialport"
)

const (
	sysfsRoot  = "/sys"
	serialByID = "/dev/serial/by-id"
)

func enrichPortInfo(info *serialport.PortInfo) {
	dir, err := sysfsDeviceDir(sysfsRoot, info.Path)
	if err != nil {
		return
	}
	enrichFromSysfs(info, dir)
	setIfEmpty(&info.PnpID, pnpID(serialByID, info.Path))
}

// sysfsDeviceDir resolves the sysfs directory of the character device at
// path through its device numbers.
func sysfsDeviceDir(root, path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return "", fmt.Errorf("%s is not a character device", path)
	}

	dev := uint64(st.Rdev)
	link := filepath.Join(root, "dev", "char", fmt.Sprintf("%d:%d", unix.Major(dev), unix.Minor(dev)))
	return filepath.EvalSymlinks(link)
}
