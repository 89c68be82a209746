//go:build linux

package tempdeck

import (
	"path/filepath"
	"regexp"
)

var sysfsTTYDir = "/sys/class/tty"

// Matches USB interface directory names like "1-1.4:1.0"
// (bus-port[.port...]:config.interface).
var usbInterfacePattern = regexp.MustCompile(`^\d+-\d+(\.\d+)*:\d+\.\d+$`)

// portUSBLocation resolves the physical USB location of a tty device from
// sysfs. The device symlink of a CDC-ACM tty points at its USB interface
// directory; for converter-backed ttys there is an extra level, so parents
// are walked until a directory matching the interface naming scheme is
// found. Returns "" when the port is not USB-backed or sysfs is unreadable.
func portUSBLocation(portName string) string {
	dev := filepath.Join(sysfsTTYDir, filepath.Base(portName), "device")
	resolved, err := filepath.EvalSymlinks(dev)
	if err != nil {
		return ""
	}
	for dir := resolved; dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if name := filepath.Base(dir); usbInterfacePattern.MatchString(name) {
			return name
		}
	}
	return ""
}
