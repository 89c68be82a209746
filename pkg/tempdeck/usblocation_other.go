//go:build !linux

package tempdeck

// Physical USB location strings are only recoverable from sysfs; other
// platforms report none and callers fall back to port names.
func portUSBLocation(string) string { return "" }
