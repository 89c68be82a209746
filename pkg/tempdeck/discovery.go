package tempdeck

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB vendor/product signature of the tempdeck family. The device does not
// expose a USB serial number, so physical location strings are the only way
// to tell two units apart before opening them.
const (
	USBVendorID  = "04D8"
	USBProductID = "EE93"
)

// allow tests to override external dependencies
var (
	detailedPortsList = enumerator.GetDetailedPortsList
	usbLocation       = portUSBLocation
)

// DeviceDescriptor identifies one attached tempdeck candidate as reported by
// the OS. No port is opened to produce one.
type DeviceDescriptor struct {
	// PortName is the logical serial port, e.g. "/dev/ttyACM0" or "COM42".
	PortName string
	// USBLocation is the physical USB port path, e.g. "1-1.4:1.0". Empty
	// when the OS does not expose one.
	USBLocation string
}

// ListConnectedDevices returns all serial ports whose USB identity matches
// the tempdeck signature, in platform enumeration order. It returns an empty
// slice, not an error, when no device is attached. Detection is based purely
// on the vendor/product IDs reported by the OS; the devices are not opened
// or otherwise verified.
func ListConnectedDevices() ([]DeviceDescriptor, error) {
	return listConnectedDevices(USBVendorID, USBProductID)
}

func listConnectedDevices(vid, pid string) ([]DeviceDescriptor, error) {
	ports, err := detailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}

	devices := []DeviceDescriptor{}
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if !strings.EqualFold(port.VID, vid) || !strings.EqualFold(port.PID, pid) {
			continue
		}
		devices = append(devices, DeviceDescriptor{
			PortName:    port.Name,
			USBLocation: usbLocation(port.Name),
		})
	}
	return devices, nil
}
