package hid

import (
	"github.com/karalabe/hid"
)

// Gamepads enumerate on the generic desktop usage page.
const (
	usagePageGenericDesktop = 0x01
	usageJoystick           = 0x04
	usageGamepad            = 0x05
)

// DeviceInfo contains information about a discovered HID device
type DeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	Path         string
	Manufacturer string
	Product      string
	SerialNumber string
	UsagePage    uint16
	Usage        uint16
}

func toDeviceInfo(d hid.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		VendorID:     d.VendorID,
		ProductID:    d.ProductID,
		Path:         d.Path,
		Manufacturer: d.Manufacturer,
		Product:      d.Product,
		SerialNumber: d.Serial,
		UsagePage:    d.UsagePage,
		Usage:        d.Usage,
	}
}

// IsGamepad reports whether the interface looks like a game controller.
func (d DeviceInfo) IsGamepad() bool {
	return d.UsagePage == usagePageGenericDesktop &&
		(d.Usage == usageGamepad || d.Usage == usageJoystick)
}

// ListDevices returns a list of all available HID devices
func ListDevices() ([]DeviceInfo, error) {
	devices := hid.Enumerate(0, 0)

	result := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		result[i] = toDeviceInfo(d)
	}

	return result, nil
}

// FindDevice searches for a device matching the given vendor and product IDs.
// Controllers often expose several interfaces; the gamepad interface is
// preferred over vendor-defined ones.
func FindDevice(vendorID, productID uint16) (*DeviceInfo, error) {
	devices := hid.Enumerate(vendorID, productID)
	if len(devices) == 0 {
		return nil, nil
	}

	for _, d := range devices {
		info := toDeviceInfo(d)
		if info.IsGamepad() {
			return &info, nil
		}
	}

	info := toDeviceInfo(devices[0])
	return &info, nil
}
