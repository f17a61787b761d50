package hid

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/pleimann/gopad/internal/utils"
)

// Device represents a connection to the controller HID device
type Device struct {
	vendorID  uint16
	productID uint16
	device    *hid.Device
	mu        sync.Mutex
	closed    bool
}

// NewDevice opens a connection to a HID device with the specified vendor and product IDs
func NewDevice(vendorID, productID uint16) (*Device, error) {
	devices := hid.Enumerate(vendorID, productID)
	if len(devices) == 0 {
		allDevices := hid.Enumerate(0, 0)
		if len(allDevices) == 0 {
			return nil, fmt.Errorf("no HID devices found on system - check USB connection")
		}
		return nil, fmt.Errorf("no device found with VendorID=0x%04X, ProductID=0x%04X\n"+
			"  Run '"+utils.ExecutableName()+" list-devices' to see available devices\n"+
			"  Run '"+utils.ExecutableName()+" set-device' to configure the correct device",
			vendorID, productID)
	}

	dev, lastErr := openPreferred(devices)
	if dev != nil {
		return &Device{
			vendorID:  vendorID,
			productID: productID,
			device:    dev,
		}, nil
	}

	// All interfaces failed to open
	return nil, fmt.Errorf("failed to open device 0x%04X:0x%04X (%d interface(s)): %w\n"+
		"  This may be a permissions issue. On macOS, try:\n"+
		"  1. System Settings > Privacy & Security > Input Monitoring\n"+
		"  2. Add Terminal (or your terminal app) to the list",
		vendorID, productID, len(devices), lastErr)
}

// openPreferred tries the gamepad interface first. Controllers expose extra
// vendor-defined interfaces that either refuse to open or carry no input
// reports.
func openPreferred(devices []hid.DeviceInfo) (*hid.Device, error) {
	ordered := make([]hid.DeviceInfo, len(devices))
	copy(ordered, devices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return toDeviceInfo(ordered[i]).IsGamepad() && !toDeviceInfo(ordered[j]).IsGamepad()
	})

	var lastErr error
	for _, devInfo := range ordered {
		dev, err := devInfo.Open()
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Close closes the HID device connection
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.device != nil {
		return d.device.Close()
	}
	return nil
}

// ReadFrames continuously reads input frames from the device and feeds them
// to the tracker. Returns when the context is cancelled or a read fails
// (usually a disconnect).
func (d *Device) ReadFrames(ctx context.Context, tracker *Tracker) error {
	buf := make([]byte, 64)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return fmt.Errorf("device closed")
		}
		dev := d.device
		d.mu.Unlock()

		n, err := dev.Read(buf)
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		if n == 0 {
			continue
		}

		frame, err := ParseFrame(buf[:n])
		if err != nil {
			// Skip malformed reports; the next frame carries full state.
			continue
		}

		tracker.ProcessFrame(frame, time.Now())
	}
}

// Reconnect attempts to reconnect to the device
func (d *Device) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Close existing connection if any
	if d.device != nil {
		d.device.Close()
		d.device = nil
	}
	d.closed = false

	devices := hid.Enumerate(d.vendorID, d.productID)
	if len(devices) == 0 {
		return fmt.Errorf("device not found")
	}

	dev, err := openPreferred(devices)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	d.device = dev
	return nil
}

// WaitForDevice waits for a device to become available and connects to it
func (d *Device) WaitForDevice(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Reconnect(); err == nil {
				return nil
			}
		}
	}
}
