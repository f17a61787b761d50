package hid

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Report IDs
const (
	ReportIDInputFrame byte = 0x01
)

// FrameLength is the wire size of one input frame.
const FrameLength = 27

// Frame is one input report from the controller. The firmware sends a
// frame on every state change and at a fixed cadence while any axis is
// deflected or a finger is on the pad.
type Frame struct {
	Buttons   uint32   // bitmask of currently held buttons
	Timestamp uint32   // ms since device boot, wraps
	Axes      [4]int16 // lx, ly, rx, ry
	Touches   [2]TouchPoint
}

// TouchPoint is one touchpad contact slot.
type TouchPoint struct {
	Present bool
	X       uint16
	Y       uint16
}

// Norm returns the contact position normalized to [0, 1].
func (t TouchPoint) Norm() (x, y float64) {
	return float64(t.X) / math.MaxUint16, float64(t.Y) / math.MaxUint16
}

// Axis indices within Frame.Axes.
const (
	AxisLeftX = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

// ParseFrame parses a raw HID report into a Frame.
// Wire format, all little-endian:
//
//	Byte 0:     Report ID (0x01)
//	Byte 1-4:   Button bitmask (u32)
//	Byte 5-8:   Timestamp (ms since boot, u32)
//	Byte 9-16:  Stick axes, four s16: lx, ly, rx, ry
//	Byte 17-21: Touch slot 0: flags (bit 0 = present), x u16, y u16
//	Byte 22-26: Touch slot 1: same layout
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < FrameLength {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	if data[0] != ReportIDInputFrame {
		return nil, fmt.Errorf("unexpected report ID: 0x%02X", data[0])
	}

	f := &Frame{
		Buttons:   binary.LittleEndian.Uint32(data[1:5]),
		Timestamp: binary.LittleEndian.Uint32(data[5:9]),
	}
	for i := 0; i < 4; i++ {
		f.Axes[i] = int16(binary.LittleEndian.Uint16(data[9+2*i : 11+2*i]))
	}
	for s := 0; s < 2; s++ {
		off := 17 + 5*s
		f.Touches[s] = TouchPoint{
			Present: data[off]&0x01 != 0,
			X:       binary.LittleEndian.Uint16(data[off+1 : off+3]),
			Y:       binary.LittleEndian.Uint16(data[off+3 : off+5]),
		}
	}
	return f, nil
}

// Encode serializes the frame in wire format. Used by tests and tools.
func (f *Frame) Encode() []byte {
	buf := make([]byte, FrameLength)
	buf[0] = ReportIDInputFrame
	binary.LittleEndian.PutUint32(buf[1:5], f.Buttons)
	binary.LittleEndian.PutUint32(buf[5:9], f.Timestamp)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(buf[9+2*i:11+2*i], uint16(f.Axes[i]))
	}
	for s := 0; s < 2; s++ {
		off := 17 + 5*s
		if f.Touches[s].Present {
			buf[off] = 0x01
		}
		binary.LittleEndian.PutUint16(buf[off+1:off+3], f.Touches[s].X)
		binary.LittleEndian.PutUint16(buf[off+3:off+5], f.Touches[s].Y)
	}
	return buf
}

// PressedButtons returns the indices of all held buttons.
func (f *Frame) PressedButtons() []int {
	var buttons []int
	for i := 0; i < 32; i++ {
		if f.Buttons&(1<<i) != 0 {
			buttons = append(buttons, i)
		}
	}
	return buttons
}

// AxisNorm returns an axis deflection normalized to [-1, 1].
func (f *Frame) AxisNorm(i int) float64 {
	v := float64(f.Axes[i]) / math.MaxInt16
	if v < -1 {
		v = -1
	}
	return v
}
