// Package hrm decodes Bluetooth GATT Heart Rate Measurement (0x2A37)
// notification frames.
//
// Frame layout: one flags byte, then the heart rate as uint8 or little-endian
// uint16 depending on flag bit 0. Energy expended and RR intervals may follow;
// they are not part of a Reading and are ignored.
package hrm

import (
	"encoding/binary"
	"fmt"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
)

const (
	flagValueUint16      byte = 1 << 0
	flagContactDetected  byte = 1 << 1
	flagContactSupported byte = 1 << 2
)

// Contact values carried in Reading.SensorContactDetected.
const (
	ContactDetected    = "true"
	ContactNotDetected = "false"
	ContactUnsupported = "unsupported"
)

// Measurement is the decoded content of one frame.
type Measurement struct {
	Value   int
	Contact string
}

// Decode parses a raw notification frame.
func Decode(frame []byte) (Measurement, error) {
	if len(frame) < 2 {
		return Measurement{}, fmt.Errorf("%w: %d bytes, need at least 2", domain.ErrMalformedFrame, len(frame))
	}
	flags := frame[0]

	var value int
	if flags&flagValueUint16 != 0 {
		if len(frame) < 3 {
			return Measurement{}, fmt.Errorf("%w: uint16 value flagged but frame has %d bytes", domain.ErrMalformedFrame, len(frame))
		}
		value = int(binary.LittleEndian.Uint16(frame[1:3]))
	} else {
		value = int(frame[1])
	}

	contact := ContactUnsupported
	if flags&flagContactSupported != 0 {
		if flags&flagContactDetected != 0 {
			contact = ContactDetected
		} else {
			contact = ContactNotDetected
		}
	}

	return Measurement{Value: value, Contact: contact}, nil
}

// Encode builds a frame for value and contact. Values above 255 use the
// uint16 format; values outside 0..65535 are clamped to that range. It is the
// inverse of Decode for the fields Decode reads.
func Encode(value int, contact string) []byte {
	value = min(max(value, 0), 0xFFFF)

	var flags byte
	switch contact {
	case ContactDetected:
		flags |= flagContactSupported | flagContactDetected
	case ContactNotDetected:
		flags |= flagContactSupported
	}

	if value > 0xFF {
		frame := []byte{flags | flagValueUint16, 0, 0}
		binary.LittleEndian.PutUint16(frame[1:], uint16(value))
		return frame
	}
	return []byte{flags, byte(value)}
}

// Reading decodes frame and stamps it with the given capture time (unix seconds).
func Reading(frame []byte, timestamp int64) (domain.Reading, error) {
	m, err := Decode(frame)
	if err != nil {
		return domain.Reading{}, err
	}
	return domain.Reading{
		Value:                 m.Value,
		SensorContactDetected: m.Contact,
		Timestamp:             timestamp,
	}, nil
}
