// Package radio implements the addressed framing layer beneath the OTA
// protocol (spec §4.1): a fixed-ceiling datagram with source/destination
// node addresses, a type tag, a payload and a trailing CRC-32, plus the
// Radio PHY contract (§6) that a physical link driver must satisfy.
package radio

import (
	"encoding/binary"
	"fmt"

	"github.com/fieldmesh/loraota/internal/crc"
)

const (
	// MTU is the maximum serialized frame size accepted by the radio.
	MTU = 128
	// HeaderSize is destination(2) + source(2) + packet_type(1).
	HeaderSize = 5
	// TrailerSize is the little-endian CRC-32 trailer.
	TrailerSize = 4
	// MaxPayload is the largest payload that still fits under MTU.
	MaxPayload = MTU - HeaderSize - TrailerSize
)

// PacketType tags the payload carried by a Frame. OTA packet types are
// defined in pkg/ota; other values are reserved for sibling traffic on
// the same link and are simply passed through unopened by this package.
type PacketType uint8

// Frame is one addressed, CRC-protected datagram.
type Frame struct {
	Destination uint16
	Source      uint16
	Type        PacketType
	Payload     []byte
}

// ErrPayloadTooLarge is returned by Serialize when the payload would not
// fit under the frame MTU.
type ErrPayloadTooLarge struct {
	Len int
}

func (e ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("radio: payload of %d bytes exceeds capacity of %d", e.Len, MaxPayload)
}

// ErrMalformed is returned by Parse for any input that is not a
// syntactically valid frame: too short, too long, or holding a CRC that
// does not match its header+payload.
type ErrMalformed struct {
	Reason string
}

func (e ErrMalformed) Error() string {
	return "radio: malformed frame: " + e.Reason
}

// Serialize lays out header, payload and trailing CRC-32 in that order.
// It fails only if the payload exceeds MaxPayload.
func Serialize(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge{Len: len(f.Payload)}
	}
	buf := make([]byte, HeaderSize+len(f.Payload)+TrailerSize)
	binary.LittleEndian.PutUint16(buf[0:2], f.Destination)
	binary.LittleEndian.PutUint16(buf[2:4], f.Source)
	buf[4] = byte(f.Type)
	copy(buf[HeaderSize:], f.Payload)

	sum := crc.Checksum(buf[:HeaderSize+len(f.Payload)])
	binary.LittleEndian.PutUint32(buf[len(buf)-TrailerSize:], sum)
	return buf, nil
}

// Parse validates and decodes a serialized frame. It rejects frames that
// are too short to hold a header and trailer, frames longer than the
// MTU, and frames whose trailing CRC-32 does not match (spec §4.1's
// "CRC mismatch ... results in the frame being dropped").
func Parse(buf []byte) (Frame, error) {
	if len(buf) < HeaderSize+TrailerSize+1 {
		return Frame{}, ErrMalformed{Reason: "shorter than header+crc+1 byte of payload"}
	}
	if len(buf) > MTU {
		return Frame{}, ErrMalformed{Reason: "longer than MTU"}
	}

	body := buf[:len(buf)-TrailerSize]
	want := binary.LittleEndian.Uint32(buf[len(buf)-TrailerSize:])
	got := crc.Checksum(body)
	if want != got {
		return Frame{}, ErrMalformed{Reason: "CRC mismatch"}
	}

	payload := make([]byte, len(body)-HeaderSize)
	copy(payload, body[HeaderSize:])
	return Frame{
		Destination: binary.LittleEndian.Uint16(buf[0:2]),
		Source:      binary.LittleEndian.Uint16(buf[2:4]),
		Type:        PacketType(buf[4]),
		Payload:     payload,
	}, nil
}
