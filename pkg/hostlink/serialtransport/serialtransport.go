// Package serialtransport frames hostlink messages over a serial
// connection: two sync bytes, a little-endian length, a CRC-16 guarding
// that header, the payload itself, and a trailing CRC-16 over the
// payload. The state machine driving ReadFrame is adapted from a UART
// framing layer in the example corpus, generalized from a fixed frame
// ID byte to a plain length-prefixed payload since hostlink messages
// carry their own kind tag in the CBOR envelope.
package serialtransport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.bug.st/serial"

	"github.com/fieldmesh/loraota/internal/crc16"
)

const (
	syncByte1 = 0xF6
	syncByte2 = 0xD9

	// MaxPayloadLength bounds a single frame's payload.
	MaxPayloadLength = 4096
)

// ErrPayloadTooLarge is returned by WriteFrame when payload exceeds
// MaxPayloadLength.
var ErrPayloadTooLarge = errors.New("serialtransport: payload exceeds maximum frame length")

type readState int

const (
	stateSync1 readState = iota
	stateSync2
	stateLen1
	stateLen2
	stateHeaderCRC1
	stateHeaderCRC2
	statePayload
	statePayloadCRC1
	statePayloadCRC2
)

// Transport is a framed message channel over an open serial port.
type Transport struct {
	port serial.Port

	state      readState
	header     []byte
	headerCRC  uint16
	payloadLen uint16
	payload    []byte
	payloadCRC uint16
}

// Open opens devicePath at baud 8N1 and wraps it in a Transport.
func Open(devicePath string, baud int) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("serialtransport: open %s: %w", devicePath, err)
	}
	return New(port), nil
}

// New wraps an already-open serial.Port. Exposed separately from Open
// so tests can substitute an in-memory serial.Port-like pipe.
func New(port serial.Port) *Transport {
	return &Transport{port: port, header: make([]byte, 0, 4)}
}

// Close closes the underlying port.
func (t *Transport) Close() error { return t.port.Close() }

// WriteFrame sends payload as one framed message.
func (t *Transport) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayloadLength {
		return ErrPayloadTooLarge
	}
	header := make([]byte, 2)
	binary.LittleEndian.PutUint16(header, uint16(len(payload)))

	buf := make([]byte, 0, 2+len(header)+2+len(payload)+2)
	buf = append(buf, syncByte1, syncByte2)
	buf = append(buf, header...)
	hc := crc16.Checksum(header)
	buf = append(buf, byte(hc), byte(hc>>8))
	buf = append(buf, payload...)
	pc := crc16.Checksum(payload)
	buf = append(buf, byte(pc), byte(pc>>8))

	_, err := t.port.Write(buf)
	return err
}

// ReadFrame blocks, reading one byte at a time, until a complete and
// CRC-valid frame arrives. A bad sync, header CRC, or payload CRC
// silently resynchronizes rather than returning an error, matching the
// framing layer's tolerance for line noise.
func (t *Transport) ReadFrame() ([]byte, error) {
	buf := make([]byte, 1)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		if frame, ok := t.step(buf[0]); ok {
			return frame, nil
		}
	}
}

func (t *Transport) step(b byte) ([]byte, bool) {
	switch t.state {
	case stateSync1:
		if b == syncByte1 {
			t.state = stateSync2
		}
	case stateSync2:
		if b == syncByte2 {
			t.header = t.header[:0]
			t.state = stateLen1
		} else {
			t.state = stateSync1
		}
	case stateLen1:
		t.payloadLen = uint16(b)
		t.header = append(t.header, b)
		t.state = stateLen2
	case stateLen2:
		t.payloadLen |= uint16(b) << 8
		t.header = append(t.header, b)
		t.state = stateHeaderCRC1
		if t.payloadLen > MaxPayloadLength {
			t.state = stateSync1
		}
	case stateHeaderCRC1:
		t.headerCRC = uint16(b)
		t.state = stateHeaderCRC2
	case stateHeaderCRC2:
		t.headerCRC |= uint16(b) << 8
		if crc16.Checksum(t.header) != t.headerCRC {
			t.state = stateSync1
			return nil, false
		}
		t.payload = make([]byte, 0, t.payloadLen)
		t.state = statePayload
		if t.payloadLen == 0 {
			t.state = statePayloadCRC1
		}
	case statePayload:
		t.payload = append(t.payload, b)
		if uint16(len(t.payload)) >= t.payloadLen {
			t.state = statePayloadCRC1
		}
	case statePayloadCRC1:
		t.payloadCRC = uint16(b)
		t.state = statePayloadCRC2
	case statePayloadCRC2:
		received := t.payloadCRC | uint16(b)<<8
		t.state = stateSync1
		if crc16.Checksum(t.payload) != received {
			return nil, false
		}
		out := t.payload
		t.payload = nil
		return out, true
	}
	return nil, false
}
