package serialtransport

import (
	"testing"

	"github.com/fieldmesh/loraota/internal/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame constructs the on-wire bytes for payload the same way
// WriteFrame does, without needing an open serial.Port.
func buildFrame(payload []byte) []byte {
	tr := New(nil)
	// WriteFrame only touches t.port at the final Write call; build the
	// bytes by hand here mirroring its layout so step() can be fed them
	// without a real port.
	header := make([]byte, 2)
	header[0] = byte(len(payload))
	header[1] = byte(len(payload) >> 8)
	buf := []byte{syncByte1, syncByte2}
	buf = append(buf, header...)
	hc := crc16.Checksum(header)
	buf = append(buf, byte(hc), byte(hc>>8))
	buf = append(buf, payload...)
	pc := crc16.Checksum(payload)
	buf = append(buf, byte(pc), byte(pc>>8))
	_ = tr
	return buf
}

func TestStepDecodesWellFormedFrame(t *testing.T) {
	tr := New(nil)
	payload := []byte{1, 2, 3, 4, 5}
	wire := buildFrame(payload)

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = tr.step(b)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestStepDecodesEmptyPayload(t *testing.T) {
	tr := New(nil)
	wire := buildFrame(nil)

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = tr.step(b)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestStepResyncsAfterCorruptHeaderCRC(t *testing.T) {
	tr := New(nil)
	wire := buildFrame([]byte{9, 9})
	wire[4] ^= 0xff // corrupt the header CRC low byte without touching sync bytes

	good := buildFrame([]byte{1})
	wire = append(wire, good...)

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = tr.step(b)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Equal(t, []byte{1}, got)
}

func TestStepIgnoresNoiseBeforeSync(t *testing.T) {
	tr := New(nil)
	wire := append([]byte{0x00, 0xAA, 0xFF}, buildFrame([]byte{7, 8})...)

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = tr.step(b)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Equal(t, []byte{7, 8}, got)
}
