package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumKnownVector(t *testing.T) {
	// "123456789" is the standard CRC-32/ISO-HDLC check string.
	assert.EqualValues(t, 0xCBF43926, Checksum([]byte("123456789")))
}

func TestSingleMatchesWrite(t *testing.T) {
	var a, b CRC32
	data := []byte{0x00, 0x01, 0x02, 0xff, 0x7e}
	for _, v := range data {
		a.Single(v)
	}
	b.Write(data)
	assert.Equal(t, a, b)
}

func TestEmptyIsZero(t *testing.T) {
	assert.EqualValues(t, 0, Checksum(nil))
}
