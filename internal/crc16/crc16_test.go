package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumKnownVector(t *testing.T) {
	// "123456789" is the standard CRC-16/ARC check string.
	assert.EqualValues(t, 0xBB3D, Checksum([]byte("123456789")))
}

func TestEmptyIsZero(t *testing.T) {
	assert.EqualValues(t, 0, Checksum(nil))
}
