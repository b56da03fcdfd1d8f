package radio_test

import (
	"testing"
	"time"

	"github.com/fieldmesh/loraota/pkg/radio"
	"github.com/fieldmesh/loraota/pkg/radio/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkFiltersByDestination(t *testing.T) {
	phyA, phyB := virtual.NewPair(0)
	a := radio.NewLink(phyA, 1)
	b := radio.NewLink(phyB, 2)

	require.NoError(t, a.Transmit(99, 5, []byte("not for b")))
	require.NoError(t, a.Transmit(2, 5, []byte("for b")))

	frame, err := b.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("for b"), frame.Payload)
	assert.Equal(t, uint16(1), frame.Source)
}

func TestLinkReceiveSingleTimesOut(t *testing.T) {
	phyA, phyB := virtual.NewPair(0)
	_ = phyA
	b := radio.NewLink(phyB, 2)

	_, err := b.ReceiveSingle(20 * time.Millisecond)
	assert.ErrorIs(t, err, radio.ErrReceiveTimeout)
}

func TestLinkDropsCorruptFrames(t *testing.T) {
	phyA, phyB := virtual.NewPair(0)
	a := radio.NewLink(phyA, 1)
	b := radio.NewLink(phyB, 2)

	buf, err := radio.Serialize(radio.Frame{Destination: 2, Source: 1, Type: 1, Payload: []byte("x")})
	require.NoError(t, err)
	buf[0] ^= 0xff // corrupt destination, CRC now mismatches
	require.NoError(t, phyA.Transmit(buf))
	require.NoError(t, a.Transmit(2, 1, []byte("good")))

	frame, err := b.ReceiveSingle(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("good"), frame.Payload)
}
