package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	cases := []Frame{
		{Destination: 1, Source: 2, Type: 0, Payload: []byte{0}},
		{Destination: 0xffff, Source: 0, Type: 42, Payload: []byte{1, 2, 3}},
		{Destination: 7, Source: 7, Type: 255, Payload: make([]byte, MaxPayload)},
	}
	for _, f := range cases {
		buf, err := Serialize(f)
		require.NoError(t, err)
		got, err := Parse(buf)
		require.NoError(t, err)
		assert.Equal(t, f.Destination, got.Destination)
		assert.Equal(t, f.Source, got.Source)
		assert.Equal(t, f.Type, got.Type)
		assert.Equal(t, f.Payload, got.Payload)
	}
}

func TestSerializeRejectsOversizedPayload(t *testing.T) {
	_, err := Serialize(Frame{Payload: make([]byte, MaxPayload+1)})
	require.Error(t, err)
}

func TestParseRejectsBitFlips(t *testing.T) {
	f := Frame{Destination: 5, Source: 9, Type: 3, Payload: []byte("hello world")}
	buf, err := Serialize(f)
	require.NoError(t, err)

	for bit := 0; bit < len(buf)*8; bit++ {
		flipped := make([]byte, len(buf))
		copy(flipped, buf)
		flipped[bit/8] ^= 1 << uint(bit%8)
		_, err := Parse(flipped)
		assert.Error(t, err, "bit %d should have been rejected", bit)
	}
}

func TestParseRejectsShortAndLong(t *testing.T) {
	_, err := Parse(make([]byte, HeaderSize+TrailerSize))
	assert.Error(t, err)

	_, err = Parse(make([]byte, MTU+1))
	assert.Error(t, err)
}
