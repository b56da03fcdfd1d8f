// Package crc implements the CRC-32 variant used by frame trailers.
//
// The polynomial (reflected 0xEDB88320) is the standard IEEE 802.3 CRC-32,
// the same one generated by hardware CRC peripherals configured for
// byte-reversed input/output, little-endian residue.
package crc

// CRC32 is an accumulator for the reflected CRC-32 (poly 0xEDB88320).
type CRC32 uint32

var table [256]uint32

func init() {
	const poly = 0xEDB88320
	for i := 0; i < 256; i++ {
		c := uint32(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = poly ^ (c >> 1)
			} else {
				c = c >> 1
			}
		}
		table[i] = c
	}
}

// Single folds one byte into the accumulator.
func (c *CRC32) Single(b byte) {
	*c = CRC32(table[byte(*c)^b] ^ (uint32(*c) >> 8))
}

// Write folds every byte of buf into the accumulator. It never returns an
// error; it exists so CRC32 can be used as a hash.Hash32-like sink.
func (c *CRC32) Write(buf []byte) {
	for _, b := range buf {
		c.Single(b)
	}
}

// Checksum computes the standard CRC-32 of buf: the accumulator starts
// at 0xFFFFFFFF and the result is XORed with 0xFFFFFFFF.
func Checksum(buf []byte) uint32 {
	c := CRC32(0xFFFFFFFF)
	c.Write(buf)
	return uint32(c) ^ 0xFFFFFFFF
}
