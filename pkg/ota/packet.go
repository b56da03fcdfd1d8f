// Package ota defines the tagged-union OTA control message schema
// carried over pkg/radio frames (spec §4.2): Init, InitAck, Data,
// Status, Done, DoneAck, Abort, AbortAck.
package ota

import "errors"

// ErrInvalidPacketType is returned when decoding an unknown packet kind
// or a kind whose payload does not decode as that kind's shape; a null
// payload decodes to the zero value and is not rejected. Per spec §4.2 this
// is a protocol violation, never retried.
var ErrInvalidPacketType = errors.New("ota: invalid packet type")

// Kind discriminates the OTA packet union.
type Kind uint8

const (
	KindInit Kind = iota
	KindInitAck
	KindData
	KindStatus
	KindDone
	KindDoneAck
	KindAbort
	KindAbortAck
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "Init"
	case KindInitAck:
		return "InitAck"
	case KindData:
		return "Data"
	case KindStatus:
		return "Status"
	case KindDone:
		return "Done"
	case KindDoneAck:
		return "DoneAck"
	case KindAbort:
		return "Abort"
	case KindAbortAck:
		return "AbortAck"
	default:
		return "Unknown"
	}
}

// MaxBlockBytes is the largest payload a Data packet may carry (spec §3).
const MaxBlockBytes = 96

// MaxStatusIndexes is the largest number of entries Status.ReceivedIndexes
// may carry (spec §3's "up to 32 entries").
const MaxStatusIndexes = 32

// Init carries the session parameters the producer hands the consumer
// to start a transfer.
type Init struct {
	BinarySize uint32   `cbor:"1,keyasint"`
	SHA256     [32]byte `cbor:"2,keyasint"`
	BlockSize  uint16   `cbor:"3,keyasint"`
	BlockCount uint16   `cbor:"4,keyasint"`
}

// Data carries one zero-based block of the image.
type Data struct {
	Index uint16 `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// Status reports the consumer's recent-history window and contiguous
// watermark back to the producer.
type Status struct {
	ReceivedIndexes []uint16 `cbor:"1,keyasint"`
	ValidUpToIndex  uint16   `cbor:"2,keyasint"`
}

// Packet is one decoded OTA message. Exactly one of Init, Data, Status
// is non-nil, determined by Kind; the remaining kinds carry no payload.
type Packet struct {
	Kind   Kind
	Init   *Init
	Data   *Data
	Status *Status
}

// InitPacket, DataPacket and StatusPacket are convenience constructors
// for the payload-bearing variants.
func InitPacket(p Init) Packet   { return Packet{Kind: KindInit, Init: &p} }
func DataPacket(p Data) Packet   { return Packet{Kind: KindData, Data: &p} }
func StatusPacket(p Status) Packet { return Packet{Kind: KindStatus, Status: &p} }

// Bare constructs one of the payload-less variants.
func Bare(k Kind) Packet { return Packet{Kind: k} }
