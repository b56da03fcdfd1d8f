package ota

import (
	"github.com/fxamacker/cbor/v2"
)

// envelope is the wire representation: a 2-element CBOR array of
// [kind, payload]. Using an array rather than a map keeps the encoding
// compact (no field-name keys on the wire) while CBOR's self-describing
// major types still let a decoder recognize a malformed or foreign
// payload without external framing.
type envelope struct {
	_       struct{} `cbor:",toarray"`
	Kind    Kind
	Payload cbor.RawMessage
}

var nullPayload = func() cbor.RawMessage {
	raw, err := cbor.Marshal(nil)
	if err != nil {
		panic(err)
	}
	return raw
}()

// Marshal encodes a Packet into its compact CBOR wire form.
func Marshal(p Packet) ([]byte, error) {
	var payload cbor.RawMessage
	var err error

	switch p.Kind {
	case KindInit:
		payload, err = cbor.Marshal(p.Init)
	case KindData:
		payload, err = cbor.Marshal(p.Data)
	case KindStatus:
		payload, err = cbor.Marshal(p.Status)
	case KindInitAck, KindDone, KindDoneAck, KindAbort, KindAbortAck:
		payload = nullPayload
	default:
		return nil, ErrInvalidPacketType
	}
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(envelope{Kind: p.Kind, Payload: payload})
}

// Unmarshal decodes buf into a Packet. An unrecognized Kind, or a
// payload that doesn't decode as the shape Kind promises, is reported
// as ErrInvalidPacketType (spec §4.2).
func Unmarshal(buf []byte) (Packet, error) {
	var env envelope
	if err := cbor.Unmarshal(buf, &env); err != nil {
		return Packet{}, err
	}

	switch env.Kind {
	case KindInit:
		var v Init
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Packet{}, ErrInvalidPacketType
		}
		return InitPacket(v), nil
	case KindData:
		var v Data
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Packet{}, ErrInvalidPacketType
		}
		return DataPacket(v), nil
	case KindStatus:
		var v Status
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Packet{}, ErrInvalidPacketType
		}
		return StatusPacket(v), nil
	case KindInitAck, KindDone, KindDoneAck, KindAbort, KindAbortAck:
		return Bare(env.Kind), nil
	default:
		return Packet{}, ErrInvalidPacketType
	}
}
