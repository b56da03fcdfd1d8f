package hostlink

import "github.com/fxamacker/cbor/v2"

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

// Marshal encodes a Message into its compact CBOR wire form.
func Marshal(m Message) ([]byte, error) {
	var payload cbor.RawMessage
	var err error

	switch m.Kind {
	case KindPingRequest, KindPingResponse:
		payload = nullPayload
	case KindOtaInitRequest:
		payload, err = cbor.Marshal(m.OtaInitRequest)
	case KindOtaInitAck:
		payload, err = cbor.Marshal(m.OtaInitAck)
	case KindOtaData:
		payload, err = cbor.Marshal(m.OtaData)
	case KindOtaGetStatus:
		payload, err = cbor.Marshal(m.OtaGetStatus)
	case KindOtaStatus:
		payload, err = cbor.Marshal(m.OtaStatus)
	case KindOtaDoneRequest:
		payload, err = cbor.Marshal(m.OtaDoneRequest)
	case KindOtaDoneAck:
		payload, err = cbor.Marshal(m.OtaDoneAck)
	case KindOtaAbortRequest:
		payload, err = cbor.Marshal(m.OtaAbortRequest)
	case KindOtaAbortAck:
		payload, err = cbor.Marshal(m.OtaAbortAck)
	default:
		return nil, ErrInvalidMessageType
	}
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(envelope{Kind: m.Kind, Payload: payload})
}

// Unmarshal decodes buf into a Message.
func Unmarshal(buf []byte) (Message, error) {
	var env envelope
	if err := cbor.Unmarshal(buf, &env); err != nil {
		return Message{}, err
	}

	switch env.Kind {
	case KindPingRequest:
		return FromPingRequest(PingRequest{}), nil
	case KindPingResponse:
		return FromPingResponse(PingResponse{}), nil
	case KindOtaInitRequest:
		var v OtaInitRequest
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaInitRequest(v), nil
	case KindOtaInitAck:
		var v OtaInitAck
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaInitAck(v), nil
	case KindOtaData:
		var v OtaData
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaData(v), nil
	case KindOtaGetStatus:
		var v OtaGetStatus
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaGetStatus(v), nil
	case KindOtaStatus:
		var v OtaStatus
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaStatus(v), nil
	case KindOtaDoneRequest:
		var v OtaDoneRequest
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaDoneRequest(v), nil
	case KindOtaDoneAck:
		var v OtaDoneAck
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaDoneAck(v), nil
	case KindOtaAbortRequest:
		var v OtaAbortRequest
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaAbortRequest(v), nil
	case KindOtaAbortAck:
		var v OtaAbortAck
		if err := cbor.Unmarshal(env.Payload, &v); err != nil {
			return Message{}, ErrInvalidMessageType
		}
		return FromOtaAbortAck(v), nil
	default:
		return Message{}, ErrInvalidMessageType
	}
}
