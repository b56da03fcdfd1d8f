// Package hostlink defines the host<->gateway control protocol carried
// over pkg/hostlink/serialtransport: a request/response tagged union
// distinct from pkg/ota's radio-link schema, letting an operator drive
// a gateway process's producer over a local serial or pipe connection.
package hostlink

import "errors"

// ErrInvalidMessageType mirrors ota.ErrInvalidPacketType for this
// schema: an unrecognized tag or a payload that doesn't match its
// declared kind.
var ErrInvalidMessageType = errors.New("hostlink: invalid message type")

// Kind discriminates the host<->gateway message union.
type Kind uint8

const (
	KindPingRequest Kind = iota
	KindPingResponse
	KindOtaInitRequest
	KindOtaInitAck
	KindOtaData
	KindOtaGetStatus
	KindOtaStatus
	KindOtaDoneRequest
	KindOtaDoneAck
	KindOtaAbortRequest
	KindOtaAbortAck
)

func (k Kind) String() string {
	switch k {
	case KindPingRequest:
		return "PingRequest"
	case KindPingResponse:
		return "PingResponse"
	case KindOtaInitRequest:
		return "OtaInitRequest"
	case KindOtaInitAck:
		return "OtaInitAck"
	case KindOtaData:
		return "OtaData"
	case KindOtaGetStatus:
		return "OtaGetStatus"
	case KindOtaStatus:
		return "OtaStatus"
	case KindOtaDoneRequest:
		return "OtaDoneRequest"
	case KindOtaDoneAck:
		return "OtaDoneAck"
	case KindOtaAbortRequest:
		return "OtaAbortRequest"
	case KindOtaAbortAck:
		return "OtaAbortAck"
	default:
		return "Unknown"
	}
}

// PingRequest/PingResponse are a liveness check, independent of any
// transfer.
type PingRequest struct{}
type PingResponse struct{}

// OtaInitRequest asks the gateway to start a transfer to Destination.
type OtaInitRequest struct {
	Destination uint16   `cbor:"1,keyasint"`
	BinarySize  uint32   `cbor:"2,keyasint"`
	SHA256      [32]byte `cbor:"3,keyasint"`
	BlockSize   uint16   `cbor:"4,keyasint"`
	BlockCount  uint16   `cbor:"5,keyasint"`
}

// OtaInitAck confirms the consumer accepted the Init.
type OtaInitAck struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// OtaData asks the gateway to send one block to Destination.
type OtaData struct {
	Destination uint16 `cbor:"1,keyasint"`
	Index       uint16 `cbor:"2,keyasint"`
	Bytes       []byte `cbor:"3,keyasint"`
}

// OtaGetStatus asks the gateway for its current view of a transfer.
type OtaGetStatus struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// OtaStatus reports a transfer's progress.
type OtaStatus struct {
	Destination uint16   `cbor:"1,keyasint"`
	InProgress  bool     `cbor:"2,keyasint"`
	NotAcked    []uint16 `cbor:"3,keyasint"`
	LastAcked   uint16   `cbor:"4,keyasint"`
}

// OtaDoneRequest asks the gateway to finalize a transfer.
type OtaDoneRequest struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// OtaDoneAck confirms the transfer completed.
type OtaDoneAck struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// OtaAbortRequest asks the gateway to cancel a transfer.
type OtaAbortRequest struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// OtaAbortAck confirms the transfer was cancelled.
type OtaAbortAck struct {
	Destination uint16 `cbor:"1,keyasint"`
}

// Message is one decoded host-link message. Exactly one field matching
// Kind is non-nil.
type Message struct {
	Kind Kind

	PingRequest    *PingRequest
	PingResponse   *PingResponse
	OtaInitRequest *OtaInitRequest
	OtaInitAck     *OtaInitAck
	OtaData        *OtaData
	OtaGetStatus   *OtaGetStatus
	OtaStatus      *OtaStatus
	OtaDoneRequest *OtaDoneRequest
	OtaDoneAck     *OtaDoneAck
	OtaAbortRequest *OtaAbortRequest
	OtaAbortAck    *OtaAbortAck
}

func FromPingRequest(p PingRequest) Message   { return Message{Kind: KindPingRequest, PingRequest: &p} }
func FromPingResponse(p PingResponse) Message { return Message{Kind: KindPingResponse, PingResponse: &p} }
func FromOtaInitRequest(p OtaInitRequest) Message {
	return Message{Kind: KindOtaInitRequest, OtaInitRequest: &p}
}
func FromOtaInitAck(p OtaInitAck) Message { return Message{Kind: KindOtaInitAck, OtaInitAck: &p} }
func FromOtaData(p OtaData) Message       { return Message{Kind: KindOtaData, OtaData: &p} }
func FromOtaGetStatus(p OtaGetStatus) Message {
	return Message{Kind: KindOtaGetStatus, OtaGetStatus: &p}
}
func FromOtaStatus(p OtaStatus) Message { return Message{Kind: KindOtaStatus, OtaStatus: &p} }
func FromOtaDoneRequest(p OtaDoneRequest) Message {
	return Message{Kind: KindOtaDoneRequest, OtaDoneRequest: &p}
}
func FromOtaDoneAck(p OtaDoneAck) Message { return Message{Kind: KindOtaDoneAck, OtaDoneAck: &p} }
func FromOtaAbortRequest(p OtaAbortRequest) Message {
	return Message{Kind: KindOtaAbortRequest, OtaAbortRequest: &p}
}
func FromOtaAbortAck(p OtaAbortAck) Message {
	return Message{Kind: KindOtaAbortAck, OtaAbortAck: &p}
}
