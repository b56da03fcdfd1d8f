package radio

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrReceiveTimeout is returned by a PHY's ReceiveSingle when no frame
// arrives within its bounded window.
var ErrReceiveTimeout = errors.New("radio: receive timeout")

// ErrBusy is returned by a PHY when it cannot currently transmit or
// receive (e.g. still turning the link around).
var ErrBusy = errors.New("radio: busy")

// ErrPayloadSizeUnexpected is returned by a PHY when the underlying
// hardware reports a frame length outside what it is configured to
// accept.
type ErrPayloadSizeUnexpected struct {
	Len int
}

func (e ErrPayloadSizeUnexpected) Error() string {
	return "radio: unexpected payload size from PHY"
}

// PHY is the physical/link layer a concrete radio driver must provide
// (spec §6). Implementations are single-shot: Transmit sends exactly one
// frame's worth of bytes, ReceiveSingle/ReceiveContinuous block for
// exactly one incoming frame.
type PHY interface {
	// Transmit sends buf as a single radio transmission, bounded by an
	// implementation-defined timeout.
	Transmit(buf []byte) error

	// ReceiveSingle blocks until a frame arrives or window elapses,
	// returning ErrReceiveTimeout on expiry.
	ReceiveSingle(window time.Duration) ([]byte, error)

	// ReceiveContinuous blocks indefinitely until a frame arrives.
	ReceiveContinuous() ([]byte, error)
}

// NewInterfaceFunc constructs a PHY backend from a channel identifier
// (a device path, network address, or similar), mirroring the teacher's
// pluggable Bus registry.
type NewInterfaceFunc func(channel string) (PHY, error)

var registry = make(map[string]NewInterfaceFunc)

// RegisterBackend makes a named PHY backend constructor available to
// NewPHY. Call this from an init() function of the backend package.
func RegisterBackend(name string, ctor NewInterfaceFunc) {
	registry[name] = ctor
}

// NewPHY constructs a registered PHY backend by name.
func NewPHY(name string, channel string) (PHY, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.New("radio: unknown backend " + name)
	}
	return ctor(channel)
}

// Link wraps a PHY with the local address filtering and frame
// (de)serialization spec §4.1 describes: transmit stamps the source
// address and serializes; receive loops, silently discarding any frame
// that fails to parse or is not addressed to the local node, until a
// matching frame arrives or (for the bounded variant) the window
// expires.
type Link struct {
	phy     PHY
	address uint16
}

// NewLink wraps phy for a node at the given local address.
func NewLink(phy PHY, localAddress uint16) *Link {
	return &Link{phy: phy, address: localAddress}
}

// Address returns the local node address frames are addressed to.
func (l *Link) Address() uint16 {
	return l.address
}

// Transmit sends frame to destination, stamping Source with the local
// address before serializing.
func (l *Link) Transmit(destination uint16, packetType PacketType, payload []byte) error {
	frame := Frame{
		Destination: destination,
		Source:      l.address,
		Type:        packetType,
		Payload:     payload,
	}
	buf, err := Serialize(frame)
	if err != nil {
		return err
	}
	log.Debugf("[RADIO][TX] dst=%d type=%d len=%d", destination, packetType, len(payload))
	return l.phy.Transmit(buf)
}

// ReceiveSingle blocks for up to window, discarding frames addressed to
// other nodes or with a bad CRC, until a matching frame arrives or the
// window expires.
func (l *Link) ReceiveSingle(window time.Duration) (Frame, error) {
	deadline := time.Now().Add(window)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Frame{}, ErrReceiveTimeout
		}
		buf, err := l.phy.ReceiveSingle(remaining)
		if err != nil {
			return Frame{}, err
		}
		frame, ok := l.acceptOrDiscard(buf)
		if ok {
			return frame, nil
		}
	}
}

// ReceiveContinuous blocks indefinitely, discarding frames addressed to
// other nodes or with a bad CRC, until a matching frame arrives. This
// drives a node's main loop.
func (l *Link) ReceiveContinuous() (Frame, error) {
	for {
		buf, err := l.phy.ReceiveContinuous()
		if err != nil {
			return Frame{}, err
		}
		frame, ok := l.acceptOrDiscard(buf)
		if ok {
			return frame, nil
		}
	}
}

func (l *Link) acceptOrDiscard(buf []byte) (Frame, bool) {
	frame, err := Parse(buf)
	if err != nil {
		log.Debugf("[RADIO][RX] dropped: %v", err)
		return Frame{}, false
	}
	if frame.Destination != l.address {
		log.Debugf("[RADIO][RX] dropped: addressed to %d, not us (%d)", frame.Destination, l.address)
		return Frame{}, false
	}
	log.Debugf("[RADIO][RX] src=%d type=%d len=%d", frame.Source, frame.Type, len(frame.Payload))
	return frame, true
}
