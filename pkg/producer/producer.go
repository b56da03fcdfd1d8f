// Package producer implements the gateway-side OTA state machine (spec
// §4.4): drives a single outstanding transfer to one consumer address,
// tracking which blocks remain unacknowledged and translating the
// consumer's replies into outcomes the host-facing layer can report.
package producer

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fieldmesh/loraota/internal/ring"
	"github.com/fieldmesh/loraota/pkg/ota"
	"github.com/fieldmesh/loraota/pkg/radio"
)

// ErrAlreadyStarted is returned by InitDownload when a transfer is
// already in progress to this producer's destination.
var ErrAlreadyStarted = errors.New("producer: transfer already started")

// ErrNotStarted is returned by ContinueDownload, DoneDownload or
// AbortDownload when called outside of the Download state.
var ErrNotStarted = errors.New("producer: no transfer in progress")

// ErrNotAckedFull is returned by ContinueDownload when the
// not-yet-acknowledged set is at capacity and a new block index is
// offered: the host must throttle until the consumer catches up.
var ErrNotAckedFull = errors.New("producer: not_acked set is full, throttle")

// notAckedCapacity bounds the producer's outstanding-block bookkeeping
// (spec §3).
const notAckedCapacity = 128

// State is the producer's transfer lifecycle phase (spec §4.4).
type State int

const (
	StateInit State = iota
	StateDownload
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDownload:
		return "download"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies what ProcessResponse (or a transactional
// helper built on it) surfaces to the caller.
type OutcomeKind int

const (
	OutcomeInitAck OutcomeKind = iota
	OutcomeStatus
	OutcomeDoneAck
	OutcomeAbortAck
)

// Outcome is what a producer operation reports back to its host-facing
// caller once a reply has been classified.
type Outcome struct {
	Kind       OutcomeKind
	NotAcked   []uint16
	LastAcked  uint16
	InProgress bool
}

// Config tunes a producer's transactional-send retry behaviour (spec
// §4.3 / §9).
type Config struct {
	ReceiveWindow time.Duration
	Retries       int
	RetryBackoff  time.Duration
}

// DefaultConfig mirrors the original firmware's init/abort retry budget.
func DefaultConfig() Config {
	return Config{
		ReceiveWindow: 2 * time.Second,
		Retries:       5,
		RetryBackoff:  100 * time.Millisecond,
	}
}

// Producer drives one OTA transfer to a single consumer address over a
// radio link. It is not safe for concurrent use — the cooperative,
// single-threaded dispatch spec §5 describes is the caller's
// responsibility (see pkg/gateway).
type Producer struct {
	link *radio.Link
	cfg  Config

	destination uint16
	params      ota.Init

	state            State
	notAcked         *ring.BoundedSet
	highestSentIndex uint16
	lastAckedIndex   uint16
	haveSentAny      bool
}

// New creates a Producer that sends over link using cfg's retry policy.
func New(link *radio.Link, cfg Config) *Producer {
	return &Producer{
		link:     link,
		cfg:      cfg,
		notAcked: ring.NewBounded(notAckedCapacity),
	}
}

// State returns the current lifecycle phase.
func (p *Producer) State() State { return p.state }

// Destination returns the consumer address the current (or most recent)
// transfer targets.
func (p *Producer) Destination() uint16 { return p.destination }

func (p *Producer) transmit(pkt ota.Packet) error {
	buf, err := ota.Marshal(pkt)
	if err != nil {
		return err
	}
	return p.link.Transmit(p.destination, radio.PacketType(pkt.Kind), buf)
}

// ProcessResponse decodes and dispatches one frame payload received
// from the consumer (spec §4.4's process_response). It is the single
// point through which every consumer reply is classified, whether
// arriving inside a transactional send's retry loop or asynchronously
// while a transfer is in Download.
func (p *Producer) ProcessResponse(buf []byte) (Outcome, error) {
	pkt, err := ota.Unmarshal(buf)
	if err != nil {
		return Outcome{}, err
	}

	switch pkt.Kind {
	case ota.KindInitAck:
		if p.state != StateInit {
			return Outcome{}, ota.ErrInvalidPacketType
		}
		p.state = StateDownload
		p.notAcked.Reset()
		p.highestSentIndex = 0
		p.lastAckedIndex = 0
		p.haveSentAny = false
		return Outcome{Kind: OutcomeInitAck}, nil

	case ota.KindStatus:
		if p.state == StateInit {
			return Outcome{}, ota.ErrInvalidPacketType
		}
		return p.applyStatus(*pkt.Status)

	case ota.KindDoneAck:
		p.state = StateDone
		return Outcome{Kind: OutcomeDoneAck}, nil

	case ota.KindAbortAck:
		p.state = StateDone
		return Outcome{Kind: OutcomeAbortAck}, nil

	default:
		return Outcome{}, ota.ErrInvalidPacketType
	}
}

func (p *Producer) applyStatus(s ota.Status) (Outcome, error) {
	for _, idx := range s.ReceivedIndexes {
		p.notAcked.Remove(idx)
	}
	p.lastAckedIndex = s.ValidUpToIndex

	if p.haveSentAny && p.notAcked.Len() == 0 && p.highestSentIndex+1 == p.params.BlockCount {
		p.state = StateDone
		return Outcome{Kind: OutcomeDoneAck, LastAcked: p.lastAckedIndex}, nil
	}
	return Outcome{
		Kind:       OutcomeStatus,
		NotAcked:   p.notAcked.Values(),
		LastAcked:  p.lastAckedIndex,
		InProgress: true,
	}, nil
}

// ContinueDownload sends one Data block. Unlike InitDownload/DoneDownload/
// AbortDownload this is a one-shot send (spec §4.4): the consumer's
// subsequent Status packets, processed asynchronously through
// ProcessResponse, are what retire entries from not_acked. If the index
// is new and not_acked is already at capacity, the send is refused
// entirely so the host throttles instead of producing an untracked,
// unretriable-on-loss block.
func (p *Producer) ContinueDownload(data ota.Data) error {
	if p.state != StateDownload {
		return ErrNotStarted
	}
	if !p.notAcked.Has(data.Index) {
		if !p.notAcked.Add(data.Index) {
			return ErrNotAckedFull
		}
	}
	if err := p.transmit(ota.DataPacket(data)); err != nil {
		return err
	}
	if !p.haveSentAny || data.Index > p.highestSentIndex {
		p.highestSentIndex = data.Index
	}
	p.haveSentAny = true
	log.Debugf("[PRODUCER] sent data index=%d not_acked=%d", data.Index, p.notAcked.Len())
	return nil
}
