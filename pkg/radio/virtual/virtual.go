// Package virtual implements an in-process, lossy, half-duplex PHY pair
// for tests and local simulation, used in place of a real LoRa transceiver.
//
// It plays the same role as the teacher's pkg/can/virtual (a bus
// primarily used for testing), but that implementation brokers frames
// between arbitrarily many subscribers over a TCP connection to an
// external server process. Our Radio contract (pkg/radio.PHY) is a
// blocking, point-to-point, single-peer request/response interface
// rather than a pub/sub callback one, so instead of a TCP broker this
// pairs two PHYs directly over buffered Go channels, with optional
// random frame drop to exercise the protocol's loss tolerance.
package virtual

import (
	"math/rand"
	"time"

	"github.com/fieldmesh/loraota/pkg/radio"
)

// PHY is one endpoint of a simulated point-to-point radio link. A bare
// channel name carries no information about which peer to connect to,
// so unlike most pkg/radio backends this one is not self-registering;
// construct paired endpoints directly with NewPair.
type PHY struct {
	out      chan []byte
	in       chan []byte
	lossRate float64
	rng      *rand.Rand
}

// NewPair creates two PHYs wired to each other. lossRate is the
// probability (0..1) that any single transmitted frame is silently
// dropped in flight, independently for each direction, modeling the
// arbitrary packet loss spec §1 requires the protocol to tolerate.
func NewPair(lossRate float64) (a, b *PHY) {
	ab := make(chan []byte, 8)
	ba := make(chan []byte, 8)
	seed := time.Now().UnixNano()
	a = &PHY{out: ab, in: ba, lossRate: lossRate, rng: rand.New(rand.NewSource(seed))}
	b = &PHY{out: ba, in: ab, lossRate: lossRate, rng: rand.New(rand.NewSource(seed + 1))}
	return a, b
}

// Transmit queues buf for the peer, unless randomly dropped.
func (p *PHY) Transmit(buf []byte) error {
	if p.lossRate > 0 && p.rng.Float64() < p.lossRate {
		return nil // frame "transmitted" but lost in flight
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	select {
	case p.out <- cp:
		return nil
	default:
		return radio.ErrBusy
	}
}

// ReceiveSingle blocks for up to window for one frame from the peer.
func (p *PHY) ReceiveSingle(window time.Duration) ([]byte, error) {
	select {
	case buf := <-p.in:
		return buf, nil
	case <-time.After(window):
		return nil, radio.ErrReceiveTimeout
	}
}

// ReceiveContinuous blocks indefinitely for one frame from the peer.
func (p *PHY) ReceiveContinuous() ([]byte, error) {
	return <-p.in, nil
}
