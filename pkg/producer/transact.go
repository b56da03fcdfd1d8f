package producer

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fieldmesh/loraota/pkg/ota"
	"github.com/fieldmesh/loraota/pkg/radio"
)

// transactUntilResponse serializes pkt once and retries the
// transmit/await-reply cycle up to cfg.Retries times (spec §4.3): a
// Transmit, Receive, or raw codec-decode failure consumes one attempt
// and is retried after RetryBackoff; an ErrInvalidPacketType — a
// successfully decoded reply that is structurally wrong for the current
// state, or an unrecognized wire tag — is a protocol violation and is
// surfaced immediately without consuming further retries. accept
// classifies a successfully-dispatched Outcome: returning false asks
// for another attempt (the same packet is retransmitted) rather than
// treating the reply as terminal, which is how DoneDownload's "ack, or
// a trailing status" rule is built on top of this helper.
func (p *Producer) transactUntilResponse(pkt ota.Packet, accept func(Outcome) bool) (Outcome, error) {
	buf, err := ota.Marshal(pkt)
	if err != nil {
		return Outcome{}, err
	}

	var lastErr error
	for attempt := 0; attempt < p.cfg.Retries; attempt++ {
		if err := p.link.Transmit(p.destination, radio.PacketType(pkt.Kind), buf); err != nil {
			lastErr = err
			log.Debugf("[PRODUCER] transmit attempt %d failed: %v", attempt, err)
			time.Sleep(p.cfg.RetryBackoff)
			continue
		}

		frame, err := p.link.ReceiveSingle(p.cfg.ReceiveWindow)
		if err != nil {
			lastErr = err
			log.Debugf("[PRODUCER] receive attempt %d failed: %v", attempt, err)
			time.Sleep(p.cfg.RetryBackoff)
			continue
		}

		outcome, err := p.ProcessResponse(frame.Payload)
		if err != nil {
			if errors.Is(err, ota.ErrInvalidPacketType) {
				return Outcome{}, err
			}
			lastErr = err
			log.Debugf("[PRODUCER] decode attempt %d failed: %v", attempt, err)
			time.Sleep(p.cfg.RetryBackoff)
			continue
		}

		if accept == nil || accept(outcome) {
			return outcome, nil
		}
		lastErr = nil
		time.Sleep(p.cfg.RetryBackoff)
	}
	if lastErr == nil {
		lastErr = errors.New("producer: retries exhausted without a conclusive reply")
	}
	return Outcome{}, lastErr
}

// InitDownload starts a new transfer to destination with the given
// session parameters. On success the producer transitions to
// StateDownload with all bookkeeping reset. Retries exhausted without
// an InitAck leaves the state unchanged and reports the last
// radio/decode error.
func (p *Producer) InitDownload(destination uint16, params ota.Init) (Outcome, error) {
	if p.state == StateDownload {
		return Outcome{}, ErrAlreadyStarted
	}
	prevState := p.state
	p.state = StateInit
	p.destination = destination
	p.params = params

	outcome, err := p.transactUntilResponse(ota.InitPacket(params), func(o Outcome) bool {
		return o.Kind == OutcomeInitAck
	})
	if err != nil {
		p.state = prevState
		return Outcome{}, err
	}
	return outcome, nil
}

// DoneDownload announces that the producer believes every block has
// been sent. The consumer may answer with DoneAck directly, or with a
// Status that the shared response path re-evaluates; if that status
// does not yet indicate completion, Done is retransmitted rather than
// treating the reply as an error. If the retry budget is exhausted
// without reaching StateDone, the last Status snapshot is returned
// alongside the error so the host can decide whether to keep polling.
func (p *Producer) DoneDownload() (Outcome, error) {
	if p.state != StateDownload {
		return Outcome{}, ErrNotStarted
	}

	var lastStatus Outcome
	outcome, err := p.transactUntilResponse(ota.Bare(ota.KindDone), func(o Outcome) bool {
		if o.Kind == OutcomeDoneAck {
			return true
		}
		lastStatus = o
		return false
	})
	if err != nil {
		if lastStatus.Kind == OutcomeStatus {
			return lastStatus, err
		}
		return Outcome{}, err
	}
	return outcome, nil
}

// AbortDownload cancels the in-progress transfer. On success the
// producer transitions to StateDone (idle, ready for a new
// InitDownload).
func (p *Producer) AbortDownload() (Outcome, error) {
	if p.state != StateDownload {
		return Outcome{}, ErrNotStarted
	}
	return p.transactUntilResponse(ota.Bare(ota.KindAbort), func(o Outcome) bool {
		return o.Kind == OutcomeAbortAck
	})
}
