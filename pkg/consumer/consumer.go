// Package consumer implements the node-side OTA state machine (spec
// §4.5): accepts an Init session, writes incoming Data blocks through a
// pluggable MemoryDelegate, deduplicates retransmissions, reports its
// recent-history window back to the producer via Status, and answers
// Done with DoneAck once the transfer is confirmed complete.
package consumer

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/fieldmesh/loraota/internal/ring"
	"github.com/fieldmesh/loraota/pkg/ota"
	"github.com/fieldmesh/loraota/pkg/radio"
)

// ErrNotStarted is returned by HandleData when no Init session is
// active.
var ErrNotStarted = errors.New("consumer: no session active")

// recentCapacity bounds the consumer's recently-seen-index FIFO (spec
// §3): large enough to absorb reordering within one radio retry window,
// small enough to stay cheap on a constrained node.
const recentCapacity = 32

// MemoryDelegate is the capability a node's storage layer must provide
// to accept OTA blocks (spec §4.6). validUpTo is the watermark the
// consumer currently believes contiguous, expressed as a byte count
// (valid_up_to_index * block_size + len(data)) rather than a block
// index, so a delegate that commits in byte-addressed units (a flash
// page, a file offset) doesn't have to reconstruct it from the index
// itself. offset is this block's own byte offset. Write reports back
// whether the block was accepted; it reports false to mean "not
// accepted, try again": the consumer will not advance its watermark or
// dedup cache for that index.
type MemoryDelegate interface {
	Write(validUpTo uint32, offset uint32, data []byte) bool
}

// Consumer drives one node's half of an OTA transfer over a radio
// link. It is not safe for concurrent use.
type Consumer struct {
	link   *radio.Link
	memory MemoryDelegate

	active bool
	params ota.Init

	recent         *ring.Set
	validUpToIndex uint16
}

// New creates a Consumer that replies over link and stores accepted
// blocks through memory.
func New(link *radio.Link, memory MemoryDelegate) *Consumer {
	return &Consumer{
		link:   link,
		memory: memory,
		recent: ring.New(recentCapacity),
	}
}

// Active reports whether a transfer session is currently open.
func (c *Consumer) Active() bool { return c.active }

// ValidUpToIndex returns the number of contiguous blocks confirmed
// written starting at index 0 — equivalently, the next index the
// consumer still needs.
func (c *Consumer) ValidUpToIndex() uint16 { return c.validUpToIndex }

// ProcessMessage decodes one frame payload from source and dispatches
// it to the matching handler. This drives a node's main receive loop
// (spec §5): every inbound frame, regardless of kind, passes through
// here.
func (c *Consumer) ProcessMessage(source uint16, buf []byte) error {
	pkt, err := ota.Unmarshal(buf)
	if err != nil {
		return err
	}
	switch pkt.Kind {
	case ota.KindInit:
		return c.HandleInit(source, *pkt.Init)
	case ota.KindData:
		return c.HandleData(source, *pkt.Data)
	case ota.KindAbort:
		return c.HandleAbort(source)
	case ota.KindDone:
		return c.HandleDone(source)
	default:
		return ota.ErrInvalidPacketType
	}
}

// HandleInit (re)starts a session: a fresh Init always resets session
// state, even mid-transfer, matching the firmware's "last Init wins"
// behaviour rather than rejecting a restart.
func (c *Consumer) HandleInit(source uint16, params ota.Init) error {
	c.active = true
	c.params = params
	c.recent.Reset()
	c.validUpToIndex = 0
	log.Debugf("[CONSUMER] init from=%d size=%d blocks=%d", source, params.BinarySize, params.BlockCount)
	return c.reply(source, ota.Bare(ota.KindInitAck))
}

// HandleData writes a block through the memory delegate, deduplicating
// against the recent-index window, and always answers with a Status
// snapshot so the producer's asynchronous dispatch can retire
// not_acked entries (spec §4.4's continue_download note).
func (c *Consumer) HandleData(source uint16, data ota.Data) error {
	if !c.active {
		return ErrNotStarted
	}

	if !c.recent.Has(data.Index) {
		offset := uint32(data.Index) * uint32(c.params.BlockSize)
		validUpTo := uint32(c.validUpToIndex)*uint32(c.params.BlockSize) + uint32(len(data.Bytes))
		if c.memory.Write(validUpTo, offset, data.Bytes) {
			c.recent.Push(data.Index)
			for c.recent.Has(c.validUpToIndex) {
				c.validUpToIndex++
			}
		} else {
			log.Debugf("[CONSUMER] memory delegate rejected index=%d", data.Index)
		}
	}

	return c.reply(source, ota.StatusPacket(ota.Status{
		ReceivedIndexes: c.recent.Values(),
		ValidUpToIndex:  c.validUpToIndex,
	}))
}

// HandleDone answers the producer's completion announcement (spec
// §4.5): DoneAck once every block has been confirmed written, otherwise
// a Status snapshot so the producer sees what's still missing and
// retransmits Done rather than treating the reply as terminal. Ground
// truth: the original firmware's handle_done.
func (c *Consumer) HandleDone(source uint16) error {
	if !c.active {
		return ErrNotStarted
	}
	if c.validUpToIndex == c.params.BlockCount {
		return c.reply(source, ota.Bare(ota.KindDoneAck))
	}
	return c.reply(source, ota.StatusPacket(ota.Status{
		ReceivedIndexes: c.recent.Values(),
		ValidUpToIndex:  c.validUpToIndex,
	}))
}

// HandleAbort tears down the active session.
func (c *Consumer) HandleAbort(source uint16) error {
	c.active = false
	return c.reply(source, ota.Bare(ota.KindAbortAck))
}

func (c *Consumer) reply(destination uint16, pkt ota.Packet) error {
	buf, err := ota.Marshal(pkt)
	if err != nil {
		return err
	}
	return c.link.Transmit(destination, radio.PacketType(pkt.Kind), buf)
}
