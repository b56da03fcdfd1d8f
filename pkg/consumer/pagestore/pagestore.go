// Package pagestore is a reference consumer.MemoryDelegate: it buffers
// incoming OTA blocks into fixed-size pages and hands each completed
// page off to a Sink, queuing a bounded number of out-of-order blocks
// until the gap ahead of them closes. This mirrors the node firmware's
// page-buffered flash writer, adapted here to decouple page storage
// (flash, a file, memory) behind the Sink interface instead of hard-
// wiring a particular flash driver.
package pagestore

// DefaultPageSize matches the firmware reference implementation's
// flash page buffer.
const DefaultPageSize = 2048

// DefaultLookahead bounds how many out-of-order blocks are held back
// waiting for the gap before them to close.
const DefaultLookahead = 8

// Sink receives a completed page. pageIndex counts whole pages from the
// start of the transfer; data is exactly the store's page size except
// for a final, possibly short, page delivered by Flush.
type Sink interface {
	CommitPage(pageIndex uint32, data []byte) error
}

// Store implements consumer.MemoryDelegate.
type Store struct {
	pageSize uint32
	sink     Sink

	pending   []byte
	pageIndex uint32

	queue    map[uint32][]byte
	queueCap int

	nextOffset uint32
}

// New creates a Store that commits pageSize-byte pages to sink, holding
// up to lookaheadDepth out-of-order blocks in its reorder queue. Zero
// values fall back to DefaultPageSize / DefaultLookahead.
func New(pageSize uint32, lookaheadDepth int, sink Sink) *Store {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if lookaheadDepth <= 0 {
		lookaheadDepth = DefaultLookahead
	}
	return &Store{
		pageSize: pageSize,
		sink:     sink,
		queue:    make(map[uint32][]byte, lookaheadDepth),
		queueCap: lookaheadDepth,
	}
}

// Write implements consumer.MemoryDelegate. validUpTo is the byte
// count the consumer currently believes contiguous (spec §4.6); a page
// is only committed once validUpTo has crossed that page's end
// address, the same gate the node firmware's get_page applies, rather
// than as soon as enough bytes have merely arrived locally. A
// byte-offset block that's already been consumed is a no-op accept (a
// retransmission the consumer's own dedup window missed), a block
// beyond the contiguous frontier is queued if there's room, and the
// queue being full is the delegate's own backpressure signal.
func (s *Store) Write(validUpTo uint32, offset uint32, data []byte) bool {
	if offset < s.nextOffset {
		return true
	}
	if offset != s.nextOffset {
		if _, queued := s.queue[offset]; queued {
			return true
		}
		if len(s.queue) >= s.queueCap {
			return false
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		s.queue[offset] = cp
		return true
	}

	s.ingest(data)
	for {
		next, ok := s.queue[s.nextOffset]
		if !ok {
			break
		}
		delete(s.queue, s.nextOffset)
		s.ingest(next)
	}
	s.commitReadyPages(validUpTo)
	return true
}

// Flush commits any partially-filled final page, bypassing the
// valid_up_to gate. Call once the transfer is known complete.
func (s *Store) Flush() {
	if len(s.pending) > 0 {
		s.commitPending(s.pending)
		s.pending = nil
	}
}

// NextOffset reports the next contiguous byte offset still needed.
func (s *Store) NextOffset() uint32 { return s.nextOffset }

// QueuedBlocks reports how many out-of-order blocks are currently held
// in the reorder queue.
func (s *Store) QueuedBlocks() int { return len(s.queue) }

func (s *Store) ingest(data []byte) {
	s.pending = append(s.pending, data...)
	s.nextOffset += uint32(len(data))
}

// commitReadyPages flushes every full page sitting in pending whose end
// address validUpTo has already confirmed valid.
func (s *Store) commitReadyPages(validUpTo uint32) {
	for uint32(len(s.pending)) >= s.pageSize && validUpTo >= (s.pageIndex+1)*s.pageSize {
		s.commitPending(s.pending[:s.pageSize])
		s.pending = s.pending[s.pageSize:]
	}
}

func (s *Store) commitPending(data []byte) {
	if s.sink != nil {
		cp := make([]byte, len(data))
		copy(cp, data)
		_ = s.sink.CommitPage(s.pageIndex, cp)
	}
	s.pageIndex++
}
