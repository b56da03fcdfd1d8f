package pagestore

// MemorySink is a Sink that keeps committed pages in memory, useful for
// tests and for nodes without persistent storage (e.g. staging an
// image before an application-level flash write outside this module).
type MemorySink struct {
	Pages map[uint32][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Pages: make(map[uint32][]byte)}
}

// CommitPage stores a copy of data under pageIndex.
func (m *MemorySink) CommitPage(pageIndex uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Pages[pageIndex] = cp
	return nil
}
