package pagestore

import (
	"os"
)

// FileSink is a Sink that commits pages to fixed offsets in a regular
// file, the reference-node equivalent of the original firmware's flash
// page write: no wear-levelling or erase cycle modelling, just a
// pwrite at pageIndex*pageSize.
type FileSink struct {
	file     *os.File
	pageSize uint32
}

// NewFileSink opens (or creates) path for writing committed pages.
func NewFileSink(path string, pageSize uint32) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f, pageSize: pageSize}, nil
}

// CommitPage writes data at the byte offset pageIndex*pageSize.
func (s *FileSink) CommitPage(pageIndex uint32, data []byte) error {
	_, err := s.file.WriteAt(data, int64(pageIndex)*int64(s.pageSize))
	return err
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}
