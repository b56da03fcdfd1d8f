package pagestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkCommitsAtPageOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	sink, err := NewFileSink(path, 16)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.CommitPage(2, []byte("0123456789abcdef")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), got[32:48])
}
