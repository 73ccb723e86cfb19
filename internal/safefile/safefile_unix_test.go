//go:build !windows

package safefile

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRegular_RejectsFIFO(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "fifo")
	require.NoError(t, syscall.Mkfifo(fifo, 0o644))

	_, _, err := OpenRegular(fifo)
	assert.ErrorIs(t, err, ErrNotRegularFile)

	_, err = ReadRegular(fifo, 0)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}
