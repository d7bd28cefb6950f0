package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	require.NoError(t, err)
	return l
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("console gone") }

func TestAwait_Line(t *testing.T) {
	g := NewReaderGate(strings.NewReader("\n"), true, testLogger(t))
	assert.NoError(t, g.Await(context.Background()))
}

func TestAwait_EOF(t *testing.T) {
	g := NewReaderGate(strings.NewReader(""), true, testLogger(t))
	assert.NoError(t, g.Await(context.Background()))
}

func TestAwait_ReadErrorIsAcknowledgement(t *testing.T) {
	g := NewReaderGate(failingReader{}, true, testLogger(t))
	assert.NoError(t, g.Await(context.Background()))
}

func TestAwait_NonInteractiveDoesNotRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	g := NewReaderGate(r, false, testLogger(t))
	assert.False(t, g.Interactive())
	assert.NoError(t, g.Await(context.Background()))
}

func TestAwait_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	g := NewReaderGate(r, true, testLogger(t))
	assert.ErrorIs(t, g.Await(ctx), context.DeadlineExceeded)
}

func TestNewGate_RegularFileIsNotInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, NewGate(f, true, testLogger(t)).Interactive())
}
