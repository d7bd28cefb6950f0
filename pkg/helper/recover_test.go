package helper

import (
	"io"
	"testing"

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

func TestRecoverPanic_StoresError(t *testing.T) {
	log := testLogger(t)

	run := func() (err error) {
		defer RecoverPanic(log, "worker", &err)
		panic("boom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in worker: boom")
}

func TestRecoverPanic_NoPanicKeepsError(t *testing.T) {
	log := testLogger(t)

	run := func() (err error) {
		defer RecoverPanic(log, "worker", &err)
		return nil
	}

	assert.NoError(t, run())
}
