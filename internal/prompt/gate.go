package prompt

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"golang.org/x/term"
)

// Gate pauses until the operator presses enter. It passes straight through
// when disabled, when input is not a terminal, or on EOF.
type Gate struct {
	in          io.Reader
	interactive bool
	log         *logger.Logger
}

// NewGate wires a gate to a console file. The wait only happens when enabled
// and in is a terminal.
func NewGate(in *os.File, enabled bool, log *logger.Logger) *Gate {
	return &Gate{
		in:          in,
		interactive: enabled && term.IsTerminal(int(in.Fd())),
		log:         log.Module("prompt"),
	}
}

// NewReaderGate builds a gate over an arbitrary reader.
func NewReaderGate(in io.Reader, interactive bool, log *logger.Logger) *Gate {
	return &Gate{in: in, interactive: interactive, log: log.Module("prompt")}
}

// Interactive reports whether Await will actually wait for input.
func (g *Gate) Interactive() bool { return g.interactive }

// Await blocks until a line or EOF is read, or ctx is done. Read errors are
// logged and treated as acknowledgement.
func (g *Gate) Await(ctx context.Context) error {
	if !g.interactive {
		g.log.Debug("No interactive input, not waiting for acknowledgement")
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(g.in).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && err != io.EOF {
			g.log.WithError(err).Warn("Failed to read acknowledgement")
		}
		return nil
	}
}
