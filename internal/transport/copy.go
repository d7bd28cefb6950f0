package transport

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// CopyWithContext copies data from src to dst with context cancellation
// support. A non-nil limiter paces the copy; its burst must be at least
// copyBufferSize.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, limiter *rate.Limiter) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var written int64

	for {
		// Check for cancellation before each read
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := src.Read(buf)
		if nr > 0 {
			if limiter != nil {
				if err := limiter.WaitN(ctx, nr); err != nil {
					return written, err
				}
			}
			nw, writeErr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, writeErr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
