package console

import (
	"fmt"
	"time"
)

// TimeoutError reports that no pattern match arrived in time. It carries
// everything buffered so far; callers use it for diagnostics, never for
// retries, because the stream position after a timeout is undefined.
type TimeoutError struct {
	Pattern     string
	Timeout     time.Duration
	Accumulated []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no match for pattern %q within %s (%d bytes buffered%s)",
		e.Pattern, e.Timeout, len(e.Accumulated), tailPreview(e.Accumulated))
}

// TransportError reports that the underlying channel is unusable, for
// example because the backing process exited or the port was closed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("console transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

const previewLen = 64

func tailPreview(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	tail := b
	if len(tail) > previewLen {
		tail = tail[len(tail)-previewLen:]
	}
	return fmt.Sprintf(", tail %q", tail)
}
