// Package console turns raw byte ports into a pattern-expecting transport.
//
// A Port is any bounded-wait byte channel: a PTY to a simulated target, a
// serial line to real hardware, or a scripted fake in tests. The Expecter
// layers the two operations the shell driver needs on top of a Port:
// SendLine and Expect. Expect matches against the cumulative stream, not
// line by line, because embedded consoles have no framing beyond the
// recurring prompt.
package console

import (
	"regexp"
	"time"
)

// Port is a byte channel to a target console.
//
// Read must not block indefinitely: when no data is pending it returns
// (0, nil) after at most a short internal wait. Read errors mean the channel
// is unusable, not that it is empty. Write and Close follow io semantics.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// Match is the outcome of one successful Expect call. Callers consume it
// immediately; nothing in this package retains it.
type Match struct {
	Pattern *regexp.Regexp
	Before  []byte   // bytes preceding the match
	Bytes   []byte   // the match itself
	Groups  [][]byte // capture groups, nil entries for non-participating groups
}

// Transport is the contract the shell driver consumes. SendLine and Expect
// are the only suspension points; both bound their blocking by the supplied
// or default timeout.
type Transport interface {
	// SendLine writes text followed by a newline.
	SendLine(text string) error
	// Expect blocks until pattern matches newly arrived bytes or timeout
	// elapses. A zero or negative timeout selects the transport default.
	Expect(pattern *regexp.Regexp, timeout time.Duration) (*Match, error)
}
