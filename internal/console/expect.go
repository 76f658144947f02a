package console

import (
	"bytes"
	"io"
	"regexp"
	"time"
)

// Expecter buffers bytes from a Port and scans them for patterns. It keeps
// whatever follows a match for the next call, so a prompt arriving together
// with the next command's echo is not lost.
//
// An Expecter serves one caller at a time; callers needing concurrency hold
// their own lock.
type Expecter struct {
	port Port
	buf  bytes.Buffer
	cfg  ExpectConfig
}

// ExpectConfig tunes an Expecter. Zero values select the defaults.
type ExpectConfig struct {
	// DefaultTimeout applies when Expect is called with timeout <= 0.
	DefaultTimeout time.Duration
	// PollInterval is the idle wait between empty reads.
	PollInterval time.Duration
	// ChunkSize is the read buffer size.
	ChunkSize int
}

const (
	defaultExpectTimeout = 30 * time.Second
	defaultPollInterval  = 5 * time.Millisecond
	defaultChunkSize     = 4096
)

func (c ExpectConfig) withDefaults() ExpectConfig {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaultExpectTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	return c
}

// NewExpecter wraps port.
func NewExpecter(port Port, cfg ExpectConfig) *Expecter {
	return &Expecter{port: port, cfg: cfg.withDefaults()}
}

var _ Transport = (*Expecter)(nil)

// SendLine writes text plus a newline to the port.
func (e *Expecter) SendLine(text string) error {
	if _, err := io.WriteString(e.port, text+"\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Expect reads until pattern matches the buffered stream or timeout elapses.
// Bytes before the match and the match itself are consumed from the buffer;
// bytes after it remain for the next call. On timeout the buffer is left as
// is and returned inside the error for diagnostics.
func (e *Expecter) Expect(pattern *regexp.Regexp, timeout time.Duration) (*Match, error) {
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, e.cfg.ChunkSize)

	for {
		if loc := pattern.FindSubmatchIndex(e.buf.Bytes()); loc != nil {
			return e.consume(pattern, loc), nil
		}
		if time.Now().After(deadline) {
			acc := append([]byte(nil), e.buf.Bytes()...)
			return nil, &TimeoutError{Pattern: pattern.String(), Timeout: timeout, Accumulated: acc}
		}

		n, err := e.port.Read(chunk)
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		if n > 0 {
			e.buf.Write(chunk[:n])
			continue
		}
		time.Sleep(e.cfg.PollInterval)
	}
}

// consume splits the buffer around the match described by loc.
func (e *Expecter) consume(pattern *regexp.Regexp, loc []int) *Match {
	data := e.buf.Bytes()
	m := &Match{
		Pattern: pattern,
		Before:  append([]byte(nil), data[:loc[0]]...),
		Bytes:   append([]byte(nil), data[loc[0]:loc[1]]...),
	}
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			m.Groups = append(m.Groups, nil)
			continue
		}
		m.Groups = append(m.Groups, append([]byte(nil), data[loc[i]:loc[i+1]]...))
	}

	rest := append([]byte(nil), data[loc[1]:]...)
	e.buf.Reset()
	e.buf.Write(rest)
	return m
}

// Close closes the underlying port.
func (e *Expecter) Close() error {
	return e.port.Close()
}
