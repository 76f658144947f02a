// Package consoletest provides a scripted console port for driver and API
// tests: reads serve pre-fed bytes, writes are recorded, and a hook can
// translate each written line into the bytes a real target would answer.
package consoletest

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// ScriptPort implements console.Port against an in-memory script.
type ScriptPort struct {
	mu      sync.Mutex
	pending bytes.Buffer
	writes  []string
	reads   int
	closed  bool

	// OnWrite, when set, receives each written line (terminator stripped)
	// and returns bytes to queue as the target's response.
	OnWrite func(line string) []byte
	// ReadErr and WriteErr force the next calls to fail.
	ReadErr  error
	WriteErr error
}

// New returns an empty port.
func New() *ScriptPort {
	return &ScriptPort{}
}

// Feed queues bytes for subsequent reads.
func (p *ScriptPort) Feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Write(b)
}

// FeedString queues a string for subsequent reads.
func (p *ScriptPort) FeedString(s string) {
	p.Feed([]byte(s))
}

// FeedAfter queues bytes once d has elapsed.
func (p *ScriptPort) FeedAfter(d time.Duration, s string) {
	time.AfterFunc(d, func() { p.FeedString(s) })
}

// Read serves queued bytes, or reports no data after a brief wait.
func (p *ScriptPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.reads++
	if p.ReadErr != nil {
		err := p.ReadErr
		p.mu.Unlock()
		return 0, err
	}
	if p.pending.Len() == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n, _ := p.pending.Read(b)
	p.mu.Unlock()
	return n, nil
}

// Write records the line and queues the scripted response, if any.
func (p *ScriptPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.WriteErr != nil {
		err := p.WriteErr
		p.mu.Unlock()
		return 0, err
	}
	line := strings.TrimSuffix(string(b), "\n")
	p.writes = append(p.writes, line)
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		if resp := hook(line); resp != nil {
			p.Feed(resp)
		}
	}
	return len(b), nil
}

// Close marks the port closed.
func (p *ScriptPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Writes returns every line written so far.
func (p *ScriptPort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

// ReadCalls returns how many times Read ran.
func (p *ScriptPort) ReadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// WriteCalls returns how many lines were written.
func (p *ScriptPort) WriteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

// Closed reports whether Close ran.
func (p *ScriptPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
