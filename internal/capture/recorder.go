// Package capture persists everything a target's console emits. A Recorder
// sits between the raw port and the expect engine, teeing bytes to a log
// file, a short in-memory tail, and any live subscribers. Rotated files are
// gzip-compressed; a Sweeper expires them; an archive export bundles them.
package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
)

// CurrentFile is the name of the active capture inside a target directory.
const CurrentFile = "console.log"

const (
	defaultMaxFileBytes = 8 << 20
	defaultTailBytes    = 16 << 10
	subscriberBuffer    = 64
)

// Config tunes a Recorder. Zero values select defaults.
type Config struct {
	// Dir is the capture directory for one target. Required; created if
	// missing.
	Dir string
	// MaxFileBytes triggers rotation of the active file.
	MaxFileBytes int64
	// TailBytes caps the in-memory tail served to new observers.
	TailBytes int
}

func (c Config) withDefaults() Config {
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = defaultMaxFileBytes
	}
	if c.TailBytes <= 0 {
		c.TailBytes = defaultTailBytes
	}
	return c
}

// Recorder wraps a console port and records everything read through it.
// It implements console.Port so the expect engine stays the single reader.
type Recorder struct {
	port console.Port
	cfg  Config
	log  *logging.Logger

	mu     sync.Mutex
	f      *os.File
	size   int64
	tail   []byte
	subs   map[int]chan []byte
	nextID int
	closed bool
}

// NewRecorder opens the capture file and wraps port.
func NewRecorder(port console.Port, cfg Config, log *logging.Logger) (*Recorder, error) {
	cfg = cfg.withDefaults()
	if cfg.Dir == "" {
		return nil, fmt.Errorf("capture: directory required")
	}
	if log == nil {
		log = logging.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create %s: %w", cfg.Dir, err)
	}

	path := filepath.Join(cfg.Dir, CurrentFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("capture: stat %s: %w", path, err)
	}

	return &Recorder{
		port: port,
		cfg:  cfg,
		log:  log,
		f:    f,
		size: st.Size(),
		subs: make(map[int]chan []byte),
	}, nil
}

var _ console.Port = (*Recorder)(nil)

// Read reads from the wrapped port and records whatever arrived.
func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.port.Read(p)
	if n > 0 {
		r.observe(p[:n])
	}
	return n, err
}

// Write forwards to the wrapped port. Input is not recorded; the shell
// echoes it back on the read side anyway.
func (r *Recorder) Write(p []byte) (int, error) {
	return r.port.Write(p)
}

// Close flushes the capture, drops subscribers, and closes the wrapped
// port.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for id, ch := range r.subs {
			close(ch)
			delete(r.subs, id)
		}
		if r.f != nil {
			r.f.Close()
			r.f = nil
		}
	}
	r.mu.Unlock()
	return r.port.Close()
}

// Subscribe registers a live observer. The channel drops data when the
// observer lags; captures on disk stay complete.
func (r *Recorder) Subscribe() (int, <-chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan []byte, subscriberBuffer)
	r.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an observer.
func (r *Recorder) Unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subs[id]; ok {
		close(ch)
		delete(r.subs, id)
	}
}

// Tail returns a copy of the most recent capture bytes.
func (r *Recorder) Tail() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.tail...)
}

func (r *Recorder) observe(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if r.f != nil {
		if _, err := r.f.Write(b); err != nil {
			r.log.Error("capture write failed", zap.Error(err))
		} else {
			r.size += int64(len(b))
		}
	}

	r.tail = append(r.tail, b...)
	if len(r.tail) > r.cfg.TailBytes {
		r.tail = r.tail[len(r.tail)-r.cfg.TailBytes:]
	}

	for _, ch := range r.subs {
		chunk := append([]byte(nil), b...)
		select {
		case ch <- chunk:
		default:
		}
	}

	if r.size >= r.cfg.MaxFileBytes {
		r.rotate()
	}
}

// rotate renames the active file, compresses it, and starts a fresh one.
// Called with the mutex held.
func (r *Recorder) rotate() {
	r.f.Close()
	r.f = nil

	current := filepath.Join(r.cfg.Dir, CurrentFile)
	stamp := time.Now().UTC().Format("20060102T150405.000000Z")
	rotated := filepath.Join(r.cfg.Dir, "console-"+stamp+".log")

	if err := os.Rename(current, rotated); err != nil {
		r.log.Error("capture rotation failed", zap.Error(err))
	} else if err := compressFile(rotated); err != nil {
		r.log.Error("capture compression failed", zap.String("file", rotated), zap.Error(err))
	}

	f, err := os.OpenFile(current, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.log.Error("capture reopen failed", zap.Error(err))
		return
	}
	r.f = f
	r.size = 0
}

// compressFile gzips path into path.gz and removes the original.
func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
