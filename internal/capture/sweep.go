package capture

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
)

const (
	defaultMaxAge        = 7 * 24 * time.Hour
	defaultSweepInterval = 30 * time.Minute
)

// defaultPatterns match rotated captures only. The active console.log is
// never swept.
var defaultPatterns = []string{"**/console-*.log.gz"}

// SweepConfig tunes a Sweeper. Zero values select defaults.
type SweepConfig struct {
	// Patterns are doublestar globs relative to the capture root.
	Patterns []string
	// MaxAge is how old a rotated capture may grow before removal.
	MaxAge time.Duration
	// Interval paces the background loop in Run.
	Interval time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if len(c.Patterns) == 0 {
		c.Patterns = defaultPatterns
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMaxAge
	}
	if c.Interval <= 0 {
		c.Interval = defaultSweepInterval
	}
	return c
}

// Sweeper removes rotated captures past their retention age.
type Sweeper struct {
	root string
	cfg  SweepConfig
	log  *logging.Logger
}

// NewSweeper builds a sweeper rooted at the capture directory.
func NewSweeper(root string, cfg SweepConfig, log *logging.Logger) *Sweeper {
	if log == nil {
		log = logging.NewNop()
	}
	return &Sweeper{root: root, cfg: cfg.withDefaults(), log: log}
}

// Sweep walks the capture tree once and removes every expired file. It
// returns the number of files removed.
func (s *Sweeper) Sweep() (int, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.cfg.MaxAge)
	var removed atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		if !s.matches(filepath.ToSlash(rel)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.log.Error("sweep remove failed", zap.String("file", path), zap.Error(err))
			return nil
		}
		removed.Add(1)
		return nil
	})
	if err != nil {
		return int(removed.Load()), fmt.Errorf("capture: sweep %s: %w", s.root, err)
	}

	n := int(removed.Load())
	if n > 0 {
		s.log.Info("swept expired captures", zap.Int("removed", n), zap.String("root", s.root))
	}
	return n, nil
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.log.Error("capture sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) matches(rel string) bool {
	for _, pattern := range s.cfg.Patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}
