package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/boardlab/internal/capture"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

func TestSweepRemovesExpiredRotations(t *testing.T) {
	root := t.TempDir()
	expired := filepath.Join(root, "board-a", "console-20250101T000000.000000Z.log.gz")
	fresh := filepath.Join(root, "board-a", "console-20250102T000000.000000Z.log.gz")
	active := filepath.Join(root, "board-a", "console.log")
	writeAged(t, expired, 48*time.Hour)
	writeAged(t, fresh, time.Minute)
	writeAged(t, active, 48*time.Hour)

	s := capture.NewSweeper(root, capture.SweepConfig{MaxAge: 24 * time.Hour}, nil)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, expired)
	assert.FileExists(t, fresh)
	assert.FileExists(t, active, "the active capture is never swept")
}

func TestSweepMissingRoot(t *testing.T) {
	s := capture.NewSweeper(filepath.Join(t.TempDir(), "absent"), capture.SweepConfig{}, nil)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweepCustomPatterns(t *testing.T) {
	root := t.TempDir()
	matched := filepath.Join(root, "old.trace")
	unmatched := filepath.Join(root, "old.log.gz")
	writeAged(t, matched, 48*time.Hour)
	writeAged(t, unmatched, 48*time.Hour)

	s := capture.NewSweeper(root, capture.SweepConfig{
		Patterns: []string{"**/*.trace"},
		MaxAge:   24 * time.Hour,
	}, nil)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, matched)
	assert.FileExists(t, unmatched)
}

func TestSweeperRunLoop(t *testing.T) {
	root := t.TempDir()
	expired := filepath.Join(root, "board-a", "console-20250101T000000.000000Z.log.gz")
	writeAged(t, expired, 48*time.Hour)

	s := capture.NewSweeper(root, capture.SweepConfig{
		MaxAge:   24 * time.Hour,
		Interval: 5 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(expired)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
