package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
)

// ProcessConfig describes a console served by a child process, typically a
// QEMU system emulator with its serial port on stdio.
type ProcessConfig struct {
	// Command is the argv to spawn. Required, at least one element.
	Command []string
	// Dir is the working directory. Empty means inherit.
	Dir string
	// Env is the child environment. Nil means inherit.
	Env []string
	// ReadWait bounds how long a single Read blocks for data.
	ReadWait time.Duration
}

const defaultReadWait = 50 * time.Millisecond

// ProcessPort runs a child process under a PTY and exposes its console as a
// Port. Reads wait at most ReadWait before reporting no data, so callers are
// never parked on a silent or dead target.
type ProcessPort struct {
	cmd  *exec.Cmd
	f    *os.File
	wait time.Duration
	log  *logging.Logger
}

// StartProcess spawns cfg.Command under a PTY.
func StartProcess(cfg ProcessConfig, log *logging.Logger) (*ProcessPort, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("console process: empty command")
	}
	if cfg.ReadWait <= 0 {
		cfg.ReadWait = defaultReadWait
	}
	if log == nil {
		log = logging.NewNop()
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return nil, fmt.Errorf("spawn console process %q: %w", cfg.Command[0], err)
	}

	log.Info("console process started",
		zap.String("command", cfg.Command[0]),
		zap.Int("pid", cmd.Process.Pid),
	)
	return &ProcessPort{cmd: cmd, f: f, wait: cfg.ReadWait, log: log}, nil
}

// Read returns pending console bytes, waiting at most the configured bound
// when none are pending. A vanished process surfaces as an error so the
// expect layer can fail the operation instead of spinning forever.
func (p *ProcessPort) Read(b []byte) (int, error) {
	if err := p.f.SetReadDeadline(time.Now().Add(p.wait)); err != nil {
		return 0, fmt.Errorf("console process read: %w", err)
	}
	n, err := p.f.Read(b)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, nil
		}
		if isProcessGone(err) {
			return n, fmt.Errorf("console process exited: %w", err)
		}
		return n, err
	}
	return n, nil
}

// Write forwards bytes to the child's console input.
func (p *ProcessPort) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if err != nil && isProcessGone(err) {
		return n, fmt.Errorf("console process exited: %w", err)
	}
	return n, err
}

// Close terminates the child, drains and logs whatever output it left
// behind, and releases the PTY. Closing an already-dead process is fine;
// Close never reports an error for it.
func (p *ProcessPort) Close() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}

	if residue := p.drain(); len(residue) > 0 {
		p.log.Info("console process residual output",
			zap.Int("bytes", len(residue)),
			zap.ByteString("tail", tailBytes(residue, 256)),
		)
	}

	_ = p.f.Close()
	_ = p.cmd.Wait()
	return nil
}

// drain collects output still queued in the PTY after the kill. The first
// quiet read ends the drain; a hard deadline caps a child that keeps
// streaming while dying.
func (p *ProcessPort) drain() []byte {
	var residue []byte
	buf := make([]byte, 4096)
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		_ = p.f.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
		n, err := p.f.Read(buf)
		if n > 0 {
			residue = append(residue, buf[:n]...)
		}
		if err != nil || time.Now().After(deadline) {
			break
		}
	}
	return residue
}

// isProcessGone reports read/write errors that mean the child is dead: EOF,
// or the EIO a Linux PTY master returns once the slave side is gone.
func isProcessGone(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}

func tailBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}

var _ Port = (*ProcessPort)(nil)
