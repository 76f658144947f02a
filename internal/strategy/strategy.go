// Package strategy sequences a target from cold to an interactive shell.
//
// A strategy knows three stable states: off, booted, and shell. Callers ask
// for a state by name and the strategy performs whatever transitions are
// missing: switching power, waiting for boot, activating the shell driver.
// Asking for the current state is a no-op.
package strategy

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/power"
	"github.com/boardlab/boardlab/internal/shell"
)

// State names accepted by Transition.
const (
	StateOff    = "off"
	StateBooted = "booted"
	StateShell  = "shell"
)

// Strategy drives one target through its states. Safe for concurrent use;
// transitions are serialized.
type Strategy struct {
	power power.Driver
	shell shell.Activator
	log   *logging.Logger

	mu    sync.Mutex
	state string
}

// New builds a strategy over the target's power feed and shell driver.
func New(pw power.Driver, sh shell.Activator, log *logging.Logger) *Strategy {
	if pw == nil {
		pw = power.Noop{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Strategy{power: pw, shell: sh, log: log, state: StateOff}
}

// State returns the last reached state name.
func (s *Strategy) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the target to the named state. Transitions are
// idempotent: requesting the current state does nothing. Unknown names are
// errors.
func (s *Strategy) Transition(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case StateOff, StateBooted, StateShell:
	default:
		return fmt.Errorf("unknown strategy state %q", state)
	}
	if s.state == state {
		return nil
	}

	s.log.Info("strategy transition",
		zap.String("from", s.state),
		zap.String("to", state),
	)

	switch state {
	case StateOff:
		return s.toOff(ctx)
	case StateBooted:
		return s.toBooted(ctx)
	default:
		return s.toShell(ctx)
	}
}

func (s *Strategy) toOff(ctx context.Context) error {
	s.shell.Deactivate()
	if err := s.power.Off(ctx); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	s.state = StateOff
	return nil
}

func (s *Strategy) toBooted(ctx context.Context) error {
	if s.state == StateShell {
		// Shell implies booted; only the local record changes.
		s.state = StateBooted
		return nil
	}
	if err := s.power.On(ctx); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	s.state = StateBooted
	return nil
}

func (s *Strategy) toShell(ctx context.Context) error {
	if s.state == StateOff {
		if err := s.power.On(ctx); err != nil {
			return fmt.Errorf("power on: %w", err)
		}
		s.state = StateBooted
	}
	// Activate owns the boot wait: it blocks on the banner and prompt.
	if err := s.shell.Activate(); err != nil {
		return fmt.Errorf("shell activation: %w", err)
	}
	s.state = StateShell
	return nil
}
