// Package target assembles and owns the per-target stacks: console port,
// capture recorder, expect engine, shell driver, power driver, boot
// strategy, and command statistics.
//
// The shell core is deliberately single-caller; a Target serializes its
// callers with one mutex so API handlers and scripts can share it safely.
package target

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/capture"
	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/environment"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/infrastructure/monitoring"
	"github.com/boardlab/boardlab/internal/power"
	"github.com/boardlab/boardlab/internal/shell"
	"github.com/boardlab/boardlab/internal/stats"
	"github.com/boardlab/boardlab/internal/strategy"
)

// ErrUnknownTarget is returned for names the environment does not declare.
var ErrUnknownTarget = errors.New("unknown target")

// Options tunes the manager.
type Options struct {
	// CaptureDir is the root for per-target capture directories. Required.
	CaptureDir string
	// CaptureMaxFileBytes triggers capture rotation. Zero uses the
	// recorder default.
	CaptureMaxFileBytes int64
	// Metrics is optional.
	Metrics *monitoring.Metrics
	// PortFactory overrides console construction. Nil selects the built-in
	// QEMU and serial ports; tests supply scripted ports here.
	PortFactory func(cfg environment.ConsoleConfig, log *logging.Logger) (console.Port, error)
}

// Manager builds targets from the environment and hands them out by name.
type Manager struct {
	opts Options
	log  *logging.Logger

	mu      sync.Mutex
	targets map[string]*Target
}

// NewManager validates every declared target and builds the managed set.
// Console ports stay closed until first use.
func NewManager(env *environment.Environment, opts Options, log *logging.Logger) (*Manager, error) {
	if opts.CaptureDir == "" {
		return nil, errors.New("target: capture directory required")
	}
	if log == nil {
		log = logging.NewNop()
	}

	m := &Manager{opts: opts, log: log, targets: make(map[string]*Target, len(env.Targets))}
	for _, name := range env.Names() {
		cfg := env.Targets[name]
		tgt, err := newTarget(name, cfg, opts, log)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		m.targets[name] = tgt
	}
	return m, nil
}

// Names returns the managed target names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.targets))
	for name := range m.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named target.
func (m *Manager) Get(name string) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tgt, ok := m.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return tgt, nil
}

// ReadyCount reports how many targets have an activated shell.
func (m *Manager) ReadyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tgt := range m.targets {
		if tgt.Status() == shell.Ready {
			n++
		}
	}
	return n
}

// CloseAll tears down every opened console. Targets stay listed; their
// consoles reopen on next use.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tgt := range m.targets {
		tgt.Close()
	}
}

// Target is one lab target and everything attached to it.
type Target struct {
	name string
	cfg  environment.TargetConfig
	opts Options
	log  *logging.Logger

	power power.Driver
	strat *strategy.Strategy
	stats *stats.Aggregator

	mu       sync.Mutex
	opened   bool
	recorder *capture.Recorder
	driver   *shell.Driver
}

func newTarget(name string, cfg environment.TargetConfig, opts Options, log *logging.Logger) (*Target, error) {
	// Fail construction on bad patterns instead of on first use.
	shellCfg := shellConfig(cfg.Shell)
	for _, expr := range []string{shellCfg.BootExpression, shellCfg.Prompt, shellCfg.ErrorMarker} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
		}
	}

	tgt := &Target{
		name:  name,
		cfg:   cfg,
		opts:  opts,
		log:   &logging.Logger{Logger: log.With(zap.String("target", name))},
		stats: stats.NewAggregator(),
	}

	switch cfg.Power.Type {
	case environment.PowerREST:
		pw, err := power.NewREST(power.RESTConfig{
			OnURL:    cfg.Power.OnURL,
			OffURL:   cfg.Power.OffURL,
			StateURL: cfg.Power.StateURL,
		}, tgt.log)
		if err != nil {
			return nil, err
		}
		tgt.power = pw
	default:
		tgt.power = power.Noop{}
	}

	tgt.strat = strategy.New(tgt.power, tgt, tgt.log)
	return tgt, nil
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// CaptureDir is where this target's console captures live.
func (t *Target) CaptureDir() string {
	return filepath.Join(t.opts.CaptureDir, t.name)
}

// open builds the console stack: port, recorder, expecter, shell driver.
// Called with the mutex held.
func (t *Target) open() error {
	if t.opened {
		return nil
	}

	var port console.Port
	var err error
	switch {
	case t.opts.PortFactory != nil:
		port, err = t.opts.PortFactory(t.cfg.Console, t.log)
	case t.cfg.Console.Type == environment.ConsoleQEMU:
		port, err = console.StartProcess(console.ProcessConfig{Command: t.cfg.Console.Command}, t.log)
	case t.cfg.Console.Type == environment.ConsoleSerial:
		port, err = console.OpenSerial(console.SerialConfig{
			Device: t.cfg.Console.Device,
			Baud:   t.cfg.Console.Baud,
		}, t.log)
	default:
		err = fmt.Errorf("unknown console type %q", t.cfg.Console.Type)
	}
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}

	rec, err := capture.NewRecorder(port, capture.Config{
		Dir:          t.CaptureDir(),
		MaxFileBytes: t.opts.CaptureMaxFileBytes,
	}, t.log)
	if err != nil {
		port.Close()
		return err
	}

	drv, err := shell.New(console.NewExpecter(rec, console.ExpectConfig{}), shellConfig(t.cfg.Shell), t.log)
	if err != nil {
		rec.Close()
		return err
	}

	t.recorder = rec
	t.driver = drv
	t.opened = true
	return nil
}

// Activate opens the console if needed and synchronizes the shell.
func (t *Target) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.open(); err != nil {
		t.recordActivation("error")
		return err
	}
	if err := t.driver.Activate(); err != nil {
		t.recordActivation("failed")
		return err
	}
	t.recordActivation("ok")
	return nil
}

// Deactivate resets shell readiness. The console stays open.
func (t *Target) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.driver != nil {
		t.driver.Deactivate()
	}
}

// Status reads the shell readiness without side effects.
func (t *Target) Status() shell.Readiness {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.driver == nil {
		return shell.Inactive
	}
	return t.driver.Status()
}

var _ shell.Activator = (*Target)(nil)

// Run executes one command on the target shell. An unactivated target
// returns (nil, nil), the same not-ready signal the driver uses, and
// performs no I/O.
func (t *Target) Run(cmd string, opts shell.RunOptions) (*shell.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.driver == nil {
		return nil, nil
	}

	var timer *monitoring.CommandTimer
	if t.opts.Metrics != nil {
		timer = monitoring.NewCommandTimer(t.opts.Metrics, t.name)
	}
	start := time.Now()
	res, err := t.driver.Run(cmd, opts)
	took := time.Since(start)

	switch {
	case err != nil:
		if timer != nil {
			timer.Stop("error")
		}
	case res == nil:
		// Not ready; nothing to record.
	default:
		failed := res.Status != 0
		t.stats.Observe(took, failed)
		if timer != nil {
			if failed {
				timer.Stop("failed")
			} else {
				timer.Stop("ok")
			}
		}
	}
	return res, err
}

// RunCheck is Run with non-zero and unknown exits turned into errors.
func (t *Target) RunCheck(cmd string, opts shell.RunOptions) ([]string, error) {
	res, err := t.Run(cmd, opts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, shell.ErrNotReady
	}
	if res.Status != 0 {
		return res.Lines, &shell.ExitStatusError{Command: cmd, Status: res.Status, Output: res.Lines}
	}
	return res.Lines, nil
}

var _ shell.CommandRunner = (*Target)(nil)

// Transition drives the boot strategy.
func (t *Target) Transition(ctx context.Context, state string) error {
	return t.strat.Transition(ctx, state)
}

// StrategyState names the last reached strategy state.
func (t *Target) StrategyState() string {
	return t.strat.State()
}

// Power returns the target's power driver.
func (t *Target) Power() power.Driver { return t.power }

// Stats summarizes the target's command history.
func (t *Target) Stats() stats.Summary { return t.stats.Snapshot() }

// Tail returns the most recent console bytes, or nil before first open.
func (t *Target) Tail() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recorder == nil {
		return nil
	}
	return t.recorder.Tail()
}

// Subscribe attaches a live console observer, opening the console if
// needed so boot output is watchable before activation.
func (t *Target) Subscribe() (int, <-chan []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.open(); err != nil {
		return 0, nil, err
	}
	id, ch := t.recorder.Subscribe()
	return id, ch, nil
}

// Unsubscribe detaches a live observer.
func (t *Target) Unsubscribe(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recorder != nil {
		t.recorder.Unsubscribe(id)
	}
}

// Close tears the console stack down. The target rebuilds it on next use.
func (t *Target) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.opened {
		return
	}
	if t.driver != nil {
		t.driver.Deactivate()
	}
	if err := t.recorder.Close(); err != nil {
		t.log.Warn("console close failed", zap.Error(err))
	}
	t.recorder = nil
	t.driver = nil
	t.opened = false
}

func (t *Target) recordActivation(status string) {
	if t.opts.Metrics != nil {
		t.opts.Metrics.RecordActivation(t.name, status)
	}
}

// shellConfig maps the YAML shell section onto the driver configuration.
func shellConfig(sc environment.ShellConfig) shell.Config {
	return shell.Config{
		LoginTimeout:   sc.LoginTimeout(),
		BootExpression: sc.BootExpression,
		Prompt:         sc.Prompt,
		InitCommands:   sc.InitCommands,
		ErrorMarker:    sc.ErrorMarker,
	}
}
