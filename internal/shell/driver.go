package shell

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/ansi"
	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/textcodec"
)

// Readiness is the driver's local belief about whether the remote shell is
// synchronized and accepting commands.
type Readiness int32

const (
	Inactive Readiness = iota
	Ready
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "inactive"
}

// Exit-status sentinels.
const (
	// StatusShellError is reported when only the error-marker heuristic
	// identified a failure.
	StatusShellError = 255
	// StatusUnknown is reported when no inference path succeeded.
	StatusUnknown = -1
)

// DefaultRunTimeout bounds one command round-trip when the caller does not.
const DefaultRunTimeout = 30 * time.Second

// statusQuery asks the shell for the previous command's exit status.
const statusQuery = "echo $?"

// RunOptions tune a single Run call. Zero values select defaults: a 30s
// timeout, UTF-8, strict decoding.
type RunOptions struct {
	Timeout      time.Duration
	Codec        string
	DecodeErrors string
}

func (o RunOptions) withDefaults() RunOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultRunTimeout
	}
	if o.Codec == "" {
		o.Codec = textcodec.DefaultCodec
	}
	if o.DecodeErrors == "" {
		o.DecodeErrors = textcodec.DefaultPolicy
	}
	return o
}

// Result is one command round-trip.
type Result struct {
	// Lines is the command output with the echoed command line and the
	// blank line preceding the prompt removed.
	Lines []string `json:"lines"`
	// Aux is a reserved second output stream; always empty.
	Aux []string `json:"aux"`
	// Status is the inferred exit status: a parsed value, StatusShellError,
	// or StatusUnknown.
	Status int `json:"status"`
}

// CommandRunner executes commands on an activated shell.
type CommandRunner interface {
	Run(cmd string, opts RunOptions) (*Result, error)
	RunCheck(cmd string, opts RunOptions) ([]string, error)
}

// Activator is the activation lifecycle of a shell driver.
type Activator interface {
	Activate() error
	Deactivate()
	Status() Readiness
}

// Driver implements both capabilities over a console transport.
type Driver struct {
	cfg   Config
	tr    console.Transport
	log   *logging.Logger
	state atomic.Int32

	boot   *regexp.Regexp
	prompt *regexp.Regexp
	marker *regexp.Regexp
}

var (
	_ CommandRunner = (*Driver)(nil)
	_ Activator     = (*Driver)(nil)
)

// New builds a driver for one shell. Configured patterns are compiled here;
// invalid ones fail construction.
func New(tr console.Transport, cfg Config, log *logging.Logger) (*Driver, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logging.NewNop()
	}

	boot, err := regexp.Compile(cfg.BootExpression)
	if err != nil {
		return nil, fmt.Errorf("compile boot expression: %w", err)
	}
	prompt, err := regexp.Compile(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("compile prompt: %w", err)
	}
	marker, err := compileMarker(cfg.ErrorMarker)
	if err != nil {
		return nil, fmt.Errorf("compile error marker: %w", err)
	}

	return &Driver{
		cfg:    cfg,
		tr:     tr,
		log:    log,
		boot:   boot,
		prompt: prompt,
		marker: marker,
	}, nil
}

// Status reads the current readiness. No side effects.
func (d *Driver) Status() Readiness {
	return Readiness(d.state.Load())
}

// Activate synchronizes with the shell and flips the driver to Ready. A
// driver that is already Ready returns immediately without touching the
// transport. Synchronization failures leave readiness at Inactive.
func (d *Driver) Activate() error {
	if d.Status() == Ready {
		return nil
	}
	if err := d.synchronize(); err != nil {
		return err
	}
	d.state.Store(int32(Ready))
	d.log.Info("shell driver activated")
	return nil
}

// Deactivate resets readiness. It never touches the transport; the console
// stays open for a later Activate.
func (d *Driver) Deactivate() {
	d.state.Store(int32(Inactive))
	d.log.Info("shell driver deactivated")
}

// synchronize waits for the boot banner, coaxes a prompt with an empty
// line, and runs the init commands.
func (d *Driver) synchronize() error {
	d.log.Info("waiting for boot banner",
		zap.String("pattern", d.cfg.BootExpression),
		zap.Duration("timeout", d.cfg.LoginTimeout),
	)
	if _, err := d.tr.Expect(d.boot, d.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("boot synchronization: %w", err)
	}

	if err := d.tr.SendLine(""); err != nil {
		return fmt.Errorf("prompt synchronization: %w", err)
	}
	if _, err := d.tr.Expect(d.prompt, 0); err != nil {
		return fmt.Errorf("prompt synchronization: %w", err)
	}

	for _, cmd := range d.cfg.InitCommands {
		res, err := d.exec(cmd, RunOptions{Timeout: d.cfg.InitCommandTimeout})
		if err != nil {
			return fmt.Errorf("init command %q: %w", cmd, err)
		}
		if res.Status != 0 {
			d.log.Error("init command failed",
				zap.String("command", cmd),
				zap.Int("status", res.Status),
				zap.Strings("output", res.Lines),
			)
		}
	}
	return nil
}

// Run executes cmd and returns its demarcated output and inferred exit
// status.
//
// On a driver that is not Ready, Run performs no I/O and returns (nil, nil):
// the not-ready signal is a distinguished nil result, not an error. Callers
// that want an error instead use RunCheck.
func (d *Driver) Run(cmd string, opts RunOptions) (*Result, error) {
	if d.Status() != Ready {
		d.log.Debug("run skipped, shell not ready", zap.String("command", cmd))
		return nil, nil
	}
	return d.exec(cmd, opts)
}

// RunCheck is Run for callers that treat any failure as an error: not
// ready, a transport fault, or a non-zero/unknown exit status.
func (d *Driver) RunCheck(cmd string, opts RunOptions) ([]string, error) {
	res, err := d.Run(cmd, opts)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotReady
	}
	if res.Status != 0 {
		return res.Lines, &ExitStatusError{Command: cmd, Status: res.Status, Output: res.Lines}
	}
	return res.Lines, nil
}

// exec is the synchronous command round-trip: submit, capture to the next
// prompt, demarcate, then infer the exit status with a second round-trip.
func (d *Driver) exec(cmd string, opts RunOptions) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	lines, err := d.turn(cmd, opts)
	if err != nil {
		return nil, err
	}

	// The status query is best effort: a timeout or transport fault here
	// degrades the inference to the marker/unknown fallbacks, it never
	// fails a command that already produced its output.
	statusLines, err := d.turnRaw(statusQuery, opts)
	if err != nil {
		d.log.Warn("exit status query failed",
			zap.String("command", cmd),
			zap.Error(err),
		)
		statusLines = nil
	}

	kind, status := inferStatus(statusLines, lines, d.marker)
	d.log.Debug("command completed",
		zap.String("command", cmd),
		zap.Int("status", status),
		zap.String("inference", kind.String()),
		zap.Duration("took", time.Since(start)),
	)
	return &Result{Lines: lines, Aux: []string{}, Status: status}, nil
}

// turn runs one send/expect round-trip and demarcates the capture: escape
// sequences stripped, carriage returns dropped, first and last lines (the
// echoed command and the blank line before the prompt) removed.
//
// The first/last drop is positional and unconditional. A shell that does
// not echo, or a command whose output ends without a blank line, misparses
// silently; that fragility is inherited behavior this driver preserves.
func (d *Driver) turn(cmd string, opts RunOptions) ([]string, error) {
	text, err := d.roundTrip(cmd, opts)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(text, "\n")
	if len(parts) <= 2 {
		return []string{}, nil
	}
	return parts[1 : len(parts)-1], nil
}

// turnRaw is turn without the positional drop; the status parser indexes
// the full split itself.
func (d *Driver) turnRaw(cmd string, opts RunOptions) ([]string, error) {
	text, err := d.roundTrip(cmd, opts)
	if err != nil {
		return nil, err
	}
	return strings.Split(text, "\n"), nil
}

func (d *Driver) roundTrip(cmd string, opts RunOptions) (string, error) {
	if err := d.tr.SendLine(cmd); err != nil {
		return "", err
	}
	m, err := d.tr.Expect(d.prompt, opts.Timeout)
	if err != nil {
		return "", err
	}
	text, err := textcodec.Decode(m.Before, opts.Codec, opts.DecodeErrors)
	if err != nil {
		return "", fmt.Errorf("decode console output: %w", err)
	}
	return strings.ReplaceAll(ansi.Strip(text), "\r", ""), nil
}
