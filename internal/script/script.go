// Package script executes JavaScript command sequences against a target
// shell. Each run gets a fresh sandboxed VM with a `shell` binding and a
// capturing console; dangerous Node globals are removed.
package script

import (
	"context"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/shell"
)

// Config defines script execution limits.
type Config struct {
	// Timeout bounds one script's wall clock. Default 60s.
	Timeout time.Duration
	// CommandTimeout is passed to every shell command the script issues.
	// Zero uses the shell default.
	CommandTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// LogEntry is one captured console call.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Result holds the outcome of one script run.
type Result struct {
	ID       string        `json:"id"`
	Value    interface{}   `json:"value,omitempty"`
	Console  []LogEntry    `json:"console"`
	Duration time.Duration `json:"duration"`
}

// Runner executes scripts. Safe to share; every Execute builds its own VM.
type Runner struct {
	cfg Config
	log *logging.Logger
}

// NewRunner returns a script runner.
func NewRunner(cfg Config, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{cfg: cfg.withDefaults(), log: log}
}

// Execute runs source against sh. Script errors and shell errors surface
// as the returned error; the partial result keeps whatever console output
// was captured before the failure.
func (r *Runner) Execute(ctx context.Context, source string, sh shell.CommandRunner) (*Result, error) {
	start := time.Now()
	result := &Result{
		ID:      uuid.NewString(),
		Console: []LogEntry{},
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(1024)
	r.setupGlobals(vm, result, sh)

	timer := time.NewTimer(r.cfg.Timeout)
	defer timer.Stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("script timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := vm.RunString(source)
	close(done)
	result.Duration = time.Since(start)

	if err != nil {
		r.log.Warn("script failed",
			zap.String("script_id", result.ID),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
		return result, err
	}

	result.Value = exportValue(val)
	r.log.Info("script finished",
		zap.String("script_id", result.ID),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// setupGlobals strips Node globals and installs console and shell.
func (r *Runner) setupGlobals(vm *goja.Runtime, result *Result, sh shell.CommandRunner) {
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	console := vm.NewObject()
	console.Set("log", makeConsoleFunc(result, "log"))
	console.Set("warn", makeConsoleFunc(result, "warn"))
	console.Set("error", makeConsoleFunc(result, "error"))
	console.Set("info", makeConsoleFunc(result, "info"))
	vm.Set("console", console)

	opts := shell.RunOptions{Timeout: r.cfg.CommandTimeout}
	shellObj := vm.NewObject()
	shellObj.Set("run", func(cmd string) (map[string]interface{}, error) {
		res, err := sh.Run(cmd, opts)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, shell.ErrNotReady
		}
		return map[string]interface{}{
			"lines":  res.Lines,
			"status": res.Status,
		}, nil
	})
	shellObj.Set("runCheck", func(cmd string) ([]string, error) {
		return sh.RunCheck(cmd, opts)
	})
	vm.Set("shell", shellObj)
}

// makeConsoleFunc appends one console call to the result. console writes
// happen on the VM goroutine, so no locking is needed.
func makeConsoleFunc(result *Result, level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		result.Console = append(result.Console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
