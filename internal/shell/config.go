package shell

import (
	"time"
)

// Defaults match the NuttShell (NSH) consoles this driver was built
// against. Every field can be overridden per target.
const (
	DefaultLoginTimeout   = 60 * time.Second
	DefaultBootExpression = `NuttShell \(NSH\) NuttX`
	DefaultPrompt         = `nsh> `
	DefaultErrorMarker    = `nsh: .*: `
)

// Config is the immutable driver configuration. Patterns compile once at
// construction; zero values select the defaults above.
type Config struct {
	// LoginTimeout bounds the wait for the boot banner.
	LoginTimeout time.Duration
	// BootExpression is the pattern that signals the shell finished booting.
	BootExpression string
	// Prompt is the pattern marking the end of any shell turn.
	Prompt string
	// InitCommands run once, in order, right after synchronization.
	// Failures are logged and skipped; initialization is best effort.
	InitCommands []string
	// InitCommandTimeout bounds each init command round-trip. Zero selects
	// the regular run default.
	InitCommandTimeout time.Duration
	// ErrorMarker matches the diagnostic line the shell prints for a failed
	// command, the fallback signal when `echo $?` is unusable.
	ErrorMarker string
}

func (c Config) withDefaults() Config {
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = DefaultLoginTimeout
	}
	if c.BootExpression == "" {
		c.BootExpression = DefaultBootExpression
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.ErrorMarker == "" {
		c.ErrorMarker = DefaultErrorMarker
	}
	return c
}
