// Package environment loads the lab description: which targets exist, how
// to reach their consoles, how their shells behave, and how they are
// powered. One YAML file describes one lab.
package environment

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-yaml"
)

// Console types.
const (
	ConsoleQEMU   = "qemu"
	ConsoleSerial = "serial"
)

// Power types.
const (
	PowerNone = ""
	PowerREST = "rest"
)

// Environment is the parsed lab file.
type Environment struct {
	Targets map[string]TargetConfig `yaml:"targets"`
}

// TargetConfig describes one target.
type TargetConfig struct {
	Console ConsoleConfig `yaml:"console"`
	Shell   ShellConfig   `yaml:"shell"`
	Power   PowerConfig   `yaml:"power"`
}

// ConsoleConfig selects and parametrizes the console transport.
type ConsoleConfig struct {
	Type string `yaml:"type"`
	// Command is the argv of a qemu console.
	Command []string `yaml:"command"`
	// Device and Baud configure a serial console.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// ShellConfig mirrors the shell driver configuration. Durations are whole
// seconds in the file.
type ShellConfig struct {
	Prompt          string   `yaml:"prompt"`
	BootExpression  string   `yaml:"boot_expression"`
	LoginTimeoutSec int      `yaml:"login_timeout"`
	InitCommands    []string `yaml:"init_commands"`
	ErrorMarker     string   `yaml:"error_marker"`
}

// LoginTimeout converts the configured seconds; zero means the driver
// default.
func (s ShellConfig) LoginTimeout() time.Duration {
	return time.Duration(s.LoginTimeoutSec) * time.Second
}

// PowerConfig selects and parametrizes the power driver.
type PowerConfig struct {
	Type     string `yaml:"type"`
	OnURL    string `yaml:"on_url"`
	OffURL   string `yaml:"off_url"`
	StateURL string `yaml:"state_url"`
}

// Load reads and validates a lab file.
func Load(path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment file: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML.
func Parse(data []byte) (*Environment, error) {
	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse environment file: %w", err)
	}
	if len(env.Targets) == 0 {
		return nil, fmt.Errorf("environment file declares no targets")
	}
	for name, tc := range env.Targets {
		if err := tc.validate(); err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
	}
	return &env, nil
}

// Names returns the target names, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.Targets))
	for name := range e.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tc TargetConfig) validate() error {
	switch tc.Console.Type {
	case ConsoleQEMU:
		if len(tc.Console.Command) == 0 {
			return fmt.Errorf("qemu console needs a command")
		}
	case ConsoleSerial:
		if tc.Console.Device == "" {
			return fmt.Errorf("serial console needs a device")
		}
		if tc.Console.Baud < 0 {
			return fmt.Errorf("negative baud rate")
		}
	case "":
		return fmt.Errorf("console type missing")
	default:
		return fmt.Errorf("unknown console type %q", tc.Console.Type)
	}

	if tc.Shell.LoginTimeoutSec < 0 {
		return fmt.Errorf("negative login timeout")
	}

	switch tc.Power.Type {
	case PowerNone:
	case PowerREST:
		if tc.Power.OnURL == "" || tc.Power.OffURL == "" {
			return fmt.Errorf("rest power needs on_url and off_url")
		}
	default:
		return fmt.Errorf("unknown power type %q", tc.Power.Type)
	}
	return nil
}
