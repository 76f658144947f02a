package shell_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/console/consoletest"
	"github.com/boardlab/boardlab/internal/shell"
)

const banner = "NuttShell (NSH) NuttX\r\n"

// respond builds an OnWrite hook answering each written line from a map.
func respond(script map[string]string) func(string) []byte {
	return func(line string) []byte {
		if resp, ok := script[line]; ok {
			return []byte(resp)
		}
		return nil
	}
}

func newDriver(t *testing.T, port *consoletest.ScriptPort, cfg shell.Config) *shell.Driver {
	t.Helper()
	exp := console.NewExpecter(port, console.ExpectConfig{
		DefaultTimeout: 500 * time.Millisecond,
		PollInterval:   time.Millisecond,
	})
	drv, err := shell.New(exp, cfg, nil)
	require.NoError(t, err)
	return drv
}

// activated returns a driver synchronized against a scripted NSH target.
func activated(t *testing.T, script map[string]string) (*shell.Driver, *consoletest.ScriptPort) {
	t.Helper()
	if _, ok := script[""]; !ok {
		script[""] = "\r\nnsh> "
	}
	port := consoletest.New()
	port.OnWrite = respond(script)
	port.FeedString(banner)

	drv := newDriver(t, port, shell.Config{})
	require.NoError(t, drv.Activate())
	require.Equal(t, shell.Ready, drv.Status())
	return drv, port
}

func TestActivateSyncsWithBootedShell(t *testing.T) {
	drv, _ := activated(t, map[string]string{})
	assert.Equal(t, shell.Ready, drv.Status())
}

func TestRunNotReadyIsSilentNoOp(t *testing.T) {
	port := consoletest.New()
	drv := newDriver(t, port, shell.Config{})

	res, err := drv.Run("echo OK", shell.RunOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, port.ReadCalls())
	assert.Zero(t, port.WriteCalls())
}

func TestActivateBootTimeoutLeavesInactive(t *testing.T) {
	port := consoletest.New()
	port.FeedString("noise that is not a banner")
	drv := newDriver(t, port, shell.Config{LoginTimeout: 40 * time.Millisecond})

	err := drv.Activate()
	require.Error(t, err)

	var te *console.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, string(te.Accumulated), "noise")
	assert.Equal(t, shell.Inactive, drv.Status())
}

func TestActivateIdempotent(t *testing.T) {
	drv, port := activated(t, map[string]string{})

	reads, writes := port.ReadCalls(), port.WriteCalls()
	require.NoError(t, drv.Activate())
	assert.Equal(t, reads, port.ReadCalls())
	assert.Equal(t, writes, port.WriteCalls())
}

func TestRunParsesEchoedStatus(t *testing.T) {
	drv, port := activated(t, map[string]string{
		"echo OK": "echo OK\r\nOK\r\nnsh> ",
		"echo $?": "echo $?\r\n0\r\nnsh> ",
	})

	res, err := drv.Run("echo OK", shell.RunOptions{Timeout: 30 * time.Second})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"OK"}, res.Lines)
	assert.Empty(t, res.Aux)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, []string{"", "echo OK", "echo $?"}, port.Writes())
}

func TestRunNonZeroStatus(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"false":   "false\r\nnsh> ",
		"echo $?": "echo $?\r\n1\r\nnsh> ",
	})

	res, err := drv.Run("false", shell.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Status)
	assert.Empty(t, res.Lines)
}

func TestRunErrorMarkerFallback(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"nosuch":  "nosuch\r\nnsh: nosuch: command not found\r\nnsh> ",
		"echo $?": "echo $?\r\nnsh: echo: syntax error\r\nnsh> ",
	})

	res, err := drv.Run("nosuch", shell.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, shell.StatusShellError, res.Status)
	assert.Equal(t, []string{"nsh: nosuch: command not found"}, res.Lines)
}

func TestRunUnknownStatus(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"greet":   "greet\r\nworld\r\nnsh> ",
		"echo $?": "echo $?\r\nnot a number\r\nnsh> ",
	})

	res, err := drv.Run("greet", shell.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, shell.StatusUnknown, res.Status)
	assert.Equal(t, []string{"world"}, res.Lines)
}

func TestRunStatusQueryTimeoutDegradesToUnknown(t *testing.T) {
	// The command answers normally but the shell never answers `echo $?`.
	// The round-trip already succeeded, so the status degrades instead of
	// failing the command.
	drv, _ := activated(t, map[string]string{
		"echo OK": "echo OK\r\nOK\r\nnsh> ",
		"echo $?": "echo $?\r\n",
	})

	res, err := drv.Run("echo OK", shell.RunOptions{Timeout: 80 * time.Millisecond})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"OK"}, res.Lines)
	assert.Empty(t, res.Aux)
	assert.Equal(t, shell.StatusUnknown, res.Status)
	assert.Equal(t, shell.Ready, drv.Status())
}

func TestRunStatusQueryTimeoutStillUsesMarker(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"nosuch":  "nosuch\r\nnsh: nosuch: command not found\r\nnsh> ",
		"echo $?": "echo $?\r\n",
	})

	res, err := drv.Run("nosuch", shell.RunOptions{Timeout: 80 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, shell.StatusShellError, res.Status)
}

func TestRunMarkerMidLineIsNotAFailure(t *testing.T) {
	// The marker only counts when the diagnostic is the whole last line;
	// output that merely mentions one stays unknown.
	drv, _ := activated(t, map[string]string{
		"grep nsh log": "grep nsh log\r\nsaw nsh: foo: failure earlier\r\nnsh> ",
		"echo $?":      "echo $?\r\ngarbage\r\nnsh> ",
	})

	res, err := drv.Run("grep nsh log", shell.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, shell.StatusUnknown, res.Status)
}

func TestRunTimeoutPropagates(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"hang": "hang\r\n", // no prompt follows
	})

	_, err := drv.Run("hang", shell.RunOptions{Timeout: 50 * time.Millisecond})
	var te *console.TimeoutError
	require.ErrorAs(t, err, &te)
	// A timeout does not deactivate; the caller decides how to recover.
	assert.Equal(t, shell.Ready, drv.Status())
}

func TestRunTransportErrorPropagates(t *testing.T) {
	drv, port := activated(t, map[string]string{})
	port.WriteErr = errors.New("pty closed")

	_, err := drv.Run("echo OK", shell.RunOptions{})
	var tr *console.TransportError
	require.ErrorAs(t, err, &tr)
}

func TestInitCommandsRunInOrder(t *testing.T) {
	port := consoletest.New()
	port.OnWrite = respond(map[string]string{
		"":                     "\r\nnsh> ",
		"mount -t procfs /proc": "mount -t procfs /proc\r\nnsh> ",
		"set +e":               "set +e\r\nnsh> ",
		"echo $?":              "echo $?\r\n0\r\nnsh> ",
	})
	port.FeedString(banner)

	drv := newDriver(t, port, shell.Config{
		InitCommands: []string{"mount -t procfs /proc", "set +e"},
	})
	require.NoError(t, drv.Activate())

	assert.Equal(t, []string{
		"",
		"mount -t procfs /proc", "echo $?",
		"set +e", "echo $?",
	}, port.Writes())

	// Re-activation runs them at most once.
	writes := port.WriteCalls()
	require.NoError(t, drv.Activate())
	assert.Equal(t, writes, port.WriteCalls())
}

func TestInitCommandFailureDoesNotAbort(t *testing.T) {
	port := consoletest.New()
	port.OnWrite = respond(map[string]string{
		"":            "\r\nnsh> ",
		"mount /proc": "mount /proc\r\nnsh: mount: mount failed: 22\r\nnsh> ",
		"echo $?":     "echo $?\r\n1\r\nnsh> ",
	})
	port.FeedString(banner)

	drv := newDriver(t, port, shell.Config{InitCommands: []string{"mount /proc"}})
	require.NoError(t, drv.Activate())
	assert.Equal(t, shell.Ready, drv.Status())
}

func TestInitCommandTimeoutAborts(t *testing.T) {
	port := consoletest.New()
	port.OnWrite = respond(map[string]string{
		"":     "\r\nnsh> ",
		"hang": "hang\r\n",
	})
	port.FeedString(banner)

	exp := console.NewExpecter(port, console.ExpectConfig{
		DefaultTimeout: 60 * time.Millisecond,
		PollInterval:   time.Millisecond,
	})
	drv, err := shell.New(exp, shell.Config{
		InitCommands:       []string{"hang"},
		InitCommandTimeout: 60 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	require.Error(t, drv.Activate())
	assert.Equal(t, shell.Inactive, drv.Status())
}

func TestDeactivateIsLocalReset(t *testing.T) {
	drv, port := activated(t, map[string]string{})

	drv.Deactivate()
	assert.Equal(t, shell.Inactive, drv.Status())
	assert.False(t, port.Closed())

	res, err := drv.Run("echo OK", shell.RunOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestRunCheckNotReady(t *testing.T) {
	port := consoletest.New()
	drv := newDriver(t, port, shell.Config{})

	_, err := drv.RunCheck("echo OK", shell.RunOptions{})
	assert.ErrorIs(t, err, shell.ErrNotReady)
}

func TestRunCheckNonZeroIsError(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"false":   "false\r\nnsh> ",
		"echo $?": "echo $?\r\n1\r\nnsh> ",
	})

	lines, err := drv.RunCheck("false", shell.RunOptions{})
	require.Error(t, err)

	var ese *shell.ExitStatusError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, 1, ese.Status)
	assert.Equal(t, "false", ese.Command)
	assert.Empty(t, lines)
}

func TestRunCheckZeroStatus(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"cat /proc/version": "cat /proc/version\r\nNuttX version 12.4.0\r\nnsh> ",
		"echo $?":           "echo $?\r\n0\r\nnsh> ",
	})

	lines, err := drv.RunCheck("cat /proc/version", shell.RunOptions{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Regexp(t, `NuttX version \d+\.\d+\.\d+`, lines[0])
}

func TestRunEmptyOutput(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"true":    "true\r\nnsh> ",
		"echo $?": "echo $?\r\n0\r\nnsh> ",
	})

	res, err := drv.Run("true", shell.RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.Equal(t, 0, res.Status)
}

func TestRunStripsEscapeSequences(t *testing.T) {
	drv, _ := activated(t, map[string]string{
		"ls":      "ls\r\n\x1b[31mred.txt\x1b[0m\r\nnsh> ",
		"echo $?": "echo $?\r\n0\r\nnsh> ",
	})

	res, err := drv.Run("ls", shell.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"red.txt"}, res.Lines)
}

func TestRunCustomCodec(t *testing.T) {
	port := consoletest.New()
	port.OnWrite = func(line string) []byte {
		switch line {
		case "":
			return []byte("\r\nnsh> ")
		case "cat note":
			// caf\xe9 in ISO-8859-1
			return append([]byte("cat note\r\ncaf"), 0xe9, '\r', '\n', 'n', 's', 'h', '>', ' ')
		case "echo $?":
			return []byte("echo $?\r\n0\r\nnsh> ")
		}
		return nil
	}
	port.FeedString(banner)

	drv := newDriver(t, port, shell.Config{})
	require.NoError(t, drv.Activate())

	res, err := drv.Run("cat note", shell.RunOptions{Codec: "iso-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, res.Lines)
}

func TestRunStrictDecodeFailurePropagates(t *testing.T) {
	port := consoletest.New()
	port.OnWrite = func(line string) []byte {
		switch line {
		case "":
			return []byte("\r\nnsh> ")
		case "cat blob":
			return append([]byte("cat blob\r\n"), 0xff, 0xfe, '\r', '\n', 'n', 's', 'h', '>', ' ')
		}
		return nil
	}
	port.FeedString(banner)

	drv := newDriver(t, port, shell.Config{})
	require.NoError(t, drv.Activate())

	_, err := drv.Run("cat blob", shell.RunOptions{})
	assert.Error(t, err)
}

func TestNewRejectsInvalidPatterns(t *testing.T) {
	tests := []struct {
		name string
		cfg  shell.Config
	}{
		{"bad prompt", shell.Config{Prompt: "("}},
		{"bad boot expression", shell.Config{BootExpression: "["}},
		{"bad marker", shell.Config{ErrorMarker: "(?P<"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := shell.New(consoleStub{}, tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

// consoleStub satisfies the transport for construction-only tests.
type consoleStub struct{}

func (consoleStub) SendLine(string) error { return nil }
func (consoleStub) Expect(*regexp.Regexp, time.Duration) (*console.Match, error) {
	return nil, errors.New("not implemented")
}
