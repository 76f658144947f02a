package target_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/console/consoletest"
	"github.com/boardlab/boardlab/internal/environment"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/shell"
	"github.com/boardlab/boardlab/internal/strategy"
	"github.com/boardlab/boardlab/internal/target"
)

const labYAML = `
targets:
  sim:
    console:
      type: qemu
      command: ["qemu-system-arm", "-M", "lm3s6965evb", "-nographic"]
  board:
    console:
      type: serial
      device: /dev/ttyUSB0
      baud: 115200
    shell:
      login_timeout: 5
`

// nshPort scripts an NSH target: banner on open, prompt echoes, echo
// commands answered.
func nshPort() *consoletest.ScriptPort {
	port := consoletest.New()
	port.FeedString("NuttShell (NSH) NuttX\r\n")
	port.OnWrite = func(line string) []byte {
		switch line {
		case "":
			return []byte("\r\nnsh> ")
		case "echo OK":
			return []byte("echo OK\r\nOK\r\nnsh> ")
		case "echo $?":
			return []byte("echo $?\r\n0\r\nnsh> ")
		default:
			return []byte(line + "\r\nnsh> ")
		}
	}
	return port
}

func newManager(t *testing.T) (*target.Manager, map[string]*consoletest.ScriptPort) {
	t.Helper()
	env, err := environment.Parse([]byte(labYAML))
	require.NoError(t, err)

	ports := make(map[string]*consoletest.ScriptPort)
	mgr, err := target.NewManager(env, target.Options{
		CaptureDir: t.TempDir(),
		PortFactory: func(cfg environment.ConsoleConfig, _ *logging.Logger) (console.Port, error) {
			port := nshPort()
			ports[cfg.Type] = port
			return port, nil
		},
	}, nil)
	require.NoError(t, err)
	return mgr, ports
}

func TestManagerNames(t *testing.T) {
	mgr, _ := newManager(t)
	assert.Equal(t, []string{"board", "sim"}, mgr.Names())
}

func TestManagerUnknownTarget(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.Get("toaster")
	assert.ErrorIs(t, err, target.ErrUnknownTarget)
}

func TestManagerRejectsBadPattern(t *testing.T) {
	env, err := environment.Parse([]byte(`
targets:
  sim:
    console:
      type: qemu
      command: ["qemu"]
    shell:
      prompt: "([unclosed"
`))
	require.NoError(t, err)

	_, err = target.NewManager(env, target.Options{CaptureDir: t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestRunBeforeActivateIsNotReady(t *testing.T) {
	mgr, ports := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	res, err := tgt.Run("echo OK", shell.RunOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, ports, "no console may open for a not-ready run")

	_, err = tgt.RunCheck("echo OK", shell.RunOptions{})
	assert.ErrorIs(t, err, shell.ErrNotReady)
}

func TestActivateAndRun(t *testing.T) {
	mgr, _ := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	require.NoError(t, tgt.Activate())
	assert.Equal(t, shell.Ready, tgt.Status())

	res, err := tgt.Run("echo OK", shell.RunOptions{Timeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"OK"}, res.Lines)
	assert.Equal(t, 0, res.Status)

	summary := tgt.Stats()
	assert.Equal(t, 1, summary.Commands)
	assert.Zero(t, summary.Failures)
}

func TestStrategyTransitionToShell(t *testing.T) {
	mgr, _ := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	require.NoError(t, tgt.Transition(context.Background(), strategy.StateShell))
	assert.Equal(t, strategy.StateShell, tgt.StrategyState())
	assert.Equal(t, shell.Ready, tgt.Status())
}

func TestDeactivateKeepsConsole(t *testing.T) {
	mgr, ports := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	require.NoError(t, tgt.Activate())
	tgt.Deactivate()
	assert.Equal(t, shell.Inactive, tgt.Status())
	assert.False(t, ports["qemu"].Closed())

	res, err := tgt.Run("echo OK", shell.RunOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestSubscribeStreamsConsoleBytes(t *testing.T) {
	mgr, _ := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	id, ch, err := tgt.Subscribe()
	require.NoError(t, err)
	defer tgt.Unsubscribe(id)

	// Bytes reach subscribers as the expect engine reads them; the easiest
	// pump is activation itself.
	require.NoError(t, tgt.Activate())

	var got []byte
	deadline := time.After(2 * time.Second)
	for len(got) < len("NuttShell") {
		select {
		case chunk := <-ch:
			got = append(got, chunk...)
		case <-deadline:
			t.Fatal("no console bytes observed")
		}
	}
	assert.Contains(t, string(got), "NuttShell")
}

func TestCloseAllReopensOnNextUse(t *testing.T) {
	mgr, ports := newManager(t)
	tgt, err := mgr.Get("sim")
	require.NoError(t, err)

	require.NoError(t, tgt.Activate())
	mgr.CloseAll()
	assert.True(t, ports["qemu"].Closed())
	assert.Equal(t, shell.Inactive, tgt.Status())

	// A fresh scripted port comes from the factory on reopen.
	require.NoError(t, tgt.Activate())
	assert.Equal(t, shell.Ready, tgt.Status())
}
