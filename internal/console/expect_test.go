package console_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/boardlab/internal/console"
	"github.com/boardlab/boardlab/internal/console/consoletest"
)

var prompt = regexp.MustCompile(`nsh> `)

func newExpecter(port console.Port) *console.Expecter {
	return console.NewExpecter(port, console.ExpectConfig{
		DefaultTimeout: 500 * time.Millisecond,
		PollInterval:   time.Millisecond,
	})
}

func TestExpectMatchSplitsStream(t *testing.T) {
	port := consoletest.New()
	port.FeedString("echo OK\r\nOK\r\nnsh> ")

	m, err := newExpecter(port).Expect(prompt, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "echo OK\r\nOK\r\n", string(m.Before))
	assert.Equal(t, "nsh> ", string(m.Bytes))
}

func TestExpectAcrossChunkedReads(t *testing.T) {
	port := consoletest.New()
	port.FeedString("NuttShell (N")
	port.FeedAfter(10*time.Millisecond, "SH) NuttX\r\n")

	banner := regexp.MustCompile(`NuttShell \(NSH\) NuttX`)
	m, err := newExpecter(port).Expect(banner, time.Second)
	require.NoError(t, err)
	assert.Empty(t, m.Before)
}

func TestExpectKeepsBytesAfterMatch(t *testing.T) {
	port := consoletest.New()
	port.FeedString("boot done\r\nnsh> stale tail")

	exp := newExpecter(port)
	_, err := exp.Expect(prompt, time.Second)
	require.NoError(t, err)

	// The tail survives for the next pattern.
	tail := regexp.MustCompile(`stale tail`)
	m, err := exp.Expect(tail, time.Second)
	require.NoError(t, err)
	assert.Empty(t, m.Before)
}

func TestExpectCaptureGroups(t *testing.T) {
	port := consoletest.New()
	port.FeedString("NuttX version 12.4.0\r\nnsh> ")

	version := regexp.MustCompile(`NuttX version (\d+)\.(\d+)\.(\d+)`)
	m, err := newExpecter(port).Expect(version, time.Second)
	require.NoError(t, err)
	require.Len(t, m.Groups, 3)
	assert.Equal(t, "12", string(m.Groups[0]))
	assert.Equal(t, "4", string(m.Groups[1]))
	assert.Equal(t, "0", string(m.Groups[2]))
}

func TestExpectTimeoutCarriesAccumulated(t *testing.T) {
	port := consoletest.New()
	port.FeedString("partial output without prompt")

	_, err := newExpecter(port).Expect(prompt, 30*time.Millisecond)
	require.Error(t, err)

	var te *console.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "partial output without prompt", string(te.Accumulated))
	assert.Equal(t, 30*time.Millisecond, te.Timeout)
	assert.Contains(t, te.Error(), "nsh> ")
}

func TestExpectReadErrorBecomesTransportError(t *testing.T) {
	port := consoletest.New()
	port.ReadErr = errors.New("pty gone")

	_, err := newExpecter(port).Expect(prompt, time.Second)
	var tr *console.TransportError
	require.ErrorAs(t, err, &tr)
}

func TestSendLineAppendsNewline(t *testing.T) {
	port := consoletest.New()
	exp := newExpecter(port)

	require.NoError(t, exp.SendLine("echo OK"))
	assert.Equal(t, []string{"echo OK"}, port.Writes())
}

func TestSendLineWriteErrorBecomesTransportError(t *testing.T) {
	port := consoletest.New()
	port.WriteErr = errors.New("closed")

	err := newExpecter(port).SendLine("x")
	var tr *console.TransportError
	require.ErrorAs(t, err, &tr)
}
