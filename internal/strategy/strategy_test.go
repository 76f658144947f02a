package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardlab/boardlab/internal/shell"
)

// fakePower records power operations.
type fakePower struct {
	ops   []string
	onErr error
}

func (f *fakePower) On(context.Context) error {
	f.ops = append(f.ops, "on")
	return f.onErr
}

func (f *fakePower) Off(context.Context) error {
	f.ops = append(f.ops, "off")
	return nil
}

func (f *fakePower) Cycle(context.Context) error {
	f.ops = append(f.ops, "cycle")
	return nil
}

func (f *fakePower) Get(context.Context) (bool, error) { return true, nil }

// fakeShell records lifecycle calls.
type fakeShell struct {
	activations   int
	deactivations int
	activateErr   error
	status        shell.Readiness
}

func (f *fakeShell) Activate() error {
	f.activations++
	if f.activateErr != nil {
		return f.activateErr
	}
	f.status = shell.Ready
	return nil
}

func (f *fakeShell) Deactivate() {
	f.deactivations++
	f.status = shell.Inactive
}

func (f *fakeShell) Status() shell.Readiness { return f.status }

func TestTransitionToShellFromOff(t *testing.T) {
	pw := &fakePower{}
	sh := &fakeShell{}
	s := New(pw, sh, nil)

	require.NoError(t, s.Transition(context.Background(), StateShell))
	assert.Equal(t, StateShell, s.State())
	assert.Equal(t, []string{"on"}, pw.ops)
	assert.Equal(t, 1, sh.activations)
}

func TestTransitionIdempotent(t *testing.T) {
	pw := &fakePower{}
	sh := &fakeShell{}
	s := New(pw, sh, nil)

	require.NoError(t, s.Transition(context.Background(), StateShell))
	require.NoError(t, s.Transition(context.Background(), StateShell))
	assert.Equal(t, 1, sh.activations)
	assert.Equal(t, []string{"on"}, pw.ops)
}

func TestTransitionUnknownState(t *testing.T) {
	s := New(&fakePower{}, &fakeShell{}, nil)
	assert.Error(t, s.Transition(context.Background(), "hovering"))
}

func TestTransitionOffDeactivatesAndCuts(t *testing.T) {
	pw := &fakePower{}
	sh := &fakeShell{}
	s := New(pw, sh, nil)

	require.NoError(t, s.Transition(context.Background(), StateShell))
	require.NoError(t, s.Transition(context.Background(), StateOff))
	assert.Equal(t, StateOff, s.State())
	assert.Equal(t, 1, sh.deactivations)
	assert.Equal(t, []string{"on", "off"}, pw.ops)
}

func TestActivationFailureStaysBooted(t *testing.T) {
	pw := &fakePower{}
	sh := &fakeShell{activateErr: errors.New("boot timeout")}
	s := New(pw, sh, nil)

	err := s.Transition(context.Background(), StateShell)
	require.Error(t, err)
	assert.Equal(t, StateBooted, s.State())
}

func TestShellToBootedKeepsPower(t *testing.T) {
	pw := &fakePower{}
	sh := &fakeShell{}
	s := New(pw, sh, nil)

	require.NoError(t, s.Transition(context.Background(), StateShell))
	require.NoError(t, s.Transition(context.Background(), StateBooted))
	assert.Equal(t, StateBooted, s.State())
	assert.Equal(t, []string{"on"}, pw.ops)
}

func TestNilPowerDefaultsToNoop(t *testing.T) {
	sh := &fakeShell{}
	s := New(nil, sh, nil)
	require.NoError(t, s.Transition(context.Background(), StateShell))
	assert.Equal(t, StateShell, s.State())
}
