// Package shell drives a command-line shell on an embedded target over a
// raw console stream.
//
// The stream has no framing: the only structure is the recurring prompt.
// The driver synchronizes with a freshly booted shell, demarcates each
// command's output between its echo and the next prompt, strips terminal
// escape sequences, and infers an exit status from a shell that offers no
// out-of-band signaling.
//
// Lifecycle:
//   - Activate waits for the boot banner, coaxes a prompt, and runs the
//     configured init commands. It is idempotent.
//   - Run executes one command and returns its output lines plus an
//     inferred exit status. On a driver that is not activated it returns
//     (nil, nil), a deliberate no-op rather than an error.
//   - Deactivate resets local readiness only; the console stays open.
//
// Exit-status inference degrades in order: parse `echo $?`, then look for
// the shell's error-marker line, then report unknown.
//
// A Driver serves one caller at a time. Commands are strictly sequential;
// callers running from several goroutines hold their own lock.
//
// Example:
//
//	drv, _ := shell.New(transport, shell.Config{}, logger)
//	if err := drv.Activate(); err != nil {
//		return err
//	}
//	res, err := drv.Run("cat /proc/version", shell.RunOptions{})
package shell
