// Package ws provides WebSocket access to target consoles.
//
// Each connection is bound to one target: the server streams live console
// bytes (plus a tail replay on join) and accepts command frames, so a
// browser can watch a board boot and poke its shell over the same socket.
//
// Message Types (Client → Server):
//   - run: execute a shell command ({"type":"run","command":"ls","timeout":30})
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - hello: connection accepted, carries target name and readiness
//   - console: raw console bytes as they arrive
//   - result: command output lines and inferred exit status
//   - not_ready: the command was skipped because the shell is not activated
//   - pong: ping reply
//   - error: something failed
//
// Example Usage:
//
//	handler := ws.NewHandler(targets, metrics, logger)
//	router.GET("/targets/:name/console", handler.HandleConnection)
package ws
