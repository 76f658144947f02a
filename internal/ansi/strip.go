// Package ansi strips terminal escape sequences from captured console
// output. It recovers plain text only; cursor position, color state, and
// screen contents are not modeled.
package ansi

import (
	"regexp"
	"strings"
)

// sequences matches the two escape shapes embedded shells emit: a control
// sequence (ESC [ or the 8-bit introducer, any parameter bytes, one final
// byte) and a bare two-byte escape.
var sequences = regexp.MustCompile(`(\x1b\[|\x9b)[^@-_a-z]*[@-_a-z]|\x1b[@-_a-z]`)

// maxSubstitutions bounds the work of a single Strip call. Large enough
// that realistic captures never reach it.
const maxSubstitutions = 1 << 20

// Strip returns s with recognized escape sequences removed and every other
// byte preserved in order. Input without an escape introducer is returned
// unchanged, which also makes Strip idempotent.
func Strip(s string) string {
	if strings.IndexByte(s, 0x1b) < 0 && strings.IndexByte(s, 0x9b) < 0 {
		return s
	}
	n := 0
	return sequences.ReplaceAllStringFunc(s, func(m string) string {
		n++
		if n > maxSubstitutions {
			return m
		}
		return ""
	})
}
