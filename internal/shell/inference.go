package shell

import (
	"regexp"
	"strconv"
	"strings"
)

// inference names which heuristic produced an exit status.
type inference int

const (
	// inferParsed: `echo $?` answered with an integer.
	inferParsed inference = iota
	// inferMarker: the command output ended in the shell's error line.
	inferMarker
	// inferUnknown: nothing usable; status degrades to StatusUnknown.
	inferUnknown
)

func (i inference) String() string {
	switch i {
	case inferParsed:
		return "parsed"
	case inferMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// inferStatus decides the exit status from the `echo $?` capture and the
// original command output. Pure; parse failures select the next heuristic
// instead of propagating.
//
// statusLines is the full line split of the status turn: its second-to-last
// element is the line between the echoed query and the prompt. cmdLines is
// the demarcated output of the command itself; its last line is checked
// against the error marker.
func inferStatus(statusLines, cmdLines []string, marker *regexp.Regexp) (inference, int) {
	if len(statusLines) >= 2 {
		if v, err := strconv.Atoi(strings.TrimSpace(statusLines[len(statusLines)-2])); err == nil {
			return inferParsed, v
		}
	}
	if len(cmdLines) > 0 && marker.MatchString(cmdLines[len(cmdLines)-1]) {
		return inferMarker, StatusShellError
	}
	return inferUnknown, StatusUnknown
}

// compileMarker anchors the configured pattern at the start of the line;
// the shell prints its diagnostic as the whole line, so a marker buried
// mid-line is ordinary output.
func compileMarker(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}
