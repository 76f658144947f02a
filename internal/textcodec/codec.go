// Package textcodec decodes raw console bytes into text. Consoles attached
// to embedded targets are not always UTF-8; callers name an encoding label
// or ask for detection, and choose what happens to undecodable input.
package textcodec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Error policies, matching the usual codec vocabulary.
const (
	PolicyStrict  = "strict"
	PolicyReplace = "replace"
	PolicyIgnore  = "ignore"
)

// Defaults applied when a caller leaves codec or policy empty.
const (
	DefaultCodec  = "utf-8"
	DefaultPolicy = PolicyStrict
)

// CodecAuto asks Decode to detect the encoding from the data itself.
const CodecAuto = "auto"

const replacement = "�"

// Detect guesses the charset of data, falling back to UTF-8 when detection
// is inconclusive.
func Detect(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return DefaultCodec
	}
	return strings.ToLower(result.Charset)
}

// Decode converts data to a string using the named codec ("utf-8",
// "iso-8859-1", ..., or "auto"). policy selects handling of undecodable
// bytes: strict fails, replace substitutes U+FFFD, ignore drops them.
func Decode(data []byte, codec, policy string) (string, error) {
	if codec == "" {
		codec = DefaultCodec
	}
	if policy == "" {
		policy = DefaultPolicy
	}
	switch policy {
	case PolicyStrict, PolicyReplace, PolicyIgnore:
	default:
		return "", fmt.Errorf("unknown decode error policy %q", policy)
	}

	label := strings.ToLower(codec)
	if label == CodecAuto {
		label = Detect(data)
	}

	if isUTF8Label(label) {
		return decodeUTF8(data, policy)
	}
	return decodeLabel(data, label, policy)
}

func isUTF8Label(label string) bool {
	switch label {
	case "utf-8", "utf8":
		return true
	}
	return false
}

func decodeUTF8(data []byte, policy string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	switch policy {
	case PolicyReplace:
		return strings.ToValidUTF8(string(data), replacement), nil
	case PolicyIgnore:
		return strings.ToValidUTF8(string(data), ""), nil
	default:
		return "", fmt.Errorf("invalid utf-8 in console output (%d bytes)", len(data))
	}
}

// decodeLabel decodes through the x/net charset tables. Those tables emit
// U+FFFD for undecodable input, so strict and ignore act on replacement
// runes after the fact. A replacement rune the input legitimately encoded
// is indistinguishable from a decode failure here and gets the same policy
// treatment.
func decodeLabel(data []byte, label string, policy string) (string, error) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unknown codec %q: %w", label, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", label, err)
	}

	s := string(decoded)
	if !strings.Contains(s, replacement) {
		return s, nil
	}
	switch policy {
	case PolicyReplace:
		return s, nil
	case PolicyIgnore:
		return strings.ReplaceAll(s, replacement, ""), nil
	default:
		return "", fmt.Errorf("undecodable bytes for codec %q", label)
	}
}
