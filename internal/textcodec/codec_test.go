package textcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUTF8(t *testing.T) {
	got, err := Decode([]byte("nsh> hello wörld"), "utf-8", "strict")
	require.NoError(t, err)
	assert.Equal(t, "nsh> hello wörld", got)
}

func TestDecodeDefaults(t *testing.T) {
	got, err := Decode([]byte("plain"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestDecodeStrictRejectsInvalidUTF8(t *testing.T) {
	_, err := Decode([]byte{'o', 'k', 0xff, 0xfe}, "utf-8", "strict")
	assert.Error(t, err)
}

func TestDecodeReplacePolicy(t *testing.T) {
	got, err := Decode([]byte{'a', 0xff, 'b'}, "utf-8", "replace")
	require.NoError(t, err)
	assert.Equal(t, "a�b", got)
}

func TestDecodeIgnorePolicy(t *testing.T) {
	got, err := Decode([]byte{'a', 0xff, 'b'}, "utf-8", "ignore")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestDecodeLatin1(t *testing.T) {
	// 0xE9 is é in ISO-8859-1 and invalid as standalone UTF-8.
	got, err := Decode([]byte{'c', 'a', 'f', 0xe9}, "iso-8859-1", "strict")
	require.NoError(t, err)
	assert.Equal(t, "café", got)
}

func TestDecodeUnknownCodec(t *testing.T) {
	_, err := Decode([]byte("x"), "no-such-codec", "strict")
	assert.Error(t, err)
}

func TestDecodeUnknownPolicy(t *testing.T) {
	_, err := Decode([]byte("x"), "utf-8", "panic")
	assert.Error(t, err)
}

func TestDetectFallsBackToUTF8(t *testing.T) {
	assert.Equal(t, "utf-8", Detect(nil))
}

func TestDecodeAuto(t *testing.T) {
	got, err := Decode([]byte("NuttShell (NSH) NuttX plain ascii output"), "auto", "replace")
	require.NoError(t, err)
	assert.Contains(t, got, "NuttShell")
}

func TestDecodeStrictRejectsEncodedReplacementRune(t *testing.T) {
	// U+FFFD encoded as UTF-16LE. The charset tables give no way to tell a
	// replacement rune the input carried from one marking a decode failure,
	// so strict rejects both.
	_, err := Decode([]byte{0xfd, 0xff}, "utf-16le", "strict")
	assert.Error(t, err)

	got, err := Decode([]byte{0xfd, 0xff}, "utf-16le", "replace")
	require.NoError(t, err)
	assert.Equal(t, "�", got)
}
