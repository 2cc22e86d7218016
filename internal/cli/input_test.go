package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  hello world \n"))

	got, err := GetSimpleText(reader, "Say something", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Contains(t, out.String(), "Say something")
}

func TestGetSimpleText_EOFWithPartialLine(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("partial"))

	got, err := GetSimpleText(reader, "Prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}

func TestGetPIN_UsesTerminalReader(t *testing.T) {
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("1234"), nil }
	t.Cleanup(func() { readPassword = orig })

	var out bytes.Buffer
	pin, err := GetPIN("PIN", &out)
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
	assert.Contains(t, out.String(), "PIN: ")
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("line one\nline two\n\nignored\n"))

	got, err := GetMultiline(reader, "Message", &out)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}
