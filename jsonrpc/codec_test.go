package jsonrpc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewCodec(strings.NewReader(""), &buf)
	require.NoError(t, w.Write([]byte(`{"jsonrpc":"2.0","method":"initialized"}`)))

	r := NewCodec(&buf, nil)
	body, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"initialized"}`, string(body))
}

func TestCodecIgnoresExtraHeaders(t *testing.T) {
	in := "Content-Length: 2\r\nContent-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n{}"
	c := NewCodec(strings.NewReader(in), nil)

	body, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}

func TestCodecMissingContentLength(t *testing.T) {
	c := NewCodec(strings.NewReader("Content-Type: application/json\r\n\r\n{}"), nil)
	_, err := c.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content-Length")
}

func TestCodecRejectsOversizedMessage(t *testing.T) {
	c := NewCodec(strings.NewReader("Content-Length: 999999999999\r\n\r\n"), nil)
	_, err := c.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestCodecTruncatedBody(t *testing.T) {
	c := NewCodec(strings.NewReader("Content-Length: 10\r\n\r\n{}"), nil)
	_, err := c.Read()
	assert.Error(t, err)
}
