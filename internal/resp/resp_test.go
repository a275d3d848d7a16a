package resp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameSimpleTypes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteFrame(SimpleString("OK")))
	require.NoError(t, w.WriteFrame(Error("ERR bad")))
	require.NoError(t, w.WriteFrame(Integer(42)))
	require.NoError(t, w.WriteFrame(BulkString([]byte("hi"))))
	require.NoError(t, w.WriteFrame(NullBulk()))
	require.NoError(t, w.Flush())

	want := "+OK\r\n-ERR bad\r\n:42\r\n$2\r\nhi\r\n$-1\r\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFrameArrayNilVsEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteFrame(NullArray()))
	require.NoError(t, w.WriteFrame(Array(make([]Frame, 0)...)))
	require.NoError(t, w.WriteFrame(Array(BulkString([]byte("a")), Integer(1))))
	require.NoError(t, w.Flush())

	want := "*-1\r\n*0\r\n*2\r\n$1\r\na\r\n:1\r\n"
	assert.Equal(t, want, buf.String())
}

func TestArrayWithNoArgsIsNullNotEmpty(t *testing.T) {
	// A bare Array() call (no elements passed) binds its variadic
	// parameter to a nil slice, so it is indistinguishable from
	// NullArray() — callers that want a real empty array must spread a
	// non-nil zero-length slice in explicitly.
	f := Array()
	assert.True(t, f.IsNullArray())
}

func TestIsNullBulkAndArray(t *testing.T) {
	assert.True(t, NullBulk().IsNullBulk())
	assert.False(t, BulkString([]byte{}).IsNullBulk())
	assert.False(t, BulkString(nil).IsNullBulk(), "BulkString(nil) normalizes to an empty, non-null bulk")

	assert.True(t, NullArray().IsNullArray())
	assert.False(t, Array(make([]Frame, 0)...).IsNullArray())
}

func TestReadCommandArrayForm(t *testing.T) {
	raw := "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"
	r := NewReader(strings.NewReader(raw))

	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	require.Len(t, cmd, 2)
	assert.Equal(t, "GET", string(cmd[0]))
	assert.Equal(t, "foo", string(cmd[1]))
}

func TestReadCommandInlineForm(t *testing.T) {
	raw := "PING hello\r\n"
	r := NewReader(strings.NewReader(raw))

	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	require.Len(t, cmd, 2)
	assert.Equal(t, "PING", string(cmd[0]))
	assert.Equal(t, "hello", string(cmd[1]))
}

func TestReadCommandArrayRoundTripsBinarySafeBulk(t *testing.T) {
	// The declared length (3) covers an embedded CRLF inside the payload
	// itself, distinct from the terminating CRLF that follows it.
	raw := "*1\r\n$3\r\na\r\n\r\n"
	r := NewReader(strings.NewReader(raw))

	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	require.Len(t, cmd, 1)
	assert.Equal(t, []byte("a\r\n"), cmd[0])
}

func TestReadCommandRejectsBadLeadByte(t *testing.T) {
	raw := "*1\r\n:3\r\n"
	r := NewReader(strings.NewReader(raw))
	_, err := r.ReadCommand()
	assert.Error(t, err)
}
