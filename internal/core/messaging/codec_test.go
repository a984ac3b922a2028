package messaging

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_Request(t *testing.T) {
	c := codec{maxLen: DefaultMaxMessageLength}
	buf := &bytes.Buffer{}

	req := &request{
		ID:      "0b7f6a2e-1d0c-4f8e-9d7a-0e4b8f6c2a10",
		Subject: "cpman-load-request",
		From:    "node-a",
		Payload: []byte{0x08, 0x01},
	}
	require.NoError(t, c.writeRequest(buf, req))

	got, err := c.readRequest(buf)
	require.NoError(t, err)
	if diff := cmp.Diff(req, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_Response(t *testing.T) {
	c := codec{maxLen: DefaultMaxMessageLength}

	t.Run("成功", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, c.writeResponse(buf, &response{Status: StatusOK, Payload: []byte("ok")}))

		got, err := c.readResponse(buf)
		require.NoError(t, err)
		assert.NoError(t, got.err())
		assert.Equal(t, []byte("ok"), got.Payload)
	})

	t.Run("状态映射为错误", func(t *testing.T) {
		assert.ErrorIs(t, (&response{Status: StatusError, Error: "x"}).err(), ErrRemote)
		assert.ErrorIs(t, (&response{Status: StatusNoHandler}).err(), ErrNoHandler)
		assert.ErrorIs(t, (&response{Status: 9}).err(), ErrInvalidResponse)
	})
}

func TestCodec_MaxLength(t *testing.T) {
	small := codec{maxLen: 4}

	buf := &bytes.Buffer{}
	assert.ErrorIs(t, small.writeBytes(buf, []byte("12345")), ErrMessageTooLarge)

	// 读取方独立校验长度
	big := codec{maxLen: DefaultMaxMessageLength}
	require.NoError(t, big.writeBytes(buf, []byte("12345")))
	_, err := small.readBytes(buf)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestCodec_Truncated(t *testing.T) {
	c := codec{maxLen: DefaultMaxMessageLength}
	buf := &bytes.Buffer{}
	require.NoError(t, c.writeBytes(buf, []byte("hello")))

	truncated := bytes.NewReader(buf.Bytes()[:6])
	_, err := c.readBytes(truncated)
	assert.Error(t, err)
}
