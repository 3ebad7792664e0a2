package libol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_Valid(t *testing.T) {
	assert.True(t, NewEndpoint("127.0.0.1", 4444).Valid(), "valid")
	assert.False(t, NewEndpoint("", 4444).Valid(), "noAddr")
	assert.False(t, NewEndpoint("127.0.0.1", 0).Valid(), "noPort")
	assert.Equal(t, "127.0.0.1:4444", NewEndpoint("127.0.0.1", 4444).String(), "text")
}

func TestUdpSocket_SendRecv(t *testing.T) {
	server := NewUdpSocket()
	require.NoError(t, server.Bind("127.0.0.1", 0), "bind")
	defer server.Close()
	addr, port := SplitAddr(server.LocalAddr())

	client := NewUdpSocket()
	defer client.Close()
	payload := []byte{0x01, 0x02, 0x03}
	n, err := client.SendTo(payload, NewEndpoint(addr, port))
	require.NoError(t, err, "send")
	assert.Equal(t, len(payload), n, "sent")

	data, from, err := server.RecvFrom(UdpMaxLen)
	require.NoError(t, err, "recv")
	assert.Equal(t, payload, data, "payload")
	assert.True(t, from.Valid(), "peer")

	// Reply to the ephemeral sender.
	_, err = server.SendTo([]byte{0xff}, from)
	require.NoError(t, err, "reply")
	data, _, err = client.RecvFrom(UdpMaxLen)
	require.NoError(t, err, "replyRecv")
	assert.Equal(t, []byte{0xff}, data, "replyPayload")
}

func TestUdpSocket_InvalidEndpoint(t *testing.T) {
	client := NewUdpSocket()
	defer client.Close()
	_, err := client.SendTo([]byte{0x00}, NewEndpoint("", 0))
	assert.Equal(t, ErrInvalidEndpoint, err, "invalid")
}

func TestUdpSocket_Timeout(t *testing.T) {
	server := NewUdpSocket()
	require.NoError(t, server.Bind("127.0.0.1", 0), "bind")
	defer server.Close()
	server.SetTimeout(50 * time.Millisecond)

	begin := time.Now()
	_, _, err := server.RecvFrom(UdpMaxLen)
	require.Error(t, err, "deadline")
	assert.True(t, IsTimeout(err), "timeout")
	assert.True(t, time.Since(begin) < time.Second, "woke")
}

func TestUdpSocket_BindTwice(t *testing.T) {
	server := NewUdpSocket()
	require.NoError(t, server.Bind("127.0.0.1", 0), "bind")
	defer server.Close()
	assert.Error(t, server.Bind("127.0.0.1", 0), "again")
}
