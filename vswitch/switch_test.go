package vswitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

const testWait = 3 * time.Second

// freePort asks the kernel for an unused UDP port.
func freePort(t *testing.T) uint16 {
	s := libol.NewUdpSocket()
	require.NoError(t, s.Bind("127.0.0.1", 0), "probe")
	_, port := libol.SplitAddr(s.LocalAddr())
	_ = s.Close()
	return port
}

func newTestSwitch(t *testing.T) *VSwitch {
	c := config.NewSwitch()
	c.Listen = "127.0.0.1"
	c.Port = freePort(t)
	c.Default()
	vs, err := NewVSwitch(c)
	require.NoError(t, err, "create")
	libol.Go(func() {
		_ = vs.Start()
	})
	require.Eventually(t, vs.IsRunning, testWait, 10*time.Millisecond, "running")
	return vs
}

type testClient struct {
	socket *libol.UdpSocket
	ep     libol.Endpoint
	remote libol.Endpoint
}

func newTestClient(t *testing.T, vs *VSwitch) *testClient {
	s := libol.NewUdpSocket()
	require.NoError(t, s.Bind("127.0.0.1", 0), "bind")
	addr, port := libol.SplitAddr(s.LocalAddr())
	_, swPort := libol.SplitAddr(vs.Addr())
	return &testClient{
		socket: s,
		ep:     libol.NewEndpoint(addr, port),
		remote: libol.NewEndpoint("127.0.0.1", swPort),
	}
}

func (c *testClient) send(t *testing.T, dst, src string, payload []byte) []byte {
	frame := libol.NewFrame(libol.ParseMac(dst), libol.ParseMac(src), libol.ETH_P_IP4, payload)
	data := frame.Encode()
	_, err := c.socket.SendTo(data, c.remote)
	require.NoError(t, err, "send")
	return data
}

func (c *testClient) recv(t *testing.T) []byte {
	c.socket.SetTimeout(testWait)
	data, _, err := c.socket.RecvFrom(libol.UdpMaxLen)
	require.NoError(t, err, "recv")
	return data
}

func (c *testClient) recvNothing(t *testing.T) {
	c.socket.SetTimeout(200 * time.Millisecond)
	data, _, err := c.socket.RecvFrom(libol.UdpMaxLen)
	require.Error(t, err, "unexpected %x", data)
	assert.True(t, libol.IsTimeout(err), "timeout")
}

func waitLearned(t *testing.T, vs *VSwitch, mac string) {
	require.Eventually(t, func() bool {
		return vs.Table().Has(libol.ParseMac(mac))
	}, testWait, 10*time.Millisecond, "learn %s", mac)
}

func TestVSwitch_UnicastLearnThenForward(t *testing.T) {
	vs := newTestSwitch(t)
	defer vs.Close()
	a := newTestClient(t, vs)
	defer a.socket.Close()
	b := newTestClient(t, vs)
	defer b.socket.Close()

	a.send(t, "02:aa:00:00:00:01", "02:00:00:00:00:01", []byte{0xde, 0xad})
	waitLearned(t, vs, "02:00:00:00:00:01")
	ep, ok := vs.Table().Lookup(libol.ParseMac("02:00:00:00:00:01"))
	require.True(t, ok, "bound")
	assert.Equal(t, a.ep, ep, "endpoint")

	sent := b.send(t, "02:00:00:00:00:01", "02:00:00:00:00:02", []byte{0xbe, 0xef})
	got := a.recv(t)
	assert.Equal(t, sent, got, "verbatim")
	waitLearned(t, vs, "02:00:00:00:00:02")
	b.recvNothing(t)
}

func TestVSwitch_BroadcastFlood(t *testing.T) {
	vs := newTestSwitch(t)
	defer vs.Close()
	a := newTestClient(t, vs)
	defer a.socket.Close()
	b := newTestClient(t, vs)
	defer b.socket.Close()
	c := newTestClient(t, vs)
	defer c.socket.Close()

	a.send(t, "02:aa:00:00:00:99", "02:00:00:00:00:01", nil)
	b.send(t, "02:aa:00:00:00:99", "02:00:00:00:00:02", nil)
	waitLearned(t, vs, "02:00:00:00:00:01")
	waitLearned(t, vs, "02:00:00:00:00:02")

	sent := c.send(t, "ff:ff:ff:ff:ff:ff", "02:00:00:00:00:03", nil)
	assert.Equal(t, sent, a.recv(t), "toA")
	assert.Equal(t, sent, b.recv(t), "toB")
	waitLearned(t, vs, "02:00:00:00:00:03")
	c.recvNothing(t)
}

func TestVSwitch_UnknownUnicastDrop(t *testing.T) {
	vs := newTestSwitch(t)
	defer vs.Close()
	a := newTestClient(t, vs)
	defer a.socket.Close()

	a.send(t, "02:99:00:00:00:99", "02:00:00:00:00:01", nil)
	waitLearned(t, vs, "02:00:00:00:00:01")
	assert.Equal(t, 1, vs.Table().Len(), "onlySrc")
	a.recvNothing(t)
	assert.True(t, vs.Record()["drop"] >= 1, "dropped")
}

func TestVSwitch_RelearnAfterMigration(t *testing.T) {
	vs := newTestSwitch(t)
	defer vs.Close()
	a := newTestClient(t, vs)
	defer a.socket.Close()
	b := newTestClient(t, vs)
	defer b.socket.Close()

	a.send(t, "02:aa:00:00:00:99", "02:00:00:00:00:01", nil)
	waitLearned(t, vs, "02:00:00:00:00:01")

	// The same device shows up behind another endpoint.
	b.send(t, "02:aa:00:00:00:99", "02:00:00:00:00:01", nil)
	require.Eventually(t, func() bool {
		ep, _ := vs.Table().Lookup(libol.ParseMac("02:00:00:00:00:01"))
		return ep == b.ep
	}, testWait, 10*time.Millisecond, "rebound")

	// Traffic to it now goes to the new endpoint.
	c := newTestClient(t, vs)
	defer c.socket.Close()
	sent := c.send(t, "02:00:00:00:00:01", "02:00:00:00:00:03", []byte{0x01})
	assert.Equal(t, sent, b.recv(t), "toB")
	a.recvNothing(t)
}

func TestVSwitch_StartStop(t *testing.T) {
	vs := newTestSwitch(t)
	assert.Equal(t, ErrAlreadyRunning, vs.Start(), "again")
	assert.NoError(t, vs.Stop(), "stop")
	assert.Equal(t, ErrNotRunning, vs.Stop(), "idempotent")
	vs.Close()
	assert.False(t, vs.IsRunning(), "stopped")
}

func TestVSwitch_ShortDatagram(t *testing.T) {
	vs := newTestSwitch(t)
	defer vs.Close()
	a := newTestClient(t, vs)
	defer a.socket.Close()

	// Shorter than one header: parsed as the zero frame and learned under
	// the zero address. The zero destination then matches that fresh
	// binding, so the datagram comes straight back to its sender.
	_, err := a.socket.SendTo([]byte{0x01, 0x02}, a.remote)
	require.NoError(t, err, "send")
	waitLearned(t, vs, "00:00:00:00:00:00")
	assert.Equal(t, []byte{0x01, 0x02}, a.recv(t), "echo")
}
