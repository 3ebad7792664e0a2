package libol

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// UdpMaxLen covers any valid UDP payload in one receive.
const UdpMaxLen = 65536

var (
	ErrSocketClosed    = NewErr("socket closed")
	ErrInvalidEndpoint = NewErr("invalid endpoint")
	ErrPartialSend     = NewErr("partial send")
)

// Endpoint is one UDP peer: a dotted IPv4 address plus a port.
type Endpoint struct {
	Addr string `json:"address"`
	Port uint16 `json:"port"`
}

func NewEndpoint(addr string, port uint16) Endpoint {
	return Endpoint{Addr: addr, Port: port}
}

func (e Endpoint) Valid() bool {
	return e.Addr != "" && e.Port != 0
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Addr, e.Port)
}

func (e Endpoint) udpAddr() (*net.UDPAddr, error) {
	if !e.Valid() {
		return nil, ErrInvalidEndpoint
	}
	return net.ResolveUDPAddr("udp4", e.String())
}

// UdpSocket sends and receives one datagram per call. A socket is not
// bound until Bind or the first SendTo or RecvFrom; Close unblocks pending
// reads.
type UdpSocket struct {
	lock    sync.Mutex
	conn    *net.UDPConn
	local   Endpoint
	timeout time.Duration
	closed  bool
}

func NewUdpSocket() *UdpSocket {
	return &UdpSocket{}
}

// Bind listens on addr:port. The stored local endpoint is the requested
// one; callers that need a kernel chosen port use LocalAddr.
func (s *UdpSocket) Bind(addr string, port uint16) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	if s.conn != nil {
		return NewErr("UdpSocket.Bind: already bound %s", s.local)
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return NewErr("UdpSocket.Bind: address %s", addr)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: int(port)})
	if err != nil {
		return err
	}
	s.conn = conn
	s.local = NewEndpoint(addr, port)
	Info("UdpSocket.Bind: udp://%s", s.local)
	return nil
}

// connection binds to an ephemeral port on first use, so an unbound
// socket can still send.
func (s *UdpSocket) connection() (*net.UDPConn, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, ErrSocketClosed
	}
	if s.conn == nil {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
		if err != nil {
			return nil, err
		}
		s.conn = conn
	}
	return s.conn, nil
}

// SetTimeout arms a read deadline on every RecvFrom, so a blocked reader
// wakes periodically to observe shutdown.
func (s *UdpSocket) SetTimeout(value time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.timeout = value
}

func (s *UdpSocket) SendTo(data []byte, peer Endpoint) (int, error) {
	to, err := peer.udpAddr()
	if err != nil {
		return 0, err
	}
	conn, err := s.connection()
	if err != nil {
		return 0, err
	}
	n, err := conn.WriteToUDP(data, to)
	if err != nil {
		return n, err
	}
	if n < len(data) {
		return n, ErrPartialSend
	}
	return n, nil
}

func (s *UdpSocket) RecvFrom(maxSize int) ([]byte, Endpoint, error) {
	if maxSize <= 0 {
		maxSize = UdpMaxLen
	}
	conn, err := s.connection()
	if err != nil {
		return nil, Endpoint{}, err
	}
	s.lock.Lock()
	timeout := s.timeout
	s.lock.Unlock()
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}
	data := make([]byte, maxSize)
	n, from, err := conn.ReadFromUDP(data)
	if err != nil {
		return nil, Endpoint{}, err
	}
	peer := NewEndpoint(from.IP.String(), uint16(from.Port))
	return data[:n], peer, nil
}

// LocalAddr reports the kernel view of the bound address, which differs
// from Local after an ephemeral bind.
func (s *UdpSocket) LocalAddr() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.LocalAddr().String()
}

func (s *UdpSocket) Local() Endpoint {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.local
}

func (s *UdpSocket) IsOpen() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn != nil
}

// Close is terminal: a closed socket never rebinds.
func (s *UdpSocket) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// IsTimeout tells a read deadline wake from a real receive error.
func IsTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
