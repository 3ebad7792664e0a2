package libol

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

const (
	EthAddrLen = 6
	EthHdrLen  = 14
	EthMaxLen  = 1518 // MTU plus header, one tap read.
)

const (
	ETH_P_IP4  = 0x0800
	ETH_P_ARP  = 0x0806
	ETH_P_VLAN = 0x8100
	ETH_P_IP6  = 0x86DD
)

// Mac is one EUI-48 hardware address. The zero value doubles as the
// invalid address.
type Mac [EthAddrLen]byte

var (
	ZeroMac      = Mac{}
	BroadcastMac = Mac{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func NewMac(data []byte) (m Mac) {
	copy(m[:], data)
	return m
}

// ParseMac accepts hh:hh:hh:hh:hh:hh with ':' or '-' separators. Anything
// malformed yields the zero address.
func ParseMac(value string) (m Mac) {
	value = strings.ReplaceAll(value, "-", ":")
	parts := strings.Split(value, ":")
	if len(parts) != EthAddrLen {
		return ZeroMac
	}
	for i, part := range parts {
		if len(part) != 2 {
			return ZeroMac
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return ZeroMac
		}
		m[i] = b[0]
	}
	return m
}

func (m Mac) String() string {
	buffer := make([]byte, 0, 17)
	for i, b := range m {
		if i > 0 {
			buffer = append(buffer, ':')
		}
		buffer = append(buffer, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(buffer)
}

var hexDigits = []byte("0123456789abcdef")

func (m Mac) IsZero() bool {
	return m == ZeroMac
}

func (m Mac) IsBroadcast() bool {
	return m == BroadcastMac
}

func (m Mac) Bytes() []byte {
	return m[:]
}

// Compare orders two addresses lexicographically.
func (m Mac) Compare(o Mac) int {
	return bytes.Compare(m[:], o[:])
}

// Frame is one Ethernet unit: 6 bytes destination, 6 bytes source, a
// big-endian ethertype, then the payload. No FCS on the wire.
type Frame struct {
	Dst     Mac
	Src     Mac
	Type    uint16
	Payload []byte
}

func NewFrame(dst, src Mac, ethType uint16, payload []byte) *Frame {
	return &Frame{
		Dst:     dst,
		Src:     src,
		Type:    ethType,
		Payload: payload,
	}
}

// DecodeFrame never fails: a buffer shorter than one header decodes to the
// zero frame, so the forwarding path stays panic free. Callers that care
// check Size().
func DecodeFrame(data []byte) (f *Frame) {
	f = &Frame{}
	if len(data) < EthHdrLen {
		return f
	}
	copy(f.Dst[:], data[:6])
	copy(f.Src[:], data[6:12])
	f.Type = binary.BigEndian.Uint16(data[12:14])
	if len(data) > EthHdrLen {
		f.Payload = make([]byte, len(data)-EthHdrLen)
		copy(f.Payload, data[EthHdrLen:])
	}
	return f
}

func (f *Frame) Encode() []byte {
	buffer := make([]byte, EthHdrLen+len(f.Payload))
	copy(buffer[:6], f.Dst[:])
	copy(buffer[6:12], f.Src[:])
	binary.BigEndian.PutUint16(buffer[12:14], f.Type)
	copy(buffer[EthHdrLen:], f.Payload)
	return buffer
}

func (f *Frame) Size() int {
	return EthHdrLen + len(f.Payload)
}

func (f *Frame) IsVlan() bool {
	return f.Type == ETH_P_VLAN
}

func (f *Frame) IsArp() bool {
	return f.Type == ETH_P_ARP
}

func (f *Frame) IsIP4() bool {
	return f.Type == ETH_P_IP4
}

func (f *Frame) String() string {
	return "dst=" + f.Dst.String() + " src=" + f.Src.String()
}
