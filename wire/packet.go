package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxPacketPayload bounds the payload_len field (16 bits) at the largest
// IPv4 UDP payload. It is not the QUIC datagram MTU, which is far
// smaller; the codec does not check payloads against the MTU.
const MaxPacketPayload = 65507

// Packet is the frame carried over the unreliable datagram channel for a
// UDP ASSOCIATE session: secret || address || payload_len(2BE) || payload.
// Unlike Connect, the payload is not self-delimiting on its own, so an
// explicit length field is required even though datagrams are already
// message-framed by QUIC — this keeps the codec usable over any
// byte-oriented transport too.
type Packet struct {
	Secret  Secret
	Address Address
	Payload []byte
}

// Encode serializes the frame.
func (p Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPacketPayload {
		return nil, errors.Errorf("wire: packet payload %d bytes exceeds max %d", len(p.Payload), MaxPacketPayload)
	}
	buf := bytes.NewBuffer(make([]byte, 0, SecretLength+32+2+len(p.Payload)))
	buf.Write(p.Secret[:])
	if _, err := p.Address.WriteTo(buf); err != nil {
		return nil, errors.Wrap(err, "encode packet address")
	}
	var lenField [2]byte
	binary.BigEndian.PutUint16(lenField[:], uint16(len(p.Payload)))
	buf.Write(lenField[:])
	buf.Write(p.Payload)
	return buf.Bytes(), nil
}

// DecodePacket parses a Packet frame out of a single in-memory datagram.
func DecodePacket(data []byte) (*Packet, error) {
	r := bytes.NewReader(data)

	var secret Secret
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return nil, errors.Wrap(err, "read packet secret")
	}
	addr, err := ReadAddress(r)
	if err != nil {
		return nil, errors.Wrap(err, "read packet address")
	}
	var lenField [2]byte
	if _, err := io.ReadFull(r, lenField[:]); err != nil {
		return nil, errors.Wrapf(ErrInvalidData, "truncated packet length: %v", err)
	}
	payloadLen := binary.BigEndian.Uint16(lenField[:])
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read packet payload")
	}
	if r.Len() != 0 {
		return nil, errors.Wrapf(ErrInvalidData, "packet has %d trailing bytes", r.Len())
	}
	return &Packet{Secret: secret, Address: addr, Payload: payload}, nil
}
