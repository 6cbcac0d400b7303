package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Connect is the frame opened at the start of every reliable CONNECT
// stream: a bearer secret followed by the destination address. There is
// no length prefix around the whole frame; the address codec is
// self-delimiting.
type Connect struct {
	Secret  Secret
	Address Address
}

// Bytes serializes the frame as secret || address.
func (c Connect) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SecretLength+32))
	buf.Write(c.Secret[:])
	if _, err := c.Address.WriteTo(buf); err != nil {
		return nil, errors.Wrap(err, "encode connect address")
	}
	return buf.Bytes(), nil
}

// ReadConnect parses a Connect frame from r.
func ReadConnect(r io.Reader) (*Connect, error) {
	var secret Secret
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return nil, errors.Wrap(err, "read connect secret")
	}
	addr, err := ReadAddress(r)
	if err != nil {
		return nil, errors.Wrap(err, "read connect address")
	}
	return &Connect{Secret: secret, Address: addr}, nil
}
