package socks

import (
	"encoding/binary"
	"io"
	"net/netip"

	"github.com/pkg/errors"

	"github.com/sricor/ombrac/wire"
)

// Request is a parsed SOCKS5 request: version, command, and destination
// address translated into the inner wire protocol's Address so the
// caller never has to juggle two address encodings.
type Request struct {
	Command uint8
	DestAddr wire.Address
}

// ReadRequest parses the request that follows a successful method
// negotiation: VER CMD RSV ATYP DST.ADDR DST.PORT.
func ReadRequest(r io.Reader) (*Request, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "read request header")
	}
	if header[0] != socks5Version {
		return nil, errors.Errorf("socks5: unsupported version %d", header[0])
	}

	addr, err := readSocksAddr(r, header[3])
	if err != nil {
		return nil, err
	}

	return &Request{Command: header[1], DestAddr: addr}, nil
}

func readSocksAddr(r io.Reader, atyp uint8) (wire.Address, error) {
	switch atyp {
	case atypIPv4:
		var octets [4]byte
		if _, err := io.ReadFull(r, octets[:]); err != nil {
			return wire.Address{}, err
		}
		port, err := readSocksPort(r)
		if err != nil {
			return wire.Address{}, err
		}
		return wire.NewIPAddress(netip.AddrFrom4(octets), port), nil

	case atypDomain:
		var dlen [1]byte
		if _, err := io.ReadFull(r, dlen[:]); err != nil {
			return wire.Address{}, err
		}
		name := make([]byte, dlen[0])
		if _, err := io.ReadFull(r, name); err != nil {
			return wire.Address{}, err
		}
		port, err := readSocksPort(r)
		if err != nil {
			return wire.Address{}, err
		}
		return wire.NewDomainAddress(string(name), port), nil

	case atypIPv6:
		var octets [16]byte
		if _, err := io.ReadFull(r, octets[:]); err != nil {
			return wire.Address{}, err
		}
		port, err := readSocksPort(r)
		if err != nil {
			return wire.Address{}, err
		}
		return wire.NewIPAddress(netip.AddrFrom16(octets), port), nil

	default:
		return wire.Address{}, errors.Errorf("socks5: unsupported address type %d", atyp)
	}
}

func readSocksPort(r io.Reader) (uint16, error) {
	var p [2]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p[:]), nil
}
