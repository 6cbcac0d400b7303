package wire

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"unicode/utf8"
)

// AddrType tags the variant of an Address as it appears on the wire.
type AddrType uint8

const (
	AddrDomain AddrType = 1
	AddrIPv4   AddrType = 2
	AddrIPv6   AddrType = 3
)

// MaxDomainLength is the largest domain name this codec will encode or
// accept, matching the single-byte length prefix used on the wire.
const MaxDomainLength = 255

// ErrInvalidData covers malformed frames: an unknown address type, a
// non-UTF-8 domain, or a truncated length prefix.
var ErrInvalidData = errors.New("wire: invalid data")

// ErrNotFound is returned when resolving a Domain address yields no record.
var ErrNotFound = errors.New("wire: address not found")

// Address is a tagged triage over domain names and IPv4/IPv6 socket
// addresses, the destination carried in a Connect or Packet frame.
type Address struct {
	Type   AddrType
	Domain string
	IP     netip.Addr
	Port   uint16
}

// NewDomainAddress builds a Domain address. The caller is responsible for
// keeping name within MaxDomainLength bytes; WriteTo enforces it regardless.
func NewDomainAddress(name string, port uint16) Address {
	return Address{Type: AddrDomain, Domain: name, Port: port}
}

// NewIPAddress builds an IPv4 or IPv6 address depending on ip's family.
func NewIPAddress(ip netip.Addr, port uint16) Address {
	typ := AddrIPv4
	if ip.Is6() && !ip.Is4In6() {
		typ = AddrIPv6
	}
	return Address{Type: typ, IP: ip, Port: port}
}

func (a Address) String() string {
	switch a.Type {
	case AddrDomain:
		return fmt.Sprintf("%s:%d", a.Domain, a.Port)
	case AddrIPv4, AddrIPv6:
		return net.JoinHostPort(a.IP.String(), fmt.Sprintf("%d", a.Port))
	default:
		return "invalid-address"
	}
}

// WriteTo encodes the address onto w using the canonical layout:
// atyp(1) followed by a domain length-prefix or a fixed-size IP payload,
// then the big-endian port. The length prefix appears only for Domain;
// IPv4/IPv6 payload sizes are implied by atyp.
func (a Address) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	switch a.Type {
	case AddrDomain:
		name := []byte(a.Domain)
		if len(name) > MaxDomainLength {
			return 0, fmt.Errorf("%w: domain %d bytes exceeds max %d", ErrInvalidData, len(name), MaxDomainLength)
		}
		buf = make([]byte, 0, 1+1+len(name)+2)
		buf = append(buf, byte(AddrDomain), byte(len(name)))
		buf = append(buf, name...)
		buf = binary.BigEndian.AppendUint16(buf, a.Port)
	case AddrIPv4:
		ip4 := a.IP.As4()
		buf = make([]byte, 0, 1+4+2)
		buf = append(buf, byte(AddrIPv4))
		buf = append(buf, ip4[:]...)
		buf = binary.BigEndian.AppendUint16(buf, a.Port)
	case AddrIPv6:
		ip16 := a.IP.As16()
		buf = make([]byte, 0, 1+16+2)
		buf = append(buf, byte(AddrIPv6))
		buf = append(buf, ip16[:]...)
		buf = binary.BigEndian.AppendUint16(buf, a.Port)
	default:
		return 0, fmt.Errorf("%w: unknown address type %d", ErrInvalidData, a.Type)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadAddress parses an Address from r: atyp first, then the fixed length
// for IP variants or the single-byte length prefix for Domain, then the
// port.
func ReadAddress(r io.Reader) (Address, error) {
	var atyp [1]byte
	if _, err := io.ReadFull(r, atyp[:]); err != nil {
		return Address{}, err
	}

	switch AddrType(atyp[0]) {
	case AddrDomain:
		var dlen [1]byte
		if _, err := io.ReadFull(r, dlen[:]); err != nil {
			return Address{}, err
		}
		name := make([]byte, dlen[0])
		if _, err := io.ReadFull(r, name); err != nil {
			return Address{}, err
		}
		if !utf8.Valid(name) {
			return Address{}, fmt.Errorf("%w: domain is not valid UTF-8", ErrInvalidData)
		}
		port, err := readPort(r)
		if err != nil {
			return Address{}, err
		}
		return NewDomainAddress(string(name), port), nil

	case AddrIPv4:
		var octets [4]byte
		if _, err := io.ReadFull(r, octets[:]); err != nil {
			return Address{}, err
		}
		port, err := readPort(r)
		if err != nil {
			return Address{}, err
		}
		return NewIPAddress(netip.AddrFrom4(octets), port), nil

	case AddrIPv6:
		var octets [16]byte
		if _, err := io.ReadFull(r, octets[:]); err != nil {
			return Address{}, err
		}
		port, err := readPort(r)
		if err != nil {
			return Address{}, err
		}
		return NewIPAddress(netip.AddrFrom16(octets), port), nil

	default:
		return Address{}, fmt.Errorf("%w: unknown address type %d", ErrInvalidData, atyp[0])
	}
}

func readPort(r io.Reader) (uint16, error) {
	var p [2]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p[:]), nil
}

// Resolve turns the address into a concrete dialable socket endpoint.
// IPv4/IPv6 variants are returned directly; Domain is resolved through the
// platform resolver and the first returned address is used.
func (a Address) Resolve(ctx context.Context) (*net.TCPAddr, error) {
	switch a.Type {
	case AddrIPv4, AddrIPv6:
		return &net.TCPAddr{IP: a.IP.AsSlice(), Port: int(a.Port)}, nil
	case AddrDomain:
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", a.Domain)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, a.Domain)
		}
		return &net.TCPAddr{IP: ips[0], Port: int(a.Port)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown address type %d", ErrInvalidData, a.Type)
	}
}
