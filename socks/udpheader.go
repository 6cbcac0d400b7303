package socks

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/sricor/ombrac/wire"
)

// decodeUDPDatagram parses a SOCKS5 UDP request: RSV(2) FRAG(1) ATYP(1)
// DST.ADDR DST.PORT DATA. Fragmentation is not supported; any non-zero
// FRAG byte is rejected.
func decodeUDPDatagram(data []byte) (wire.Address, []byte, error) {
	if len(data) < 4 {
		return wire.Address{}, nil, errors.New("socks5: udp datagram too short")
	}
	if data[2] != 0 {
		return wire.Address{}, nil, errors.New("socks5: udp fragmentation not supported")
	}

	r := bytes.NewReader(data[3:])
	atyp := make([]byte, 1)
	if _, err := r.Read(atyp); err != nil {
		return wire.Address{}, nil, err
	}

	addr, err := readSocksAddr(r, atyp[0])
	if err != nil {
		return wire.Address{}, nil, err
	}

	payload := make([]byte, r.Len())
	if _, err := r.Read(payload); err != nil && r.Len() > 0 {
		return wire.Address{}, nil, err
	}

	return addr, payload, nil
}

// encodeUDPDatagram builds the SOCKS5 UDP reply carrying source and
// payload back to the local application.
func encodeUDPDatagram(source wire.Address, payload []byte) []byte {
	buf := make([]byte, 0, 4+19+len(payload))
	buf = append(buf, 0, 0, 0)

	switch source.Type {
	case wire.AddrIPv4:
		buf = append(buf, atypIPv4)
		ip4 := source.IP.As4()
		buf = append(buf, ip4[:]...)
	case wire.AddrIPv6:
		buf = append(buf, atypIPv6)
		ip16 := source.IP.As16()
		buf = append(buf, ip16[:]...)
	case wire.AddrDomain:
		buf = append(buf, atypDomain)
		buf = append(buf, byte(len(source.Domain)))
		buf = append(buf, source.Domain...)
	}

	portBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(portBytes, source.Port)
	buf = append(buf, portBytes...)
	buf = append(buf, payload...)
	return buf
}
