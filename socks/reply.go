package socks

import (
	"encoding/binary"
	"io"
	"net"
)

// sendReply writes a SOCKS5 reply: VER REP RSV ATYP BND.ADDR BND.PORT.
// A nil bound address is encoded as the unspecified IPv4 0.0.0.0:0,
// which is what ombrac's CONNECT path replies with per its design (the
// bind address is meaningless once the session moves onto the tunnel).
func sendReply(w io.Writer, code uint8, bound *net.TCPAddr) error {
	msg := []byte{socks5Version, code, 0}

	ip := net.IPv4zero
	port := uint16(0)
	if bound != nil && bound.IP != nil {
		ip = bound.IP
		port = uint16(bound.Port)
	}

	if ip4 := ip.To4(); ip4 != nil {
		msg = append(msg, atypIPv4)
		msg = append(msg, ip4...)
	} else {
		msg = append(msg, atypIPv6)
		msg = append(msg, ip.To16()...)
	}

	portBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(portBytes, port)
	msg = append(msg, portBytes...)

	_, err := w.Write(msg)
	return err
}
