package quic

import "net"

// resolveUDPAddr bootstraps the QUIC peer address from the CLI-supplied
// host:port string. This is the one place the client performs DNS
// resolution itself; afterwards addressing is handled entirely by the
// wire codec's Address type.
func resolveUDPAddr(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", addr)
}
