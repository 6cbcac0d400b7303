package socks

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sricor/ombrac/wire"
)

// udpIdleTimeout ends an ASSOCIATE session after this much time with no
// traffic in either direction.
const udpIdleTimeout = 10 * time.Second

// udpAnchorTimeout bounds how long the session waits for the first
// inbound packet, which fixes the anchored client's address.
const udpAnchorTimeout = 10 * time.Second

// handleAssociate implements the UDP ASSOCIATE path: bind a local UDP
// socket, reply with its address, and bridge datagrams to the tunnel's
// datagram channel. The TCP control channel stays open; the association
// ends when the client closes it. The first UDP
// source observed is the only one ever forwarded (the "anchored
// client"), per the restrictive variant chosen for ombrac.
func (e *Endpoint) handleAssociate(ctx context.Context, conn net.Conn, req *Request) error {
	sessionID := uuid.NewString()
	log := e.log.With().Str("association", sessionID).Logger()

	bindIP := net.IPv4zero
	if tcpAddr, ok := conn.LocalAddr().(*net.TCPAddr); ok && tcpAddr.IP != nil {
		bindIP = tcpAddr.IP
	}

	network := "udp"
	if bindIP.To4() != nil {
		network = "udp4"
	}
	udpConn, err := net.ListenUDP(network, &net.UDPAddr{IP: bindIP, Port: 0})
	if err != nil {
		return errors.Wrap(err, "bind udp associate socket")
	}
	defer udpConn.Close()
	log.Debug().Msg("udp associate opened")
	defer log.Debug().Msg("udp associate closed")

	localAddr := udpConn.LocalAddr().(*net.UDPAddr)
	if err := sendReply(conn, replySuccess, &net.TCPAddr{IP: localAddr.IP, Port: localAddr.Port}); err != nil {
		return errors.Wrap(err, "send associate reply")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The control channel carries no further SOCKS5 traffic once
	// ASSOCIATE succeeds; its only remaining purpose is to signal, by
	// closing, that the client is done with the association.
	go func() {
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
		cancel()
	}()

	buf := make([]byte, 65535)
	_ = udpConn.SetReadDeadline(time.Now().Add(udpAnchorTimeout))
	n, anchor, err := udpConn.ReadFromUDP(buf)
	if err != nil {
		return errors.Wrap(err, "wait for first udp packet")
	}
	_ = udpConn.SetReadDeadline(time.Time{})

	if err := e.forwardFirstPacket(ctx, udpConn, buf[:n]); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	go func() {
		<-ctx.Done()
		udpConn.Close()
	}()
	group.Go(func() error {
		return e.pumpUp(ctx, udpConn, anchor)
	})
	group.Go(func() error {
		return e.pumpDown(ctx, udpConn, anchor)
	})

	return group.Wait()
}

func (e *Endpoint) forwardFirstPacket(ctx context.Context, udpConn *net.UDPConn, data []byte) error {
	addr, payload, err := decodeUDPDatagram(data)
	if err != nil {
		return errors.Wrap(err, "decode first socks5 udp datagram")
	}
	return e.sendPacket(ctx, addr, payload)
}

func (e *Endpoint) sendPacket(ctx context.Context, addr wire.Address, payload []byte) error {
	packet := wire.Packet{Secret: e.secret, Address: addr, Payload: payload}
	data, err := packet.Encode()
	if err != nil {
		return errors.Wrap(err, "encode packet frame")
	}
	return e.transport.SendDatagram(ctx, data)
}

// pumpUp reads subsequent datagrams from the local UDP socket, drops
// any whose source does not match the anchored client, and forwards
// the rest onto the tunnel's datagram channel.
func (e *Endpoint) pumpUp(ctx context.Context, udpConn *net.UDPConn, anchor *net.UDPAddr) error {
	buf := make([]byte, 65535)
	for {
		_ = udpConn.SetReadDeadline(time.Now().Add(udpIdleTimeout))
		n, src, err := udpConn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		if !src.IP.Equal(anchor.IP) || src.Port != anchor.Port {
			continue
		}

		addr, payload, err := decodeUDPDatagram(buf[:n])
		if err != nil {
			continue
		}
		if err := e.sendPacket(ctx, addr, payload); err != nil {
			return err
		}
	}
}

// pumpDown reads datagrams arriving on the tunnel's datagram channel,
// reframes them as SOCKS5 UDP datagrams, and sends them to the anchored
// client.
func (e *Endpoint) pumpDown(ctx context.Context, udpConn *net.UDPConn, anchor *net.UDPAddr) error {
	for {
		data, err := e.transport.ReceiveDatagram(ctx)
		if err != nil {
			return err
		}

		packet, err := wire.DecodePacket(data)
		if err != nil {
			continue
		}
		if !packet.Secret.Equal(e.secret) {
			continue
		}

		reply := encodeUDPDatagram(packet.Address, packet.Payload)
		if _, err := udpConn.WriteToUDP(reply, anchor); err != nil {
			return err
		}
		_ = udpConn.SetReadDeadline(time.Now().Add(udpIdleTimeout))
	}
}
