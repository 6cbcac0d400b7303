package server

import (
	"context"
	"net"
	"net/netip"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sricor/ombrac/metrics"
	"github.com/sricor/ombrac/wire"
)

// serveDatagrams runs the per-connection UDP NAT: a single ephemeral
// UDP socket relays every datagram-channel packet to its resolved
// destination, and forwards replies back wrapped in a Packet tagged
// with the replying endpoint's address.
func (d *Dispatcher) serveDatagrams(ctx context.Context, conn interface {
	SendDatagram(context.Context, []byte) error
	ReceiveDatagram(context.Context) ([]byte, error)
}) {
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv6unspecified, Port: 0})
	if err != nil {
		d.log.Debug().Err(err).Msg("bind datagram channel udp socket failed")
		return
	}
	defer udpConn.Close()

	sessionID := uuid.NewString()
	d.log.Debug().Str("association", sessionID).Msg("datagram channel opened")
	defer d.log.Debug().Str("association", sessionID).Msg("datagram channel closed")

	metrics.ActiveAssociations.Inc()
	defer metrics.ActiveAssociations.Dec()

	group, ctx := errgroup.WithContext(ctx)
	go func() {
		<-ctx.Done()
		udpConn.Close()
	}()

	group.Go(func() error { return d.pumpIn(ctx, conn, udpConn) })
	group.Go(func() error { return d.pumpOut(ctx, conn, udpConn) })

	if err := group.Wait(); err != nil {
		d.log.Debug().Err(err).Msg("datagram channel ended")
	}
}

func (d *Dispatcher) pumpIn(ctx context.Context, conn interface {
	ReceiveDatagram(context.Context) ([]byte, error)
}, udpConn *net.UDPConn) error {
	for {
		data, err := conn.ReceiveDatagram(ctx)
		if err != nil {
			return err
		}

		packet, err := wire.DecodePacket(data)
		if err != nil {
			d.log.Debug().Err(err).Msg("malformed packet frame")
			continue
		}
		if !packet.Secret.Equal(d.secret) {
			metrics.AuthFailuresTotal.Inc()
			d.log.Warn().Err(ErrPermissionDenied).Msg("rejecting datagram, tearing down binding")
			return ErrPermissionDenied
		}

		target, err := packet.Address.Resolve(ctx)
		if err != nil {
			d.log.Debug().Err(err).Str("address", packet.Address.String()).Msg("resolve datagram target failed")
			continue
		}

		if _, err := udpConn.WriteToUDP(packet.Payload, &net.UDPAddr{IP: target.IP, Port: target.Port}); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) pumpOut(ctx context.Context, conn interface {
	SendDatagram(context.Context, []byte) error
}, udpConn *net.UDPConn) error {
	buf := make([]byte, wire.MaxPacketPayload)
	for {
		n, src, err := udpConn.ReadFromUDP(buf)
		if err != nil {
			return err
		}

		addr, ok := netip.AddrFromSlice(src.IP)
		if !ok {
			continue
		}
		packet := wire.Packet{
			Secret:  d.secret,
			Address: wire.NewIPAddress(addr.Unmap(), uint16(src.Port)),
			Payload: append([]byte(nil), buf[:n]...),
		}

		encoded, err := packet.Encode()
		if err != nil {
			d.log.Debug().Err(err).Msg("encode reply packet failed")
			continue
		}
		if err := conn.SendDatagram(ctx, encoded); err != nil {
			return err
		}
	}
}
