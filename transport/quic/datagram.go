package quic

import (
	"context"

	quicgo "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// datagramConn is the subset of quicgo.Connection the pump needs.
type datagramConn interface {
	SendDatagram([]byte) error
	ReceiveDatagram(context.Context) ([]byte, error)
}

// datagramPump owns a QUIC connection's unreliable channel and runs the
// two sub-tasks described for the datagram pump: OUTBOUND blocks the
// producer when the send queue is full, INBOUND drops the newest
// datagram rather than block a slow consumer, since UDP already permits
// loss.
type datagramPump struct {
	conn    datagramConn
	log     *zerolog.Logger
	outbound chan []byte
	inbound  chan []byte
}

func newDatagramPump(conn quicgo.Connection, log *zerolog.Logger) *datagramPump {
	return &datagramPump{
		conn:     conn,
		log:      log,
		outbound: make(chan []byte, datagramQueueDepth),
		inbound:  make(chan []byte, datagramQueueDepth),
	}
}

// run drives both sub-tasks until ctx is canceled or either one
// terminates on error; the failing side's error cancels the other.
func (p *datagramPump) run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return p.serveOutbound(ctx)
	})
	group.Go(func() error {
		return p.serveInbound(ctx)
	})

	return group.Wait()
}

func (p *datagramPump) serveOutbound(ctx context.Context) error {
	for {
		select {
		case payload := <-p.outbound:
			if err := p.conn.SendDatagram(payload); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *datagramPump) serveInbound(ctx context.Context) error {
	for {
		payload, err := p.conn.ReceiveDatagram(ctx)
		if err != nil {
			return err
		}
		select {
		case p.inbound <- payload:
		default:
			p.log.Debug().Msg("inbound datagram queue full, dropping newest")
		}
	}
}

// send enqueues payload for the OUTBOUND sub-task, blocking the caller
// when the queue is full.
func (p *datagramPump) send(ctx context.Context, payload []byte) error {
	select {
	case p.outbound <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive blocks until a datagram is available on the INBOUND queue.
func (p *datagramPump) receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-p.inbound:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
