// Package server implements the far side of the tunnel: it authenticates
// every reliable stream and datagram against a configured secret, dials
// the requested destination, and relays traffic.
package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sricor/ombrac/metrics"
	"github.com/sricor/ombrac/relay"
	transportquic "github.com/sricor/ombrac/transport/quic"
	"github.com/sricor/ombrac/wire"
)

// ErrPermissionDenied is returned (and logged) whenever a stream or
// datagram arrives carrying a secret that does not match the
// configured one.
var ErrPermissionDenied = errors.New("server: permission denied")

// Dispatcher authenticates and bridges every stream and datagram a
// QUIC connection carries onto dialed TCP/UDP destinations.
type Dispatcher struct {
	secret wire.Secret
	log    *zerolog.Logger
}

// NewDispatcher builds a Dispatcher that only accepts traffic bearing secret.
func NewDispatcher(secret wire.Secret, log *zerolog.Logger) *Dispatcher {
	return &Dispatcher{secret: secret, log: log}
}

// ServeConnection drains every reliable stream and the single datagram
// channel of conn until ctx is canceled or the connection itself
// fails. Each stream is handled in its own goroutine so one slow or
// misbehaving session never blocks the others.
func (d *Dispatcher) ServeConnection(ctx context.Context, conn transportquic.Transport) {
	go d.serveDatagrams(ctx, conn)

	for {
		stream, err := conn.OpenStream(ctx)
		if err != nil {
			d.log.Debug().Err(err).Msg("reliable stream accept loop ended")
			return
		}
		go d.serveStream(ctx, stream)
	}
}

func (d *Dispatcher) serveStream(ctx context.Context, stream transportquic.Stream) {
	defer stream.Close()
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	header, err := wire.ReadConnect(stream)
	if err != nil {
		d.log.Debug().Err(err).Msg("malformed connect header")
		return
	}

	if !header.Secret.Equal(d.secret) {
		metrics.AuthFailuresTotal.Inc()
		d.log.Warn().Err(ErrPermissionDenied).Str("address", header.Address.String()).Msg("rejecting connect stream")
		return
	}

	target, err := header.Address.Resolve(ctx)
	if err != nil {
		d.log.Debug().Err(err).Str("address", header.Address.String()).Msg("resolve target failed")
		return
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", target.String())
	if err != nil {
		metrics.DialFailuresTotal.Inc()
		d.log.Debug().Err(err).Str("target", target.String()).Msg("dial target failed")
		return
	}
	defer conn.Close()

	if _, _, err := relay.Bidirectional(stream, conn); err != nil {
		d.log.Debug().Err(err).Str("target", target.String()).Msg("relay session ended")
	}
}
