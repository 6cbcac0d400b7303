package socks

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	transportquic "github.com/sricor/ombrac/transport/quic"
	"github.com/sricor/ombrac/wire"
)

// streamRetryBaseTime, streamRetryMax and streamRetryInterval implement
// the client CONNECT stream-acquisition retry budget: each attempt is
// bounded by its own deadline starting at streamRetryBaseTime and
// doubling per retry, up to streamRetryMax retries, with a fixed sleep
// between attempts.
const (
	streamRetryBaseTime = 5 * time.Second
	streamRetryMax      = 3
	streamRetryInterval = 100 * time.Millisecond
)

// Endpoint accepts local SOCKS5 connections and bridges each one onto
// the tunnel transport. A session's failure is isolated: it is logged
// and the accept loop keeps running.
type Endpoint struct {
	listenAddr string
	secret     wire.Secret
	transport  transportquic.Transport
	log        *zerolog.Logger

	enableUDPAssociate bool
}

// NewEndpoint builds a SOCKS5 endpoint bound to listenAddr that bridges
// onto transport using secret as the bearer authenticator.
func NewEndpoint(listenAddr string, secret wire.Secret, transport transportquic.Transport, enableUDPAssociate bool, log *zerolog.Logger) *Endpoint {
	return &Endpoint{
		listenAddr:         listenAddr,
		secret:             secret,
		transport:          transport,
		log:                log,
		enableUDPAssociate: enableUDPAssociate,
	}
}

// Serve accepts TCP connections until ctx is canceled or the listener
// fails; each accepted connection runs in its own goroutine.
func (e *Endpoint) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listenAddr)
	if err != nil {
		return errors.Wrap(err, "listen socks5 address")
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "accept socks5 connection")
			}
		}
		go e.serveConn(ctx, conn)
	}
}

func (e *Endpoint) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := e.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	if err := negotiateMethod(conn, conn); err != nil {
		log.Debug().Err(err).Msg("socks5 method negotiation failed")
		return
	}

	req, err := ReadRequest(conn)
	if err != nil {
		log.Debug().Err(err).Msg("socks5 request parse failed")
		return
	}

	switch req.Command {
	case connectCommand:
		if err := e.handleConnect(ctx, conn, req); err != nil {
			log.Debug().Err(err).Msg("socks5 connect session ended")
		}
	case associateCommand:
		if !e.enableUDPAssociate {
			_ = sendReply(conn, replyCommandNotSupported, nil)
			return
		}
		if err := e.handleAssociate(ctx, conn, req); err != nil {
			log.Debug().Err(err).Msg("socks5 associate session ended")
		}
	default:
		_ = sendReply(conn, replyCommandNotSupported, nil)
	}
}

var errRetriesExhausted = errors.New("socks5: exhausted stream acquisition retries")

// acquireStream opens a reliable stream, retrying on failure: each
// attempt is bounded by its own deadline starting at streamRetryBaseTime
// and doubling per retry, up to streamRetryMax retries, with a fixed
// streamRetryInterval sleep between attempts. The caller's ctx bounds
// the whole sequence regardless of the per-attempt deadline.
func acquireStream(ctx context.Context, transport transportquic.Transport) (transportquic.Stream, error) {
	timeout := streamRetryBaseTime

	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		stream, err := transport.OpenStream(attemptCtx)
		cancel()
		if err == nil {
			return stream, nil
		}
		if attempt >= streamRetryMax {
			return nil, errRetriesExhausted
		}

		select {
		case <-time.After(streamRetryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		timeout *= 2
	}
}
