package quic

import (
	"context"

	quicgo "github.com/quic-go/quic-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Listener accepts inbound QUIC connections. Each accepted connection
// is wrapped in a ServerConn, which is itself a Transport backed by an
// accept-stream queue rather than an on-demand opener.
type Listener struct {
	ln  *quicgo.Listener
	cfg ServerConfig
	log *zerolog.Logger
}

// Listen binds the configured UDP address and starts accepting QUIC
// connections with the fixed "h3" ALPN.
func Listen(cfg ServerConfig, log *zerolog.Logger) (*Listener, error) {
	cfg.withDefaults()

	tlsConfig, err := BuildServerTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		return nil, err
	}

	quicConfig := &quicgo.Config{
		HandshakeIdleTimeout:           cfg.MaxHandshakeDuration,
		MaxIdleTimeout:                 cfg.MaxIdleTimeout,
		KeepAlivePeriod:                cfg.MaxKeepAlivePeriod,
		MaxIncomingStreams:             cfg.MaxOpenBidirectionalStreams,
		EnableDatagrams:                true,
		Allow0RTT:                      cfg.EnableZeroRTT,
		InitialStreamReceiveWindow:     cfg.BidirectionalLocalDataWindow,
		InitialConnectionReceiveWindow: cfg.BidirectionalRemoteDataWindow,
	}

	ln, err := quicgo.ListenAddr(cfg.ListenAddr, tlsConfig, quicConfig)
	if err != nil {
		return nil, errors.Wrap(err, "listen quic endpoint")
	}

	return &Listener{ln: ln, cfg: cfg, log: log}, nil
}

// Accept blocks for the next inbound connection and wraps it as a
// ServerConn. The caller is expected to run ServerConn.Serve in its own
// goroutine; a single connection failure must never interrupt Accept.
func (l *Listener) Accept(ctx context.Context) (*ServerConn, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return newServerConn(conn, l.log), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// ServerConn is one accepted QUIC connection, exposing the same
// Transport surface the client side uses so a single dispatcher can be
// written against Transport regardless of which side opened the
// connection.
type ServerConn struct {
	conn quicgo.Connection
	log  *zerolog.Logger

	streamQueue chan Stream
	pump        *datagramPump

	closed chan struct{}
}

func newServerConn(conn quicgo.Connection, log *zerolog.Logger) *ServerConn {
	return &ServerConn{
		conn:        conn,
		log:         log,
		streamQueue: make(chan Stream, multiplexedStreamQueueDepth),
		pump:        newDatagramPump(conn, log),
		closed:      make(chan struct{}),
	}
}

// Serve runs the accept-stream loop and the datagram pump until the
// connection closes or ctx is canceled. It never returns a per-stream
// error; only connection-level failure ends it.
func (s *ServerConn) Serve(ctx context.Context) error {
	defer close(s.closed)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.acceptStreams(ctx)
	})
	group.Go(func() error {
		return s.pump.run(ctx)
	})
	return group.Wait()
}

func (s *ServerConn) acceptStreams(ctx context.Context) error {
	for {
		stream, err := s.conn.AcceptStream(ctx)
		if err != nil {
			return err
		}
		select {
		case s.streamQueue <- newSafeStream(stream, s.log):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// OpenStream returns the next stream accepted from the peer.
func (s *ServerConn) OpenStream(ctx context.Context) (Stream, error) {
	select {
	case stream := <-s.streamQueue:
		return stream, nil
	case <-s.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendDatagram queues payload on this connection's pump.
func (s *ServerConn) SendDatagram(ctx context.Context, payload []byte) error {
	return s.pump.send(ctx, payload)
}

// ReceiveDatagram waits for the next datagram on this connection's pump.
func (s *ServerConn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return s.pump.receive(ctx)
}

// Close tears down the underlying QUIC connection with no error code,
// matching the teacher's plain-close convention.
func (s *ServerConn) Close() error {
	return s.conn.CloseWithError(0, "")
}

var _ Transport = (*ServerConn)(nil)
