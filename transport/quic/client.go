package quic

import (
	"context"
	"net"
	"time"

	quicgo "github.com/quic-go/quic-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Client operations once Close has been called.
var ErrClosed = errors.New("quic: transport closed")

// ErrDraining names a connection torn down while a stream request is
// outstanding. No Client method returns it: an outstanding OpenStream
// call keeps waiting for a stream from the next connection.
var ErrDraining = errors.New("quic: connection draining")

type clientState int

const (
	stateConnecting clientState = iota
	stateOpen
	stateDraining
	stateReconnecting
)

// Client implements Transport by owning a background task that runs the
// Connecting -> Open -> Reconnecting state machine (stateDraining is
// declared but never entered): it reconnects in a tight loop with a small
// fixed sleep and no backoff, and multiplexes streams over a bounded
// queue whose depth depends on whether connection multiplexing is
// enabled.
type Client struct {
	cfg ClientConfig
	log *zerolog.Logger

	udpConn net.PacketConn

	streamQueue chan Stream
	pump        chan *datagramPump

	closed chan struct{}
}

// NewClient starts the background connection-lifecycle task and returns
// once the first connection attempt has been scheduled. Dialing itself
// happens asynchronously; OpenStream blocks until a stream is available.
func NewClient(ctx context.Context, cfg ClientConfig, log *zerolog.Logger) (*Client, error) {
	cfg.withDefaults()

	udpConn, err := net.ListenPacket("udp", cfg.BindAddr)
	if err != nil {
		return nil, errors.Wrap(err, "bind client udp socket")
	}

	queueDepth := defaultStreamQueueDepth
	if cfg.EnableConnectionMultiplexing {
		queueDepth = multiplexedStreamQueueDepth
	}

	c := &Client{
		cfg:         cfg,
		log:         log,
		udpConn:     udpConn,
		streamQueue: make(chan Stream, queueDepth),
		pump:        make(chan *datagramPump, 1),
		closed:      make(chan struct{}),
	}

	go c.run(ctx)

	return c, nil
}

func (c *Client) run(ctx context.Context) {
	defer c.udpConn.Close()

	state := stateConnecting
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		default:
		}

		switch state {
		case stateConnecting:
			conn, err := c.connect(ctx)
			if err != nil {
				c.log.Error().Err(err).Msg("quic connect failed, retrying")
				time.Sleep(reconnectSleep)
				continue
			}
			state = c.serveConnection(ctx, conn)
		case stateReconnecting:
			state = stateConnecting
		default:
			state = stateConnecting
		}
	}
}

func (c *Client) connect(ctx context.Context) (quicgo.Connection, error) {
	tlsConfig, err := BuildClientTLSConfig(c.serverName(), c.cfg.TrustedCertFile, c.cfg.TLSSkipVerify)
	if err != nil {
		return nil, err
	}

	quicConfig := &quicgo.Config{
		HandshakeIdleTimeout:  c.cfg.MaxHandshakeDuration,
		MaxIdleTimeout:        c.cfg.MaxIdleTimeout,
		KeepAlivePeriod:       c.cfg.MaxKeepAlivePeriod,
		MaxIncomingStreams:    c.cfg.MaxOpenBidirectionalStreams,
		EnableDatagrams:       true,
		Allow0RTT:             c.cfg.EnableZeroRTT,
		InitialStreamReceiveWindow:     c.cfg.BidirectionalLocalDataWindow,
		InitialConnectionReceiveWindow: c.cfg.BidirectionalRemoteDataWindow,
	}

	serverAddr, err := resolveUDPAddr(c.cfg.ServerAddr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve server address")
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxHandshakeDuration)
	defer cancel()

	conn, err := quicgo.Dial(dialCtx, c.udpConn, serverAddr, tlsConfig, quicConfig)
	if err != nil {
		return nil, errors.Wrap(err, "dial quic endpoint")
	}
	return conn, nil
}

func (c *Client) serverName() string {
	if c.cfg.ServerName != "" {
		return c.cfg.ServerName
	}
	host, _, err := net.SplitHostPort(c.cfg.ServerAddr)
	if err != nil {
		return c.cfg.ServerAddr
	}
	return host
}

// serveConnection runs the Open state: it opens streams on demand and,
// once, spawns the datagram pump, until the connection drains.
func (c *Client) serveConnection(ctx context.Context, conn quicgo.Connection) clientState {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-connCtx.Done():
		}
	}()

	pump := newDatagramPump(conn, c.log)
	select {
	case c.pump <- pump:
	case <-c.pump:
		c.pump <- pump
	}
	go func() {
		if err := pump.run(connCtx); err != nil {
			c.log.Debug().Err(err).Msg("datagram pump stopped")
		}
	}()

	for {
		stream, err := conn.OpenStreamSync(connCtx)
		if err != nil {
			c.log.Debug().Err(err).Msg("quic connection draining")
			return stateReconnecting
		}
		select {
		case c.streamQueue <- newSafeStream(stream, c.log):
		case <-connCtx.Done():
			return stateReconnecting
		}
	}
}

// OpenStream returns the next stream handed off by the background
// connection task, opening a fresh underlying QUIC stream on demand.
func (c *Client) OpenStream(ctx context.Context) (Stream, error) {
	select {
	case stream := <-c.streamQueue:
		return stream, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendDatagram hands payload to the current connection's pump.
func (c *Client) SendDatagram(ctx context.Context, payload []byte) error {
	pump, err := c.currentPump(ctx)
	if err != nil {
		return err
	}
	return pump.send(ctx, payload)
}

// ReceiveDatagram waits for the next datagram from the current
// connection's pump.
func (c *Client) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	pump, err := c.currentPump(ctx)
	if err != nil {
		return nil, err
	}
	return pump.receive(ctx)
}

func (c *Client) currentPump(ctx context.Context) (*datagramPump, error) {
	select {
	case pump := <-c.pump:
		c.pump <- pump
		return pump, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the background connection task and releases the local
// UDP socket.
func (c *Client) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

var _ Transport = (*Client)(nil)
