package quic

import "time"

// ClientConfig carries every client-side transport knob named in the
// CLI surface. Zero values fall back to the defaults applied in
// NewClient.
type ClientConfig struct {
	BindAddr   string
	ServerAddr string
	ServerName string

	TrustedCertFile string
	TLSSkipVerify   bool

	EnableZeroRTT                bool
	EnableConnectionMultiplexing bool

	// CongestionInitialWindow is accepted from the CLI surface but not
	// forwarded into quicgo.Config: quic-go's public Config at this
	// version has no initial-congestion-window knob, only internal
	// cubic tuning. Kept as a field so the flag round-trips without a
	// breaking CLI change if a future quic-go exposes one.
	CongestionInitialWindow    uint32
	MaxIdleTimeout             time.Duration
	MaxKeepAlivePeriod         time.Duration
	MaxOpenBidirectionalStreams int64
	BidirectionalLocalDataWindow  uint64
	BidirectionalRemoteDataWindow uint64
	MaxHandshakeDuration          time.Duration
}

// ServerConfig carries every server-side transport knob. TLSCertFile
// and TLSKeyFile are required; the rest mirror ClientConfig's tuning
// surface.
type ServerConfig struct {
	ListenAddr string

	TLSCertFile string
	TLSKeyFile  string

	EnableZeroRTT bool

	CongestionInitialWindow       uint32
	MaxIdleTimeout                time.Duration
	MaxKeepAlivePeriod            time.Duration
	MaxOpenBidirectionalStreams   int64
	BidirectionalLocalDataWindow  uint64
	BidirectionalRemoteDataWindow uint64
	MaxHandshakeDuration          time.Duration
}

const (
	defaultMaxIdleTimeout        = 30 * time.Second
	defaultMaxKeepAlivePeriod    = 8 * time.Second
	defaultMaxHandshakeDuration  = 10 * time.Second
	defaultMaxOpenBidiStreams    = 100
	defaultStreamQueueDepth      = 1
	multiplexedStreamQueueDepth  = 32
	datagramQueueDepth           = 8
	reconnectSleep               = 200 * time.Millisecond
)

func (c *ClientConfig) withDefaults() {
	if c.MaxIdleTimeout == 0 {
		c.MaxIdleTimeout = defaultMaxIdleTimeout
	}
	if c.MaxKeepAlivePeriod == 0 {
		c.MaxKeepAlivePeriod = defaultMaxKeepAlivePeriod
	}
	if c.MaxHandshakeDuration == 0 {
		c.MaxHandshakeDuration = defaultMaxHandshakeDuration
	}
	if c.MaxOpenBidirectionalStreams == 0 {
		c.MaxOpenBidirectionalStreams = defaultMaxOpenBidiStreams
	}
}

func (c *ServerConfig) withDefaults() {
	if c.MaxIdleTimeout == 0 {
		c.MaxIdleTimeout = defaultMaxIdleTimeout
	}
	if c.MaxKeepAlivePeriod == 0 {
		c.MaxKeepAlivePeriod = defaultMaxKeepAlivePeriod
	}
	if c.MaxHandshakeDuration == 0 {
		c.MaxHandshakeDuration = defaultMaxHandshakeDuration
	}
	if c.MaxOpenBidirectionalStreams == 0 {
		c.MaxOpenBidirectionalStreams = defaultMaxOpenBidiStreams
	}
}
