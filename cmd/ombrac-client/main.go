// Command ombrac-client runs the local SOCKS5 endpoint that bridges
// application traffic onto an ombrac tunnel server over QUIC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sricor/ombrac/ombraclog"
	"github.com/sricor/ombrac/socks"
	transportquic "github.com/sricor/ombrac/transport/quic"
	"github.com/sricor/ombrac/wire"
)

const defaultKeepAlivePeriod = 8 * time.Second

func main() {
	app := &cli.App{
		Name:  "ombrac-client",
		Usage: "SOCKS5 front end for an ombrac tunnel",
		Flags: clientFlags(),
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "secret",
			Usage:    "shared passphrase authenticating this client to the server",
			EnvVars:  []string{"OMBRAC_SECRET"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "socks",
			Usage:   "local SOCKS5 listen address",
			Value:   "127.0.0.1:1080",
			EnvVars: []string{"OMBRAC_SOCKS"},
		},
		&cli.StringFlag{
			Name:     "server",
			Usage:    "remote QUIC endpoint, host:port",
			EnvVars:  []string{"OMBRAC_SERVER"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "server-name",
			Usage:   "TLS SNI; defaults to the host portion of --server",
			EnvVars: []string{"OMBRAC_SERVER_NAME"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "local UDP bind address for the QUIC socket",
			EnvVars: []string{"OMBRAC_BIND"},
		},
		&cli.StringFlag{
			Name:    "tls-cert",
			Usage:   "trusted CA certificate file; system roots are used if omitted",
			EnvVars: []string{"OMBRAC_TLS_CERT"},
		},
		&cli.BoolFlag{
			Name:    "tls-skip",
			Usage:   "disable TLS certificate verification",
			EnvVars: []string{"OMBRAC_TLS_SKIP"},
		},
		&cli.BoolFlag{
			Name:    "enable-zero-rtt",
			Usage:   "permit 0-RTT session resumption",
			EnvVars: []string{"OMBRAC_ENABLE_ZERO_RTT"},
		},
		&cli.BoolFlag{
			Name:    "enable-connection-multiplexing",
			Usage:   "multiplex many SOCKS5 sessions over a single QUIC connection",
			EnvVars: []string{"OMBRAC_ENABLE_CONNECTION_MULTIPLEXING"},
		},
		&cli.Uint64Flag{
			Name:    "congestion-initial-window",
			Usage:   "initial congestion window, in bytes; 0 leaves the quic-go default",
			EnvVars: []string{"OMBRAC_CONGESTION_INITIAL_WINDOW"},
		},
		&cli.DurationFlag{
			Name:    "max-idle-timeout",
			Usage:   "QUIC max idle timeout",
			EnvVars: []string{"OMBRAC_MAX_IDLE_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "max-keep-alive-period",
			Usage:   "QUIC keep-alive period",
			Value:   defaultKeepAlivePeriod,
			EnvVars: []string{"OMBRAC_MAX_KEEP_ALIVE_PERIOD"},
		},
		&cli.Uint64Flag{
			Name:    "max-open-bidirectional-streams",
			Usage:   "maximum concurrent reliable streams when multiplexing is enabled",
			EnvVars: []string{"OMBRAC_MAX_OPEN_BIDIRECTIONAL_STREAMS"},
		},
		&cli.StringFlag{
			Name:    "loglevel",
			Usage:   "application logging level {panic, fatal, error, warn, info, debug, trace}",
			Value:   "info",
			EnvVars: []string{"OMBRAC_LOGLEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "also write logs to this file",
			EnvVars: []string{"OMBRAC_LOG_FILE"},
		},
	}
}

func run(c *cli.Context) error {
	log := ombraclog.New(c.String("loglevel"), os.Stderr, c.String("log-file"))

	cfg := transportquic.ClientConfig{
		BindAddr:                     c.String("bind"),
		ServerAddr:                   c.String("server"),
		ServerName:                   c.String("server-name"),
		TrustedCertFile:              c.String("tls-cert"),
		TLSSkipVerify:                c.Bool("tls-skip"),
		EnableZeroRTT:                c.Bool("enable-zero-rtt"),
		EnableConnectionMultiplexing: c.Bool("enable-connection-multiplexing"),
		CongestionInitialWindow:      uint32(c.Uint64("congestion-initial-window")),
		MaxIdleTimeout:               c.Duration("max-idle-timeout"),
		MaxKeepAlivePeriod:           c.Duration("max-keep-alive-period"),
		MaxOpenBidirectionalStreams:  int64(c.Uint64("max-open-bidirectional-streams")),
	}

	if cfg.CongestionInitialWindow != 0 {
		log.Warn().Msg("congestion-initial-window has no effect: quic-go exposes no initial congestion window knob at this version")
	}

	ctx, cancel := signalContext()
	defer cancel()

	transport, err := transportquic.NewClient(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("start quic client: %w", err)
	}
	defer transport.Close()

	secret := wire.DeriveSecret(c.String("secret"))
	endpoint := socks.NewEndpoint(c.String("socks"), secret, transport, true, log)

	log.Info().Str("socks", c.String("socks")).Str("server", c.String("server")).Msg("ombrac-client starting")
	return endpoint.Serve(ctx)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
