// Command ombrac-server accepts QUIC connections from ombrac clients,
// authenticates their streams and datagrams against a shared secret,
// and dials the requested destinations.
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
	"github.com/sricor/ombrac/server"
	transportquic "github.com/sricor/ombrac/transport/quic"
	"github.com/sricor/ombrac/wire"
)

const defaultKeepAlivePeriod = 8 * time.Second

func main() {
	app := &cli.App{
		Name:  "ombrac-server",
		Usage: "QUIC-facing dispatcher for an ombrac tunnel",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "secret",
			Usage:    "shared passphrase clients must authenticate with",
			EnvVars:  []string{"OMBRAC_SECRET"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "listen",
			Usage:    "local UDP listen address for the QUIC endpoint",
			EnvVars:  []string{"OMBRAC_LISTEN"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tls-cert",
			Usage:    "TLS certificate file",
			EnvVars:  []string{"OMBRAC_TLS_CERT"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tls-key",
			Usage:    "TLS private key file",
			EnvVars:  []string{"OMBRAC_TLS_KEY"},
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "enable-zero-rtt",
			Usage:   "permit 0-RTT session resumption",
			EnvVars: []string{"OMBRAC_ENABLE_ZERO_RTT"},
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
			Usage:   "maximum concurrent reliable streams accepted per connection",
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

	cfg := transportquic.ServerConfig{
		ListenAddr:                  c.String("listen"),
		TLSCertFile:                 c.String("tls-cert"),
		TLSKeyFile:                  c.String("tls-key"),
		EnableZeroRTT:               c.Bool("enable-zero-rtt"),
		CongestionInitialWindow:     uint32(c.Uint64("congestion-initial-window")),
		MaxIdleTimeout:              c.Duration("max-idle-timeout"),
		MaxKeepAlivePeriod:          c.Duration("max-keep-alive-period"),
		MaxOpenBidirectionalStreams: int64(c.Uint64("max-open-bidirectional-streams")),
	}

	if cfg.CongestionInitialWindow != 0 {
		log.Warn().Msg("congestion-initial-window has no effect: quic-go exposes no initial congestion window knob at this version")
	}

	ln, err := transportquic.Listen(cfg, log)
	if err != nil {
		return fmt.Errorf("listen quic endpoint: %w", err)
	}
	defer ln.Close()

	secret := wire.DeriveSecret(c.String("secret"))
	dispatcher := server.NewDispatcher(secret, log)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info().Str("listen", c.String("listen")).Msg("ombrac-server starting")

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept quic connection: %w", err)
			}
		}

		go func() {
			go dispatcher.ServeConnection(ctx, conn)
			if err := conn.Serve(ctx); err != nil {
				log.Debug().Err(err).Msg("quic connection ended")
			}
		}()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
