// Package quic adapts github.com/quic-go/quic-go into the reliable
// stream / unreliable datagram transport that ombrac's SOCKS5 endpoint
// and server dispatcher run on top of.
package quic

import (
	"context"
	"io"
)

// Stream is a bidirectional QUIC stream with independently closable
// halves, as required by the relay package's half-close semantics.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	// CloseWrite closes the send half only; the peer observes EOF on its
	// next read while this side can keep reading.
	CloseWrite() error
}

// Transport is the capability ombrac's higher layers need from a QUIC
// connection: open or accept reliable streams, and send or receive
// unreliable datagrams. Client and Server both satisfy it so that
// socks and server packages are written against a single interface.
type Transport interface {
	// OpenStream returns a new bidirectional stream multiplexed over the
	// underlying connection. On the client this opens a fresh stream;
	// on the server it is typically backed by an accept queue.
	OpenStream(ctx context.Context) (Stream, error)

	// SendDatagram queues payload for unreliable delivery. It blocks
	// when the outbound queue is full rather than dropping traffic.
	SendDatagram(ctx context.Context, payload []byte) error

	// ReceiveDatagram blocks until a datagram arrives or ctx is done.
	ReceiveDatagram(ctx context.Context) ([]byte, error)

	// Close tears down the underlying connection.
	Close() error
}
