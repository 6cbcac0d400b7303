package socks

import (
	"context"
	"errors"
	"net"

	transportquic "github.com/sricor/ombrac/transport/quic"
)

// pipeStream adapts a net.Conn half of a net.Pipe into a
// transportquic.Stream for tests that do not need real QUIC.
type pipeStream struct {
	net.Conn
}

func (p pipeStream) CloseWrite() error {
	if cw, ok := p.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return p.Conn.Close()
}

var _ transportquic.Stream = pipeStream{}

// fakeTransport hands out one pre-wired stream per OpenStream call and
// has no datagram capability, which is enough to exercise the CONNECT
// path in isolation.
type fakeTransport struct {
	streams   chan transportquic.Stream
	openErr   error
	openCalls int
}

func newFakeTransport(streams ...transportquic.Stream) *fakeTransport {
	ch := make(chan transportquic.Stream, len(streams))
	for _, s := range streams {
		ch <- s
	}
	return &fakeTransport{streams: ch}
}

func (f *fakeTransport) OpenStream(ctx context.Context) (transportquic.Stream, error) {
	f.openCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}
	select {
	case s := <-f.streams:
		return s, nil
	default:
		return nil, errors.New("fakeTransport: no stream available")
	}
}

func (f *fakeTransport) SendDatagram(ctx context.Context, payload []byte) error { return nil }

func (f *fakeTransport) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) Close() error { return nil }

var _ transportquic.Transport = (*fakeTransport)(nil)
