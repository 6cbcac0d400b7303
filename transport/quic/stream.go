package quic

import (
	"sync"
	"sync/atomic"
	"time"

	quicgo "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
)

// safeStream wraps a quic-go stream so that Close also tears down the
// read side and a write deadline keeps a stalled peer from hanging a
// writer forever.
type safeStream struct {
	lock    sync.Mutex
	stream  quicgo.Stream
	log     *zerolog.Logger
	closing atomic.Bool
}

func newSafeStream(stream quicgo.Stream, log *zerolog.Logger) *safeStream {
	return &safeStream{stream: stream, log: log}
}

func (s *safeStream) Read(p []byte) (int, error) {
	return s.stream.Read(p)
}

func (s *safeStream) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	n, err := s.stream.Write(p)
	if err != nil && !s.closing.Load() {
		s.stream.CancelWrite(0)
	}
	return n, err
}

func (s *safeStream) Close() error {
	s.closing.Store(true)
	_ = s.stream.SetWriteDeadline(time.Now())

	s.lock.Lock()
	defer s.lock.Unlock()

	s.stream.CancelRead(0)
	return s.stream.Close()
}

// CloseWrite closes only the send half. The underlying quic-go Stream
// type does exactly this on Close: it signals a FIN without touching
// the receive side, which can keep reading until the peer's own FIN.
func (s *safeStream) CloseWrite() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stream.Close()
}

var _ Stream = (*safeStream)(nil)
