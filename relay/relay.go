// Package relay runs the bidirectional byte copy between a SOCKS5
// client socket and a reliable tunnel stream, or between a tunnel
// stream and a dialed origin socket.
package relay

import (
	"io"

	"github.com/pkg/errors"

	"github.com/sricor/ombrac/cfio"
)

// HalfCloser is satisfied by connections where the two halves of a
// full-duplex stream can be shut down independently, letting one
// direction keep draining after the other side has seen EOF.
type HalfCloser interface {
	io.Writer
	CloseWrite() error
}

// Bidirectional copies a<->b until either direction hits EOF or an
// error, half-closing the destination's write side as soon as its
// source is exhausted so the other direction can finish draining on
// its own schedule. It returns the byte counts (aToB, bToA) observed
// on clean completion.
func Bidirectional(a, b io.ReadWriter) (aToB int64, bToA int64, err error) {
	aHalf, aOK := a.(HalfCloser)
	bHalf, bOK := b.(HalfCloser)

	done := make(chan error, 2)

	go func() {
		n, copyErr := cfio.Copy(b, a)
		aToB = n
		if bOK {
			_ = bHalf.CloseWrite()
		}
		done <- copyErr
	}()

	go func() {
		n, copyErr := cfio.Copy(a, b)
		bToA = n
		if aOK {
			_ = aHalf.CloseWrite()
		}
		done <- copyErr
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if e := <-done; e != nil && firstErr == nil {
			firstErr = e
		}
	}

	if firstErr != nil {
		return aToB, bToA, errors.Wrap(firstErr, "bidirectional copy")
	}
	return aToB, bToA, nil
}
