package relay

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (near, far net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		acceptCh <- conn
	}()

	near, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	far = <-acceptCh
	return near, far
}

func TestBidirectionalRelaysBothDirections(t *testing.T) {
	appNear, appFar := tcpPair(t)
	defer appFar.Close()
	originNear, originFar := tcpPair(t)
	defer originFar.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Bidirectional(appNear, originNear)
	}()

	_, err := appFar.Write([]byte("abcd"))
	require.NoError(t, err)

	originFar.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4)
	_, err = io.ReadFull(originFar, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf))

	_, err = originFar.Write([]byte("dcba"))
	require.NoError(t, err)

	appFar.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(appFar, buf)
	require.NoError(t, err)
	assert.Equal(t, "dcba", string(buf))

	appFar.Close()
	originFar.Close()
	<-done
}
