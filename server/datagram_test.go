package server

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sricor/ombrac/wire"
)

// datagramTransport is the minimal SendDatagram/ReceiveDatagram pair
// serveDatagrams needs, backed by plain channels so a test can inject
// inbound frames and observe outbound ones.
type datagramTransport struct {
	in  chan []byte
	out chan []byte
}

func newDatagramTransport() *datagramTransport {
	return &datagramTransport{
		in:  make(chan []byte, 8),
		out: make(chan []byte, 8),
	}
}

func (d *datagramTransport) SendDatagram(ctx context.Context, payload []byte) error {
	select {
	case d.out <- append([]byte(nil), payload...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *datagramTransport) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case data := <-d.in:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startUDPEcho starts a UDP socket that echoes every datagram back to
// its source, used as the resolved target for an association packet.
func startUDPEcho(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_, _ = conn.WriteToUDP(buf[:n], src)
		}
	}()
	return conn
}

func TestServeDatagramsRoundTripsThroughResolvedTarget(t *testing.T) {
	echo := startUDPEcho(t)
	defer echo.Close()
	echoAddr := echo.LocalAddr().(*net.UDPAddr)

	secret := wire.DeriveSecret("shared")
	dt := newDatagramTransport()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(secret, discardLogger())
	done := make(chan struct{})
	go func() {
		d.serveDatagrams(ctx, dt)
		close(done)
	}()

	target := wire.NewIPAddress(netip.MustParseAddr(echoAddr.IP.String()), uint16(echoAddr.Port))
	packet := wire.Packet{Secret: secret, Address: target, Payload: []byte("ping")}
	encoded, err := packet.Encode()
	require.NoError(t, err)

	dt.in <- encoded

	select {
	case reply := <-dt.out:
		decoded, err := wire.DecodePacket(reply)
		require.NoError(t, err)
		assert.Equal(t, "ping", string(decoded.Payload))
		assert.Equal(t, secret, decoded.Secret)
	case <-time.After(2 * time.Second):
		t.Fatal("did not observe an echoed packet")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serveDatagrams did not return after context cancellation")
	}
}

func TestServeDatagramsTearsDownBindingOnSecretMismatch(t *testing.T) {
	echo := startUDPEcho(t)
	defer echo.Close()
	echoAddr := echo.LocalAddr().(*net.UDPAddr)

	secret := wire.DeriveSecret("shared")
	dt := newDatagramTransport()

	d := NewDispatcher(secret, discardLogger())
	done := make(chan struct{})
	go func() {
		d.serveDatagrams(context.Background(), dt)
		close(done)
	}()

	target := wire.NewIPAddress(netip.MustParseAddr(echoAddr.IP.String()), uint16(echoAddr.Port))
	packet := wire.Packet{Secret: wire.DeriveSecret("wrong"), Address: target, Payload: []byte("ping")}
	encoded, err := packet.Encode()
	require.NoError(t, err)

	dt.in <- encoded

	// The binding must tear itself down on the first mismatched packet,
	// without anything canceling the caller's context.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serveDatagrams did not return after a secret mismatch")
	}

	select {
	case <-dt.out:
		t.Fatal("mismatched secret should never reach the resolved target")
	default:
	}
}
