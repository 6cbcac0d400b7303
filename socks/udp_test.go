package socks

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sricor/ombrac/wire"
)

// datagramTransport is a fakeTransport extension that records outbound
// datagrams and lets the test inject inbound ones.
type datagramTransport struct {
	fakeTransport
	mu   sync.Mutex
	sent [][]byte
	down chan []byte
}

func newDatagramTransport() *datagramTransport {
	return &datagramTransport{down: make(chan []byte, 8)}
}

func (d *datagramTransport) SendDatagram(ctx context.Context, payload []byte) error {
	d.mu.Lock()
	d.sent = append(d.sent, append([]byte(nil), payload...))
	d.mu.Unlock()
	return nil
}

func (d *datagramTransport) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case p := <-d.down:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestHandleAssociateAnchorsFirstClientAndBridgesTraffic(t *testing.T) {
	log := zerolog.Nop()
	secret := wire.DeriveSecret("test")
	dt := newDatagramTransport()
	e := NewEndpoint("", secret, dt, true, &log)

	ctrlNear, ctrlFar := net.Pipe()
	defer ctrlFar.Close()

	req := &Request{Command: associateCommand, DestAddr: wire.Address{}}

	done := make(chan error, 1)
	go func() {
		done <- e.handleAssociate(context.Background(), ctrlNear, req)
	}()

	reply := make([]byte, 10)
	ctrlFar.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := ctrlFar.Read(reply)
	require.NoError(t, err)
	require.True(t, n >= 8)
	assert.Equal(t, byte(replySuccess), reply[1])

	relayAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(reply[8])<<8 | int(reply[9])}

	client, err := net.DialUDP("udp", nil, relayAddr)
	require.NoError(t, err)
	defer client.Close()

	dest := wire.NewIPAddress(netip.MustParseAddr("93.184.216.34"), 80)
	datagram := encodeUDPDatagram(dest, []byte("first"))
	_, err = client.Write(datagram)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		dt.mu.Lock()
		defer dt.mu.Unlock()
		return len(dt.sent) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	dt.mu.Lock()
	firstSent := dt.sent[0]
	dt.mu.Unlock()

	packet, err := wire.DecodePacket(firstSent)
	require.NoError(t, err)
	assert.Equal(t, "first", string(packet.Payload))
	assert.Equal(t, "93.184.216.34", packet.Address.IP.String())

	reply2 := wire.Packet{Secret: secret, Address: dest, Payload: []byte("back")}
	encoded, err := reply2.Encode()
	require.NoError(t, err)
	dt.down <- encoded

	buf := make([]byte, 512)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	rn, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)

	_, payload, err := decodeUDPDatagram(buf[:rn])
	require.NoError(t, err)
	assert.Equal(t, "back", string(payload))

	ctrlNear.Close()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handleAssociate did not return")
	}
}
