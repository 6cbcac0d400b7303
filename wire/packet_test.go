package wire

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{
		Secret:  DeriveSecret("shared"),
		Address: NewIPAddress(netip.MustParseAddr("203.0.113.7"), 53),
		Payload: []byte("dns query bytes"),
	}

	data, err := p.Encode()
	require.NoError(t, err)

	got, err := DecodePacket(data)
	require.NoError(t, err)
	assert.True(t, got.Secret.Equal(p.Secret))
	assert.Equal(t, p.Address, got.Address)
	assert.Equal(t, p.Payload, got.Payload)
}

func TestPacketRoundTripEmptyPayload(t *testing.T) {
	p := Packet{
		Secret:  DeriveSecret("shared"),
		Address: NewDomainAddress("dns.example", 53),
		Payload: nil,
	}

	data, err := p.Encode()
	require.NoError(t, err)

	got, err := DecodePacket(data)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestPacketEncodeRejectsOversizedPayload(t *testing.T) {
	p := Packet{
		Secret:  DeriveSecret("shared"),
		Address: NewDomainAddress("dns.example", 53),
		Payload: make([]byte, MaxPacketPayload+1),
	}
	_, err := p.Encode()
	assert.Error(t, err)
}

func TestDecodePacketTruncated(t *testing.T) {
	_, err := DecodePacket(make([]byte, 5))
	assert.Error(t, err)
}

func TestDecodePacketTrailingBytes(t *testing.T) {
	p := Packet{
		Secret:  DeriveSecret("shared"),
		Address: NewDomainAddress("dns.example", 53),
		Payload: []byte("abc"),
	}
	data, err := p.Encode()
	require.NoError(t, err)

	data = append(data, 0xff)
	_, err = DecodePacket(data)
	assert.ErrorIs(t, err, ErrInvalidData)
}
