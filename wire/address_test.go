package wire

import (
	"bytes"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTripDomain(t *testing.T) {
	addr := NewDomainAddress("example.com", 443)

	var buf bytes.Buffer
	_, err := addr.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadAddress(&buf)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestAddressRoundTripIPv4(t *testing.T) {
	addr := NewIPAddress(netip.MustParseAddr("127.0.0.1"), 1080)

	var buf bytes.Buffer
	_, err := addr.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadAddress(&buf)
	require.NoError(t, err)
	assert.Equal(t, AddrIPv4, got.Type)
	assert.Equal(t, addr.IP, got.IP)
	assert.Equal(t, addr.Port, got.Port)
}

func TestAddressRoundTripIPv6(t *testing.T) {
	addr := NewIPAddress(netip.MustParseAddr("2001:db8::68"), 53)

	var buf bytes.Buffer
	_, err := addr.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadAddress(&buf)
	require.NoError(t, err)
	assert.Equal(t, AddrIPv6, got.Type)
	assert.Equal(t, addr.IP, got.IP)
	assert.Equal(t, addr.Port, got.Port)
}

func TestAddressWriteToRejectsOversizedDomain(t *testing.T) {
	addr := NewDomainAddress(string(make([]byte, MaxDomainLength+1)), 80)

	var buf bytes.Buffer
	_, err := addr.WriteTo(&buf)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestReadAddressUnknownType(t *testing.T) {
	data := []byte{0x09, 0, 0}
	_, err := ReadAddress(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestReadAddressNonUTF8Domain(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(AddrDomain))
	buf.WriteByte(2)
	buf.Write([]byte{0xff, 0xfe})
	buf.Write([]byte{0, 80})

	_, err := ReadAddress(&buf)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestReadAddressTruncated(t *testing.T) {
	data := []byte{byte(AddrIPv4), 127, 0, 0}
	_, err := ReadAddress(bytes.NewReader(data))
	assert.Error(t, err)
}
