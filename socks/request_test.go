package socks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sricor/ombrac/wire"
)

func TestReadRequestIPv4Connect(t *testing.T) {
	msg := []byte{socks5Version, connectCommand, 0, atypIPv4, 1, 2, 3, 4, 0x01, 0xbb}
	req, err := ReadRequest(bytes.NewReader(msg))
	require.NoError(t, err)

	assert.Equal(t, connectCommand, req.Command)
	assert.Equal(t, wire.AddrIPv4, req.DestAddr.Type)
	assert.Equal(t, uint16(443), req.DestAddr.Port)
}

func TestReadRequestDomainAssociate(t *testing.T) {
	name := "example.com"
	msg := []byte{socks5Version, associateCommand, 0, atypDomain, byte(len(name))}
	msg = append(msg, name...)
	msg = append(msg, 0x00, 0x50)

	req, err := ReadRequest(bytes.NewReader(msg))
	require.NoError(t, err)

	assert.Equal(t, associateCommand, req.Command)
	assert.Equal(t, wire.AddrDomain, req.DestAddr.Type)
	assert.Equal(t, name, req.DestAddr.Domain)
	assert.Equal(t, uint16(80), req.DestAddr.Port)
}

func TestReadRequestRejectsBadVersion(t *testing.T) {
	msg := []byte{4, connectCommand, 0, atypIPv4, 1, 2, 3, 4, 0, 80}
	_, err := ReadRequest(bytes.NewReader(msg))
	require.Error(t, err)
}

func TestReadRequestRejectsUnknownAddrType(t *testing.T) {
	msg := []byte{socks5Version, connectCommand, 0, 0x09}
	_, err := ReadRequest(bytes.NewReader(msg))
	require.Error(t, err)
}
