package socks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiateMethodAcceptsNoAuth(t *testing.T) {
	in := bytes.NewBuffer([]byte{socks5Version, 2, 0x01, noAuth})
	var out bytes.Buffer

	err := negotiateMethod(in, &out)
	require.NoError(t, err)
	assert.Equal(t, []byte{socks5Version, noAuth}, out.Bytes())
}

func TestNegotiateMethodRejectsWhenNoAuthNotOffered(t *testing.T) {
	in := bytes.NewBuffer([]byte{socks5Version, 1, 0x02})
	var out bytes.Buffer

	err := negotiateMethod(in, &out)
	require.Error(t, err)
	assert.Equal(t, []byte{socks5Version, noAcceptable}, out.Bytes())
}
