package quic

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// alpnProtocols fixes ALPN to "h3" on both sides, per the wire protocol.
var alpnProtocols = []string{"h3"}

// BuildClientTLSConfig loads the trusted CA file when given, otherwise
// falls back to the system root pool. PEM decoding itself is treated as
// a black box handed off to crypto/x509; this function only wires the
// result into a tls.Config.
func BuildClientTLSConfig(serverName, trustedCertFile string, skipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		NextProtos:         alpnProtocols,
		InsecureSkipVerify: skipVerify,
	}

	if trustedCertFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(trustedCertFile)
	if err != nil {
		return nil, errors.Wrap(err, "read trusted cert file")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("no certificates parsed from %s", trustedCertFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// BuildServerTLSConfig loads a certificate/key pair off disk. Key
// material parsing is delegated entirely to crypto/tls.LoadX509KeyPair.
func BuildServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load server certificate")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   alpnProtocols,
	}, nil
}
