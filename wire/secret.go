// Package wire implements the framing carried inside the QUIC tunnel:
// the shared-secret authenticator, the address triage format, and the
// Connect and Packet frames built on top of them.
package wire

import (
	"crypto/subtle"

	"lukechampine.com/blake3"
)

// SecretLength is the size in bytes of a derived Secret.
const SecretLength = 32

// Secret is a bearer authenticator shared between client and server. It is
// not a key: it is compared byte-for-byte on every request and is carried
// in clear inside the TLS tunnel.
type Secret [SecretLength]byte

// DeriveSecret derives a Secret from a passphrase using BLAKE3. The client
// and server each run this independently over the same passphrase, so the
// two never need to exchange key material out of band.
func DeriveSecret(passphrase string) Secret {
	return Secret(blake3.Sum256([]byte(passphrase)))
}

// Equal reports whether two secrets match, in constant time so that secret
// comparison does not leak timing information about how many leading bytes
// matched.
func (s Secret) Equal(other Secret) bool {
	return subtle.ConstantTimeCompare(s[:], other[:]) == 1
}
