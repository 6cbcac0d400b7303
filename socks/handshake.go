package socks

import (
	"io"

	"github.com/pkg/errors"
)

// negotiateMethod reads the client's method-selection message and
// replies NO AUTHENTICATION REQUIRED, the only method ombrac's server
// endpoint offers. Any client that cannot accept it is sent
// noAcceptable and the connection is closed by the caller.
func negotiateMethod(r io.Reader, w io.Writer) error {
	methods, err := readMethods(r)
	if err != nil {
		return errors.Wrap(err, "read auth methods")
	}

	for _, m := range methods {
		if m == noAuth {
			_, err := w.Write([]byte{socks5Version, noAuth})
			return err
		}
	}

	_, _ = w.Write([]byte{socks5Version, noAcceptable})
	return errors.New("socks5: client does not support no-authentication")
}

func readMethods(r io.Reader) ([]byte, error) {
	header := []byte{0, 0}
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if header[0] != socks5Version {
		return nil, errors.Errorf("socks5: unsupported version %d", header[0])
	}

	methods := make([]byte, header[1])
	if _, err := io.ReadFull(r, methods); err != nil {
		return nil, err
	}
	return methods, nil
}
