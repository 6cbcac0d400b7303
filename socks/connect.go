package socks

import (
	"context"
	"net"

	"github.com/pkg/errors"

	"github.com/sricor/ombrac/relay"
	"github.com/sricor/ombrac/wire"
)

// handleConnect implements the CONNECT path: reply success immediately,
// acquire a reliable stream, write the Connect header, then relay
// bytes until either side closes.
func (e *Endpoint) handleConnect(ctx context.Context, conn net.Conn, req *Request) error {
	if err := sendReply(conn, replySuccess, nil); err != nil {
		return errors.Wrap(err, "send connect reply")
	}

	stream, err := acquireStream(ctx, e.transport)
	if err != nil {
		return errors.Wrap(err, "acquire reliable stream")
	}
	defer stream.Close()

	header := wire.Connect{Secret: e.secret, Address: req.DestAddr}
	payload, err := header.Bytes()
	if err != nil {
		return errors.Wrap(err, "encode connect header")
	}
	if _, err := stream.Write(payload); err != nil {
		return errors.Wrap(err, "write connect header")
	}

	_, _, err = relay.Bidirectional(conn, stream)
	return err
}
