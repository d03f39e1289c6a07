package pueue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
)

// maxFrameSize caps a single daemon frame. Status snapshots with large
// queues stay well under this; anything bigger is a protocol violation.
const maxFrameSize = 64 << 20

// Client is a short-lived connection to the daemon. Each instance performs
// the secret handshake on dial and is good for one request/response
// exchange; callers Close it afterwards. Connections are deliberately not
// pooled: the bridge's request volume is UI-driven.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon using the shared settings, reads the secret
// from disk and performs the handshake. All failures before the first
// request are TransportErrors.
func Dial(ctx context.Context, shared SharedSettings) (*Client, error) {
	secret, err := ReadSharedSecret(shared.SharedSecretPathResolved())
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	var conn net.Conn
	if shared.UseUnixSocket {
		conn, err = dialer.DialContext(ctx, "unix", shared.SocketPath())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", net.JoinHostPort(shared.Host, shared.Port))
	}
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	client := &Client{conn: conn}
	if err := client.handshake(secret); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// handshake sends the shared secret and waits for the daemon's version
// banner. A daemon that rejects the secret closes the connection, which
// surfaces here as a read error.
func (c *Client) handshake(secret []byte) error {
	if err := c.writeFrame(secret); err != nil {
		return &domain.TransportError{Err: err}
	}
	if _, err := c.readFrame(); err != nil {
		return &domain.TransportError{Err: fmt.Errorf("handshake rejected: %w", err)}
	}
	return nil
}

// Send writes one request frame.
func (c *Client) Send(request Request) error {
	raw, err := json.Marshal(request)
	if err != nil {
		return &domain.ProtocolError{Detail: fmt.Sprintf("encode %s request: %v", request.Name, err)}
	}
	if err := c.writeFrame(raw); err != nil {
		return &domain.TransportError{Err: err}
	}
	return nil
}

// Receive reads and decodes one response frame.
func (c *Client) Receive() (Response, error) {
	raw, err := c.readFrame()
	if err != nil {
		return Response{}, &domain.TransportError{Err: err}
	}
	var response Response
	if err := json.Unmarshal(raw, &response); err != nil {
		return Response{}, &domain.ProtocolError{Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return response, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Frames are a 4-byte big-endian length followed by the JSON payload.

func (c *Client) writeFrame(payload []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	if _, err := c.conn.Write(header); err != nil {
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

func (c *Client) readFrame() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header)
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
