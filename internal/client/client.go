// Package client performs status probes: one TCP connection per probe
// carrying a handshake, a status request and the JSON response.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/protocol"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

// Dialer opens the transport for a probe. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds the probe timeouts and the protocol version to declare.
// A zero timeout disables the corresponding deadline.
type Config struct {
	ConnectTimeout  time.Duration
	IOTimeout       time.Duration
	ProtocolVersion int32
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		IOTimeout:       10 * time.Second,
		ProtocolVersion: protocol.AnyProtocolVersion,
	}
}

// Client probes a single target. The handshake is built once per target and
// reused for every probe.
type Client struct {
	cfg       Config
	dialer    Dialer
	logger    zerolog.Logger
	handshake []byte
	target    status.Target
}

// New creates a client for target. A nil dialer uses net.Dialer with the
// configured connect timeout.
func New(cfg Config, target status.Target, dialer Dialer) *Client {
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.ConnectTimeout}
	}
	body := protocol.HandshakeBody(target.Host, target.Port, cfg.ProtocolVersion)
	c := &Client{
		cfg:       cfg,
		dialer:    dialer,
		logger:    util.ComponentLogger("client").With().Str("target", target.Address()).Logger(),
		handshake: body.BuildPacket(protocol.PktHandshake),
		target:    target,
	}
	c.logger.Debug().Stringer("handshake", body).Msg("handshake prepared")
	return c
}

// Target returns the target this client probes.
func (c *Client) Target() status.Target {
	return c.target
}

// Probe runs one full connect, query, decode and close cycle. The returned
// status carries the client's target.
func (c *Client) Probe(ctx context.Context) (*status.Status, error) {
	c.logger.Debug().Msg("connecting")

	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.target.Address())
	if err != nil {
		return nil, protocol.ConnectFailed("dial", err)
	}
	defer c.teardown(conn)

	if c.cfg.IOTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.cfg.IOTimeout)); err != nil {
			return nil, protocol.ConnectFailed("set deadline", err)
		}
	}

	st, err := RequestStatus(conn, c.handshake)
	if err != nil {
		return nil, err
	}

	return st.WithTarget(c.target), nil
}

// teardown writes the empty closing frame and shuts the connection down.
// The probe result is already decided, so failures are only logged.
func (c *Client) teardown(conn net.Conn) {
	if _, err := conn.Write([]byte{}); err != nil {
		c.logger.Debug().Err(err).Msg("closing frame write failed")
	}

	type halfCloser interface {
		CloseRead() error
		CloseWrite() error
	}
	if hc, ok := conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			c.logger.Debug().Err(err).Msg("shutdown write failed")
		}
		if err := hc.CloseRead(); err != nil {
			c.logger.Debug().Err(err).Msg("shutdown read failed")
		}
	}

	if err := conn.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("connection close failed")
	}
}

// RequestStatus sends handshake and the status request over rw, then reads
// and decodes the status response.
// Response format: [length:varint][string_prefix:varint][json_length:varint][json bytes...]
func RequestStatus(rw io.ReadWriter, handshake []byte) (*status.Status, error) {
	if _, err := rw.Write(handshake); err != nil {
		return nil, protocol.ConnectFailed("write handshake", err)
	}
	if _, err := rw.Write(protocol.StatusRequest[:]); err != nil {
		return nil, protocol.ConnectFailed("write request", err)
	}

	length, err := readVarInt(rw, "read length")
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, protocol.InvalidStatusLength(length)
	}

	// The prefix is the packet id of the response; its value is not used.
	if _, err := readVarInt(rw, "read string prefix"); err != nil {
		return nil, err
	}

	jsonLength, err := readVarInt(rw, "read string length")
	if err != nil {
		return nil, err
	}
	if jsonLength < 0 || jsonLength > protocol.MaxStatusLength {
		return nil, protocol.MalformedPayload(fmt.Errorf("status string length out of range: %d", jsonLength))
	}

	buf := make([]byte, jsonLength)
	if _, err := io.ReadFull(rw, buf); err != nil {
		return nil, protocol.ConnectFailed("read status", err)
	}

	st, err := status.Decode(buf)
	if err != nil {
		return nil, decodeError(buf, err)
	}
	return st, nil
}

func readVarInt(r io.Reader, op string) (int32, error) {
	v, _, err := protocol.ReadVarInt(r)
	if err != nil {
		if errors.Is(err, protocol.ErrVarIntTooLong) {
			return 0, err
		}
		return 0, protocol.ConnectFailed(op, err)
	}
	return v, nil
}

// decodeError classifies a JSON failure, marking raw control characters
// inside strings.
func decodeError(payload []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && strings.Contains(syntaxErr.Error(), "in string literal") {
		// Offset counts the offending byte.
		i := syntaxErr.Offset - 1
		if i >= 0 && i < int64(len(payload)) && payload[i] < 0x20 {
			return protocol.MalformedPayload(fmt.Errorf("%w: %w", protocol.ErrControlCharacter, err))
		}
	}
	return protocol.MalformedPayload(err)
}
