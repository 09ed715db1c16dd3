// Package broker performs single request/response exchanges with the DUR
// broker over TCP.
//
// Every exchange dials its own connection, writes one packet, reads one framed
// reply and closes. Nothing is pooled or retried.
package broker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddress        = "127.0.0.1:10001"
	DefaultConnectTimeout = 3 * time.Second
)

var (
	ErrAddressRequired = errors.New("broker: address required")
	ErrCodecRequired   = errors.New("broker: codec required")
	ErrConnectTimeout  = errors.New("broker: connect timeout")
)

// TransportError wraps any I/O fault that is not a connect timeout or a
// missing response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("broker: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config defines the broker endpoint and exchange limits.
type Config struct {
	Address        string
	ConnectTimeout time.Duration
	Limits         frame.Limits
}

func DefaultConfig() Config {
	return Config{
		Address:        DefaultAddress,
		ConnectTimeout: DefaultConnectTimeout,
		Limits:         frame.DefaultLimits(),
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Address) == "" {
		c.Address = d.Address
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.Limits.MaxBodyBytes == 0 {
		c.Limits = d.Limits
	}
	return c
}

// Reply is the decoded result of one exchange.
type Reply struct {
	Header    frame.Header
	Raw       []byte
	Body      string
	Truncated bool
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type Client struct {
	cfg         Config
	codec       *codec.Codec
	log         zerolog.Logger
	dialContext dialFunc
}

func NewClient(cfg Config, c *codec.Codec) (*Client, error) {
	if c == nil {
		return nil, ErrCodecRequired
	}
	cfg = cfg.WithDefaults()
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrAddressRequired, cfg.Address, err)
	}
	return &Client{
		cfg:   cfg,
		codec: c,
		log:   log.With().Str("component", "broker").Str("addr", cfg.Address).Logger(),

		dialContext: (&net.Dialer{}).DialContext,
	}, nil
}

func (c *Client) Address() string {
	return c.cfg.Address
}

// Exchange sends packet and returns the decoded reply body. Cancelling ctx
// aborts a blocked dial, write or read.
func (c *Client) Exchange(ctx context.Context, packet []byte) (Reply, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Reply{}, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("close")
		}
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	w := bufio.NewWriterSize(conn, len(packet))
	if _, err := w.Write(packet); err != nil {
		return Reply{}, c.fault(ctx, "write", err)
	}
	if err := w.Flush(); err != nil {
		return Reply{}, c.fault(ctx, "flush", err)
	}
	c.log.Debug().Int("bytes", len(packet)).Msg("packet sent")

	f, err := frame.ReadFrame(conn, c.cfg.Limits)
	if err != nil {
		if errors.Is(err, frame.ErrNoResponse) {
			return Reply{}, err
		}
		return Reply{}, c.fault(ctx, "read", err)
	}
	if f.Truncated {
		c.log.Warn().
			Uint32("declared", f.Header.BodyLen).
			Int("received", len(f.Body)).
			Msg("body truncated by peer close")
	}

	body, err := c.codec.Decode(f.Body)
	if err != nil {
		return Reply{}, &TransportError{Op: "decode", Err: err}
	}
	return Reply{
		Header:    f.Header,
		Raw:       f.Body,
		Body:      body,
		Truncated: f.Truncated,
	}, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	conn, err := c.dialContext(dctx, "tcp", c.cfg.Address)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrConnectTimeout, c.cfg.ConnectTimeout)
	}
	return nil, &TransportError{Op: "connect", Err: err}
}

func (c *Client) fault(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TransportError{Op: op, Err: ctxErr}
	}
	return &TransportError{Op: op, Err: err}
}
