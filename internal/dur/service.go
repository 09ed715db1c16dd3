package dur

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/durctl/internal/broker"
	"github.com/danmuck/durctl/internal/observability"
	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
	"github.com/danmuck/durctl/internal/protocol/packet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrExchangerRequired = errors.New("dur: exchanger required")
	ErrCodecRequired     = errors.New("dur: codec required")
)

// Exchanger performs one framed request/response with the broker.
type Exchanger interface {
	Exchange(ctx context.Context, packet []byte) (broker.Reply, error)
}

type Option func(*Service)

func WithLegacyBridge(b LegacyBridge) Option {
	return func(s *Service) { s.legacy = b }
}

// WithRateLimit paces exchanges toward the broker. Waiting callers block; no
// request is dropped or retried.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Service) {
		if limit <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service is the caller-facing surface of the protocol layer. It holds no
// per-exchange state and is safe for concurrent use.
type Service struct {
	ex      Exchanger
	codec   *codec.Codec
	legacy  LegacyBridge
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewService(ex Exchanger, c *codec.Codec, opts ...Option) (*Service, error) {
	if ex == nil {
		return nil, ErrExchangerRequired
	}
	if c == nil {
		return nil, ErrCodecRequired
	}
	s := &Service{
		ex:    ex,
		codec: c,
		log:   log.With().Str("component", "dur").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestAuthCode sends the auth request for identifier and returns the raw
// decoded reply body.
func (s *Service) RequestAuthCode(ctx context.Context, identifier string) (string, error) {
	start := time.Now()
	req := packet.Request{
		Identifier:  identifier,
		RequestCode: packet.RequestAuth,
		ModuleType:  packet.ModuleB,
	}
	reply, err := s.exchange(ctx, req)
	outcome := "raw"
	if err != nil {
		outcome = string(failureKind(err))
	}
	observability.RecordExchange(string(req.RequestCode), string(req.ModuleType), outcome, time.Since(start))
	if err != nil {
		return "", err
	}
	return reply.Body, nil
}

// ExtractAuthCode finds the authorization code in an auth reply.
func (s *Service) ExtractAuthCode(raw string) (string, bool) {
	return ExtractAuthCode(raw)
}

// RunLookup performs one lookup and classifies the reply. Transport faults are
// folded into the returned Result.
func (s *Service) RunLookup(ctx context.Context, identifier, authCode string, code packet.RequestCode, module packet.ModuleType) Result {
	start := time.Now()
	req := packet.Request{
		Identifier:  identifier,
		AuthCode:    authCode,
		RequestCode: code,
		ModuleType:  module,
	}

	var res Result
	reply, err := s.exchange(ctx, req)
	switch {
	case err != nil:
		res = failureResult(err)
	case reply.Body == "":
		res = failed(FailureNoResponse, "broker did not respond")
	default:
		res = Classify(reply.Body)
		res.Truncated = reply.Truncated
	}

	observability.RecordExchange(string(code), string(module), res.Outcome(), time.Since(start))
	return res
}

func (s *Service) exchange(ctx context.Context, req packet.Request) (broker.Reply, error) {
	l := s.log.With().
		Str("exchange_id", uuid.NewString()).
		Str("request_code", string(req.RequestCode)).
		Str("module", string(req.ModuleType)).
		Logger()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return broker.Reply{}, &broker.TransportError{Op: "pace", Err: err}
		}
	}

	raw, err := packet.Build(s.codec, req)
	if err != nil {
		l.Warn().Err(err).Msg("build packet")
		return broker.Reply{}, err
	}

	start := time.Now()
	reply, err := s.ex.Exchange(ctx, raw)
	if err != nil {
		l.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("exchange failed")
		return broker.Reply{}, err
	}
	l.Info().
		Int("body_bytes", len(reply.Raw)).
		Bool("truncated", reply.Truncated).
		Dur("elapsed", time.Since(start)).
		Msg("exchange complete")
	return reply, nil
}

func failureKind(err error) FailureKind {
	switch {
	case errors.Is(err, broker.ErrConnectTimeout):
		return FailureConnectTimeout
	case errors.Is(err, frame.ErrNoResponse):
		return FailureNoResponse
	case errors.Is(err, codec.ErrUnencodable):
		return FailureInput
	default:
		return FailureTransport
	}
}

func failureResult(err error) Result {
	kind := failureKind(err)
	switch kind {
	case FailureConnectTimeout:
		return failed(kind, "broker connect timeout")
	case FailureNoResponse:
		return failed(kind, "broker did not respond")
	case FailureInput:
		return failed(kind, fmt.Sprintf("invalid request: %v", err))
	default:
		return failed(kind, fmt.Sprintf("communication error: %v", err))
	}
}
