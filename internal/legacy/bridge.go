// Package legacy runs the legacy lookup component as an external command.
//
// The component is opaque: it is invoked by method name with positional
// arguments and its standard output is the whole reply.
package legacy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/danmuck/durctl/internal/dur"
	"github.com/danmuck/durctl/internal/protocol/packet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 10 * time.Second

var ErrBridgeUnavailable = dur.ErrLegacyUnavailable

type Config struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// New returns a command bridge, or Unavailable when no command is configured.
func New(cfg Config) (dur.LegacyBridge, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return Unavailable{}, nil
	}
	return NewCommandBridge(cfg)
}

type CommandBridge struct {
	cfg Config
	log zerolog.Logger
}

var _ dur.LegacyBridge = (*CommandBridge)(nil)

func NewCommandBridge(cfg Config) (*CommandBridge, error) {
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	cfg.Command = path
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CommandBridge{
		cfg: cfg,
		log: log.With().Str("component", "legacy").Str("command", path).Logger(),
	}, nil
}

func (b *CommandBridge) LookupHistory(ctx context.Context, identifier string) (dur.Result, error) {
	return b.invoke(ctx, dur.LegacyHistory, identifier, packet.InstitutionCode, packet.OperatorKey)
}

func (b *CommandBridge) LookupHistoryList(ctx context.Context, identifier string) (dur.Result, error) {
	return b.invoke(ctx, dur.LegacyHistoryList, identifier, packet.InstitutionCode, packet.OperatorKey)
}

// LookupDataList uses the five-argument form: an empty leading slot, the
// identifier, institution, operator key and an empty trailing slot.
func (b *CommandBridge) LookupDataList(ctx context.Context, identifier string) (dur.Result, error) {
	return b.invoke(ctx, dur.LegacyDataList, "", identifier, packet.InstitutionCode, packet.OperatorKey, "")
}

func (b *CommandBridge) invoke(ctx context.Context, method dur.LegacyMethod, args ...string) (dur.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	argv := make([]string, 0, len(b.cfg.Args)+1+len(args))
	argv = append(argv, b.cfg.Args...)
	argv = append(argv, string(method))
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, b.cfg.Command, argv...)
	if len(b.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), b.cfg.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return dur.Result{}, fmt.Errorf("legacy: %s: %w: %s", method, err, msg)
		}
		return dur.Result{}, fmt.Errorf("legacy: %s: %w", method, err)
	}
	b.log.Debug().Str("method", string(method)).Dur("elapsed", time.Since(start)).Msg("invoked")

	out := strings.TrimRight(stdout.String(), "\r\n")
	if out == "" {
		out = "null"
	}
	return dur.ClassifyLegacy(out), nil
}

// Unavailable is the bridge used when no legacy command is configured.
type Unavailable struct{}

var _ dur.LegacyBridge = Unavailable{}

func (Unavailable) LookupHistory(context.Context, string) (dur.Result, error) {
	return dur.Result{}, ErrBridgeUnavailable
}

func (Unavailable) LookupHistoryList(context.Context, string) (dur.Result, error) {
	return dur.Result{}, ErrBridgeUnavailable
}

func (Unavailable) LookupDataList(context.Context, string) (dur.Result, error) {
	return dur.Result{}, ErrBridgeUnavailable
}
