package main

import (
	"strings"

	"github.com/danmuck/durctl/internal/broker"
	"github.com/danmuck/durctl/internal/config"
	"github.com/danmuck/durctl/internal/dur"
	"github.com/danmuck/durctl/internal/legacy"
	"github.com/danmuck/durctl/internal/logging"
	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type app struct {
	cfgFile    string
	brokerAddr string
	logLevel   string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "durctl",
		Short: "durctl - DUR broker test harness",
		Long: `durctl talks to a local DUR broker over its framed TCP protocol. It can
request authorization codes, run lookup tests, decode captured packets and
serve the HTTP test harness.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file path (TOML)")
	root.PersistentFlags().StringVar(&a.brokerAddr, "broker", "", "broker address host:port (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newServeCmd(a),
		newAuthCmd(a),
		newRunCmd(a),
		newInspectCmd(),
	)
	return root
}

func (a *app) load() error {
	logging.ConfigureRuntime("durctl")
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if addr := strings.TrimSpace(a.brokerAddr); addr != "" {
		cfg.Broker.Address = addr
		if err := config.ValidateBroker(cfg.Broker); err != nil {
			return err
		}
	}
	level := cfg.Log.Level
	if strings.TrimSpace(a.logLevel) != "" {
		level = a.logLevel
	}
	if !logging.SetLevel(level) {
		log.Warn().Str("level", level).Msg("unknown log level ignored")
	}
	a.cfg = cfg
	log.Debug().Str("config", a.cfgFile).Str("broker", cfg.Broker.Address).Msg("config loaded")
	return nil
}

func (a *app) service() (*dur.Service, error) {
	c, err := codec.Lookup(a.cfg.Broker.Encoding)
	if err != nil {
		return nil, err
	}
	client, err := broker.NewClient(a.cfg.BrokerClient(), c)
	if err != nil {
		return nil, err
	}
	bridge, err := legacy.New(a.cfg.LegacyBridge())
	if err != nil {
		return nil, err
	}
	opts := []dur.Option{dur.WithLegacyBridge(bridge)}
	if a.cfg.Broker.RatePerSecond > 0 {
		opts = append(opts, dur.WithRateLimit(rate.Limit(a.cfg.Broker.RatePerSecond), a.cfg.Broker.RateBurst))
	}
	return dur.NewService(client, c, opts...)
}
