package config

import (
	"fmt"

	gotoml "github.com/pelletier/go-toml/v2"
)

// Render serializes cfg in the same layout Load reads, so the output of
// `configgen -print` can be saved and loaded back unchanged.
func Render(cfg Config) ([]byte, error) {
	var out fileConfig
	out.HTTP.Node = cfg.HTTP.Node
	out.HTTP.Addr = cfg.HTTP.Addr
	out.HTTP.CorsOrigins = cfg.HTTP.CorsOrigins

	out.Broker.Address = cfg.Broker.Address
	out.Broker.ConnectTimeout = cfg.Broker.ConnectTimeout.String()
	out.Broker.MaxBodyBytes = int64(cfg.Broker.MaxBodyBytes)
	out.Broker.Encoding = cfg.Broker.Encoding
	out.Broker.RatePerSecond = cfg.Broker.RatePerSecond
	out.Broker.RateBurst = cfg.Broker.RateBurst

	out.Legacy.Command = cfg.Legacy.Command
	out.Legacy.Args = cfg.Legacy.Args
	out.Legacy.Timeout = cfg.Legacy.Timeout.String()

	out.Log.Level = cfg.Log.Level

	data, err := gotoml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return data, nil
}
