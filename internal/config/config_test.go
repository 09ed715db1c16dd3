package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/durctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "durctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "127.0.0.1:10001", cfg.Broker.Address)
	assert.Equal(t, 3*time.Second, cfg.Broker.ConnectTimeout)
}

func TestLoadOverridesOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[broker]
address = "10.0.0.5:10001"
connect_timeout = "750ms"

[legacy]
command = "/usr/bin/true"
args = ["--mode", "test"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:10001", cfg.Broker.Address)
	assert.Equal(t, 750*time.Millisecond, cfg.Broker.ConnectTimeout)
	assert.Equal(t, "euc-kr", cfg.Broker.Encoding)
	assert.Equal(t, Default().HTTP, cfg.HTTP)
	assert.Equal(t, "/usr/bin/true", cfg.Legacy.Command)
	assert.Equal(t, []string{"--mode", "test"}, cfg.Legacy.Args)
	assert.Equal(t, 10*time.Second, cfg.Legacy.Timeout)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, "[broker]\nhost = \"x\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.host")
}

func TestLoadRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"duration": "[broker]\nconnect_timeout = \"soon\"\n",
		"address":  "[broker]\naddress = \"no-port\"\n",
		"encoding": "[broker]\nencoding = \"klingon\"\n",
		"limit":    "[broker]\nmax_body_bytes = 0\n",
		"rate":     "[broker]\nrate_per_second = -1.0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvBrokerAddr, "192.168.1.20:10001")
	t.Setenv(EnvBrokerTimeout, "1500")
	t.Setenv(EnvHTTPAddr, "0.0.0.0:9090")
	t.Setenv(EnvLegacyCommand, "/opt/bridge")

	cfg, err := Load(writeConfig(t, "[broker]\naddress = \"10.0.0.5:10001\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:10001", cfg.Broker.Address)
	assert.Equal(t, 1500*time.Millisecond, cfg.Broker.ConnectTimeout)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr)
	assert.Equal(t, "/opt/bridge", cfg.Legacy.Command)
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	testlog.Start(t)
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DURCTL_BROKER_ADDR=10.9.9.9:1\n"), 0o600))
	t.Setenv(EnvBrokerAddr, "127.0.0.1:2")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "127.0.0.1:2", os.Getenv(EnvBrokerAddr))
}

func TestTemplateLoads(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "durctl.toml")
	require.NoError(t, WriteTemplate(path, false))
	require.Error(t, WriteTemplate(path, false))
	require.NoError(t, WriteTemplate(path, true))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Template(), string(written))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfigMapping(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Legacy.Command = "/bin/bridge"

	bc := cfg.BrokerClient()
	assert.Equal(t, cfg.Broker.Address, bc.Address)
	assert.Equal(t, cfg.Broker.MaxBodyBytes, bc.Limits.MaxBodyBytes)

	lc := cfg.LegacyBridge()
	assert.Equal(t, "/bin/bridge", lc.Command)
	assert.Equal(t, cfg.Legacy.Timeout, lc.Timeout)
}

func TestRenderLoadsBack(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Broker.Address = "10.1.2.3:10001"
	cfg.Broker.ConnectTimeout = 1500 * time.Millisecond
	cfg.Broker.RatePerSecond = 2.5
	cfg.Broker.RateBurst = 3
	cfg.Legacy.Command = "/opt/bridge"
	cfg.Legacy.Args = []string{"--x"}

	data, err := Render(cfg)
	require.NoError(t, err)

	path := writeConfig(t, string(data))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
