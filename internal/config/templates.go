package config

import (
	"fmt"
	"os"
)

func Template() string {
	return durctlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template()), 0o600)
}

const durctlTemplate = `[http]
node = "durctl"
addr = "127.0.0.1:8080"
cors_origins = ["http://localhost:3000"]

[broker]
address = "127.0.0.1:10001"
connect_timeout = "3s"
max_body_bytes = 1048576
encoding = "euc-kr"
# rate_per_second = 5.0
# rate_burst = 1

[legacy]
# command = "/opt/hiradur/bin/hiradur-client"
# args = []
timeout = "10s"

[log]
level = "info"
`
