package main

import (
	"flag"
	"log"
	"os"

	"github.com/danmuck/durctl/internal/config"
)

const defaultPath = "cmd/durctl/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	printCfg := flag.Bool("print", false, "print the effective config for -input (defaults, file, .env and env applied)")
	flag.Parse()

	if *printCfg {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		data, err := config.Render(cfg)
		if err != nil {
			log.Fatal(err)
		}
		_, _ = os.Stdout.Write(data)
		return
	}

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (broker=%s http=%s)", *input, cfg.Broker.Address, cfg.HTTP.Addr)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}
