package config

import (
	"flag"
	"time"
)

type cliFlags struct {
	configPath     string
	listenAddr     string
	logLevel       string
	requestTimeout time.Duration
	enableBybit    bool
	set            map[string]bool
}

func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("riskd", flag.ContinueOnError)

	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "path to yaml config")
	fs.StringVar(&f.listenAddr, "addr", "", "listen address, example: :5000")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "deadline of a single upstream request, example: 10s")
	fs.BoolVar(&f.enableBybit, "bybit", false, "use bybit between binance and coingecko")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})

	return f, nil
}

// apply overrides cfg with the flags given explicitly.
func (f *cliFlags) apply(cfg *Config) {
	if f.set["addr"] {
		cfg.ListenAddr = f.listenAddr
	}
	if f.set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
	if f.set["request-timeout"] {
		cfg.RequestTimeout = f.requestTimeout
	}
	if f.set["bybit"] {
		cfg.Bybit.Enabled = f.enableBybit
	}
}
