package config

import "github.com/caarlos0/env/v11"

// LogConfig shapes the global logger. File is optional; when set, output
// goes to a size-capped file instead of stdout. Service overrides the
// service tag the binary stamps on every line, which matters when several
// table processes write to the same aggregated stream.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
	Service     string `env:"LOG_SERVICE"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
