package config

import "github.com/caarlos0/env/v11"

// BotConfig drives the table-bot binary. Amount zero means bet the table
// minimum.
type BotConfig struct {
	WSURL  string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	Player string `env:"PLAYER" envDefault:"bot"`
	Amount uint64 `env:"BET_AMOUNT" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
