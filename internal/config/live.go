package config

import "github.com/caarlos0/env/v11"

// LiveConfig drives the live-server binary. PostgresDSN is optional; when
// empty, balances live in memory and reset on restart.
type LiveConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	TableID   string `env:"TABLE_ID" envDefault:"main"`
	TablePath string `env:"TABLE_CONFIG" envDefault:"table.toml"`

	FaucetBalance uint64 `env:"FAUCET_BALANCE" envDefault:"10000"`
	// AdminAPIKey guards the admin endpoints. Empty leaves them open,
	// which is only acceptable on a local table.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	Bots    int    `env:"BOTS" envDefault:"3"`
	BotSeed string `env:"BOT_SEED" envDefault:"fairtable-bots"`

	TickMS int `env:"TICK_MS" envDefault:"100"`
}

func LoadLive() (LiveConfig, error) {
	var cfg LiveConfig
	err := env.Parse(&cfg)
	return cfg, err
}
