package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// AdminConfig drives the table-admin binary. AdminKey is the hex-encoded
// ed25519 seed (32 bytes) or full private key (64 bytes) the orchestrator
// signs operations with. RedisAddr is optional; when empty, sequence numbers
// are reserved in process memory instead.
type AdminConfig struct {
	NodeURL string `env:"NODE_URL" envDefault:"http://localhost:8801"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Signer   string `env:"SIGNER" envDefault:"admin"`
	AdminKey string `env:"ADMIN_KEY,required,notEmpty"`

	TableID string `env:"TABLE_ID" envDefault:"main"`
	// TablePath is only read in embedded-node mode, to seed the table on
	// first run.
	TablePath string `env:"TABLE_CONFIG" envDefault:"table.toml"`

	TickMS     int `env:"TICK_MS" envDefault:"500"`
	RetryTTLMS int `env:"RETRY_TTL_MS" envDefault:"3000"`
}

func LoadAdmin() (AdminConfig, error) {
	var cfg AdminConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// PrivateKey decodes AdminKey.
func (c AdminConfig) PrivateKey() (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(c.AdminKey))
	if err != nil {
		return nil, fmt.Errorf("ADMIN_KEY: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("ADMIN_KEY: got %d bytes, want %d or %d", len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}
