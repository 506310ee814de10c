package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"fairtable/internal/game"
	"fairtable/internal/round"
)

// tableFile is the on-disk shape of a table definition. Authority keys
// travel as hex strings in the file and as raw bytes everywhere else.
type tableFile struct {
	Table         round.TableConfig `toml:"table"`
	AuthorityKeys []string          `toml:"authority_keys"`
}

// LoadTable reads and validates a TOML table definition.
func LoadTable(path string) (round.TableConfig, error) {
	var f tableFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return round.TableConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg := f.Table
	cfg.AuthorityKeys = make([][]byte, 0, len(f.AuthorityKeys))
	for i, s := range f.AuthorityKeys {
		key, err := hex.DecodeString(s)
		if err != nil {
			return round.TableConfig{}, fmt.Errorf("authority_keys[%d]: %w", i, err)
		}
		if len(key) != ed25519.PublicKeySize {
			return round.TableConfig{}, fmt.Errorf("authority_keys[%d]: got %d bytes, want %d", i, len(key), ed25519.PublicKeySize)
		}
		cfg.AuthorityKeys = append(cfg.AuthorityKeys, key)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return round.TableConfig{}, fmt.Errorf("table config %s: %w", path, err)
	}
	if _, err := game.ForKind(cfg.GameKind); err != nil {
		return round.TableConfig{}, err
	}
	return cfg, nil
}
