package config

import "github.com/caarlos0/env/v11"

// Test loaders gate tests that need a real backing service. Each one fails
// when its variable is unset and the test skips on that error, so a plain
// test run stays green on a machine with nothing installed.

type TestDBConfig struct {
	PostgresDSN string `env:"FAIRTABLE_TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTestDB() (TestDBConfig, error) {
	var cfg TestDBConfig
	err := env.Parse(&cfg)
	return cfg, err
}

type TestRedisConfig struct {
	RedisAddr string `env:"FAIRTABLE_TEST_REDIS_ADDR,required,notEmpty"`
}

func LoadTestRedis() (TestRedisConfig, error) {
	var cfg TestRedisConfig
	err := env.Parse(&cfg)
	return cfg, err
}
