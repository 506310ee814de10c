package config

type AppConfig struct {
	Live LiveConfig
	Log  LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	liveCfg, err := LoadLive()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Live: liveCfg,
		Log:  logCfg,
	}, nil
}
