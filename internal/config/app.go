package config

type AppConfig struct {
	Engine EngineConfig
	Match  MatchConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	engineCfg, err := LoadEngine()
	if err != nil {
		return AppConfig{}, err
	}
	matchCfg, err := LoadMatch()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Engine: engineCfg,
		Match:  matchCfg,
		Log:    logCfg,
	}, nil
}
