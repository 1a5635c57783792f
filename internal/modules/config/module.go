package config

import "go.uber.org/fx"

// Module отдаёт уже загруженный и проверенный конфиг: логгер и трейсер нужны раньше fx.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}

// Load читает конфиг и проверяет обязательное. Без токена и счёта брокера приложение не стартует.
func Load() (*Config, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
