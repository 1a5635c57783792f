package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	tokenTinkoffENV   = "TINKOFF_TOKEN"
	accountTinkoffENV = "TINKOFF_ACCOUNT_ID"
	webhookSecretENV  = "WEBHOOK_SECRET"
	settingsPathENV   = "SETTINGS_PATH"
	logLevelENV       = "LOG_LEVEL"
)

// Config ...
type Config struct {
	Service struct {
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
		// таймзона биржи: расписание автоликвидации считается в ней
		Timezone string `yaml:"timezone"`
	} `yaml:"service"`

	Tinkoff struct {
		Token     string `yaml:"token"`
		AccountID string `yaml:"account_id"`
		Sandbox   bool   `yaml:"sandbox"`
		BaseURL   string `yaml:"base_url"`
		StreamURL string `yaml:"stream_url"`
		// валюта, в которой считаем свободный кэш для сайзинга
		BaseCurrency string `yaml:"base_currency"`
		// лимит запросов к REST в секунду
		RPS         int           `yaml:"rps"`
		CallTimeout time.Duration `yaml:"call_timeout"`
	} `yaml:"tinkoff"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	HTTP struct {
		Addr          string `yaml:"addr"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"http"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	Trading struct {
		SettingsPath string `yaml:"settings_path"`
		// сколько ждём, пока брокер покажет закрытие встречной позиции
		SettleTimeout time.Duration `yaml:"settle_timeout"`
		SettlePoll    time.Duration `yaml:"settle_poll"`
		// пауза между закрытиями в close all
		ClosePause   time.Duration `yaml:"close_pause"`
		FigiCacheTTL time.Duration `yaml:"figi_cache_ttl"`
	} `yaml:"trading"`

	Watcher struct {
		Interval time.Duration `yaml:"interval"`
		// подписка на поток сделок как триггер внеочередного опроса
		Stream bool `yaml:"stream"`
	} `yaml:"watcher"`

	Liquidator struct {
		CheckInterval time.Duration `yaml:"check_interval"`
	} `yaml:"liquidator"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "tinkoff-bot")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.timezone", "Europe/Moscow")

	v.SetDefault("tinkoff.token", "")
	v.SetDefault("tinkoff.account_id", "")
	v.SetDefault("tinkoff.sandbox", false)
	v.SetDefault("tinkoff.base_url", "")
	v.SetDefault("tinkoff.stream_url", "")
	v.SetDefault("tinkoff.base_currency", "rub")
	v.SetDefault("tinkoff.rps", 10)
	v.SetDefault("tinkoff.call_timeout", "10s")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("db_dsn", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.webhook_secret", "")

	v.SetDefault("tracing.host", "")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("trading.settings_path", "data/bot_settings.json")
	v.SetDefault("trading.settle_timeout", "5s")
	v.SetDefault("trading.settle_poll", "250ms")
	v.SetDefault("trading.close_pause", "500ms")
	v.SetDefault("trading.figi_cache_ttl", "24h")

	v.SetDefault("watcher.interval", "5s")
	v.SetDefault("watcher.stream", false)

	v.SetDefault("liquidator.check_interval", "20s")
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	configDir := getenvDefault(configDirENV, "configs")

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configDir + "/" + configFileName)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// без файла живём на дефолтах + env
		if _, statErr := os.Stat(configDir + "/" + configFileName); !os.IsNotExist(statErr) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	// viper сводит дефолты и файл, в структуру раскладываем по yaml-тегам
	bs, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal merged config")
	}
	var config Config
	if err := yaml.Unmarshal(bs, &config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	applyEnv(&config)

	return &config, nil
}

func applyEnv(config *Config) {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	config.Telegram.ChatID = int64FromEnv(chatTelegramENV, config.Telegram.ChatID)

	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	config.Tinkoff.Token = getenvDefault(tokenTinkoffENV, config.Tinkoff.Token)
	config.Tinkoff.AccountID = getenvDefault(accountTinkoffENV, config.Tinkoff.AccountID)
	config.Tinkoff.Sandbox = boolFromEnv("TINKOFF_SANDBOX", config.Tinkoff.Sandbox)
	config.HTTP.WebhookSecret = getenvDefault(webhookSecretENV, config.HTTP.WebhookSecret)
	config.Trading.SettingsPath = getenvDefault(settingsPathENV, config.Trading.SettingsPath)
	config.Service.LogLevel = getenvDefault(logLevelENV, config.Service.LogLevel)
	config.Watcher.Interval = durationFromEnv("WATCHER_INTERVAL", config.Watcher.Interval)
}

// Validate: то, без чего бот стартовать не должен.
func (c *Config) Validate() error {
	if c.Tinkoff.Token == "" {
		return fmt.Errorf("env %s is required", tokenTinkoffENV)
	}
	if c.Tinkoff.AccountID == "" {
		return fmt.Errorf("env %s is required", accountTinkoffENV)
	}
	if c.HTTP.WebhookSecret == "" {
		return fmt.Errorf("env %s is required", webhookSecretENV)
	}
	return nil
}

// Location таймзоны сервиса, MSK если tzdata недоступна.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
