package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	MetricsAddress string        `mapstructure:"METRICS_ADDRESS"`
	PostgresConn   string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL   string        `mapstructure:"MIGRATION_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	NotifyWorkers       int     `mapstructure:"NOTIFY_WORKERS"`
	NotifyRatePerSecond float64 `mapstructure:"NOTIFY_RATE_PER_SECOND"`
	NotifyBurst         int     `mapstructure:"NOTIFY_BURST"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":         "0.0.0.0:8080",
	"METRICS_ADDRESS":        "0.0.0.0:9091",
	"MIGRATION_URL":          "file://migrations",
	"LOG_LEVEL":              "info",
	"REQUEST_TIMEOUT":        "5s",
	"NOTIFY_WORKERS":         8,
	"NOTIFY_RATE_PER_SECOND": 50.0,
	"NOTIFY_BURST":           10,
}

// LoadConfig загружает конфигурацию из файла app.env, переменные окружения имеют приоритет.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv не видит ключи без значения по умолчанию при Unmarshal.
	for _, key := range []string{"POSTGRES_CONN", "REDIS_URL", "JWT_SECRET"} {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}
	err = v.Unmarshal(&cfg)
	return
}
