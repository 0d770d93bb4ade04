// Package config загружает настройки сервиса из .env файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	Storage                string `mapstructure:"STORAGE"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	SQLitePath             string `mapstructure:"SQLITE_PATH"`
	DBDebug                bool   `mapstructure:"DB_DEBUG"`
	SecretKey              string `mapstructure:"SECRET_KEY"`
	AccessTokenTTLMinutes  int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshTokenTTLMinutes int    `mapstructure:"REFRESH_TOKEN_TTL_MINUTES"`
	RedisAddr              string `mapstructure:"REDIS_ADDR"`
	RedisPassword          string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                int    `mapstructure:"REDIS_DB"`
	CORSOrigins            string `mapstructure:"CORS_ORIGINS"`
	AccessLog              bool   `mapstructure:"ACCESS_LOG"`
	SeedData               bool   `mapstructure:"SEED_DATA"`
}

var defaults = map[string]any{
	"SERVER_PORT":               "8080",
	"STORAGE":                   StorageInMemory,
	"DATABASE_URL":              "",
	"SQLITE_PATH":               "articles.db",
	"DB_DEBUG":                  false,
	"SECRET_KEY":                "",
	"ACCESS_TOKEN_TTL_MINUTES":  30,
	"REFRESH_TOKEN_TTL_MINUTES": 1440,
	"REDIS_ADDR":                "",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"CORS_ORIGINS":              "*",
	"ACCESS_LOG":                true,
	"SEED_DATA":                 true,
}

// Load читает .env из каталогов dirs (по умолчанию текущий), затем окружение.
// Отсутствие файла не ошибка.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.AutomaticEnv()

	// Без SetDefault AutomaticEnv не увидит ключ при Unmarshal
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные и взаимозависимые ключи.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY must be set")
	}
	switch c.Storage {
	case StorageInMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q (in-memory, postgres or sqlite)", c.Storage)
	}
	if c.AccessTokenTTLMinutes <= 0 || c.RefreshTokenTTLMinutes <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLMinutes) * time.Minute
}

// Origins разбирает CORS_ORIGINS через запятую.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
