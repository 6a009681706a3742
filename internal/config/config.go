package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseURL string
	// RedisURL пустой: кеш списка задач отключен.
	RedisURL        string
	CacheTTL        time.Duration
	JWTSecret       string
	TokenTTL        time.Duration
	LogDevelopment  bool
	CORSOrigins     []string
	IdempotencyTTL  time.Duration
	JanitorInterval time.Duration
	MigrateOnStart  bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", time.Minute)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("log_development", false)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("janitor_interval", 10*time.Minute)
	v.SetDefault("migrate_on_start", true)
}

// Load читает конфигурацию: значения по умолчанию, затем config.yml (если есть),
// затем переменные окружения.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("ошибка чтения config.yml: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:            v.GetString("port"),
		DatabaseURL:     v.GetString("database_url"),
		RedisURL:        v.GetString("redis_url"),
		CacheTTL:        v.GetDuration("cache_ttl"),
		JWTSecret:       v.GetString("jwt_secret"),
		TokenTTL:        v.GetDuration("token_ttl"),
		LogDevelopment:  v.GetBool("log_development"),
		CORSOrigins:     splitList(v.GetStringSlice("cors_origins")),
		IdempotencyTTL:  v.GetDuration("idempotency_ttl"),
		JanitorInterval: v.GetDuration("janitor_interval"),
		MigrateOnStart:  v.GetBool("migrate_on_start"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.JanitorInterval <= 0 {
		return Config{}, fmt.Errorf("invalid JANITOR_INTERVAL %q", v.GetString("janitor_interval"))
	}
	return cfg, nil
}

// splitList handles CORS_ORIGINS given as a single comma separated env value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
