package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Log      LogConfig
	Endpoint EndpointConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
	CORS     CORSConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	Level string
}

// EndpointConfig locates the remote member endpoint. BaseURL may be empty at
// boot; every call then fails with a configuration error.
type EndpointConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	SessionExpiry time.Duration
}

type SessionConfig struct {
	TTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func LoadConfig() (*Config, error) {
	return LoadConfigFile(".env")
}

// LoadConfigFile reads configuration from the given env file and the process
// environment. A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MEMBER_ENDPOINT_TIMEOUT", "30s")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SESSION_EXPIRY", "2h")
	v.SetDefault("FORM_SESSION_TTL", "2h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	endpointTimeout, err := time.ParseDuration(v.GetString("MEMBER_ENDPOINT_TIMEOUT"))
	if err != nil {
		endpointTimeout = 30 * time.Second
	}

	sessionExpiry, err := time.ParseDuration(v.GetString("JWT_SESSION_EXPIRY"))
	if err != nil {
		sessionExpiry = 2 * time.Hour
	}

	sessionTTL, err := time.ParseDuration(v.GetString("FORM_SESSION_TTL"))
	if err != nil {
		sessionTTL = 2 * time.Hour
	}

	config := &Config{
		App: AppConfig{
			Port: v.GetString("APP_PORT"),
			Env:  v.GetString("APP_ENV"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Endpoint: EndpointConfig{
			BaseURL: strings.TrimSpace(v.GetString("MEMBER_ENDPOINT_URL")),
			Timeout: endpointTimeout,
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			SessionExpiry: sessionExpiry,
		},
		Session: SessionConfig{
			TTL: sessionTTL,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	return config, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
