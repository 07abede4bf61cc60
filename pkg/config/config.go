package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Storage      StorageConfig      `mapstructure:"storage"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Coach        CoachConfig        `mapstructure:"coach"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type StorageConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"` // sqlite database file
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type CoachConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type ConnectivityConfig struct {
	ProbeURL             string `mapstructure:"probe_url"`
	ProbeIntervalSeconds int    `mapstructure:"probe_interval_seconds"`
}

func parseDatabaseURL(dbURL string) (PostgresConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return PostgresConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return PostgresConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "wtm.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_tokens", 1500)
	v.SetDefault("openai.temperature", 0.4)
	v.SetDefault("openai.timeout_seconds", 120)
	v.SetDefault("coach.max_tokens", 500)
	v.SetDefault("coach.temperature", 0.7)
	v.SetDefault("connectivity.probe_url", "https://www.gstatic.com/generate_204")
	v.SetDefault("connectivity.probe_interval_seconds", 30)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		pgConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Storage.Driver = "postgres"
		config.Storage.Postgres = pgConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
