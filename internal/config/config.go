package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	GinMode       string `mapstructure:"GIN_MODE"`
	ServerAddr    string `mapstructure:"SERVER_ADDR"`
	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
}

// Load reads configuration from the environment, falling back to development
// defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "offtix")
	v.SetDefault("DB_PASSWORD", "offtix")
	v.SetDefault("DB_NAME", "offtix")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("OPENAI_API_KEY", "")

	for _, key := range []string{
		"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"REDIS_HOST", "REDIS_PORT", "SESSION_SECRET", "GIN_MODE", "SERVER_ADDR",
		"OPENAI_API_KEY",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
