package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/E-Bousk/natours/mail"
	"github.com/E-Bousk/natours/middleware"
	"github.com/E-Bousk/natours/store"
)

// Config stores app configuration
type Config struct {
	Server struct {
		Address     string `yaml:"address"`
		Timeout     int    `yaml:"timeout"`
		OtlpAddress string `yaml:"otlp_address"`
		BodyLimit   string `yaml:"body_limit"`
	} `yaml:"server"`
	Auth struct {
		KeyID           string `yaml:"key_id"`
		PrivateKeyFile  string `yaml:"private_key_file"`
		Algorithm       string `yaml:"algorithm"`
		TokenExpiration int    `yaml:"token_expiration_hours"`
	} `yaml:"auth"`
	Email             mail.Config                `yaml:"email"`
	RateLimit         middleware.RateLimitConfig `yaml:"rate_limit"`
	store.MongoConfig `yaml:"mongo"`
}

// AppConfig reads config from file and creates config struct
func AppConfig(cfgPath string, logger *zap.Logger) (*Config, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("can't open config file: %w", err)
	}
	defer func() {
		err := f.Close()
		if err != nil {
			logger.Error("can't close config file: %w", zap.Error(err))
		}
	}()

	cfg := new(Config)
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("can't decode config file: %w", err)
	}
	return cfg, nil
}
