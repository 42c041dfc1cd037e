// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env            string `validate:"oneof=development production"`
	DatabasePath   string `validate:"required"`
	DefaultProfile string
	Workers        int `validate:"min=1,max=64"`
	ShowProgress   bool
	Log            LogConfig
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// Load reads the configuration. envFile may be empty, in which case ".env"
// in the working directory is used when present.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix("SAVANNAH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{
		Env:            v.GetString("ENV"),
		DatabasePath:   v.GetString("DB"),
		DefaultProfile: v.GetString("PROFILE"),
		Workers:        v.GetInt("WORKERS"),
		ShowProgress:   v.GetBool("PROGRESS"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("DB", defaultDatabasePath())
	v.SetDefault("PROFILE", "")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("PROGRESS", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "savannah.db"
	}
	return filepath.Join(dir, "savannah", "savannah.db")
}
