package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Auth struct {
		SecretKey   string        `mapstructure:"secretKey"`
		Issuer      string        `mapstructure:"issuer"`
		TokenExpiry time.Duration `mapstructure:"tokenExpiry"`
	} `mapstructure:"auth"`
	AI struct {
		Model          string        `mapstructure:"model"`
		Timeout        time.Duration `mapstructure:"timeout"`
		MaxUploadBytes int64         `mapstructure:"maxUploadBytes"`
	} `mapstructure:"ai"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	// Secrets are never stored in the YAML; the environment wins.
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.SecretKey = secret
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		config.Repositories.Postgres.Password = pass
	}

	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
