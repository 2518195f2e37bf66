package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Port       string `mapstructure:"port"`
	BackendURL string `mapstructure:"backend_url"`

	// Credential store backend: memory | redis | postgres | file
	StoreBackend string `mapstructure:"store_backend"`
	RedisURL     string `mapstructure:"redis_url"`
	DatabaseURL  string `mapstructure:"database_url"`

	// File backend
	CredentialFile       string `mapstructure:"credential_file"`
	CredentialPassphrase string `mapstructure:"credential_passphrase"`

	// Guard behavior for routes with no roles/permissions specified.
	// Default is the historical allow; set true for deny-unless-specified.
	GuardDenyByDefault bool `mapstructure:"guard_deny_by_default"`

	// Permission re-sync interval
	PermissionSyncInterval time.Duration `mapstructure:"permission_sync_interval"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present so 'go run' works without
	// manually exporting env vars. Missing file is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("backend_url", "http://localhost:8000/api/v1")
	v.SetDefault("store_backend", "memory")
	v.SetDefault("credential_file", "./data/credentials.json")
	v.SetDefault("permission_sync_interval", 30*time.Second)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("authgate")
		v.SetConfigType("yaml")
	}

	// Environment variable settings
	v.SetEnvPrefix("authgate")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("backend_url", "BACKEND_URL")
	_ = v.BindEnv("store_backend", "STORE_BACKEND")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("credential_file", "CREDENTIAL_FILE")
	_ = v.BindEnv("credential_passphrase", "CREDENTIAL_PASSPHRASE")
	_ = v.BindEnv("guard_deny_by_default", "GUARD_DENY_BY_DEFAULT")
	_ = v.BindEnv("permission_sync_interval", "PERMISSION_SYNC_INTERVAL")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	return nil
}
