// Package config loads the service configuration from a YAML file with
// environment-variable overrides for deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Vocab     VocabConfig     `yaml:"vocabulary"`
	Cache     CacheConfig     `yaml:"cache"`
	Layers    LayersConfig    `yaml:"layers"`
	Backup    BackupConfig    `yaml:"backup"`
	Inference InferenceConfig `yaml:"inference"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	CORSOrigins string `yaml:"cors_origins"`
}

// CORSOriginList splits the comma-separated origins into a slice,
// trimming whitespace and dropping empty entries.
func (s ServerConfig) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	// URL enables the PostgreSQL session store; empty keeps sessions
	// in memory.
	URL string `yaml:"url"`
}

type VocabConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

type LayersConfig struct {
	WMSBaseURL string `yaml:"wms_base_url"`
}

type BackupConfig struct {
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	S3Prefix  string `yaml:"s3_prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type InferenceConfig struct {
	BayesNet     bool `yaml:"bayes_net"`
	RandomForest bool `yaml:"random_forest"`
	GBM          bool `yaml:"gbm"`
	XGBoost      bool `yaml:"xgboost"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Cache:  CacheConfig{MaxEntries: 64},
	}
}

// Load reads a YAML config file and applies environment overrides. An empty
// path yields the defaults (still subject to overrides).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Auth.Enabled && len(cfg.Auth.JWTSecret) < 32 {
		return nil, fmt.Errorf("auth enabled but jwt_secret is shorter than 32 characters")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BOWTIE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BOWTIE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BOWTIE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
		cfg.Auth.Enabled = true
	}
	if v := os.Getenv("BOWTIE_VOCAB_PATH"); v != "" {
		cfg.Vocab.Path = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = v
	}
}
