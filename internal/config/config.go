package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // access token lifetime, minutes
	} `yaml:"jwt"`

	Quota struct {
		// Backend for the usage/allowance counters: postgres, redis, memory.
		Store         string `yaml:"store"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`

		// Base caps are a business parameter, not a structural invariant.
		FreeWeeklyCap int64 `yaml:"free_weekly_cap"`
		ProMonthlyCap int64 `yaml:"pro_monthly_cap"`
	} `yaml:"quota"`

	AI struct {
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		Model        string  `yaml:"model"`
		SystemPrompt string  `yaml:"system_prompt"`
		Temperature  float64 `yaml:"temperature"`
		TimeoutSec   int     `yaml:"timeout_sec"`
	} `yaml:"ai"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`

	Admin struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or falls back to environment variables when
// DATABASE_URL is set (test/deployment mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Quota.Store = os.Getenv("QUOTA_STORE")
	cfg.Quota.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.AI.APIKey = os.Getenv("MISTRAL_API_KEY")
	cfg.AI.Model = os.Getenv("MISTRAL_MODEL")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = "postgres"
	}
	if cfg.Quota.FreeWeeklyCap == 0 {
		cfg.Quota.FreeWeeklyCap = 25_000
	}
	if cfg.Quota.ProMonthlyCap == 0 {
		cfg.Quota.ProMonthlyCap = 1_000_000
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "mistral-small-latest"
	}
	if cfg.AI.SystemPrompt == "" {
		cfg.AI.SystemPrompt = "You are Native AI, a helpful and considerate assistant. Answer clearly and concisely."
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.4
	}
	if cfg.AI.TimeoutSec == 0 {
		cfg.AI.TimeoutSec = 60
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
