package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
		File   string `yaml:"file"`
	} `yaml:"log"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL            string `yaml:"ttl"`
		AnswerCacheTTL string `yaml:"answer_cache_ttl"`
		MinQuestions   int    `yaml:"min_questions"`
		MinAnswers     int    `yaml:"min_answers"`
	} `yaml:"quiz"`
	Notifications struct {
		PageSize     int     `yaml:"page_size"`
		Channel      string  `yaml:"channel"`
		RateLimit    float64 `yaml:"rate_limit"`
		RateBurst    int     `yaml:"rate_burst"`
		SendBuffered int     `yaml:"send_buffer"`
	} `yaml:"notifications"`
	Reminders struct {
		At string `yaml:"at"` // "HH:MM" in UTC, empty disables the job
	} `yaml:"reminders"`
}

// Load reads YAML config from path and fills unset values with defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns a config with every default applied, used when no file is given.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Quiz.MinQuestions <= 0 {
		cfg.Quiz.MinQuestions = 2
	}
	if cfg.Quiz.MinAnswers <= 0 {
		cfg.Quiz.MinAnswers = 2
	}
	if cfg.Notifications.PageSize <= 0 {
		cfg.Notifications.PageSize = 10
	}
	if cfg.Notifications.Channel == "" {
		cfg.Notifications.Channel = "notifications"
	}
	if cfg.Notifications.RateLimit <= 0 {
		cfg.Notifications.RateLimit = 10
	}
	if cfg.Notifications.RateBurst <= 0 {
		cfg.Notifications.RateBurst = 20
	}
	if cfg.Notifications.SendBuffered <= 0 {
		cfg.Notifications.SendBuffered = 32
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
