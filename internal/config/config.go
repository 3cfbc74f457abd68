package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"prepmaster-service/internal/scoring"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Scoring scoring.Thresholds `yaml:"scoring"`
	Exam    struct {
		MinDuration int `yaml:"min_duration"`
		MaxDuration int `yaml:"max_duration"`
	} `yaml:"exam"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	// OpenTDB enables importing questions from an Open Trivia DB endpoint.
	OpenTDB struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"opentdb"`
}

// Load reads YAML config from path and fills defaults for anything left out.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns a config usable without a file (in-memory stores, default thresholds).
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Scoring.Strength == 0 {
		c.Scoring.Strength = scoring.DefaultStrengthThreshold
	}
	if c.Scoring.Weakness == 0 {
		c.Scoring.Weakness = scoring.DefaultWeaknessThreshold
	}
	if c.Exam.MinDuration == 0 {
		c.Exam.MinDuration = 15
	}
	if c.Exam.MaxDuration == 0 {
		c.Exam.MaxDuration = 180
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "prepmaster.events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate rejects configs the service cannot run with.
func (c Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if c.Exam.MinDuration <= 0 || c.Exam.MinDuration > c.Exam.MaxDuration {
		return fmt.Errorf("exam: invalid duration bounds %d..%d", c.Exam.MinDuration, c.Exam.MaxDuration)
	}
	return nil
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
