package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Store struct {
		// Driver is memory, redis or postgres.
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Questions struct {
		// Source is static, file, env, postgres or mongo.
		Source string `yaml:"source"`
		File   string `yaml:"file"`
		TTL    string `yaml:"ttl"`
	} `yaml:"questions"`
	Quiz struct {
		Hosts              []string `yaml:"hosts"`
		QuestionCount      int      `yaml:"questionCount"`
		SoloQuestionCount  int      `yaml:"soloQuestionCount"`
		AnswerSeconds      int      `yaml:"answerSeconds"`
		SoloAnswerSeconds  int      `yaml:"soloAnswerSeconds"`
		ReviewSeconds      int      `yaml:"reviewSeconds"`
		EnforcePhaseTiming *bool    `yaml:"enforcePhaseTiming"`
		PhaseGrace         string   `yaml:"phaseGrace"`
		TrustClientTime    bool     `yaml:"trustClientTime"`
	} `yaml:"quiz"`
}

// Default is the configuration used when no file is present: everything in memory.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Store.Driver = "memory"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.TTL = "24h"
	cfg.Mongo.Database = "trivia"
	cfg.RabbitMQ.Exchange = "trivia.events"
	cfg.Questions.Source = "static"
	cfg.Questions.TTL = "5m"
	cfg.Quiz.QuestionCount = 10
	cfg.Quiz.SoloQuestionCount = 1
	cfg.Quiz.AnswerSeconds = 20
	cfg.Quiz.SoloAnswerSeconds = 10
	cfg.Quiz.ReviewSeconds = 3
	cfg.Quiz.PhaseGrace = "1s"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnforceTiming reports whether early phase transitions are rejected; on unless disabled.
func (c Config) EnforceTiming() bool {
	return c.Quiz.EnforcePhaseTiming == nil || *c.Quiz.EnforcePhaseTiming
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
