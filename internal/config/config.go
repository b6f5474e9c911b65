package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BotConfig struct {
	MainToken   string  `yaml:"main_token"`   // registration, purchase, account management
	SenderToken string  `yaml:"sender_token"` // answer delivery only
	Workers     int     `yaml:"workers"`      // polling workers
	AdminChatID int64   `yaml:"admin_chat_id"`
	AdminIDs    []int64 `yaml:"admin_ids"`
}

type VisionConfig struct {
	GroqKey     string        `yaml:"groq_key"`
	GroqURL     string        `yaml:"groq_url"`
	GroqModel   string        `yaml:"groq_model"`
	GeminiKey   string        `yaml:"gemini_key"` // optional fallback provider
	GeminiModel string        `yaml:"gemini_model"`
	Timeout     time.Duration `yaml:"timeout"`
	Instruction string        `yaml:"instruction"`
	RatePerSec  float64       `yaml:"rate_per_sec"` // outbound call smoothing
	Burst       int           `yaml:"burst"`
}

type PaymentConfig struct {
	Kaspi struct {
		SecretKey string `yaml:"secret_key"` // callback signature shared secret
		SiteURL   string `yaml:"site_url"`   // download link in receipts
	} `yaml:"kaspi"`
	// Hour package -> price in tiyn. Keys are the packages offered by /buy.
	Prices map[int]int64 `yaml:"prices"`
}

type APIConfig struct {
	Port          int   `yaml:"port"`
	MaxImageBytes int64 `yaml:"max_image_bytes"`
}

type AdminConfig struct {
	Port       int           `yaml:"port"`
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"` // abuse control window
	PerHour   int `yaml:"per_hour"`   // fair-use window
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Bot       BotConfig       `yaml:"bot"`
	Vision    VisionConfig    `yaml:"vision"`
	Payment   PaymentConfig   `yaml:"payment"`
	API       APIConfig       `yaml:"api"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultInstruction mirrors the production prompt: answers only, no prose.
const DefaultInstruction = "You are an assistant that sees an image of a test and provides only answers without explanations. If the question is single-choice, give only the answer like 1) A. If the question has multiple correct options, list all of them like 1) A B C. Do not write any explanations or reasoning. Work directly from the image."

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Vision.GroqURL == "" {
		cfg.Vision.GroqURL = "https://api.groq.com/openai/v1/responses"
	}
	if cfg.Vision.GroqModel == "" {
		cfg.Vision.GroqModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	}
	if cfg.Vision.Timeout <= 0 {
		cfg.Vision.Timeout = 60 * time.Second
	}
	if cfg.Vision.Instruction == "" {
		cfg.Vision.Instruction = DefaultInstruction
	}
	if cfg.Vision.RatePerSec <= 0 {
		cfg.Vision.RatePerSec = 5
	}
	if cfg.Vision.Burst <= 0 {
		cfg.Vision.Burst = 10
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.MaxImageBytes <= 0 {
		cfg.API.MaxImageBytes = 10 << 20
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.RateLimit.PerMinute <= 0 {
		cfg.RateLimit.PerMinute = 10
	}
	if cfg.RateLimit.PerHour <= 0 {
		cfg.RateLimit.PerHour = 50
	}
	if len(cfg.Payment.Prices) == 0 {
		cfg.Payment.Prices = map[int]int64{1: 10000, 3: 20000, 12: 30000, 24: 400000}
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Bot.MainToken == "" {
		return nil, errors.New("bot.main_token is required")
	}
	if cfg.Bot.SenderToken == "" {
		cfg.Bot.SenderToken = cfg.Bot.MainToken
	}
	if cfg.Vision.GroqKey == "" && cfg.Vision.GeminiKey == "" {
		return nil, errors.New("vision.groq_key or vision.gemini_key is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
