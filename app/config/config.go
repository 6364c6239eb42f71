package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const defaultGreeting = "Hello! I'm Cornelius. To help prepare for your upcoming exam, " +
	"could you tell me a little about your medical history, especially concerning any past " +
	"allergies or imaging scans?"

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	OpenAI  OpenAI  `yaml:"openai"`
	NER     NER     `yaml:"ner"`
	Session Session `yaml:"session"`
	Storage Storage `yaml:"storage"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type Server struct {
	// Listen address of the HTTP API
	Addr string `yaml:"addr" example:":8000"`
}

type OpenAI struct {
	Reply   ModelConfig `yaml:"reply" validate:"required"`
	Summary ModelConfig `yaml:"summary" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o" validate:"required"`
	// Request timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds" example:"30"`
}

type NER struct {
	// Base URL of the clinical NER sidecar service
	BaseURL string `yaml:"base_url" example:"http://localhost:9090" validate:"required"`
	// Extraction timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds" example:"5"`
}

type Session struct {
	// Assistant greeting for new conversations
	Greeting string `yaml:"greeting"`
	// Turn count at which the end predicate fires regardless of reply content
	MaxTurns int `yaml:"max_turns" example:"40"`
	// Sessions idle longer than this are purged
	TTLHours int `yaml:"ttl_hours" example:"24"`
	// Interval between scheduled purge runs, in minutes
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes" example:"60"`
}

type Storage struct {
	// Directory for persisted summary documents
	DataDir string `yaml:"data_dir" example:"data"`
}

func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

func LoadFile(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.OpenAI.Reply.TimeoutSeconds == 0 {
		c.OpenAI.Reply.TimeoutSeconds = 30
	}
	if c.OpenAI.Summary.TimeoutSeconds == 0 {
		c.OpenAI.Summary.TimeoutSeconds = 60
	}
	if c.NER.TimeoutSeconds == 0 {
		c.NER.TimeoutSeconds = 5
	}
	if c.Session.Greeting == "" {
		c.Session.Greeting = defaultGreeting
	}
	if c.Session.MaxTurns == 0 {
		c.Session.MaxTurns = 40
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}
	if c.Session.CleanupIntervalMinutes == 0 {
		c.Session.CleanupIntervalMinutes = 60
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.OpenAI.Reply.TimeoutSeconds) * time.Second
}

func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.OpenAI.Summary.TimeoutSeconds) * time.Second
}

func (c *Config) NERTimeout() time.Duration {
	return time.Duration(c.NER.TimeoutSeconds) * time.Second
}
