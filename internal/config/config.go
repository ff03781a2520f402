package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// EngineConfig tunes the scheduling engine
type EngineConfig struct {
	Weights                map[string]float64 `yaml:"weights" validate:"omitempty,dive,keys,oneof=low medium high critical,endkeys,gt=0"`
	DefaultAlternatives    int                `yaml:"defaultAlternatives" validate:"gte=1,lte=20"`
	GenerationTimeout      time.Duration      `yaml:"generationTimeout" validate:"gt=0"`
	MaxHoursWarnRatio      float64            `yaml:"maxHoursWarnRatio" validate:"gt=0,lte=1"`
	PrimaryThreshold       float64            `yaml:"primaryThreshold" validate:"gt=0,lte=1"`
	ConsiderationThreshold float64            `yaml:"considerationThreshold" validate:"gt=0,ltefield=PrimaryThreshold"`
}

// NotificationConfig controls publish notifications and their retries
type NotificationConfig struct {
	MaxRetries      int      `yaml:"maxRetries" validate:"gte=0,lte=10"`
	RetrySchedule   string   `yaml:"retrySchedule" validate:"required"`
	DefaultChannels []string `yaml:"defaultChannels" validate:"dive,oneof=email sms push"`
}

// Config represents the application configuration
type Config struct {
	Port          string `yaml:"-" validate:"required,numeric"`
	GinMode       string `yaml:"-"`
	Env           string `yaml:"-" validate:"required"`
	LogDir        string `yaml:"-"`
	DatabaseURL   string `yaml:"-"`
	DataPath      string `yaml:"-"`
	JWTSecret     string `yaml:"-"`
	MasterSecret  string `yaml:"-"`
	AdminUsername string `yaml:"-" validate:"required"`
	AdminPassword string `yaml:"-" validate:"required"`

	Engine        EngineConfig       `yaml:"engine"`
	Notifications NotificationConfig `yaml:"notifications"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Port:          "8000",
		Env:           "dev",
		LogDir:        "logs",
		DataPath:      "scheduler.db",
		AdminUsername: "admin",
		AdminPassword: "admin123",
		Engine: EngineConfig{
			Weights: map[string]float64{
				"low":      1,
				"medium":   2,
				"high":     3,
				"critical": 5,
			},
			DefaultAlternatives:    2,
			GenerationTimeout:      30 * time.Second,
			MaxHoursWarnRatio:      0.9,
			PrimaryThreshold:       0.8,
			ConsiderationThreshold: 0.5,
		},
		Notifications: NotificationConfig{
			MaxRetries:      3,
			RetrySchedule:   "@every 5m",
			DefaultChannels: []string{"email"},
		},
	}
}

// LoadDotEnv loads the first .env found in the working directory or its parents
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load builds the configuration from defaults, the environment and the
// optional YAML file named by SCHEDULER_CONFIG, then validates it
func Load() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)

	if path := os.Getenv("SCHEDULER_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads defaults overlaid with a YAML file, ignoring the environment
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Port, "PORT")
	set(&cfg.GinMode, "GIN_MODE")
	set(&cfg.Env, "APP_ENV")
	set(&cfg.LogDir, "LOG_DIR")
	set(&cfg.DatabaseURL, "DATABASE_URL")
	set(&cfg.DataPath, "DATA_PATH")
	set(&cfg.JWTSecret, "JWT_SECRET")
	set(&cfg.MasterSecret, "API_MASTER_SECRET")
	set(&cfg.AdminUsername, "ADMIN_USERNAME")
	set(&cfg.AdminPassword, "ADMIN_PASSWORD")
}

// Validate validates the configuration struct and checks the retry cron spec
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.Notifications.RetrySchedule); err != nil {
		return fmt.Errorf("invalid notifications.retrySchedule: %w", err)
	}

	return nil
}

// SchedulerOptions converts the engine section into engine options
func (c *Config) SchedulerOptions() scheduler.Options {
	opts := scheduler.Options{
		Weights:                make(map[models.Priority]float64, len(c.Engine.Weights)),
		DefaultAlternatives:    c.Engine.DefaultAlternatives,
		MaxHoursWarnRatio:      c.Engine.MaxHoursWarnRatio,
		PrimaryThreshold:       c.Engine.PrimaryThreshold,
		ConsiderationThreshold: c.Engine.ConsiderationThreshold,
	}
	for p, w := range c.Engine.Weights {
		opts.Weights[models.Priority(p)] = w
	}
	return opts
}
