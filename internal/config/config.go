package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Rasterization
	MaxWidth  int    `mapstructure:"max-width"`
	MaxHeight int    `mapstructure:"max-height"`
	Scaler    string `mapstructure:"scaler"`
	TryHarder bool   `mapstructure:"try-harder"`

	// Presentation
	DisplayDelay time.Duration `mapstructure:"display-delay"`
	Output       string        `mapstructure:"output"`
	LogLevel     string        `mapstructure:"log-level"`

	// Security limits
	MaxFileSize         int64   `mapstructure:"max-file-size"`
	MaxPixels           int64   `mapstructure:"max-pixels"`
	MaxCompressionRatio float64 `mapstructure:"max-compression-ratio"`

	// S3 configuration
	S3Bucket    string `mapstructure:"s3-bucket"`
	S3Region    string `mapstructure:"s3-region"`
	S3Anonymous bool   `mapstructure:"s3-anonymous"`

	// Working directory
	WorkDir string `mapstructure:"work-dir"`

	// FSM configuration
	FSMDBPath     string `mapstructure:"fsm-db-path"`
	FSMMaxRetries int    `mapstructure:"fsm-max-retries"`

	// Camera
	CameraDevice string `mapstructure:"camera-device"`
	CameraFacing string `mapstructure:"camera-facing"`
	FFmpegPath   string `mapstructure:"ffmpeg-path"`

	// Metrics
	MetricsFile string `mapstructure:"metrics-file"`
}

var (
	validOutputs = map[string]bool{"text": true, "json": true}
	validFacings = map[string]bool{"environment": true, "user": true}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("max-width", 600)
	v.SetDefault("max-height", 400)
	v.SetDefault("scaler", "bilinear")
	v.SetDefault("try-harder", true)
	v.SetDefault("display-delay", 1500*time.Millisecond)
	v.SetDefault("output", "text")
	v.SetDefault("log-level", "warn")
	v.SetDefault("max-file-size", 32*1024*1024)
	v.SetDefault("max-pixels", 40_000_000)
	v.SetDefault("max-compression-ratio", 1000.0)
	v.SetDefault("s3-bucket", "")
	v.SetDefault("s3-region", "us-east-1")
	v.SetDefault("s3-anonymous", true)
	v.SetDefault("work-dir", "/tmp/qrdecryptor")
	v.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	v.SetDefault("fsm-max-retries", 0)
	v.SetDefault("camera-device", "/dev/video0")
	v.SetDefault("camera-facing", "environment")
	v.SetDefault("ffmpeg-path", "ffmpeg")
	v.SetDefault("metrics-file", "")
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against a specific viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// Environment variables (will be QRD_MAX_WIDTH, etc.)
	v.SetEnvPrefix("QRD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.qrdecryptor")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("max-width and max-height must be positive")
	}
	if _, err := imagesource.ParseScaler(c.Scaler); err != nil {
		return err
	}
	if c.DisplayDelay < 0 {
		return fmt.Errorf("display-delay cannot be negative")
	}
	if !validOutputs[c.Output] {
		return fmt.Errorf("output must be text or json, got %q", c.Output)
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unknown log-level %q", c.LogLevel)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max-file-size must be positive")
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max-pixels must be positive")
	}
	if c.MaxCompressionRatio <= 0 {
		return fmt.Errorf("max-compression-ratio must be positive")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work-dir cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	if !validFacings[c.CameraFacing] {
		return fmt.Errorf("camera-facing must be environment or user, got %q", c.CameraFacing)
	}
	return nil
}

// RequireS3 checks the keys needed for s3:// targets
func (c *Config) RequireS3() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("s3-bucket cannot be empty for s3:// targets")
	}
	if c.S3Region == "" {
		return fmt.Errorf("s3-region cannot be empty for s3:// targets")
	}
	return nil
}
