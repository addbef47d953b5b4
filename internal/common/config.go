package common

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Tesseract TesseractConfig `mapstructure:"tesseract"`
	Session   SessionConfig   `mapstructure:"session"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxImageBytes caps the decoded image payload accepted by /api/analyze.
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
}

// GeminiConfig holds the generative recognition backend configuration
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VisionConfig holds the OCR recognition backend configuration
type VisionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TesseractConfig holds the local OCR backend configuration
type TesseractConfig struct {
	Languages []string `mapstructure:"languages"`
	// PSM is the tesseract page segmentation mode; 0 keeps the engine default.
	PSM int `mapstructure:"psm"`
}

// SessionConfig holds in-memory session store configuration
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// TransferSettle is the debounce window after a field transfer completes.
	TransferSettle time.Duration `mapstructure:"transfer_settle"`
}

// LoadConfig reads config.yaml (if present) and CARDSCAN_* environment
// overrides into a Config with sane defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_image_bytes", int64(8<<20))
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash-exp")
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.timeout", 45*time.Second)
	v.SetDefault("vision.base_url", "https://vision.googleapis.com/v1")
	v.SetDefault("vision.timeout", 30*time.Second)
	v.SetDefault("tesseract.languages", []string{"jpn", "eng"})
	v.SetDefault("tesseract.psm", 0)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.transfer_settle", 300*time.Millisecond)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env + defaults are enough to run.
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, WrapError(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, WrapError(err, "unmarshal config")
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for a server run.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "server.addr is required", ErrInvalidInput)
	}
	if c.Gemini.APIKey == "" && c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "at least one of gemini.api_key or vision.api_key is required", ErrInvalidInput)
	}
	return nil
}
