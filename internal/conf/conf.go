package conf

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
)

// Backend names
const (
	BackendTelegram = "telegram"
	BackendFeishu   = "feishu"
)

// DefaultServerName is the host part of every synthesized address
const DefaultServerName = "irctelegram.bridge"

// Config represents application configuration
type Config struct {
	// Bridge configuration
	Bridge BridgeConfig

	// Telegram configuration
	Telegram TelegramConfig

	// Feishu configuration (optional, used by the operator tools)
	Feishu FeishuConfig

	// Log configuration
	Log LogConfig

	// Profile configuration (loaded from YAML)
	Profile *Profile
}

// BridgeConfig contains IRC-side session configuration
type BridgeConfig struct {
	Backend    string
	ServerName string
	SendDelay  time.Duration
	ParseMode  string
	Credential string // Only read by the operator tools, the bridge takes PASS
}

// TelegramConfig contains Telegram Bot API configuration
type TelegramConfig struct {
	APIEndpoint   string
	RatePerSecond float64
	PollTimeout   int // Long-poll timeout in seconds
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string
	File  string // Empty means stderr
	Color bool
}

// LoadDotEnv loads a .env file if one exists. Existing variables win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	backend := strings.ToLower(os.Getenv("BRIDGE_BACKEND"))
	if backend == "" {
		backend = BackendTelegram
	}

	serverName := os.Getenv("BRIDGE_SERVER_NAME")
	if serverName == "" {
		serverName = DefaultServerName
	}

	// Inter-send delay in seconds, fractions allowed
	var sendDelay time.Duration
	if val := os.Getenv("BRIDGE_SEND_DELAY"); val != "" {
		delay, ok := domain.ParseDelay(val)
		if !ok {
			return nil, &ConfigError{Field: "BRIDGE_SEND_DELAY", Message: "must be a non-negative number of seconds"}
		}
		sendDelay = delay
	}

	ratePerSecond := 25.0
	if val := os.Getenv("TELEGRAM_RATE_PER_SECOND"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			ratePerSecond = parsed
		}
	}

	pollTimeout := 60
	if val := os.Getenv("TELEGRAM_POLL_TIMEOUT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			pollTimeout = parsed
		}
	}

	profile, err := LoadProfile(os.Getenv("BRIDGE_PROFILE_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Bridge: BridgeConfig{
			Backend:    backend,
			ServerName: serverName,
			SendDelay:  sendDelay,
			ParseMode:  os.Getenv("BRIDGE_PARSE_MODE"),
			Credential: os.Getenv("BRIDGE_CREDENTIAL"),
		},
		Telegram: TelegramConfig{
			APIEndpoint:   os.Getenv("TELEGRAM_API_ENDPOINT"),
			RatePerSecond: ratePerSecond,
			PollTimeout:   pollTimeout,
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Log: LogConfig{
			Level: os.Getenv("BRIDGE_LOG_LEVEL"),
			File:  os.Getenv("BRIDGE_LOG_FILE"),
			Color: os.Getenv("BRIDGE_LOG_COLOR") == "true",
		},
		Profile: profile,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Bridge.Backend {
	case BackendTelegram, BackendFeishu:
	default:
		return &ConfigError{Field: "BRIDGE_BACKEND", Message: "must be telegram or feishu"}
	}
	if strings.ContainsAny(c.Bridge.ServerName, " !@") {
		return &ConfigError{Field: "BRIDGE_SERVER_NAME", Message: "must be a bare host name"}
	}
	if c.Telegram.RatePerSecond <= 0 {
		return &ConfigError{Field: "TELEGRAM_RATE_PER_SECOND", Message: "must be positive"}
	}
	return nil
}

// Credential returns the credential for one-shot operator tools
func (c *Config) Credential() (string, error) {
	if c.Bridge.Credential != "" {
		return c.Bridge.Credential, nil
	}
	if c.Bridge.Backend == BackendFeishu && c.Feishu.AppID != "" && c.Feishu.AppSecret != "" {
		return c.Feishu.AppID + ":" + c.Feishu.AppSecret, nil
	}
	return "", &ConfigError{Field: "BRIDGE_CREDENTIAL", Message: "required"}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
