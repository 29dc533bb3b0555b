package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const maxSendRetries = 10

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Sender     SenderConfig     `mapstructure:"sender"`
	Receiver   ReceiverConfig   `mapstructure:"receiver"`
	Router     RouterConfig     `mapstructure:"router"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Log        LogConfig        `mapstructure:"log"`
}

type TelegramConfig struct {
	Token          string          `mapstructure:"token"`
	ChatID         int64           `mapstructure:"chat_id"`
	APIBaseURL     string          `mapstructure:"api_base_url"`
	Endpoints      EndpointsConfig `mapstructure:"endpoints"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
}

type EndpointsConfig struct {
	Text    string `mapstructure:"text"`
	Updates string `mapstructure:"updates"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type SenderConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

type ReceiverConfig struct {
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	NetworkBackoff time.Duration `mapstructure:"network_backoff"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`
	PersistOffset  bool          `mapstructure:"persist_offset"`
	StopTimeout    time.Duration `mapstructure:"stop_timeout"`
}

type RouterConfig struct {
	HelpTrigger  string        `mapstructure:"help_trigger"`
	ItemsPerRow  int           `mapstructure:"items_per_row"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

type ClassifierConfig struct {
	MaxTags int `mapstructure:"max_tags"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org/bot")
	v.SetDefault("telegram.endpoints.text", "/sendMessage")
	v.SetDefault("telegram.endpoints.updates", "/getUpdates")
	v.SetDefault("telegram.request_timeout", 10*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "cmdbot.db")

	v.SetDefault("sender.max_retries", 3)
	v.SetDefault("sender.poll_interval", 100*time.Millisecond)
	v.SetDefault("sender.rate_limit", 20)
	v.SetDefault("sender.stop_timeout", 5*time.Second)

	v.SetDefault("receiver.poll_timeout", 30*time.Second)
	v.SetDefault("receiver.network_backoff", 3*time.Second)
	v.SetDefault("receiver.error_backoff", time.Second)
	v.SetDefault("receiver.persist_offset", true)
	v.SetDefault("receiver.stop_timeout", 5*time.Second)

	v.SetDefault("router.help_trigger", "/help")
	v.SetDefault("router.items_per_row", 3)
	v.SetDefault("router.poll_interval", 100*time.Millisecond)
	v.SetDefault("router.stop_timeout", 5*time.Second)

	v.SetDefault("classifier.max_tags", 5)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.temperature", 0.7)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads the YAML file at path, applies defaults and environment
// overrides. A missing file is fine when everything comes from the
// environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if chatID := v.GetString("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TELEGRAM_CHAT_ID: %w", err)
		}
		config.Telegram.ChatID = id
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

// Validate reports settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required"))
	}
	switch c.Database.Driver {
	case "memory", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of memory, postgres, sqlite", c.Database.Driver))
	}
	if c.Sender.MaxRetries < 1 || c.Sender.MaxRetries > maxSendRetries {
		errs = append(errs, fmt.Errorf("sender.max_retries must be between 1 and %d", maxSendRetries))
	}
	if c.Router.ItemsPerRow <= 0 {
		errs = append(errs, errors.New("router.items_per_row must be positive"))
	}
	return errors.Join(errs...)
}
