package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "America/New_York"
	defaultInterval   = time.Hour
	configPathEnv     = "ANALYST_SCANNER_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	smtpPasswordEnv   = "SMTP_PASSWORD"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects the slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig controls the table view server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// Live scrapes the page on every request instead of reading stored announcements.
	Live *bool `yaml:"live"`
}

// IsLive reports whether every request triggers a scrape; defaults to true.
func (h HTTPConfig) IsLive() bool {
	return h.Live == nil || *h.Live
}

// DatabaseConfig describes the SQL storage; an empty DSN disables persistence.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often the pipeline refreshes.
// A non-empty Cron expression takes precedence over Interval.
type SchedulerConfig struct {
	Interval string         `yaml:"interval"`
	Cron     string         `yaml:"cron"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Every parses the refresh interval, falling back to one hour.
func (s SchedulerConfig) Every() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return defaultInterval
	}
	return d
}

// NotificationConfig encapsulates outbound channels (Telegram, email).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Enabled reports whether enough settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.Server != "" && e.User != "" && e.Password != "" && e.To != ""
}

// Sender falls back to the SMTP user when no explicit sender is set.
func (e EmailConfig) Sender() string {
	if e.From != "" {
		return e.From
	}
	return e.User
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// SiteConfig describes a single news page with its scanner strategy.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URL     string            `yaml:"url"`
	Options map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.Email.Password = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.Live != nil {
		base.HTTP.Live = override.HTTP.Live
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
		if base.Database.Driver == "" {
			base.Database.Driver = defaultConfig().Database.Driver
		}
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Cron != "" {
		base.Scheduler.Cron = override.Scheduler.Cron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	base.Notifications.Email = mergeEmail(base.Notifications.Email, override.Notifications.Email)

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func mergeEmail(base, override EmailConfig) EmailConfig {
	if override.Server != "" {
		base.Server = override.Server
	}
	if override.Port != 0 {
		base.Port = override.Port
	}
	if override.User != "" {
		base.User = override.User
	}
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.From != "" {
		base.From = override.From
	}
	if override.To != "" {
		base.To = override.To
	}
	return base
}

func defaultConfig() Config {
	live := true
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		HTTP:      HTTPConfig{Addr: ":5000", Live: &live},
		Database:  DatabaseConfig{Driver: "postgres", DSN: ""},
		Scheduler: SchedulerConfig{Interval: defaultInterval.String(), Timezone: defaultTimezone},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
			Email:    EmailConfig{Server: "smtp.gmail.com", Port: 587},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You comment on analyst price target changes.",
		},
		Sites: []SiteConfig{
			{
				Name:    "thefly-recommendations",
				Scanner: "thefly",
				URL:     "https://thefly.com/news.php",
				Options: map[string]string{
					"maxScrollAttempts": strconv.Itoa(10),
					"scrollDelay":       "5s",
					"pageParam":         "page",
				},
			},
		},
	}
}
