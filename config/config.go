// Package config loads the service configuration from a config file, .env
// files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"meeting_minutes_publisher/publisher"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Notion     NotionConfig     `mapstructure:"notion"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Drive      DriveConfig      `mapstructure:"drive"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	WebhookPath string `mapstructure:"webhook_path"`
	// WebhookToken, when set, must accompany every POST.
	WebhookToken    string        `mapstructure:"webhook_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

type NotionConfig struct {
	APIKey        string `mapstructure:"api_key"`
	ParentID      string `mapstructure:"parent_id"`
	ParentType    string `mapstructure:"parent_type"`
	TitleProperty string `mapstructure:"title_property"`
}

type SlackConfig struct {
	BotToken          string        `mapstructure:"bot_token"`
	Channel           string        `mapstructure:"channel"`
	Mode              string        `mapstructure:"mode"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	Username          string        `mapstructure:"username"`
	IconEmoji         string        `mapstructure:"icon_emoji"`
	UsernameFromAdmin bool          `mapstructure:"username_from_admin"`
	LookupInterval    time.Duration `mapstructure:"lookup_interval"`
	// NotifyEmail enables the direct-message step.
	NotifyEmail string `mapstructure:"notify_email"`
}

type DriveConfig struct {
	// Enabled turns on the upload step; reading transcripts only needs credentials.
	Enabled            bool   `mapstructure:"enabled"`
	FolderID           string `mapstructure:"folder_id"`
	Encoding           string `mapstructure:"encoding"`
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	RedirectURL        string `mapstructure:"redirect_url"`
	RefreshToken       string `mapstructure:"refresh_token"`
	ServiceAccountPath string `mapstructure:"service_account_path"`
}

type TranscriptConfig struct {
	FallbackPath   string `mapstructure:"fallback_path"`
	RequireKeyword bool   `mapstructure:"require_keyword"`
	MaxBytes       int64  `mapstructure:"max_bytes"`
}

type PipelineConfig struct {
	Policy string `mapstructure:"policy"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	WithSource bool   `mapstructure:"with_source"`
}

// Well-known variable names, bound in addition to the MINUTES_* form.
var envAliases = map[string][]string{
	"llm.api_key":                {"GEMINI_API_KEY", "OPENAI_API_KEY"},
	"notion.api_key":             {"NOTION_API_KEY"},
	"notion.parent_id":           {"NOTION_PAGE_ID"},
	"slack.bot_token":            {"SLACK_BOT_TOKEN"},
	"slack.channel":              {"CHANNEL_NAME"},
	"slack.notify_email":         {"USER_EMAIL"},
	"drive.folder_id":            {"PARENT_FOLDER_ID"},
	"drive.client_id":            {"GOOGLE_OAUTH_CLIENT_ID"},
	"drive.client_secret":        {"GOOGLE_OAUTH_CLIENT_SECRET"},
	"drive.redirect_url":         {"GOOGLE_OAUTH_REDIRECT_URL"},
	"drive.refresh_token":        {"GOOGLE_OAUTH_REFRESH_TOKEN"},
	"drive.service_account_path": {"GOOGLE_SERVICE_ACCOUNT_PATH"},
	"server.webhook_token":       {"GOOGLE_WEBHOOK_TOKEN"},
}

var dotenvFiles = []string{".env.local", ".env"}

// Load reads cfgFile (or config/config.* and ./config.* when empty), .env
// files and the environment, then validates the result. Existing environment
// variables win over .env entries.
func Load(cfgFile string) (*Config, error) {
	if err := loadDotenv(dotenvFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MINUTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, "MINUTES_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func loadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.language", "Brazilian Portuguese")

	v.SetDefault("notion.parent_type", "page")
	v.SetDefault("notion.title_property", "Name")

	v.SetDefault("slack.mode", "blocks")
	v.SetDefault("slack.chunk_size", 3000)
	v.SetDefault("slack.username", "ATABot")
	v.SetDefault("slack.icon_emoji", ":memo:")
	v.SetDefault("slack.username_from_admin", false)
	v.SetDefault("slack.lookup_interval", 100*time.Millisecond)

	v.SetDefault("drive.enabled", false)
	v.SetDefault("drive.encoding", publisher.EncodingStream)

	v.SetDefault("transcript.fallback_path", "")
	v.SetDefault("transcript.require_keyword", false)
	v.SetDefault("transcript.max_bytes", 10<<20)

	v.SetDefault("pipeline.policy", "fail_fast")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.with_source", false)
}

var urlPath = regexp.MustCompile(`^/[A-Za-z0-9/_.-]*$`)

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.LLM),
		validation.Field(&c.Notion),
		validation.Field(&c.Slack),
		validation.Field(&c.Drive),
		validation.Field(&c.Transcript),
		validation.Field(&c.Pipeline),
		validation.Field(&c.Logging),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.WebhookPath, validation.Required, validation.Match(urlPath)),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (l LLMConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Provider, validation.Required, validation.In("openai", "gemini", "deepseek", "mock")),
		validation.Field(&l.BaseURL, validation.When(l.Provider == "deepseek", validation.Required)),
	)
}

func (n NotionConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ParentID, publisher.IDRule),
		validation.Field(&n.ParentType, validation.In("page", "database")),
	)
}

func (s SlackConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Mode, validation.In("blocks", "file")),
		validation.Field(&s.ChunkSize, validation.Min(1), validation.Max(3000)),
		validation.Field(&s.LookupInterval, validation.Min(time.Duration(0))),
	)
}

func (d DriveConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FolderID, validation.When(d.Enabled, validation.Required)),
		validation.Field(&d.Encoding, validation.In(publisher.EncodingStream, publisher.EncodingBuffer)),
	)
}

func (t TranscriptConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.MaxBytes, validation.Min(int64(0))),
	)
}

func (p PipelineConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Policy, validation.In("fail_fast", "isolated")),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// DriveConfigured reports whether any Drive credential is present.
func (d DriveConfig) DriveConfigured() bool {
	return d.RefreshToken != "" || d.ServiceAccountPath != ""
}
