// Package config provides configuration loading, validation, and management
// for the digest bot. It reads an optional YAML file, overlays environment
// variables and validates the result.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the root configuration of the application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig selects the SQL backend holding the message history.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	// Path is a file path for sqlite or a connection URL for postgres.
	Path string `mapstructure:"path" validate:"required"`
	// MaxRows caps every history query.
	MaxRows int `mapstructure:"max_rows" validate:"min=1,max=2000"`
}

// GeminiConfig configures the generative backend.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"     validate:"required"`
	ModelName   string  `mapstructure:"model_name"  validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	// BaseURL overrides the API endpoint. When empty and both AccountID and
	// GatewayName are set, the Cloudflare AI gateway URL is used.
	BaseURL           string `mapstructure:"base_url"     validate:"omitempty,url"`
	AccountID         string `mapstructure:"account_id"`
	GatewayName       string `mapstructure:"gateway_name"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	// BreakerFailures consecutive backend failures open the circuit for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=0"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=0"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// Mode is either "polling" or "webhook".
	Mode          string `mapstructure:"mode"           validate:"oneof=polling webhook"`
	WebhookURL    string `mapstructure:"webhook_url"    validate:"required_if=Mode webhook,omitempty,url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// ChannelProxyUsername is the account Telegram uses to relay anonymous
	// channel posts into groups.
	ChannelProxyUsername string `mapstructure:"channel_proxy_username" validate:"required"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// HTTPConfig configures the webhook and init endpoints.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"min=0"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig holds the schedule of a single task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// DigestConfig drives the scheduled summarizer.
type DigestConfig struct {
	Window     time.Duration `mapstructure:"window"      validate:"gt=0"`
	Retention  time.Duration `mapstructure:"retention"   validate:"gt=0"`
	Pause      time.Duration `mapstructure:"pause"       validate:"min=0"`
	SkipGroups []string      `mapstructure:"skip_groups"`
}

// PromptsConfig holds the instruction preambles sent to the backend.
type PromptsConfig struct {
	SummaryInstruction string `mapstructure:"summary_instruction" validate:"required"`
	SummaryOpening     string `mapstructure:"summary_opening"     validate:"required"`
	DigestOpening      string `mapstructure:"digest_opening"      validate:"required"`
	AskInstruction     string `mapstructure:"ask_instruction"     validate:"required"`
	AskContext         string `mapstructure:"ask_context"         validate:"required"`
}

// MessagesConfig holds the fixed replies of the bot.
type MessagesConfig struct {
	NotInGroup   string `mapstructure:"not_in_group"  validate:"required"`
	Status       string `mapstructure:"status"        validate:"required"`
	QueryUsage   string `mapstructure:"query_usage"   validate:"required"`
	QueryHeader  string `mapstructure:"query_header"`
	AskUsage     string `mapstructure:"ask_usage"     validate:"required"`
	SummaryUsage string `mapstructure:"summary_usage" validate:"required"`
}

// SkipSet returns the configured digest skip list as a set.
func (d DigestConfig) SkipSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.SkipGroups))
	for _, id := range d.SkipGroups {
		set[id] = struct{}{}
	}
	return set
}
