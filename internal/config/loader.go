package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/edgard/digestbot/internal/errs"
)

// legacyEnv binds configuration keys to the environment variable names used
// by earlier deployments of the bot, in addition to the BOT_ prefixed names.
var legacyEnv = map[string]string{
	"telegram.token":      "SECRET_TELEGRAM_API_TOKEN",
	"gemini.api_key":      "GEMINI_API_KEY",
	"gemini.model_name":   "DEFAULT_GEMINI_MODEL",
	"gemini.gateway_name": "CLOUD_FLARE_AI_GATEWAY_NAME",
	"gemini.account_id":   "account_id",
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. BOT_* environment variables and the legacy names in legacyEnv
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "BOT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, errs.Config("failed to bind environment", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, errs.Config("failed to read config file", err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Config("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.Config("invalid configuration", err)
	}

	return cfg, nil
}

// setDefaults sets default values for every known key so that AutomaticEnv
// can resolve them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.max_rows", DefaultDBMaxRows)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.account_id", "")
	v.SetDefault("gemini.gateway_name", "")
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.breaker_failures", DefaultGeminiBreakerFailures)
	v.SetDefault("gemini.breaker_cooldown", DefaultGeminiBreakerCooldown)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.mode", DefaultTelegramMode)
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.channel_proxy_username", DefaultChannelProxyUsername)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.read_header_timeout", DefaultHTTPReadHeaderTimeout)

	tasks := make(map[string]any, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}
	v.SetDefault("scheduler.tasks", tasks)

	v.SetDefault("digest.window", DefaultDigestWindow)
	v.SetDefault("digest.retention", DefaultDigestRetention)
	v.SetDefault("digest.pause", DefaultDigestPause)
	v.SetDefault("digest.skip_groups", []string{})

	v.SetDefault("prompts.summary_instruction", DefaultPrompts.SummaryInstruction)
	v.SetDefault("prompts.summary_opening", DefaultPrompts.SummaryOpening)
	v.SetDefault("prompts.digest_opening", DefaultPrompts.DigestOpening)
	v.SetDefault("prompts.ask_instruction", DefaultPrompts.AskInstruction)
	v.SetDefault("prompts.ask_context", DefaultPrompts.AskContext)

	v.SetDefault("messages.not_in_group", DefaultMessages.NotInGroup)
	v.SetDefault("messages.status", DefaultMessages.Status)
	v.SetDefault("messages.query_usage", DefaultMessages.QueryUsage)
	v.SetDefault("messages.query_header", DefaultMessages.QueryHeader)
	v.SetDefault("messages.ask_usage", DefaultMessages.AskUsage)
	v.SetDefault("messages.summary_usage", DefaultMessages.SummaryUsage)
}
