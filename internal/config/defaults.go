package config

import "time"

// Default values for configuration
const (
	// Logger defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	// Database defaults
	DefaultDBDriver  = "sqlite"
	DefaultDBPath    = "storage.db"
	DefaultDBMaxRows = 2000

	// Gemini defaults
	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0
	DefaultGeminiMaxRetries  = 0
	DefaultGeminiRetryDelay  = 5

	DefaultGeminiBreakerFailures = 5
	DefaultGeminiBreakerCooldown = time.Minute

	// Telegram modes
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"

	// Telegram defaults
	DefaultTelegramMode         = TelegramModePolling
	DefaultChannelProxyUsername = "Channel_Bot"

	// HTTP defaults
	DefaultHTTPAddr              = ":8080"
	DefaultHTTPReadHeaderTimeout = 10 * time.Second

	// Digest defaults
	DefaultDigestWindow    = 24 * time.Hour
	DefaultDigestRetention = 30 * 24 * time.Hour
	DefaultDigestPause     = time.Minute

	// Task names
	TaskDailyDigest    = "daily_digest"
	TaskSQLMaintenance = "sql_maintenance"
)

// DefaultPrompts are the instruction preambles used when none are configured.
var DefaultPrompts = PromptsConfig{
	SummaryInstruction: "Summarize the following conversation in a tone that matches its style. If several topics came up, summarize each one as a separate bullet.",
	SummaryOpening:     "Begin the summary with: Group chat summary:",
	DigestOpening:      "Begin the summary with: Today's group chat summary:",
	AskInstruction:     "Answer this question in a tone that matches the conversation:",
	AskContext:         "The conversation so far:",
}

// DefaultMessages are the fixed replies used when none are configured.
var DefaultMessages = MessagesConfig{
	NotInGroup:   "I am a bot, please add me to a group to use me.",
	Status:       "Up and running.",
	QueryUsage:   "Please provide a keyword to search for, e.g. /query deploy",
	QueryHeader:  "Search results:",
	AskUsage:     "Please provide a question, e.g. /ask what did we decide yesterday?",
	SummaryUsage: "Please provide a time range or a message count, e.g. /summary 12h or /summary 300",
}

// DefaultTasks schedules the daily digest at 23:00 and weekly maintenance.
var DefaultTasks = map[string]TaskConfig{
	TaskDailyDigest:    {Enabled: true, Schedule: "0 0 23 * * *"},
	TaskSQLMaintenance: {Enabled: true, Schedule: "0 30 4 * * 0"},
}
