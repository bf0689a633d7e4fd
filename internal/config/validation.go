package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if (c.Gemini.AccountID == "") != (c.Gemini.GatewayName == "") {
		return fmt.Errorf("gemini.account_id and gemini.gateway_name must be set together")
	}

	if c.Telegram.Mode == TelegramModeWebhook && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required in webhook mode")
	}

	for name := range c.Scheduler.Tasks {
		if name != TaskDailyDigest && name != TaskSQLMaintenance {
			return fmt.Errorf("scheduler.tasks: unknown task %q", name)
		}
	}

	return nil
}
