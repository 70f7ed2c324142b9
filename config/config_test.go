package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REMINDER_CRON", "")
	t.Setenv("REMINDER_WORKERS", "")
	t.Setenv("REMINDER_MARK_ON_FAILURE", "")
	t.Setenv("AUTO_EXPIRE_AFTER_DAYS", "")
	t.Setenv("MAIL_PROVIDER", "")
	t.Setenv("DB_DRIVER", "")

	cfg := LoadConfig()

	assert.Equal(t, "0 8 * * *", cfg.ReminderCron)
	assert.Equal(t, 4, cfg.ReminderWorkers)
	assert.True(t, cfg.ReminderMarkOnFailure)
	assert.Equal(t, 0, cfg.AutoExpireAfterDays)
	assert.Equal(t, "smtp", cfg.MailProvider)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("REMINDER_CRON", "30 7 * * *")
	t.Setenv("REMINDER_WORKERS", "0")
	t.Setenv("REMINDER_MARK_ON_FAILURE", "false")
	t.Setenv("AUTO_EXPIRE_AFTER_DAYS", "-4")
	t.Setenv("MAIL_PROVIDER", "SendGrid")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg := LoadConfig()

	assert.Equal(t, "30 7 * * *", cfg.ReminderCron)
	assert.Equal(t, 1, cfg.ReminderWorkers)
	assert.False(t, cfg.ReminderMarkOnFailure)
	assert.Equal(t, 0, cfg.AutoExpireAfterDays)
	assert.Equal(t, "sendgrid", cfg.MailProvider)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestGetEnvBool_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, getEnvBool("SOME_FLAG", true))
}
