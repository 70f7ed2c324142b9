package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port string

	DBDriver   string // postgres, mysql or sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBDsn      string // overrides the individual DB_* parts when set

	JWTKey        string
	SaltRound     int
	TokenTTLHours int
	AdminAPIKey   string

	MailProvider   string // smtp, sendgrid or log
	EmailSender    string
	Password       string // SMTP Password
	SMTPHost       string
	SMTPPort       string
	SendgridAPIKey string

	ReminderCron          string
	ReminderWorkers       int
	ReminderMarkOnFailure bool
	AutoExpireAfterDays   int

	RedisURL string
	LogLevel string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port: getEnv("PORT", "3000"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "subminder"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBDsn:      getEnv("DB_DSN", ""),

		JWTKey:        getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound:     getEnvInt("SALT_ROUND", 10),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),

		MailProvider:   strings.ToLower(getEnv("MAIL_PROVIDER", "smtp")),
		EmailSender:    getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:       getEnv("PASSWORD", "defaultSecret"),
		SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		// Daily at 8 AM server time
		ReminderCron:          getEnv("REMINDER_CRON", "0 8 * * *"),
		ReminderWorkers:       getEnvInt("REMINDER_WORKERS", 4),
		ReminderMarkOnFailure: getEnvBool("REMINDER_MARK_ON_FAILURE", true),
		AutoExpireAfterDays:   getEnvInt("AUTO_EXPIRE_AFTER_DAYS", 0),

		RedisURL: getEnv("REDIS_URL", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.ReminderWorkers < 1 {
		log.Printf("Warning: REMINDER_WORKERS=%d is invalid, falling back to 1.", AppConfig.ReminderWorkers)
		AppConfig.ReminderWorkers = 1
	}
	if AppConfig.AutoExpireAfterDays < 0 {
		AppConfig.AutoExpireAfterDays = 0
	}

	return AppConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return boolValue
}
