package config

import (
	"fmt"
	"os"
	"strconv"

	"conciliador/internal/logger"
)

type Config struct {
	// Fiscal Configuration
	ExpectedRecipientRFC string // Tax ID invoices must be addressed to
	TargetYear           int    // Only invoices issued in this year are accepted

	// Ledger Configuration
	LedgerFilename string // Workbook filename autodetected inside the source folder

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	targetYear, err := strconv.Atoi(getEnv("TARGET_YEAR", "2026"))
	if err != nil {
		return nil, fmt.Errorf("TARGET_YEAR must be a number: %w", err)
	}

	config := &Config{
		ExpectedRecipientRFC: getEnv("EXPECTED_RECIPIENT_RFC", "MES2301274X9"),
		TargetYear:           targetYear,
		LedgerFilename:       getEnv("LEDGER_FILENAME", "FICHERO_CONTROL_2026.xlsx"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ExpectedRecipientRFC == "" {
		return fmt.Errorf("EXPECTED_RECIPIENT_RFC is required")
	}
	if c.TargetYear < 2000 || c.TargetYear > 2100 {
		return fmt.Errorf("TARGET_YEAR out of range: %d", c.TargetYear)
	}
	if c.LedgerFilename == "" {
		return fmt.Errorf("LEDGER_FILENAME is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
