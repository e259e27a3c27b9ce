package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken      string
	DatabaseURL        string
	AchievementsDBPath string // local SQLite file for celebration dedup state
	WeeklyGoalMinutes  int    // 0 disables the weekly goal celebration
	LogLevel           string
	Environment        string
	CronSpecPrune      string // achievement store pruning schedule
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing
	// .env file is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AchievementsDBPath = os.Getenv("ACHIEVEMENTS_DB_PATH")
	if cfg.AchievementsDBPath == "" {
		cfg.AchievementsDBPath = "achievements.db"
	}

	weeklyGoalStr := os.Getenv("WEEKLY_GOAL_MINUTES")
	if weeklyGoalStr != "" {
		weeklyGoal, err := strconv.Atoi(weeklyGoalStr)
		if err != nil || weeklyGoal < 0 {
			return nil, fmt.Errorf("invalid WEEKLY_GOAL_MINUTES: %q", weeklyGoalStr)
		}
		cfg.WeeklyGoalMinutes = weeklyGoal
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecPrune = os.Getenv("CRON_SPEC_PRUNE")
	if cfg.CronSpecPrune == "" {
		cfg.CronSpecPrune = "0 3 * * *" // daily at 03:00
	}

	return cfg, nil
}
