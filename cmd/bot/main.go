package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study_cycle_bot/internal/app"
	"study_cycle_bot/internal/infra/achievements"
	"study_cycle_bot/internal/infra/config"
	idb "study_cycle_bot/internal/infra/database"
	"study_cycle_bot/internal/infra/logger"
	"study_cycle_bot/internal/infra/scheduler"
	"study_cycle_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Authoritative engine storage.
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	cycleRepo := idb.NewPostgresCycleRepository(db)
	subjectRepo := idb.NewPostgresSubjectRepository(db)
	sessionRepo := idb.NewPostgresSessionRepository(db)

	// Local celebration dedup state. The gate stays closed (no celebrations)
	// until hydration completes.
	achievementStore, err := achievements.New(cfg.AchievementsDBPath)
	if err != nil {
		log.Fatalf("FATAL: Could not open achievements store: %v", err)
	}
	defer achievementStore.Close()
	if err := achievementStore.Hydrate(context.Background()); err != nil {
		log.Fatalf("FATAL: Could not hydrate achievements store: %v", err)
	}
	log.Info("Achievements store hydrated")

	cycleService := app.NewCycleService(cycleRepo, subjectRepo, achievementStore,
		logger.Get().WithField("component", "cycle_service"))
	sessionService := app.NewSessionService(sessionRepo, subjectRepo, cycleService, achievementStore,
		cfg.WeeklyGoalMinutes, logger.Get().WithField("component", "session_service"))

	maintScheduler := scheduler.NewMaintenanceScheduler(achievementStore,
		logger.Get().WithField("component", "scheduler"), cfg.CronSpecPrune)
	if err := maintScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start maintenance scheduler: %v", err)
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Bot handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}

	handlerCtx := context.Background()
	handlerLogger := logger.Get().WithField("component", "handlers")
	telegram.RegisterBotCommands(bot, handlerLogger)
	telegram.RegisterCycleHandlers(handlerCtx, bot, cycleService, sessionService, subjectRepo, handlerLogger)
	log.Info("Handlers registered. Bot is starting...")

	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	maintScheduler.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully")
}
