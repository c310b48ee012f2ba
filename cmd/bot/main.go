package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pillbot/internal/bot"
	"pillbot/internal/bot/handlers"
	"pillbot/internal/config"
	"pillbot/internal/database"
	"pillbot/internal/llm"
	"pillbot/internal/logger"
	"pillbot/internal/meme"
	"pillbot/internal/notify"
	"pillbot/internal/repository"
	"pillbot/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	log := logger.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Info("Database migrations completed")

	llmClient := llm.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	log.Infof("Language model client initialized (model: %s, base: %s)", cfg.LLMModel, cfg.LLMBaseURL)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram API: %v", err)
	}

	repos := &handlers.Repositories{
		Users:        repository.NewUserRepository(db),
		Reminders:    repository.NewReminderRepository(db),
		States:       repository.NewReminderStateRepository(db),
		WorkStatuses: repository.NewWorkStatusRepository(db),
	}

	notifier := notify.NewTelegram(api, meme.NewClient(), log)

	sched := scheduler.New(
		repos.Reminders,
		repos.States,
		repos.WorkStatuses,
		notifier,
		cfg.ReminderInterval,
		log,
	)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()
	log.Infof("Scheduler started (re-notify every %s)", cfg.ReminderInterval)

	h := handlers.New(api, repos, llmClient, cfg.ReminderInterval, log)
	b := bot.New(api, h, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutting down...")
		cancel()
	}()

	log.Info("Starting bot...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}
