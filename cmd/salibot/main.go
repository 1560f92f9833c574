package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cryptomagiciian/sali-bot/internal/classify"
	"github.com/cryptomagiciian/sali-bot/internal/config"
	"github.com/cryptomagiciian/sali-bot/internal/engine"
	"github.com/cryptomagiciian/sali-bot/internal/kalshi"
	"github.com/cryptomagiciian/sali-bot/internal/scoring"
	"github.com/cryptomagiciian/sali-bot/internal/storage"
	"github.com/cryptomagiciian/sali-bot/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg.Logging)
	log.Info().Str("path", *configPath).Msg("Configuration loaded")

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.APIKey, cfg.Kalshi.Timeout,
		kalshi.ClientConfig{
			MaxRetries:     cfg.Kalshi.MaxRetries,
			RetryDelayBase: cfg.Kalshi.RetryDelayBase,
			RequestsPerSec: cfg.Kalshi.RequestsPerSec,
		})

	rules := classify.DefaultRules()
	if cfg.Agent.GameLeaguePath != "" {
		if err := rules.LoadGameLeagues(cfg.Agent.GameLeaguePath); err != nil {
			log.Warn().Err(err).Msg("Failed to load game league map")
		}
	}
	classifier := classify.NewClassifier(rules)
	matcher := classify.NewCategoryMatcher(classify.DefaultCategoryRules())

	eventDate, err := cfg.EventDate()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid event date")
	}
	agent := scoring.NewAgent(store, scoring.AgentConfig{
		EventDate: eventDate,
		EventName: cfg.Agent.EventName,
		Window:    cfg.Agent.SnapshotWindow,
	})

	ledger := engine.NewLedger(store, cfg.Engine.Cooldown, cfg.Engine.MaxSignalsPerHour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier *telegram.Client
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase, store)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram client")
		}
		notifier.ListenForCommands(ctx)
		log.Info().Msg("Telegram client initialized")
	} else {
		log.Debug().Msg("Telegram notifications disabled")
	}

	var sink engine.Notifier
	if notifier != nil {
		sink = notifier
	}
	eng := engine.New(client, store, ledger, agent, classifier, matcher, sink, engine.Config{
		EdgeThreshold:       cfg.Engine.EdgeThreshold,
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		SpreadThreshold:     cfg.Engine.SpreadThreshold,
		TopNOverride:        cfg.Engine.TopNPerCategory,
		CategoryScan:        cfg.Engine.CategoryScan,
		DiscoveryInterval:   cfg.Engine.DiscoveryInterval,
		MarketLimit:         cfg.Kalshi.Limit,
		DryRun:              cfg.Engine.DryRun,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	log.Info().
		Dur("poll_interval", cfg.Kalshi.PollInterval).
		Float64("edge_threshold", cfg.Engine.EdgeThreshold).
		Bool("category_scan", cfg.Engine.CategoryScan).
		Bool("dry_run", cfg.Engine.DryRun).
		Msg("Starting signal service")

	ticker := time.NewTicker(cfg.Kalshi.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			log.Error().Err(err).Int("consecutive", consecutiveFailures).Msg("Cycle failed")
			if consecutiveFailures == 1 && notifier != nil {
				if sendErr := notifier.SendError(err); sendErr != nil {
					log.Warn().Err(sendErr).Msg("Failed to send error notification")
				}
			}
			return
		}
		if consecutiveFailures > 0 && notifier != nil {
			if sendErr := notifier.SendRecovery(consecutiveFailures); sendErr != nil {
				log.Warn().Err(sendErr).Msg("Failed to send recovery notification")
			}
		}
		consecutiveFailures = 0
	}

	handleCycleResult(eng.RunCycle(ctx))

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Service stopped")
			return
		case <-ticker.C:
			handleCycleResult(eng.RunCycle(ctx))
		}
	}
}

func initLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
