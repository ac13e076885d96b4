// Package app wires the pipeline together and runs it.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dailybrief/internal/ai"
	"dailybrief/internal/ai/gemini"
	"dailybrief/internal/ai/openai"
	"dailybrief/internal/brief"
	"dailybrief/internal/config"
	"dailybrief/internal/feed"
	"dailybrief/internal/fetch"
	"dailybrief/internal/logger"
	"dailybrief/internal/model"
	"dailybrief/internal/retry"
	"dailybrief/internal/scheduler"
	"dailybrief/internal/score"
	"dailybrief/internal/selector"
	"dailybrief/internal/store"
)

// Run loads configuration, assembles the pipeline and either generates one
// briefing (once=true) or stays up as a cron-driven daemon.
func Run(once bool) error {
	// Optional .env for local runs; deployed environments set real vars.
	_ = godotenv.Load()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if removed, err := st.CleanupOldArticles(ctx, cfg.RetentionDays); err != nil {
		logger.Warn("article cleanup failed", "error", err)
	} else if removed > 0 {
		logger.Info("old articles removed", "count", removed)
	}

	budget := ai.NewBudget(cfg.MaxRankRequests, cfg.MaxScriptRequests, cfg.MaxSpeechRequests, cfg.MaxAIRequests)

	var (
		ranker ai.Ranker
		writer ai.ScriptWriter
		synth  ai.SpeechSynthesizer
	)
	if cfg.GeminiAPIKey != "" {
		gem, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to init Gemini: %w", err)
		}
		defer gem.Close()
		ranker = gem
		writer = gem
	}
	if cfg.OpenAIAPIKey != "" {
		oc := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		synth = oc
		if ranker == nil {
			ranker = oc
		}
		if writer == nil {
			writer = oc
		}
	}

	customFeeds, err := loadCustomFeeds(cfg.CustomFeedsPath)
	if err != nil {
		return err
	}
	for _, src := range customFeeds {
		if _, err := st.AddSource(ctx, src); err != nil {
			logger.Warn("failed to register custom feed", "url", src.URL, "error", err)
		}
	}

	parser := feed.NewParser(cfg.FetchTimeout, cfg.DefaultLanguage)
	aggregator := fetch.New(parser, st, cfg.FetchConcurrency, retry.Config{
		MaxAttempts: cfg.FetchRetries + 1,
		Delay:       cfg.FetchRetryDelay,
		Backoff:     true,
	}, cfg.FeedCacheDuration)

	orch := brief.NewOrchestrator(brief.Options{
		Fetcher:     aggregator,
		Selector:    selector.New(score.New(), ranker, budget),
		Writer:      writer,
		Synthesizer: synth,
		Store:       st,
		Budget:      budget,
		PackIDs:     cfg.ContentPacks,
		Interests:   cfg.Interests,
		Language:    cfg.DefaultLanguage,
		AudioDir:    cfg.AudioDir,
		Length:      cfg.BriefingLength,
	})

	if once {
		return generate(ctx, orch)
	}

	if cfg.GenerationCron == "" {
		logger.Info("no generation schedule configured, running once")
		return generate(ctx, orch)
	}

	sched := scheduler.New()
	defer sched.Stop()
	err = sched.Schedule(cfg.GenerationCron, func() {
		if err := generate(ctx, orch); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	logger.Info("daemon started", "schedule", cfg.GenerationCron)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func generate(ctx context.Context, orch *brief.Orchestrator) error {
	briefing, err := orch.Generate(ctx, brief.Request{})
	if err != nil {
		return err
	}
	logger.Info("briefing generated",
		"date", briefing.Date,
		"articles", len(briefing.ArticleIDs),
		"duration_s", briefing.Duration,
		"audio", briefing.AudioPath)
	return nil
}

func loadCustomFeeds(path string) ([]model.ContentSource, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom feeds file: %w", err)
	}
	sources, err := feed.ParseCustomFeeds(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse custom feeds file: %w", err)
	}
	return sources, nil
}
