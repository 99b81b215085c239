package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"sublet-scraper/config"
	"sublet-scraper/scraper"
	"sublet-scraper/services"
	"sublet-scraper/storage"
	"sublet-scraper/utils"
)

const (
	exitOK     = 0
	exitSink   = 1
	exitConfig = 2
)

type sourceFlags []string

func (s *sourceFlags) String() string { return strings.Join(*s, ",") }

func (s *sourceFlags) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			*s = append(*s, p)
		}
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var selected sourceFlags
	flag.Var(&selected, "source", "run a single source (repeatable)")
	flag.Var(&selected, "sources", "comma-separated sources to run")
	dryRun := flag.Bool("dry-run", false, "run everything but skip all sink writes")
	schedule := flag.String("schedule", "", `cron schedule to run repeatedly, e.g. "@every 2h" (overrides SCHEDULE)`)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nSources: %s\n\n",
			os.Args[0], strings.Join(config.KnownSources(), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	if *schedule != "" {
		cfg.Schedule = *schedule
	}

	names := cfg.SelectedSources(selected)
	if err := cfg.Validate(names, *dryRun); err != nil {
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			for _, p := range ce.Problems {
				logger.Error("[config] %s", p)
			}
		} else {
			logger.Error("[config] %v", err)
		}
		return exitConfig
	}

	logger.Info("=== NYC sublet scraper starting ===")
	logger.Info("Sources: %s | store: %s | weights: %d/%d/%d/%d/%d | fuzzy: %d | window: %s..%s",
		strings.Join(names, ", "), cfg.Store,
		cfg.Weights.Location, cfg.Weights.Price, cfg.Weights.Type, cfg.Weights.Timing, cfg.Weights.Bonus,
		cfg.FuzzyThreshold, cfg.TargetStart.Format("2006-01-02"), cfg.TargetEnd.Format("2006-01-02"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger, *dryRun)
	if err != nil {
		logger.Error("[main] %v", err)
		return exitSink
	}
	defer store.Close()

	set, err := scraper.Build(names, cfg, logger)
	if err != nil {
		logger.Error("[main] %v", err)
		return exitConfig
	}
	defer set.Close()

	pipeline := services.NewPipeline(cfg, store, set.Sources, logger)
	insights := services.NewInsightService(logger)
	opts := services.RunOptions{DryRun: *dryRun}

	if cfg.Schedule == "" {
		return runOnce(ctx, pipeline, insights, opts, logger)
	}
	return runScheduled(ctx, cfg.Schedule, pipeline, insights, opts, logger)
}

// openStore opens the configured store. A dry run never writes, so when the
// store is unreachable it falls back to an empty in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger, dryRun bool) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg, logger)
	if err == nil {
		return store, nil
	}
	if dryRun {
		logger.Warn("[main] %s store unavailable (%v), dry run continues with an empty memory store", cfg.Store, err)
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
}

func runOnce(ctx context.Context, p *services.Pipeline, insights *services.InsightService, opts services.RunOptions, logger *utils.Logger) int {
	report, err := p.Run(ctx, opts)
	if report != nil {
		insights.Print(report, insights.Generate(report.Accepted))
	}
	if err != nil {
		// Run only returns sink failures
		logger.Error("[main] run failed: %v", err)
		return exitSink
	}
	return exitOK
}

// runScheduled runs the pipeline on schedule until the process is signalled.
// A run still in progress when the next tick fires makes that tick a no-op.
func runScheduled(ctx context.Context, schedule string, p *services.Pipeline, insights *services.InsightService, opts services.RunOptions, logger *utils.Logger) int {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if code := runOnce(ctx, p, insights, opts, logger); code != exitOK {
			logger.Warn("[main] scheduled run ended with errors, next run retries")
		}
	})
	if err != nil {
		logger.Error("[config] invalid schedule %q: %v", schedule, err)
		return exitConfig
	}

	logger.Info("[main] scheduled mode: %q, Ctrl+C to stop", schedule)
	c.Start()
	<-ctx.Done()

	logger.Info("[main] shutting down, waiting for the current run")
	<-c.Stop().Done()
	return exitOK
}
