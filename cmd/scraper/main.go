package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/profitstory/amazon-review-scraper/internal/auth"
	"github.com/profitstory/amazon-review-scraper/internal/browser"
	"github.com/profitstory/amazon-review-scraper/internal/config"
	"github.com/profitstory/amazon-review-scraper/internal/queue"
	"github.com/profitstory/amazon-review-scraper/internal/ratelimit"
	"github.com/profitstory/amazon-review-scraper/internal/report"
	"github.com/profitstory/amazon-review-scraper/internal/scrape"
	"github.com/profitstory/amazon-review-scraper/pkg/logger"
)

func main() {
	var (
		ownIDs        = flag.String("own", "", "Comma-separated product IDs of your own products (positive reviews)")
		competitorIDs = flag.String("competitors", "", "Comma-separated competitor product IDs (critical reviews)")
		insightURLs   = flag.String("insights", "", "Comma-separated product page URLs to scrape insights from")
		maxPages      = flag.Int("max-pages", 0, "Max review pages per product (0 = config default)")
		outputDir     = flag.String("output", "output", "Directory for CSV and report files")
		headless      = flag.Bool("headless", true, "Run browser in headless mode")
		profileDir    = flag.String("profile", "", "Persistent browser profile directory (keeps login across runs)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting Amazon review scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = resolveHeadless(flag.CommandLine, *headless, cfg.Browser.Headless)
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	if cfg.Browser.UserAgent != "" {
		browserOpts.UserAgent = cfg.Browser.UserAgent
	}
	if *profileDir != "" {
		browserOpts.ProfileDir = *profileDir
	} else {
		browserOpts.ProfileDir = cfg.Browser.ProfileDir
	}

	gate := auth.NewGate(auth.GateOptions{
		TargetDomain: cfg.Auth.TargetDomain,
		MaxAttempts:  cfg.Auth.MaxAttempts,
		PollInterval: cfg.Auth.PollInterval,
		Settle:       cfg.Scraper.SettleDelayMin,
	}, logger)

	orchestrator, err := scrape.New(scrape.Options{
		Sessions: func() (scrape.Session, error) { return browser.New(browserOpts) },
		Gate:     gate,
		Scraper:  cfg.Scraper,
		Limiter:  ratelimit.NewJitterLimiter(cfg.Scraper.PageDelayMin, cfg.Scraper.PageDelayMax),
	}, logger)
	if err != nil {
		logger.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	pages := *maxPages
	if pages < 1 {
		pages = cfg.Scraper.MaxPages
	}

	taskQueue := queue.NewInMemoryQueue()
	loadTasks(taskQueue, *ownIDs, true, pages, logger)
	loadTasks(taskQueue, *competitorIDs, false, pages, logger)
	taskQueue.Close()

	urls := splitList(*insightURLs)
	if taskQueue.Size() == 0 && len(urls) == 0 {
		fmt.Println("Nothing to scrape. Use -own, -competitors or -insights.")
		flag.Usage()
		os.Exit(1)
	}

	// Pacing between products, on top of the per-page delays.
	productLimiter := ratelimit.NewJitterLimiter(cfg.Scraper.PageDelayMin, cfg.Scraper.PageDelayMax)

	failures := 0

	for _, url := range urls {
		if ctx.Err() != nil {
			logger.Info("Context cancelled, exiting")
			return
		}
		if err := productLimiter.Wait(ctx); err != nil {
			return
		}

		run := orchestrator.ScrapeInsights(ctx, url)
		if run.Error != "" {
			failures++
		}

		name := run.ProductID
		if name == "" {
			name = run.ID.String()
		}
		path := filepath.Join(*outputDir, fmt.Sprintf("amazon_complete_data_%s.txt", name))
		if err := report.WriteInsightReport(path, run); err != nil {
			logger.Error("Failed to write insight report", "path", path, "error", err)
			failures++
			continue
		}
		logger.Info("Insight report written", "path", path, "success", run.Success)
	}

	for {
		if ctx.Err() != nil {
			logger.Info("Context cancelled, exiting")
			return
		}

		task, err := taskQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueEmpty) || errors.Is(err, queue.ErrQueueClosed) {
				break
			}
			logger.Error("Failed to get task from queue", "error", err)
			return
		}

		if err := productLimiter.Wait(ctx); err != nil {
			return
		}

		logger.Info("Processing product", "product_id", task.ProductID, "own_product", task.OwnProduct)

		records, run := orchestrator.ScrapeReviews(ctx, task.ProductID, task.OwnProduct, task.MaxPages)
		if run.Error != "" {
			logger.Error("Review scrape finished with error", "product_id", task.ProductID, "error", run.Error)
			failures++
		}
		if len(records) == 0 {
			logger.Warn("No reviews harvested", "product_id", task.ProductID)
			continue
		}

		polarity := "critical"
		if task.OwnProduct {
			polarity = "positive"
		}
		path := filepath.Join(*outputDir, fmt.Sprintf("reviews_%s_%s.csv", task.ProductID, polarity))
		if err := report.WriteReviewCSV(path, records); err != nil {
			logger.Error("Failed to write reviews CSV", "path", path, "error", err)
			failures++
			continue
		}
		logger.Info("Reviews written", "path", path, "records", len(records))
	}

	logger.Info("Scraping completed", "failures", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

// resolveHeadless prefers an explicitly set -headless flag over the
// BROWSER_HEADLESS config value.
func resolveHeadless(fs *flag.FlagSet, flagValue, configValue bool) bool {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			explicit = true
		}
	})
	if explicit {
		return flagValue
	}
	return configValue
}

func loadTasks(q queue.Queue, ids string, ownProduct bool, maxPages int, logger *slog.Logger) int {
	enqueued := 0
	for _, id := range splitList(ids) {
		if err := q.Push(queue.NewTask(id, ownProduct, maxPages)); err != nil {
			logger.Error("Failed to enqueue product", "product_id", id, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
