package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/rahul/khoji/internal/browser"
	"github.com/rahul/khoji/internal/faults"
	"github.com/rahul/khoji/internal/observability"
	"github.com/rahul/khoji/internal/research"
	"github.com/rahul/khoji/pkg/config"
)

var stressTopics = []string{
	"quantum computing breakthroughs",
	"renewable energy storage",
	"artificial intelligence ethics",
	"space tourism industry",
	"gene therapy advances",
	"autonomous vehicle safety",
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.Load("khoji.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		return err
	}
	defer logger.Sync()

	switch command {
	case "worker":
		return runWorker(cfg, logger)
	case "demo":
		if len(args) == 0 {
			printUsage()
			return nil
		}
		return runDemo(cfg, logger, strings.Join(args, " "))
	case "stress":
		return runStress(cfg, logger)
	default:
		printUsage()
		return nil
	}
}

func printUsage() {
	fmt.Println("Usage: khoji <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  worker         run a research step worker")
	fmt.Println("  demo <topic>   run one research task and print the summary")
	fmt.Println("  stress         run six research tasks concurrently and print a tally")
}

func runWorker(cfg *config.Config, logger *zap.Logger) error {
	observability.PrintBanner()

	model, err := buildModel(cfg)
	if err != nil {
		// The worker still starts: each search step surfaces the missing
		// credential as a non-retryable configuration error instead.
		logger.Warn("LLM unavailable, search steps will fail fast", zap.Error(err))
	}

	sessions := browser.NewChromeFactory(browser.Config{
		Headful:     cfg.Headful,
		RemoteWS:    cfg.RemoteBrowserWS,
		RemoteToken: cfg.RemoteBrowserToken,
	}, model, logger)

	classifier := faults.NewClassifier()
	classifier.MarkFatal(browser.ErrNoCredential)
	// Collaborator failures no retry can fix.
	_ = classifier.MarkFatalPattern(`(?i)(missing|invalid|incorrect).*(api key|credential)`)
	_ = classifier.MarkFatalPattern(`(?i)unauthorized`)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Error("failed to prepare output directory", zap.String("dir", cfg.OutputDir), zap.Error(err))
		return err
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Error("failed to reach the orchestrator", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		return err
	}
	defer c.Close()

	w := worker.New(c, research.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.MaxConcurrentSteps,
		WorkerActivitiesPerSecond:          cfg.StepsPerSecond,
	})
	w.RegisterWorkflow(research.ResearchWorkflow)
	w.RegisterActivity(research.NewActivities(sessions, faults.NewSimulator(cfg.ChaosEnabled), classifier, cfg.OutputDir))

	logger.Info("worker listening",
		zap.String("queue", research.TaskQueue),
		zap.Int("max_concurrent_steps", cfg.MaxConcurrentSteps),
		zap.Float64("steps_per_second", cfg.StepsPerSecond),
		zap.Bool("chaos", cfg.ChaosEnabled))

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		return err
	}
	return nil
}

func buildModel(cfg *config.Config) (llms.Model, error) {
	provider, key := cfg.LLMCredential()
	switch provider {
	case "openai":
		return openai.New(openai.WithToken(key), openai.WithModel(cfg.ModelName(provider)))
	case "anthropic":
		return anthropic.New(anthropic.WithToken(key), anthropic.WithModel(cfg.ModelName(provider)))
	default:
		return nil, browser.ErrNoCredential
	}
}

func runDemo(cfg *config.Config, logger *zap.Logger, topic string) error {
	observability.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Error("failed to reach the orchestrator", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		return err
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "research-" + uuid.NewString(),
		TaskQueue: research.TaskQueue,
	}, research.ResearchWorkflow, research.ResearchTask{Topic: topic, ResearcherID: "demo-researcher"})
	if err != nil {
		logger.Error("failed to start research", zap.Error(err))
		return err
	}

	logger.Info("research started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("topic", topic))

	done := make(chan struct{})
	go pollProgress(ctx, c, logger, run.GetID(), run.GetRunID(), done)

	var summary string
	err = run.Get(ctx, &summary)
	close(done)
	if err != nil {
		observability.PrintFailure(topic, err)
		return err
	}
	observability.PrintSuccess(summary)
	return nil
}

// pollProgress narrates the workflow's progress record while the caller
// waits on the result.
func pollProgress(ctx context.Context, c client.Client, logger *zap.Logger, workflowID, runID string, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := c.QueryWorkflow(ctx, workflowID, runID, research.ProgressQuery)
			if err != nil {
				// The first workflow task may not have run yet.
				continue
			}
			var progress research.ResearchProgress
			if err := resp.Get(&progress); err != nil {
				continue
			}
			logger.Info("progress",
				zap.String("state", string(progress.State)),
				zap.Bool("search", progress.SearchCompleted),
				zap.Bool("report", progress.ReportGenerated),
				zap.Int("results", len(progress.SearchResults)))
		}
	}
}

func runStress(cfg *config.Config, logger *zap.Logger) error {
	observability.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Error("failed to reach the orchestrator", zap.String("address", cfg.TemporalAddress), zap.Error(err))
		return err
	}
	defer c.Close()

	tracker := observability.NewRunTracker()
	trackerDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-trackerDone:
				return
			case <-ticker.C:
				inflight, succeeded, failed := tracker.Snapshot()
				logger.Info("stress progress",
					zap.Int("inflight", inflight),
					zap.Int("succeeded", succeeded),
					zap.Int("failed", failed))
			}
		}
	}()

	type outcome struct {
		topic string
		err   error
	}
	outcomes := make(chan outcome, len(stressTopics))

	// Every task is started and awaited independently; one failure never
	// cancels the rest of the batch.
	var wg sync.WaitGroup
	for i, topic := range stressTopics {
		wg.Add(1)
		go func(n int, topic string) {
			defer wg.Done()
			tracker.Started()
			err := startAndAwait(ctx, c, topic, fmt.Sprintf("stress-%d", n))
			tracker.Finished(err)
			outcomes <- outcome{topic: topic, err: err}
		}(i+1, topic)
	}

	wg.Wait()
	close(outcomes)
	close(trackerDone)

	succeeded, failed := 0, 0
	for o := range outcomes {
		if o.err != nil {
			failed++
			logger.Warn("research failed", zap.String("topic", o.topic), zap.Error(o.err))
		} else {
			succeeded++
			logger.Info("research succeeded", zap.String("topic", o.topic))
		}
	}
	logger.Info("stress batch settled",
		zap.Duration("elapsed", tracker.Elapsed()),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	observability.PrintTally(succeeded, failed)
	cleanupStress(logger)
	return nil
}

// startAndAwait runs one research workflow to settlement.
func startAndAwait(ctx context.Context, c client.Client, topic, researcherID string) error {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "research-" + uuid.NewString(),
		TaskQueue: research.TaskQueue,
	}, research.ResearchWorkflow, research.ResearchTask{Topic: topic, ResearcherID: researcherID})
	if err != nil {
		return fmt.Errorf("failed to start research for %q: %w", topic, err)
	}
	var summary string
	return run.Get(ctx, &summary)
}

// cleanupStress is the batch's post-run hook. Nothing needs tearing down
// today: sessions are released per step and the client closes on return.
func cleanupStress(logger *zap.Logger) {
	logger.Info("stress cleanup complete")
}
