package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spidermesh/frontier/internal/config"
	"github.com/spidermesh/frontier/internal/log"
	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/scheduler"
	"github.com/spidermesh/frontier/internal/stats"
)

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [url...]",
		Short: "Enqueue start URLs into a job directory",
		Long: `Seed enqueues start URLs into a job directory's persistent queue.

The resulting directory holds the pending requests and the duplicate
filter state; a crawler pointed at it picks up exactly where seeding
(or a previous crawl) left off. Re-seeding an existing directory only
adds URLs that were never scheduled before.

Examples:
  # Seed a couple of URLs
  frontier seed --job-dir ./job http://example.com/ http://example.org/

  # Seed from a file, one URL per line
  frontier seed --job-dir ./job --list seeds.txt

  # Seed with elevated priority and per-host queue partitioning
  frontier seed --job-dir ./job --queue slot --priority 10 http://example.com/

Configuration file (.frontier) example:
  queue: slot
  disk_queue: fifo
  filter: sqlite`,
		Args: cobra.ArbitraryArgs,
		RunE: runSeedCmd,
	}

	cmd.Flags().StringP("job-dir", "j", "",
		"Job directory for persisted crawl state (default: "+filepath.Join("<xdg-data>", config.AppName, "default")+")")
	cmd.Flags().StringP("list", "l", "",
		"File with seed URLs, one per line ('#' starts a comment)")
	cmd.Flags().IntP("priority", "p", 0,
		"Priority for the seeded requests (higher is fetched sooner)")
	cmd.Flags().Bool("dont-filter", false,
		"Schedule the URLs even if identical requests were seen before")

	// Queue flags
	cmd.Flags().StringP("queue", "q", string(config.StrategyPlain),
		"Queue strategy: plain or slot")
	cmd.Flags().String("memory-queue", string(config.OrderLIFO),
		"Memory queue order: fifo or lifo")
	cmd.Flags().String("disk-queue", string(config.OrderFIFO),
		"Disk queue order: fifo or lifo")

	// Duplicate filter flags
	cmd.Flags().StringP("filter", "f", string(config.FilterMemory),
		"Duplicate filter backend: memory, sqlite, or redis")
	cmd.Flags().Bool("filter-debug", false,
		"Log every filtered duplicate instead of only the first")
	cmd.Flags().String("redis-addr", "",
		"Redis server address (host:port), required with --filter redis")
	cmd.Flags().String("redis-prefix", config.AppName+":",
		"Key prefix namespacing this crawl in a shared Redis instance")
	cmd.Flags().Duration("redis-ttl", 0,
		"Expire the Redis fingerprint set this long after the last insertion (0 keeps it)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .frontier in current or home directory)")

	return cmd
}

// runSeedCmd executes the seed command.
func runSeedCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	urls, err := collectSeeds(cmd, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no seed URLs provided (pass URLs as arguments or use --list)")
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	priority, err := cmd.Flags().GetInt("priority")
	if err != nil {
		return err
	}
	dontFilter, err := cmd.Flags().GetBool("dont-filter")
	if err != nil {
		return err
	}

	return runSeed(ctx, cmd, cfg, urls, priority, dontFilter, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the settings file and flags.
// Precedence: defaults < settings file < explicitly set flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPathFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly named a settings file it must exist; an
	// absent default file is fine.
	configPath := config.FindConfigFile(configPathFlag)
	if configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if configPathFlag != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPathFlag)
	}

	if err := applyFlag(cmd, "job-dir", &cfg.JobDir); err != nil {
		return nil, err
	}
	if cfg.JobDir == "" {
		cfg.JobDir = filepath.Join(config.XDGDataDir(), "default")
	}

	if err := applyFlag(cmd, "queue", (*string)(&cfg.Queue)); err != nil {
		return nil, err
	}
	if err := applyFlag(cmd, "memory-queue", (*string)(&cfg.MemoryQueue)); err != nil {
		return nil, err
	}
	if err := applyFlag(cmd, "disk-queue", (*string)(&cfg.DiskQueue)); err != nil {
		return nil, err
	}
	if err := applyFlag(cmd, "filter", (*string)(&cfg.Filter)); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("filter-debug") {
		cfg.FilterDebug, err = cmd.Flags().GetBool("filter-debug")
		if err != nil {
			return nil, err
		}
	}
	if err := applyFlag(cmd, "redis-addr", &cfg.RedisAddr); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("redis-prefix") {
		cfg.RedisPrefix, err = cmd.Flags().GetString("redis-prefix")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("redis-ttl") {
		cfg.RedisTTL, err = cmd.Flags().GetDuration("redis-ttl")
		if err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlag overlays a string flag onto dst when it was set.
func applyFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = value
	return nil
}

// collectSeeds gathers seed URLs from arguments and the --list file.
func collectSeeds(cmd *cobra.Command, args []string) ([]string, error) {
	urls := make([]string, 0, len(args))
	urls = append(urls, args...)

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath == "" {
		return urls, nil
	}

	f, err := os.Open(listPath) //nolint:gosec // user-provided seed list is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}

	return urls, nil
}

// runSeed enqueues the URLs and reports what happened.
func runSeed(ctx context.Context, cmd *cobra.Command, cfg *config.Config, urls []string, priority int, dontFilter bool, logger *slog.Logger) error {
	collector := stats.NewMemory()
	sched := scheduler.New(cfg,
		scheduler.WithLogger(logger),
		scheduler.WithStats(collector),
	)

	if err := sched.Open(ctx); err != nil {
		return fmt.Errorf("failed to open job directory %s: %w", cfg.JobDir, err)
	}

	startTime := time.Now()
	var enqueueErr error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			enqueueErr = err
			break
		}

		req := request.NewRequest(u)
		req.Priority = priority
		req.DontFilter = dontFilter

		if _, err := sched.EnqueueRequest(ctx, req); err != nil {
			enqueueErr = fmt.Errorf("failed to enqueue %s: %w", u, err)
			break
		}
	}

	reason := "finished"
	if enqueueErr != nil {
		reason = "shutdown"
	}
	if err := sched.Close(ctx, reason); err != nil {
		logger.Error("failed to close scheduler", "error", err)
		if enqueueErr == nil {
			enqueueErr = err
		}
	}
	if enqueueErr != nil {
		return enqueueErr
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d request(s) into %s (%d duplicate(s) filtered) in %s\n",
		collector.Get(stats.Enqueued),
		cfg.JobDir,
		collector.Get(stats.Filtered),
		elapsed.Round(time.Millisecond),
	)
	return nil
}
