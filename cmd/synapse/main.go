// Copyright 2026 The Synapse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pjv-stack/synapse"
	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/diagnostics"
	"github.com/pjv-stack/synapse/ingestion"
	"github.com/pjv-stack/synapse/reembed"
	"github.com/pjv-stack/synapse/search"
)

func main() {
	app := &cli.App{
		Name:   "synapse",
		Usage:  "Hybrid knowledge retrieval over a file corpus",
		Flags:  globalFlags(),
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Ingest the corpus incrementally, or fully with --force",
				Action: ingestCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "corpus",
						Aliases:  []string{"c"},
						Usage:    "Path to the corpus root directory",
						EnvVars:  []string{"SYNAPSE_CORPUS"},
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild every artifact regardless of change detection",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid query and print the result as JSON",
				ArgsUsage: "<query terms>",
				Action:    searchCommand,
				Flags: searchFlags(),
			},
			{
				Name:   "health",
				Usage:  "Report per-component health and an overall rollup",
				Action: healthCommand,
				Flags: append(storeFlags(),
					&cli.DurationFlag{
						Name:    "max-age",
						Usage:   "Corpus age beyond which the index is reported stale",
						EnvVars: []string{"SYNAPSE_MAX_AGE"},
						Value:   24 * time.Hour,
					},
					&cli.BoolFlag{
						Name:  "heal",
						Usage: "Self-heal store inconsistencies before reporting",
					},
				),
			},
			{
				Name:   "watch",
				Usage:  "Watch the corpus and re-ingest on change until interrupted",
				Action: watchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "corpus",
						Aliases:  []string{"c"},
						Usage:    "Path to the corpus root directory",
						EnvVars:  []string{"SYNAPSE_CORPUS"},
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period after the last change before re-ingesting",
						Value: 500 * time.Millisecond,
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embedding records produced by an older model",
				Action: reembedCommand,
				Flags: append(storeFlags(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-embed every artifact regardless of model tag",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of artifacts to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N artifacts",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			EnvVars: []string{"SYNAPSE_LOG_LEVEL"},
			Value:   "info",
		},
	}
}

// storeFlags are shared by every command that opens the database.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the BadgerDB database directory",
			EnvVars:  []string{"SYNAPSE_DB"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{"SYNAPSE_EMBEDDING_HOST"},
			Value:   "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"SYNAPSE_EMBEDDING_MODEL"},
			Value:   "embeddinggemma",
		},
	}
}

func searchFlags() []cli.Flag {
	return append(storeFlags(),
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of primary matches",
			Value:   search.DefaultLimit,
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "Lifetime of cached query results",
			EnvVars: []string{"SYNAPSE_CACHE_TTL"},
			Value:   search.DefaultCacheTTL,
		},
	)
}

func openDatabase(c *cli.Context) (*synapse.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}

	db, err := synapse.NewDatabase(c.String("db"), synapse.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(c.String("corpus"))
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	summary, err := pipeline.Run(ctx, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return printJSON(summary)
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}
	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := search.NewCache(c.Duration("cache-ttl"))
	if err != nil {
		return fmt.Errorf("failed to create result cache: %w", err)
	}

	engine, err := db.NewSearchEngine(search.WithCache(cache))
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}
	defer engine.Close()

	result, err := engine.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return printJSON(result)
}

func healthCommand(c *cli.Context) error {
	ctx := c.Context

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	checker, err := db.NewDiagnostics(diagnostics.WithMaxAge(c.Duration("max-age")))
	if err != nil {
		return fmt.Errorf("failed to create diagnostics checker: %w", err)
	}

	if c.Bool("heal") {
		report, healErr := checker.CheckConsistency(ctx)
		if healErr != nil {
			return fmt.Errorf("consistency check failed: %w", healErr)
		}
		if !report.Consistent() {
			if healErr = checker.SelfHeal(ctx, report, db.Embedder()); healErr != nil {
				return fmt.Errorf("self-heal failed: %w", healErr)
			}
			fmt.Fprintf(os.Stderr, "healed %d orphaned and %d missing embedding records\n",
				report.HealedOrphans, report.HealedMissing)
		}
	}

	report := checker.Health(ctx)
	if err := printJSON(report); err != nil {
		return err
	}

	if report.Overall == diagnostics.StatusDown {
		return cli.Exit("", 1)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	root := c.String("corpus")
	pipeline, err := db.NewIngestionPipeline(root)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	// Catch up on changes made while the watcher was not running.
	if _, err := pipeline.Run(ctx, false); err != nil {
		return fmt.Errorf("initial ingestion failed: %w", err)
	}

	watcher, err := ingestion.NewWatcher(pipeline, root, ingestion.WithDebounce(c.Duration("debounce")))
	if err != nil {
		return fmt.Errorf("failed to create corpus watcher: %w", err)
	}
	defer watcher.Stop()

	slog.Info("watching corpus", "root", root)
	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := c.Context

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	reembedder := db.NewReembedder(reembedConfig, os.Stderr)
	count, err := reembedder.Run(ctx, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Re-embedded %d artifacts\n", count)
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
