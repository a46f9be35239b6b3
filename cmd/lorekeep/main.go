// Copyright 2025 Poiesic Systems
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lorekeep",
		Usage: "Ingest web pages, documents and text into an agent knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   defaultConfigFile,
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"LOREKEEP_DB"},
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "crawl-url",
				Usage: "Crawl service API root",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Maximum chunk length in characters",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Characters shared by neighbouring chunks",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts for embedding calls",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "add-url",
				Usage:     "Crawl a web page and add it as a source",
				ArgsUsage: "URL",
				Action:    addURLCommand,
				Flags: []cli.Flag{
					agentFlag(),
					&cli.StringFlag{Name: "description", Usage: "Description stored with the source"},
				},
			},
			{
				Name:      "add-files",
				Usage:     "Extract text from documents and add them as one source",
				ArgsUsage: "FILE...",
				Action:    addFilesCommand,
				Flags: []cli.Flag{
					agentFlag(),
					&cli.StringFlag{Name: "description", Usage: "Description stored with the source"},
				},
			},
			{
				Name:   "add-text",
				Usage:  "Add pasted text as a source (reads stdin when --text is not given)",
				Action: addTextCommand,
				Flags: []cli.Flag{
					agentFlag(),
					&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Text content"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Source name"},
					&cli.StringFlag{Name: "description", Usage: "Description stored with the source"},
				},
			},
			{
				Name:   "list",
				Usage:  "List sources, optionally for one agent",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Only list sources of this agent"},
				},
			},
			{
				Name:   "show",
				Usage:  "Show a source",
				Action: showCommand,
				Flags: []cli.Flag{
					idFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Print the source record as JSON"},
					&cli.BoolFlag{Name: "chunks", Usage: "Also print the source's chunks"},
				},
			},
			{
				Name:   "edit-text",
				Usage:  "Replace the content of a text source and reprocess it",
				Action: editTextCommand,
				Flags: []cli.Flag{
					idFlag(),
					&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "New text content (reads stdin when not given)"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New source name"},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a source and its chunks",
				Action: deleteCommand,
				Flags:  []cli.Flag{idFlag()},
			},
			{
				Name:   "retrain",
				Usage:  "Rechunk and re-embed one source",
				Action: retrainCommand,
				Flags:  []cli.Flag{idFlag()},
			},
			{
				Name:   "reprocess",
				Usage:  "Rechunk and re-embed every source, resuming an interrupted run",
				Action: reprocessCommand,
			},
		},
	}
}

func agentFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "agent",
		Aliases:  []string{"a"},
		Usage:    "Agent UUID that owns the source",
		Required: true,
	}
}

func idFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "id",
		Usage:    "Source ID",
		Required: true,
	}
}

// setup loads .env and configures logging.
func setup(c *cli.Context) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return setupLogger(c)
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
