package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/poiesic/lorekeep"
	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/extract"
	"github.com/poiesic/lorekeep/ingestion"
	"github.com/poiesic/lorekeep/processing"
	"github.com/urfave/cli/v2"
)

// errorReport is printed in place of a processing result when processing fails.
type errorReport struct {
	Error string `json:"error"`
}

type queuedReport struct {
	Queued bool `json:"queued"`
}

func openDatabase(c *cli.Context) (*lorekeep.Database, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.databaseOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, lorekeep.WithLogger(slog.Default()))

	db, err := lorekeep.NewDatabase(cfg.Database, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseAgent(s string) (uuid.UUID, error) {
	agentID, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid agent ID %q: %w", s, err)
	}
	if agentID == uuid.Nil {
		return uuid.Nil, errors.New("agent ID must not be the nil UUID")
	}
	return agentID, nil
}

// readText returns the --text flag or, when it is empty, all of stdin.
func readText(c *cli.Context) (string, error) {
	if c.IsSet("text") {
		return c.String("text"), nil
	}
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func addURLCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one URL is required")
	}
	return addSource(c, ingestion.URLInput{
		URL:         c.Args().First(),
		Description: c.String("description"),
	})
}

func addFilesCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	paths := c.Args().Slice()
	files, unreadable := collectFiles(paths, cfg.MaxFileSize)
	if len(files) == 0 {
		return fmt.Errorf("failed to add source: %w", &ingestion.BatchError{
			Err:     core.NewIngestError(core.KindEmptyContent, "", fmt.Sprintf("none of %d files could be read", len(paths)), nil),
			Skipped: unreadable,
		})
	}
	return addSource(c, ingestion.FilesInput{
		Files:       files,
		Description: c.String("description"),
	}, unreadable...)
}

// collectFiles stats every path before reading it. Files over limit are
// passed on with only their size so extraction rejects them as too large.
// Paths that cannot be read are returned as failures and never abort the
// rest of the batch.
func collectFiles(paths []string, limit int64) ([]extract.File, []*core.IngestError) {
	if limit <= 0 {
		limit = extract.DefaultMaxSize
	}

	files := make([]extract.File, 0, len(paths))
	var failed []*core.IngestError
	for _, path := range paths {
		name := filepath.Base(path)
		f := extract.File{Name: name, MediaType: extract.ResolveMediaType(name, "")}

		info, err := os.Stat(path)
		if err != nil {
			failed = append(failed, core.NewIngestError(core.KindExtractionError, name, "failed to read file", err))
			continue
		}
		if info.IsDir() {
			failed = append(failed, core.NewIngestError(core.KindExtractionError, name, "is a directory", nil))
			continue
		}

		f.Size = info.Size()
		if f.Size <= limit {
			if f.Content, err = os.ReadFile(path); err != nil {
				failed = append(failed, core.NewIngestError(core.KindExtractionError, name, "failed to read file", err))
				continue
			}
			f.Size = int64(len(f.Content))
		}
		files = append(files, f)
	}
	return files, failed
}

func addTextCommand(c *cli.Context) error {
	text, err := readText(c)
	if err != nil {
		return err
	}
	return addSource(c, ingestion.TextInput{
		Text:        text,
		Name:        c.String("name"),
		Description: c.String("description"),
	})
}

// addSource ingests input for the --agent flag. unreadable lists files that
// never reached ingestion; they are reported with the other skipped files.
func addSource(c *cli.Context, input ingestion.Input, unreadable ...*core.IngestError) error {
	agentID, err := parseAgent(c.String("agent"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.AddSource(c.Context, agentID, input)
	if err != nil {
		printSkipped(c.App.Writer, unreadable)
		return fmt.Errorf("failed to add source: %w", err)
	}
	return printAddResult(c.App.Writer, result, unreadable)
}

func listCommand(c *cli.Context) error {
	agentID := uuid.Nil
	if c.IsSet("agent") {
		var err error
		if agentID, err = parseAgent(c.String("agent")); err != nil {
			return err
		}
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	sources, err := db.Sources(c.Context, agentID)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	return printSources(c.App.Writer, sources)
}

func showCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	id := core.ID(c.Uint64("id"))
	source, err := db.Source(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to load source %d: %w", id, err)
	}

	w := c.App.Writer
	if c.Bool("json") {
		if err := printJSON(w, source.Record()); err != nil {
			return err
		}
	} else {
		printSource(w, source)
	}

	if !c.Bool("chunks") {
		return nil
	}
	chunks, err := db.Chunks(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to load chunks of source %d: %w", id, err)
	}
	for _, chunk := range chunks {
		fmt.Fprintf(w, "\n[%d] %s\n", chunk.Index, chunk.Text)
	}
	return nil
}

func editTextCommand(c *cli.Context) error {
	text, err := readText(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	id := core.ID(c.Uint64("id"))
	result, err := db.EditText(c.Context, id, text, c.String("name"))
	if err != nil {
		return fmt.Errorf("failed to edit source %d: %w", id, err)
	}
	return printAddResult(c.App.Writer, result, nil)
}

func deleteCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	id := core.ID(c.Uint64("id"))
	if err := db.DeleteSource(c.Context, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted source %d\n", id)
	return nil
}

func retrainCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	id := core.ID(c.Uint64("id"))
	result, err := db.Retrain(c.Context, id)
	if err != nil {
		if printErr := printJSON(c.App.Writer, errorReport{Error: err.Error()}); printErr != nil {
			return printErr
		}
		return fmt.Errorf("retrain failed: %w", err)
	}
	return printJSON(c.App.Writer, result)
}

func reprocessCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.Reprocess(c.Context, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("reprocessing failed: %w", err)
	}
	printSummary(c.App.Writer, summary)
	return nil
}

func printAddResult(w io.Writer, result *lorekeep.AddResult, unreadable []*core.IngestError) error {
	source := result.Source
	fmt.Fprintf(w, "Source %d: %s (%s, %d words)\n", source.Id, source.Name, source.Kind, source.WordCount)
	printSkipped(w, result.Skipped)
	printSkipped(w, unreadable)

	switch {
	case result.Queued:
		return printJSON(w, queuedReport{Queued: true})
	case result.ProcessingError != "":
		return printJSON(w, errorReport{Error: result.ProcessingError})
	case result.Processing != nil:
		return printJSON(w, result.Processing)
	}
	return nil
}

func printSkipped(w io.Writer, skipped []*core.IngestError) {
	for _, s := range skipped {
		fmt.Fprintf(w, "Skipped: %v\n", s)
	}
}

func printSources(w io.Writer, sources []*core.KnowledgeSource) error {
	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAGENT\tTYPE\tSTATUS\tWORDS\tCHUNKS\tNAME")
	for _, s := range sources {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Id, s.AgentID, s.Kind, s.Status, s.WordCount, s.ChunkCount, s.Name)
	}
	return tw.Flush()
}

func printSource(w io.Writer, s *core.KnowledgeSource) {
	fmt.Fprintf(w, "ID:          %d\n", s.Id)
	fmt.Fprintf(w, "Agent:       %s\n", s.AgentID)
	fmt.Fprintf(w, "Type:        %s\n", s.Kind)
	fmt.Fprintf(w, "Name:        %s\n", s.Name)
	if s.URL != "" {
		fmt.Fprintf(w, "URL:         %s\n", s.URL)
	}
	if s.FileName != "" {
		fmt.Fprintf(w, "Files:       %s\n", s.FileName)
	}
	if s.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", s.Description)
	}
	fmt.Fprintf(w, "Status:      %s\n", s.Status)
	fmt.Fprintf(w, "Words:       %d\n", s.WordCount)
	fmt.Fprintf(w, "Chunks:      %d\n", s.ChunkCount)
	if s.ProcessingError != "" {
		fmt.Fprintf(w, "Error:       %s\n", s.ProcessingError)
	}
	fmt.Fprintf(w, "Updated:     %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "\n%s\n", s.Content)
}

func printSummary(w io.Writer, summary *processing.Summary) {
	fmt.Fprintf(w, "Processed: %d, failed: %d, chunks created: %d\n",
		summary.Processed, summary.Failed, summary.ChunksCreated)
	if summary.ResumedAfter != 0 {
		fmt.Fprintf(w, "Resumed after source %d\n", summary.ResumedAfter)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
