package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entrypoint"
)

// EnrichCommand runs the enrichment chain for a single book in the foreground.
type EnrichCommand struct {
	BookID       uint
	DatabasePath string
	Timeout      time.Duration

	cfg *config.Config
}

func NewEnrichCommand(cfg *config.Config) *EnrichCommand {
	return &EnrichCommand{cfg: cfg}
}

func (cmd *EnrichCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)

	var bookID uint
	fs.UintVar(&bookID, "book", 0, "ID of the book to enrich (required)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the application database")
	fs.DurationVar(&cmd.Timeout, "timeout", 5*time.Minute, "Give up after this long")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s enrich [options] (-book <id> | <id>)\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch the summary, author details and narration for one book.\n")
		fmt.Fprintf(os.Stderr, "Providers are configured with the ENRICHMENT_* environment variables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if bookID == 0 && fs.NArg() > 0 {
		id, err := strconv.ParseUint(fs.Arg(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid book id %q", fs.Arg(0))
		}
		bookID = uint(id)
	}
	if bookID == 0 {
		return fmt.Errorf("required flag -book not provided")
	}
	cmd.BookID = bookID
	return nil
}

func (cmd *EnrichCommand) Run() error {
	cfg := *cmd.cfg
	cfg.Database.Path = cmd.DatabasePath
	cfg.Enrichment.Enabled = true
	cfg.Search.Enabled = false

	app, err := entrypoint.NewApp(context.Background(), &cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Enricher.Enabled() {
		return fmt.Errorf("no enrichment providers configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	result, err := app.Enricher.Enrich(ctx, cmd.BookID)
	if result != nil {
		fmt.Printf("Book %d: %s\n", result.BookID, result.Status)
		for _, step := range result.Steps {
			if step.Error != "" {
				fmt.Printf("  %-10s %s (%s)\n", step.Name, step.Outcome, step.Error)
				continue
			}
			fmt.Printf("  %-10s %s\n", step.Name, step.Outcome)
		}
	}
	if err != nil {
		return fmt.Errorf("enrich book %d: %w", cmd.BookID, err)
	}
	return nil
}
