package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entrypoint"
)

// ReindexCommand rebuilds the full-text search index from the database.
type ReindexCommand struct {
	DatabasePath string
	IndexPath    string

	cfg *config.Config
}

func NewReindexCommand(cfg *config.Config) *ReindexCommand {
	return &ReindexCommand{cfg: cfg}
}

func (cmd *ReindexCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the application database")
	fs.StringVar(&cmd.IndexPath, "index", cmd.cfg.Search.DataPath, "Directory holding the search index")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reindex [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drop the search index and index every book and thread again.\n")
		fmt.Fprintf(os.Stderr, "Stop the server first; the index can only be opened by one process.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.IndexPath == "" {
		return fmt.Errorf("search index path is empty")
	}
	return nil
}

func (cmd *ReindexCommand) Run() error {
	cfg := *cmd.cfg
	cfg.Database.Path = cmd.DatabasePath
	cfg.Search.Enabled = true
	cfg.Search.DataPath = cmd.IndexPath
	cfg.Enrichment.Enabled = false

	app, err := entrypoint.NewApp(context.Background(), &cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	count, err := app.Reindex()
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fmt.Printf("Indexed %d documents into %s in %v\n", count, cmd.IndexPath, time.Since(start).Round(time.Millisecond))
	return nil
}
