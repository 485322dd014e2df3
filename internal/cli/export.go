package cli

import (
	"context"
	"fmt"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/exporters"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type ExportCommand struct {
	Output string
	Format string
	Split  bool
	store  storeFlags
	cfg    *config.Config
}

func NewExportCommand() *ExportCommand {
	return &ExportCommand{cfg: config.NewConfig()}
}

func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := newFlagSet("export",
		"Export every pack. The json format is a seed file accepted by import-packs.",
		"export -o ./packs.json",
		"export -o ./packs.md --format markdown",
		"export -o ./vault/packs --format markdown --split",
	)

	fs.StringVarP(&cmd.Output, "out", "o", "", "Output file (required)")
	fs.StringVar(&cmd.Format, "format", formatJSON, "Output format: json or markdown")
	fs.BoolVar(&cmd.Split, "split", false, "Markdown only: treat --out as a directory and write one file per pack")
	cmd.store.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Output == "" {
		fs.Usage()
		return fmt.Errorf("out is required")
	}
	if cmd.Format != formatJSON && cmd.Format != formatMarkdown {
		return fmt.Errorf("unknown format %q (want json or markdown)", cmd.Format)
	}
	if cmd.Split && cmd.Format != formatMarkdown {
		return fmt.Errorf("--split requires --format markdown")
	}
	return nil
}

func (cmd *ExportCommand) Run() error {
	db, closeDB, err := openDatabase(cmd.cfg, cmd.store)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx := context.Background()
	var result exporters.ExportResult
	switch {
	case cmd.Split:
		result, err = exporters.NewMarkdownExporter(db).WriteDir(ctx, cmd.Output)
	case cmd.Format == formatMarkdown:
		result, err = exporters.NewMarkdownExporter(db).WriteFile(ctx, cmd.Output)
	default:
		result, err = exporters.NewSeedExporter(db).WriteFile(ctx, cmd.Output)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d packs with %d examples to %s\n", result.PacksProcessed, result.ExamplesProcessed, cmd.Output)
	return nil
}
