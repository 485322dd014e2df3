package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/importers"
)

type ImportArticleCommand struct {
	URL      string
	HTMLFile string
	store    storeFlags
	cfg      *config.Config
}

func NewImportArticleCommand() *ImportArticleCommand {
	return &ImportArticleCommand{cfg: config.NewConfig()}
}

func (cmd *ImportArticleCommand) ParseFlags(args []string) error {
	fs := newFlagSet("import-article",
		"Fetch a web page, extract its readable text and save it as an article\nlinked to every pack whose label it mentions.",
		"import-article --url https://example.com/post",
		"import-article --url https://example.com/post --html ./saved.html",
	)

	fs.StringVarP(&cmd.URL, "url", "u", "", "Article URL (required)")
	fs.StringVar(&cmd.HTMLFile, "html", "", "Read the page from a local file instead of fetching it")
	cmd.store.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.URL == "" {
		fs.Usage()
		return fmt.Errorf("url is required")
	}
	return nil
}

func (cmd *ImportArticleCommand) Run() error {
	db, closeDB, err := openDatabase(cmd.cfg, cmd.store)
	if err != nil {
		return err
	}
	defer closeDB()

	importer := importers.NewArticleImporter(importers.NewFetcher(cmd.cfg.Articles.FetchTimeout), db, db.Packs)
	ctx := context.Background()

	var result *importers.ArticleResult
	if cmd.HTMLFile != "" {
		html, readErr := os.ReadFile(cmd.HTMLFile)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", cmd.HTMLFile, readErr)
		}
		result, err = importer.ImportHTML(ctx, cmd.URL, html)
	} else {
		fmt.Printf("Fetching %s\n", cmd.URL)
		result, err = importer.Import(ctx, cmd.URL)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Saved article %s: %q\n", result.ArticleID, result.Title)
	if len(result.Related) == 0 {
		fmt.Println("No known packs mentioned")
	}
	for _, rel := range result.Related {
		fmt.Printf("  linked pack %s (%s)\n", rel.PackID, rel.Label)
	}
	return nil
}
