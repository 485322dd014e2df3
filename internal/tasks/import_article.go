package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/wordpack/internal/importers"
)

// ArticleImporter fetches a URL and stores it as a linked article.
type ArticleImporter interface {
	Import(ctx context.Context, rawURL string) (*importers.ArticleResult, error)
}

// ImportArticleTask imports one web page as an article.
type ImportArticleTask struct {
	URL string `json:"url"`
}

// Config returns the queue configuration for article imports.
func (t ImportArticleTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_article",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportArticleProcessor creates a processor function for ImportArticleTask.
func ImportArticleProcessor(imp ArticleImporter) backlite.QueueProcessor[ImportArticleTask] {
	return func(ctx context.Context, task ImportArticleTask) error {
		if imp == nil {
			return fmt.Errorf("article importer not configured")
		}
		res, err := imp.Import(ctx, task.URL)
		if err != nil {
			return fmt.Errorf("import article %s: %w", task.URL, err)
		}
		log.Printf("[TASK] Imported article %s (%q), %d related packs", res.ArticleID, res.Title, len(res.Related))
		return nil
	}
}

// NewImportArticleQueue creates a backlite queue for article imports.
func NewImportArticleQueue(imp ArticleImporter) backlite.Queue {
	return backlite.NewQueue(ImportArticleProcessor(imp))
}
