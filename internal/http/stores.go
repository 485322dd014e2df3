package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/wordpack/internal/database/examples"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/importers"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends on its own interface; *database.Database
// satisfies all of them.

// PackStore provides pack and per-pack example operations.
type PackStore interface {
	UpsertPack(ctx context.Context, id, label string, payload entities.PackPayload) error
	GetPack(ctx context.Context, id string) (*entities.PackDetail, error)
	ListPacks(ctx context.Context, limit, offset int) ([]entities.PackSummary, error)
	ListPacksWithFlags(ctx context.Context, limit, offset int) ([]entities.PackSummary, error)
	CountPacks(ctx context.Context) (int64, error)
	DeletePack(ctx context.Context, id string) (bool, error)
	FindPackIDByLabel(ctx context.Context, label string) (string, error)
	FindPackByLabelCaseInsensitive(ctx context.Context, label string) (*entities.PackSummary, error)
	UpdatePackStudyProgress(ctx context.Context, id string, checkedDelta, learnedDelta int) (*entities.StudyProgress, error)
	AppendExamples(ctx context.Context, packID string, category entities.Category, items []entities.ExampleItem) (int, bool, error)
	DeleteExample(ctx context.Context, packID string, category entities.Category, index int) (int, bool, error)
	DeleteLemma(ctx context.Context, key string) (bool, error)
}

// ExampleStore provides cross-pack example operations.
type ExampleStore interface {
	ListExamples(ctx context.Context, opts examples.ListOptions) ([]entities.ExampleView, error)
	CountExamples(ctx context.Context, opts examples.ListOptions) (int64, error)
	DeleteExamplesByIDs(ctx context.Context, ids []int64) (int, []int64, error)
	UpdateExampleStudyProgress(ctx context.Context, id int64, checkedDelta, learnedDelta int) (*entities.StudyProgress, error)
	UpdateExampleTypingPractice(ctx context.Context, id int64, inputLength int) (entities.Count, bool, error)
}

// ArticleStore provides article operations.
type ArticleStore interface {
	SaveArticle(ctx context.Context, article entities.Article, related []entities.RelatedPack) (string, error)
	GetArticle(ctx context.Context, id string) (*entities.ArticleDetail, error)
	ListArticles(ctx context.Context, limit, offset int) ([]entities.Article, error)
	DeleteArticle(ctx context.Context, id string) (bool, error)
}

// ArticleImporter fetches a web page and stores it as an article.
type ArticleImporter interface {
	Import(ctx context.Context, rawURL string) (*importers.ArticleResult, error)
}

// UserStore provides account operations.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, password string) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	Authenticate(ctx context.Context, username, password string) (*entities.User, error)
	DeleteUser(ctx context.Context, username string) (bool, error)
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
