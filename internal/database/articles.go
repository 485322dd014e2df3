package database

import (
	"context"

	"github.com/mrlokans/wordpack/internal/entities"
)

// SaveArticle stores an article and replaces its related pack links. It
// returns the article id, generated when empty.
func (d *Database) SaveArticle(ctx context.Context, article entities.Article, related []entities.RelatedPack) (string, error) {
	return d.Articles.Save(ctx, article, related)
}

// GetArticle returns an article with its related packs, or nil.
func (d *Database) GetArticle(ctx context.Context, id string) (*entities.ArticleDetail, error) {
	return d.Articles.Get(ctx, id)
}

// ListArticles returns a page of articles, newest first.
func (d *Database) ListArticles(ctx context.Context, limit, offset int) ([]entities.Article, error) {
	return d.Articles.List(ctx, limit, offset)
}

// DeleteArticle deletes an article and its links.
func (d *Database) DeleteArticle(ctx context.Context, id string) (bool, error) {
	return d.Articles.Delete(ctx, id)
}
