// Package articles provides storage for articles and their pack links.
//
// Links emulate a join table: one document per (article, pack) pair, replaced
// wholesale on every save and deleted explicitly with the article.
package articles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

const (
	Collection     = "articles"
	LinkCollection = "article_links"
)

var ErrInvalidLinkStatus = errors.New("invalid link status")

// Repository handles all article database operations.
type Repository struct {
	store     docstore.Store
	batchSize int
}

// NewRepository creates a new article repository.
func NewRepository(store docstore.Store, batchSize int) *Repository {
	if batchSize <= 0 || batchSize > docstore.MaxBatchWrites {
		batchSize = docstore.MaxBatchWrites
	}
	return &Repository{store: store, batchSize: batchSize}
}

// linkID derives the link document id. The NUL separator cannot occur in
// either id, so distinct pairs never share a document.
func linkID(articleID, packID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(articleID+"\x00"+packID)).String()
}

func linksOf(articleID string) docstore.Query {
	return docstore.From(LinkCollection).
		Where("article_id", docstore.Eq, articleID).
		OrderBy("position", docstore.Asc)
}

func normalizeLinks(related []entities.RelatedPack) ([]entities.RelatedPack, error) {
	seen := map[string]bool{}
	out := make([]entities.RelatedPack, 0, len(related))
	for _, rp := range related {
		rp.PackID = strings.TrimSpace(rp.PackID)
		if rp.PackID == "" || seen[rp.PackID] {
			continue
		}
		switch rp.Status {
		case "":
			rp.Status = entities.LinkStatusExisting
		case entities.LinkStatusExisting, entities.LinkStatusCreated:
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidLinkStatus, rp.Status)
		}
		seen[rp.PackID] = true
		out = append(out, rp)
	}
	return out, nil
}

// Save stores an article and replaces its links. An empty ID gets a new
// UUID; CreatedAt of an existing article is preserved. It returns the id.
func (r *Repository) Save(ctx context.Context, article entities.Article, related []entities.RelatedPack) (string, error) {
	links, err := normalizeLinks(related)
	if err != nil {
		return "", err
	}
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	existing, err := r.getArticle(ctx, article.ID)
	if err != nil {
		return "", err
	}
	now := entities.Now()
	switch {
	case existing != nil:
		article.CreatedAt = existing.CreatedAt
	case article.CreatedAt.IsZero():
		article.CreatedAt = now
	}
	article.UpdatedAt = now

	if err := r.store.Set(ctx, Collection, article.ID, article); err != nil {
		return "", fmt.Errorf("save article %q: %w", article.ID, err)
	}
	if err := r.replaceLinks(ctx, article.ID, links); err != nil {
		return "", err
	}
	return article.ID, nil
}

func (r *Repository) replaceLinks(ctx context.Context, articleID string, links []entities.RelatedPack) error {
	if _, err := docstore.DeleteMatching(ctx, r.store, linksOf(articleID), r.batchSize); err != nil {
		return fmt.Errorf("clear links of %q: %w", articleID, err)
	}
	for start := 0; start < len(links); start += r.batchSize {
		end := min(start+r.batchSize, len(links))
		batch := r.store.Batch()
		for i := start; i < end; i++ {
			link := entities.ArticleLink{
				ArticleID: articleID,
				PackID:    links[i].PackID,
				Label:     links[i].Label,
				Status:    links[i].Status,
				Position:  i,
			}
			if err := batch.Set(LinkCollection, linkID(articleID, link.PackID), link); err != nil {
				return err
			}
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("write links of %q: %w", articleID, err)
		}
	}
	return nil
}

func (r *Repository) getArticle(ctx context.Context, id string) (*entities.Article, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %q: %w", id, err)
	}
	var a entities.Article
	if err := doc.DataTo(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns an article with its related packs, or nil.
func (r *Repository) Get(ctx context.Context, id string) (*entities.ArticleDetail, error) {
	a, err := r.getArticle(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}
	links, err := r.Links(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &entities.ArticleDetail{Article: *a, RelatedPacks: make([]entities.RelatedPack, 0, len(links))}
	for _, l := range links {
		detail.RelatedPacks = append(detail.RelatedPacks, entities.RelatedPack{PackID: l.PackID, Label: l.Label, Status: l.Status})
	}
	return detail, nil
}

// Links returns an article's links in saved order.
func (r *Repository) Links(ctx context.Context, articleID string) ([]entities.ArticleLink, error) {
	docs, err := r.store.Query(ctx, linksOf(articleID))
	if err != nil {
		return nil, fmt.Errorf("list links of %q: %w", articleID, err)
	}
	out := make([]entities.ArticleLink, 0, len(docs))
	for _, doc := range docs {
		var l entities.ArticleLink
		if err := doc.DataTo(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// List returns articles, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]entities.Article, error) {
	q := docstore.From(Collection).OrderBy("created_at", docstore.Desc)
	docs, err := docstore.Paginate(ctx, r.store, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := make([]entities.Article, 0, len(docs))
	for _, doc := range docs {
		var a entities.Article
		if err := doc.DataTo(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Delete removes an article and its links. It reports whether the article existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	a, err := r.getArticle(ctx, id)
	if err != nil || a == nil {
		return false, err
	}
	if _, err := docstore.DeleteMatching(ctx, r.store, linksOf(id), r.batchSize); err != nil {
		return false, fmt.Errorf("delete links of %q: %w", id, err)
	}
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return false, fmt.Errorf("delete article %q: %w", id, err)
	}
	return true, nil
}
