// Package packs provides storage for vocabulary pack records.
//
// A pack document holds the caller's opaque core payload plus the fields the
// persistence layer inspects: label, lemma reference, study counters and the
// cached per-category example counts. Examples live in their own collection.
package packs

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/wordpack/internal/database/lemmas"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

const Collection = "packs"

// scanPageSize is the page size for full scans.
const scanPageSize = 500

// Repository handles all pack database operations.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a new pack repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func decode(doc *docstore.Document) (*entities.Pack, error) {
	var p entities.Pack
	if err := doc.DataTo(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = doc.ID
	}
	p.CategoryCounts = p.CategoryCounts.Normalized()
	return &p, nil
}

// Get returns the pack with the given id, or nil.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Pack, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pack %q: %w", id, err)
	}
	return decode(doc)
}

// Save overwrites the pack document. LabelKey is derived from Label.
func (r *Repository) Save(ctx context.Context, p *entities.Pack) error {
	p.LabelKey = lemmas.NormalizeKey(p.Label)
	p.CategoryCounts = p.CategoryCounts.Normalized()
	if err := r.store.Set(ctx, Collection, p.ID, p); err != nil {
		return fmt.Errorf("save pack %q: %w", p.ID, err)
	}
	return nil
}

// SetCategoryCounts stores recomputed example counts and bumps updated_at.
// It reports false when the pack does not exist.
func (r *Repository) SetCategoryCounts(ctx context.Context, id string, counts entities.CategoryCounts) (bool, error) {
	err := r.store.Update(ctx, Collection, id, map[string]any{
		"category_counts": counts.Normalized(),
		"updated_at":      entities.Now().String(),
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update counts of pack %q: %w", id, err)
	}
	return true, nil
}

// Delete removes a pack document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("delete pack %q: %w", id, err)
	}
	return nil
}

func byRecency() docstore.Query {
	return docstore.From(Collection).OrderBy("updated_at", docstore.Desc)
}

// List returns packs ordered by most recently updated.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]entities.Pack, error) {
	docs, err := docstore.Paginate(ctx, r.store, byRecency(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	out := make([]entities.Pack, 0, len(docs))
	for _, doc := range docs {
		p, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Count returns the number of packs, scanning when the store cannot aggregate.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.store.Count(ctx, docstore.From(Collection))
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, docstore.ErrAggregationUnsupported) {
		return 0, fmt.Errorf("count packs: %w", err)
	}

	var total int64
	err = r.Each(ctx, func(docs []*docstore.Document) error {
		total += int64(len(docs))
		return nil
	})
	return total, err
}

// Each walks every pack document in id order, one page at a time.
func (r *Repository) Each(ctx context.Context, fn func(docs []*docstore.Document) error) error {
	q := docstore.From(Collection).Limit(scanPageSize)
	for {
		docs, err := r.store.Query(ctx, q)
		if err != nil {
			return fmt.Errorf("scan packs: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		if err := fn(docs); err != nil {
			return err
		}
		if len(docs) < scanPageSize {
			return nil
		}
		q = q.StartAfter(docs[len(docs)-1])
	}
}

func (r *Repository) newest(ctx context.Context, field, value string) (*entities.Pack, error) {
	docs, err := r.store.Query(ctx, docstore.From(Collection).
		Where(field, docstore.Eq, value).
		OrderBy("updated_at", docstore.Desc).
		Limit(1))
	if err != nil {
		return nil, fmt.Errorf("find pack by %s: %w", field, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode(docs[0])
}

// FindIDByLabel returns the id of the most recently updated pack whose label
// matches exactly, falling back to a case-insensitive match.
func (r *Repository) FindIDByLabel(ctx context.Context, label string) (string, error) {
	p, err := r.newest(ctx, "label", label)
	if err != nil {
		return "", err
	}
	if p == nil {
		if p, err = r.FindByLabelCaseInsensitive(ctx, label); err != nil || p == nil {
			return "", err
		}
	}
	return p.ID, nil
}

// FindByLabelCaseInsensitive returns the most recently updated pack whose
// normalized label equals the normalized input, or nil.
func (r *Repository) FindByLabelCaseInsensitive(ctx context.Context, label string) (*entities.Pack, error) {
	key := lemmas.NormalizeKey(label)
	if key == "" {
		return nil, nil
	}
	return r.newest(ctx, "label_key", key)
}

// UpdateStudyProgress applies deltas to a pack's counters, clamping at zero.
// It returns nil when the pack does not exist.
func (r *Repository) UpdateStudyProgress(ctx context.Context, id string, checkedDelta, learnedDelta int) (*entities.StudyProgress, error) {
	p, err := r.Get(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	progress := entities.StudyProgress{
		CheckedCount: p.CheckedCount.Add(checkedDelta),
		LearnedCount: p.LearnedCount.Add(learnedDelta),
	}
	err = r.store.Update(ctx, Collection, id, map[string]any{
		"checked_count": progress.CheckedCount.Int(),
		"learned_count": progress.LearnedCount.Int(),
	})
	if err != nil {
		return nil, fmt.Errorf("update pack %q: %w", id, err)
	}
	return &progress, nil
}

// LabelRef pairs a pack id with its label.
type LabelRef struct {
	ID    string
	Label string
}

// Labels returns the label of every pack.
func (r *Repository) Labels(ctx context.Context) ([]LabelRef, error) {
	var out []LabelRef
	err := r.Each(ctx, func(docs []*docstore.Document) error {
		for _, doc := range docs {
			label, _ := doc.Value("label")
			if s, ok := label.(string); ok && s != "" {
				out = append(out, LabelRef{ID: doc.ID, Label: s})
			}
		}
		return nil
	})
	return out, err
}

// LabelsByID returns labels for the given pack ids. Missing packs are omitted.
func (r *Repository) LabelsByID(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		p, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[id] = p.Label
		}
	}
	return out, nil
}
