package lemmas

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/wordpack/internal/database/txpolicy"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
)

const Collection = "lemmas"

var ErrEmptyLabel = errors.New("label is empty")

// NormalizeKey canonicalizes a label into its lookup key.
func NormalizeKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Meta is optional lemma metadata. Empty fields never overwrite stored values.
type Meta struct {
	SenseTitle string
	LLMModel   string
	LLMParams  string
}

// Repository provides lemma storage with at most one record per normalized key.
type Repository struct {
	store  docstore.Store
	policy txpolicy.Policy
}

// NewRepository creates a new lemma repository.
func NewRepository(store docstore.Store, policy txpolicy.Policy) *Repository {
	return &Repository{store: store, policy: policy}
}

// Upsert returns the id of the lemma for label, creating it when absent.
// The id is the normalized key except for legacy records.
func (r *Repository) Upsert(ctx context.Context, label string, meta Meta) (string, error) {
	label = strings.TrimSpace(label)
	key := NormalizeKey(label)
	if key == "" {
		return "", ErrEmptyLabel
	}

	// Retryable read errors fall through to the create path, which re-reads
	// inside its transaction and resolves a lost race by merging.
	doc, err := r.store.Get(ctx, Collection, key)
	switch {
	case err == nil:
		return key, r.merge(ctx, doc, label, meta)
	case docstore.IsRetryable(err):
		log.Printf("WARNING: lemma upsert %q: canonical read failed: %v; continuing", key, err)
	case !errors.Is(err, docstore.ErrNotFound):
		return "", fmt.Errorf("get lemma %q: %w", key, err)
	}

	legacy, err := r.findLegacy(ctx, key)
	switch {
	case err == nil && legacy != nil:
		return legacy.ID, r.merge(ctx, legacy, label, meta)
	case docstore.IsRetryable(err):
		log.Printf("WARNING: lemma upsert %q: legacy lookup failed: %v; creating canonical record", key, err)
	case err != nil:
		return "", err
	}

	now := entities.Now()
	lemma := entities.Lemma{
		Key:        key,
		Label:      label,
		SenseTitle: meta.SenseTitle,
		LLMModel:   meta.LLMModel,
		LLMParams:  meta.LLMParams,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := txpolicy.Run(ctx, r.store, r.policy, "lemma upsert", txpolicy.Strategy[bool]{
		Transactional: func(ctx context.Context, tx docstore.Tx) (bool, error) {
			_, err := tx.Get(ctx, Collection, key)
			switch {
			case err == nil:
				return false, nil
			case !errors.Is(err, docstore.ErrNotFound):
				return false, err
			}
			return createIfAbsent(tx.Create(Collection, key, lemma))
		},
		Fallback: func(ctx context.Context, store docstore.Store) (bool, error) {
			return createIfAbsent(store.Create(ctx, Collection, key, lemma))
		},
	})
	if err != nil {
		return "", fmt.Errorf("create lemma %q: %w", key, err)
	}
	if created {
		return key, nil
	}

	// Another writer created it first.
	doc, err = r.store.Get(ctx, Collection, key)
	if err != nil {
		return "", fmt.Errorf("reload lemma %q: %w", key, err)
	}
	return key, r.merge(ctx, doc, label, meta)
}

func createIfAbsent(err error) (bool, error) {
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}

// findLegacy finds a record stored under a non-canonical id.
func (r *Repository) findLegacy(ctx context.Context, key string) (*docstore.Document, error) {
	docs, err := r.store.Query(ctx, docstore.From(Collection).Where("key", docstore.Eq, key).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("find legacy lemma %q: %w", key, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// merge applies label and non-empty metadata to an existing record.
func (r *Repository) merge(ctx context.Context, doc *docstore.Document, label string, meta Meta) error {
	var current entities.Lemma
	if err := doc.DataTo(&current); err != nil {
		return err
	}

	fields := map[string]any{}
	if current.Label != label {
		fields["label"] = label
	}
	if current.Key == "" {
		fields["key"] = NormalizeKey(label)
	}
	setIfChanged(fields, "sense_title", current.SenseTitle, meta.SenseTitle)
	setIfChanged(fields, "llm_model", current.LLMModel, meta.LLMModel)
	setIfChanged(fields, "llm_params", current.LLMParams, meta.LLMParams)
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = entities.Now().String()

	if err := r.store.Update(ctx, Collection, doc.ID, fields); err != nil {
		return fmt.Errorf("update lemma %q: %w", doc.ID, err)
	}
	return nil
}

func setIfChanged(fields map[string]any, name, current, next string) {
	if next != "" && next != current {
		fields[name] = next
	}
}

// Get returns the lemma stored under id, or nil.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Lemma, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lemma %q: %w", id, err)
	}
	var lemma entities.Lemma
	if err := doc.DataTo(&lemma); err != nil {
		return nil, err
	}
	return &lemma, nil
}

// FindByKey returns the lemma for a label, canonical or legacy, and its id.
func (r *Repository) FindByKey(ctx context.Context, label string) (string, *entities.Lemma, error) {
	key := NormalizeKey(label)
	if key == "" {
		return "", nil, nil
	}
	if lemma, err := r.Get(ctx, key); err != nil || lemma != nil {
		return key, lemma, err
	}
	doc, err := r.findLegacy(ctx, key)
	if err != nil || doc == nil {
		return "", nil, err
	}
	var lemma entities.Lemma
	if err := doc.DataTo(&lemma); err != nil {
		return "", nil, err
	}
	return doc.ID, &lemma, nil
}

// Delete removes the lemma stored under id. It reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	lemma, err := r.Get(ctx, id)
	if err != nil || lemma == nil {
		return false, err
	}
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return false, fmt.Errorf("delete lemma %q: %w", id, err)
	}
	return true, nil
}
