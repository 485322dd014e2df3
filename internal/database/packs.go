package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/wordpack/internal/database/lemmas"
	"github.com/mrlokans/wordpack/internal/entities"
)

var ErrEmptyPackID = errors.New("pack id is empty")

// UpsertPack stores a pack under id. The payload's examples replace every
// stored example of the pack; the rest of the payload is kept as opaque core.
// Study counters and creation time survive re-saves.
func (d *Database) UpsertPack(ctx context.Context, id, label string, payload entities.PackPayload) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyPackID
	}
	for c := range payload.Examples {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", entities.ErrInvalidCategory, c)
		}
	}

	lemmaID, err := d.Lemmas.Upsert(ctx, label, lemmas.Meta{
		SenseTitle: payload.SenseTitle,
		LLMModel:   payload.LLMModel,
		LLMParams:  payload.LLMParams,
	})
	if err != nil {
		return err
	}

	existing, err := d.Packs.Get(ctx, id)
	if err != nil {
		return err
	}
	now := entities.Now()
	pack := &entities.Pack{
		ID:             id,
		LemmaKey:       lemmaID,
		Label:          strings.TrimSpace(label),
		SenseTitle:     payload.SenseTitle,
		LLMModel:       payload.LLMModel,
		LLMParams:      payload.LLMParams,
		Core:           string(payload.Core),
		CategoryCounts: entities.NewCategoryCounts(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	known := 0
	if existing != nil {
		pack.CreatedAt = existing.CreatedAt
		pack.CheckedCount = existing.CheckedCount
		pack.LearnedCount = existing.LearnedCount
		pack.CategoryCounts = existing.CategoryCounts
		known = existing.CategoryCounts.Total()
	}
	if err := d.Packs.Save(ctx, pack); err != nil {
		return err
	}

	if err := d.Examples.ReplaceForPack(ctx, id, payload.Examples, known); err != nil {
		return err
	}
	return d.refreshCounts(ctx, id)
}

// refreshCounts recomputes a pack's category counts from its examples.
func (d *Database) refreshCounts(ctx context.Context, packID string) error {
	counts, err := d.Examples.CountByCategory(ctx, packID)
	if err != nil {
		return err
	}
	_, err = d.Packs.SetCategoryCounts(ctx, packID, counts)
	return err
}

// GetPack returns a pack with its examples merged into the payload, or nil.
func (d *Database) GetPack(ctx context.Context, id string) (*entities.PackDetail, error) {
	pack, err := d.Packs.Get(ctx, id)
	if err != nil || pack == nil {
		return nil, err
	}
	items, err := d.Examples.ItemsForPack(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := entities.PackPayload{
		SenseTitle: pack.SenseTitle,
		LLMModel:   pack.LLMModel,
		LLMParams:  pack.LLMParams,
	}
	if len(items) > 0 {
		payload.Examples = items
	}
	if pack.Core != "" {
		payload.Core = json.RawMessage(pack.Core)
	}
	return &entities.PackDetail{
		ID:             pack.ID,
		LemmaKey:       pack.LemmaKey,
		Label:          pack.Label,
		Payload:        payload,
		CheckedCount:   pack.CheckedCount,
		LearnedCount:   pack.LearnedCount,
		CategoryCounts: pack.CategoryCounts,
		CreatedAt:      pack.CreatedAt,
		UpdatedAt:      pack.UpdatedAt,
	}, nil
}

func (d *Database) listPacks(ctx context.Context, limit, offset int, withFlags bool) ([]entities.PackSummary, error) {
	list, err := d.Packs.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]entities.PackSummary, 0, len(list))
	for _, p := range list {
		out = append(out, p.Summary(withFlags))
	}
	return out, nil
}

// ListPacks returns a page of pack summaries, most recently updated first.
func (d *Database) ListPacks(ctx context.Context, limit, offset int) ([]entities.PackSummary, error) {
	return d.listPacks(ctx, limit, offset, false)
}

// ListPacksWithFlags is ListPacks with per-category counts and the empty flag,
// read from the cached aggregates.
func (d *Database) ListPacksWithFlags(ctx context.Context, limit, offset int) ([]entities.PackSummary, error) {
	return d.listPacks(ctx, limit, offset, true)
}

// CountPacks returns the total number of packs.
func (d *Database) CountPacks(ctx context.Context) (int64, error) {
	return d.Packs.Count(ctx)
}

// DeletePack deletes a pack and all its examples. The lemma is kept.
func (d *Database) DeletePack(ctx context.Context, id string) (bool, error) {
	pack, err := d.Packs.Get(ctx, id)
	if err != nil || pack == nil {
		return false, err
	}
	if _, err := d.Examples.DeleteForPack(ctx, id, pack.CategoryCounts.Total()); err != nil {
		return false, err
	}
	if err := d.Packs.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// FindPackIDByLabel returns the id of the most recently updated pack with
// the label, or "".
func (d *Database) FindPackIDByLabel(ctx context.Context, label string) (string, error) {
	return d.Packs.FindIDByLabel(ctx, label)
}

// FindPackByLabelCaseInsensitive returns the most recently updated pack whose
// label matches ignoring case, or nil.
func (d *Database) FindPackByLabelCaseInsensitive(ctx context.Context, label string) (*entities.PackSummary, error) {
	pack, err := d.Packs.FindByLabelCaseInsensitive(ctx, label)
	if err != nil || pack == nil {
		return nil, err
	}
	s := pack.Summary(true)
	return &s, nil
}

// UpdatePackStudyProgress applies counter deltas, clamping at zero. It
// returns nil when the pack does not exist.
func (d *Database) UpdatePackStudyProgress(ctx context.Context, id string, checkedDelta, learnedDelta int) (*entities.StudyProgress, error) {
	return d.Packs.UpdateStudyProgress(ctx, id, checkedDelta, learnedDelta)
}

// DeleteLemma removes a lemma record. Packs referencing it are left alone.
func (d *Database) DeleteLemma(ctx context.Context, key string) (bool, error) {
	return d.Lemmas.Delete(ctx, key)
}
