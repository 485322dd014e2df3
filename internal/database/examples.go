package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/wordpack/internal/database/examples"
	"github.com/mrlokans/wordpack/internal/entities"
)

var ErrEmptyExample = errors.New("example sentence is empty")

// AppendExamples adds items to the end of a pack's category. It returns the
// number inserted, or found=false when the pack does not exist.
func (d *Database) AppendExamples(ctx context.Context, packID string, category entities.Category, items []entities.ExampleItem) (int, bool, error) {
	if _, err := entities.ParseCategory(string(category)); err != nil {
		return 0, false, err
	}
	for i, item := range items {
		if strings.TrimSpace(item.En) == "" {
			return 0, false, fmt.Errorf("%w: item %d", ErrEmptyExample, i)
		}
	}
	pack, err := d.Packs.Get(ctx, packID)
	if err != nil || pack == nil {
		return 0, false, err
	}

	n, err := d.Examples.Append(ctx, packID, category, items)
	if err != nil {
		return 0, true, err
	}
	return n, true, d.refreshCounts(ctx, packID)
}

// DeleteExample deletes the example at index within a pack's category and
// returns how many remain there. found is false when the pack or index does
// not exist.
func (d *Database) DeleteExample(ctx context.Context, packID string, category entities.Category, index int) (int, bool, error) {
	if _, err := entities.ParseCategory(string(category)); err != nil {
		return 0, false, err
	}
	pack, err := d.Packs.Get(ctx, packID)
	if err != nil || pack == nil {
		return 0, false, err
	}

	remaining, found, err := d.Examples.DeleteAt(ctx, packID, category, index)
	if err != nil || !found {
		return 0, found, err
	}
	return remaining, true, d.refreshCounts(ctx, packID)
}

// DeleteExamplesByIDs deletes examples by id and returns the number deleted
// and the ids that did not exist.
func (d *Database) DeleteExamplesByIDs(ctx context.Context, ids []int64) (int, []int64, error) {
	res, err := d.Examples.DeleteByIDs(ctx, ids)
	if err != nil {
		return res.Deleted, res.NotFound, err
	}
	for _, packID := range res.Packs {
		if err := d.refreshCounts(ctx, packID); err != nil {
			return res.Deleted, res.NotFound, err
		}
	}
	return res.Deleted, res.NotFound, nil
}

// ListExamples returns a page of examples across packs with their pack labels.
func (d *Database) ListExamples(ctx context.Context, opts examples.ListOptions) ([]entities.ExampleView, error) {
	list, err := d.Examples.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	packIDs := make([]string, 0, len(list))
	for _, ex := range list {
		packIDs = append(packIDs, ex.PackID)
	}
	labels, err := d.Packs.LabelsByID(ctx, packIDs)
	if err != nil {
		return nil, err
	}

	out := make([]entities.ExampleView, 0, len(list))
	for _, ex := range list {
		out = append(out, entities.ExampleView{Example: ex, PackLabel: labels[ex.PackID]})
	}
	return out, nil
}

// CountExamples counts examples matching opts. It fails when the store
// cannot aggregate.
func (d *Database) CountExamples(ctx context.Context, opts examples.ListOptions) (int64, error) {
	return d.Examples.Count(ctx, opts)
}

// UpdateExampleStudyProgress applies counter deltas to an example, clamping
// at zero. It returns nil when the example does not exist.
func (d *Database) UpdateExampleStudyProgress(ctx context.Context, id int64, checkedDelta, learnedDelta int) (*entities.StudyProgress, error) {
	return d.Examples.UpdateStudyProgress(ctx, id, checkedDelta, learnedDelta)
}

// UpdateExampleTypingPractice records a typing attempt of inputLength
// characters and returns the new total. found is false when the example does
// not exist.
func (d *Database) UpdateExampleTypingPractice(ctx context.Context, id int64, inputLength int) (entities.Count, bool, error) {
	return d.Examples.UpdateTypingPractice(ctx, id, inputLength)
}
