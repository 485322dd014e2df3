// Package examples provides storage for example sentences owned by packs.
//
// Examples carry a sequential integer id, a 0-based position that stays
// contiguous within each (pack, category), and derived search fields.
//
// # Usage
//
//	repo := examples.NewRepository(store, allocator, search.NewIndexer(nil), 450)
//	n, err := repo.Append(ctx, "wp-1", entities.CategoryDev, items)
package examples

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/mrlokans/wordpack/internal/database/counters"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/search"
)

const (
	Collection = "examples"

	// DefaultBatchSize stays below the store's batch ceiling.
	DefaultBatchSize = 450

	// TypingTolerance is how far a typing attempt may deviate from the
	// sentence length, in characters.
	TypingTolerance = 3
)

var (
	ErrInvalidTypingInput = errors.New("typing input length is invalid")
	ErrInvalidOrderField  = errors.New("invalid order field")
)

// orderFields are the fields a listing may be ordered by.
var orderFields = map[string]bool{
	"id":                    true,
	"created_at":            true,
	"position":              true,
	"checked_count":         true,
	"learned_count":         true,
	"typing_practice_chars": true,
	"en":                    true,
}

// Repository handles all example database operations.
type Repository struct {
	store     docstore.Store
	ids       *counters.Allocator
	indexer   *search.Indexer
	batchSize int
}

// NewRepository creates a new example repository. batchSize is clamped to
// the store's batch ceiling.
func NewRepository(store docstore.Store, ids *counters.Allocator, indexer *search.Indexer, batchSize int) *Repository {
	if batchSize <= 0 || batchSize > docstore.MaxBatchWrites {
		batchSize = DefaultBatchSize
	}
	if indexer == nil {
		indexer = search.NewIndexer(nil)
	}
	return &Repository{store: store, ids: ids, indexer: indexer, batchSize: batchSize}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode(doc *docstore.Document) (entities.Example, error) {
	var ex entities.Example
	err := doc.DataTo(&ex)
	return ex, err
}

func decodeAll(docs []*docstore.Document) ([]entities.Example, error) {
	out := make([]entities.Example, 0, len(docs))
	for _, doc := range docs {
		ex, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func (r *Repository) build(id int64, packID string, category entities.Category, position int, item entities.ExampleItem, now entities.Timestamp) entities.Example {
	fields := r.indexer.Build(item.En, item.Ja)
	return entities.Example{
		ID:                  id,
		PackID:              packID,
		Category:            category,
		Position:            position,
		En:                  item.En,
		Ja:                  item.Ja,
		GrammarNote:         item.GrammarNote,
		LLMModel:            item.LLMModel,
		LLMParams:           item.LLMParams,
		CheckedCount:        item.CheckedCount,
		LearnedCount:        item.LearnedCount,
		TypingPracticeChars: item.TypingPracticeChars,
		CreatedAt:           now,
		SearchText:          fields.Text,
		SearchTextReversed:  fields.Reversed,
		SearchTerms:         fields.Terms,
	}
}

// writeAll stores examples in batches no larger than the batch size.
func (r *Repository) writeAll(ctx context.Context, examples []entities.Example) error {
	for start := 0; start < len(examples); start += r.batchSize {
		end := min(start+r.batchSize, len(examples))
		batch := r.store.Batch()
		for _, ex := range examples[start:end] {
			if err := batch.Set(Collection, docID(ex.ID), ex); err != nil {
				return err
			}
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("write examples: %w", err)
		}
	}
	return nil
}

// Get returns the example with the given id, or nil.
func (r *Repository) Get(ctx context.Context, id int64) (*entities.Example, error) {
	doc, err := r.store.Get(ctx, Collection, docID(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get example %d: %w", id, err)
	}
	ex, err := decode(doc)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func ownedBy(packID string) docstore.Query {
	return docstore.From(Collection).Where("pack_id", docstore.Eq, packID)
}

// inCategory orders a (pack, category) by position, then numeric id.
func inCategory(packID string, category entities.Category) docstore.Query {
	return ownedBy(packID).
		Where("category", docstore.Eq, string(category)).
		OrderBy("position", docstore.Asc).
		OrderBy("id", docstore.Asc)
}

// ListForPack returns every example of a pack ordered by category, position and id.
func (r *Repository) ListForPack(ctx context.Context, packID string) ([]entities.Example, error) {
	docs, err := r.store.Query(ctx, ownedBy(packID))
	if err != nil {
		return nil, fmt.Errorf("list examples of %s: %w", packID, err)
	}
	all, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	rank := make(map[entities.Category]int, len(entities.Categories))
	for i, c := range entities.Categories {
		rank[c] = i
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Category != b.Category {
			return rank[a.Category] < rank[b.Category]
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return all, nil
}

// ItemsForPack groups a pack's examples by category. Empty categories are omitted.
func (r *Repository) ItemsForPack(ctx context.Context, packID string) (map[entities.Category][]entities.ExampleItem, error) {
	all, err := r.ListForPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	out := make(map[entities.Category][]entities.ExampleItem)
	for _, ex := range all {
		out[ex.Category] = append(out[ex.Category], ex.Item())
	}
	return out, nil
}

// CountByCategory recomputes live example counts for a pack from the stored examples.
func (r *Repository) CountByCategory(ctx context.Context, packID string) (entities.CategoryCounts, error) {
	docs, err := r.store.Query(ctx, ownedBy(packID))
	if err != nil {
		return nil, fmt.Errorf("count examples of %s: %w", packID, err)
	}
	counts := entities.NewCategoryCounts()
	for _, doc := range docs {
		v, _ := doc.Value("category")
		if c, ok := v.(string); ok && entities.Category(c).Valid() {
			counts[entities.Category(c)]++
		}
	}
	return counts, nil
}

// ReplaceForPack deletes every example of a pack and stores the given ones.
// known is the caller's cached example count, or -1 when unknown.
func (r *Repository) ReplaceForPack(ctx context.Context, packID string, items map[entities.Category][]entities.ExampleItem, known int) error {
	if _, err := r.DeleteForPack(ctx, packID, known); err != nil {
		return err
	}

	total := 0
	for _, c := range entities.Categories {
		total += len(items[c])
	}
	if total == 0 {
		return nil
	}
	ids, err := r.ids.Reserve(ctx, total)
	if err != nil {
		return err
	}

	now := entities.Now()
	examples := make([]entities.Example, 0, total)
	for _, c := range entities.Categories {
		for pos, item := range items[c] {
			examples = append(examples, r.build(ids[len(examples)], packID, c, pos, item, now))
		}
	}
	return r.writeAll(ctx, examples)
}

// DeleteForPack removes every example of a pack. A known count of zero skips
// the scan entirely; pass -1 when the count is unknown.
func (r *Repository) DeleteForPack(ctx context.Context, packID string, known int) (int, error) {
	if known == 0 {
		return 0, nil
	}
	n, err := docstore.DeleteMatching(ctx, r.store, ownedBy(packID).OrderBy("id", docstore.Asc), r.batchSize)
	if err != nil {
		return n, fmt.Errorf("delete examples of %s: %w", packID, err)
	}
	return n, nil
}

// DeleteForCategory removes every example of one category of a pack.
func (r *Repository) DeleteForCategory(ctx context.Context, packID string, category entities.Category, known int) (int, error) {
	if known == 0 {
		return 0, nil
	}
	n, err := docstore.DeleteMatching(ctx, r.store, inCategory(packID, category), r.batchSize)
	if err != nil {
		return n, fmt.Errorf("delete %s examples of %s: %w", category, packID, err)
	}
	return n, nil
}

// Append stores items after the current last position of (packID, category)
// and returns the number inserted.
func (r *Repository) Append(ctx context.Context, packID string, category entities.Category, items []entities.ExampleItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	last, err := r.store.Query(ctx, ownedBy(packID).
		Where("category", docstore.Eq, string(category)).
		OrderBy("position", docstore.Desc).
		Limit(1))
	if err != nil {
		return 0, fmt.Errorf("find last position: %w", err)
	}
	next := 0
	if len(last) == 1 {
		ex, err := decode(last[0])
		if err != nil {
			return 0, err
		}
		next = ex.Position + 1
	}

	ids, err := r.ids.Reserve(ctx, len(items))
	if err != nil {
		return 0, err
	}
	now := entities.Now()
	examples := make([]entities.Example, len(items))
	for i, item := range items {
		examples[i] = r.build(ids[i], packID, category, next+i, item, now)
	}
	if err := r.writeAll(ctx, examples); err != nil {
		return 0, err
	}
	return len(examples), nil
}

// DeleteAt removes the example at index within (packID, category) and
// reindexes the rest. It returns the remaining count, or found=false when
// index is out of range.
func (r *Repository) DeleteAt(ctx context.Context, packID string, category entities.Category, index int) (int, bool, error) {
	docs, err := r.store.Query(ctx, inCategory(packID, category))
	if err != nil {
		return 0, false, fmt.Errorf("list %s examples of %s: %w", category, packID, err)
	}
	if index < 0 || index >= len(docs) {
		return 0, false, nil
	}
	if err := r.store.Delete(ctx, Collection, docs[index].ID); err != nil {
		return 0, false, fmt.Errorf("delete example %s: %w", docs[index].ID, err)
	}
	remaining, err := r.Reindex(ctx, packID, category)
	if err != nil {
		return 0, true, err
	}
	return remaining, true, nil
}

// DeleteResult reports a delete by ids.
type DeleteResult struct {
	Deleted  int
	NotFound []int64
	// Packs lists the packs that lost examples, in first-seen order.
	Packs []string
}

type slot struct {
	packID   string
	category entities.Category
}

// DeleteByIDs removes examples by id and reindexes every affected category.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []int64) (DeleteResult, error) {
	var res DeleteResult
	seenIDs := make(map[int64]bool, len(ids))
	seenSlots := map[slot]bool{}
	seenPacks := map[string]bool{}
	var slots []slot
	batch := r.store.Batch()

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("delete examples: %w", err)
		}
		batch = r.store.Batch()
		return nil
	}

	for _, id := range ids {
		if seenIDs[id] {
			continue
		}
		seenIDs[id] = true
		ex, err := r.Get(ctx, id)
		if err != nil {
			return res, err
		}
		if ex == nil {
			res.NotFound = append(res.NotFound, id)
			continue
		}
		batch.Delete(Collection, docID(id))
		res.Deleted++
		s := slot{ex.PackID, ex.Category}
		if !seenSlots[s] {
			seenSlots[s] = true
			slots = append(slots, s)
		}
		if !seenPacks[ex.PackID] {
			seenPacks[ex.PackID] = true
			res.Packs = append(res.Packs, ex.PackID)
		}
		if batch.Len() >= r.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	for _, s := range slots {
		if _, err := r.Reindex(ctx, s.packID, s.category); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Reindex rewrites positions of (packID, category) to 0..N-1 in (position, id)
// order and returns N.
func (r *Repository) Reindex(ctx context.Context, packID string, category entities.Category) (int, error) {
	docs, err := r.store.Query(ctx, inCategory(packID, category))
	if err != nil {
		return 0, fmt.Errorf("list %s examples of %s: %w", category, packID, err)
	}

	batch := r.store.Batch()
	for i, doc := range docs {
		if pos, _ := doc.Value("position"); pos == float64(i) {
			continue
		}
		if err := batch.Update(Collection, doc.ID, map[string]any{"position": i}); err != nil {
			return 0, err
		}
		if batch.Len() >= r.batchSize {
			if err := batch.Commit(ctx); err != nil {
				return 0, fmt.Errorf("reindex %s/%s: %w", packID, category, err)
			}
			batch = r.store.Batch()
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("reindex %s/%s: %w", packID, category, err)
	}
	return len(docs), nil
}

// UpdateStudyProgress applies deltas to an example's counters, clamping at
// zero. It returns nil when the example does not exist.
func (r *Repository) UpdateStudyProgress(ctx context.Context, id int64, checkedDelta, learnedDelta int) (*entities.StudyProgress, error) {
	ex, err := r.Get(ctx, id)
	if err != nil || ex == nil {
		return nil, err
	}
	progress := entities.StudyProgress{
		CheckedCount: ex.CheckedCount.Add(checkedDelta),
		LearnedCount: ex.LearnedCount.Add(learnedDelta),
	}
	err = r.store.Update(ctx, Collection, docID(id), map[string]any{
		"checked_count": progress.CheckedCount.Int(),
		"learned_count": progress.LearnedCount.Int(),
	})
	if err != nil {
		return nil, fmt.Errorf("update example %d: %w", id, err)
	}
	return &progress, nil
}

// UpdateTypingPractice adds inputLength to the typed character total when the
// attempt is within TypingTolerance of the sentence length.
func (r *Repository) UpdateTypingPractice(ctx context.Context, id int64, inputLength int) (entities.Count, bool, error) {
	if inputLength <= 0 {
		return 0, false, fmt.Errorf("%w: %d", ErrInvalidTypingInput, inputLength)
	}
	ex, err := r.Get(ctx, id)
	if err != nil || ex == nil {
		return 0, false, err
	}
	want := utf8.RuneCountInString(ex.En)
	if diff := inputLength - want; diff > TypingTolerance || diff < -TypingTolerance {
		return 0, true, fmt.Errorf("%w: got %d characters, sentence has %d", ErrInvalidTypingInput, inputLength, want)
	}
	total := ex.TypingPracticeChars.Add(inputLength)
	if err := r.store.Update(ctx, Collection, docID(id), map[string]any{"typing_practice_chars": total.Int()}); err != nil {
		return 0, true, fmt.Errorf("update example %d: %w", id, err)
	}
	return total, true, nil
}

// ListOptions selects a cross-pack example listing.
type ListOptions struct {
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir docstore.Direction
	Search   string
	Mode     search.Mode
	Category entities.Category
}

func (o ListOptions) query() (docstore.Query, error) {
	q := docstore.From(Collection)
	if o.Category != "" {
		if !o.Category.Valid() {
			return q, fmt.Errorf("%w: %q", entities.ErrInvalidCategory, o.Category)
		}
		q = q.Where("category", docstore.Eq, string(o.Category))
	}

	if search.Normalize(o.Search) != "" {
		switch o.Mode {
		case search.ModePrefix:
			lo, hi := search.PrefixRange(o.Search)
			q = q.Where("search_text", docstore.Gte, lo).Where("search_text", docstore.Lte, hi)
		case search.ModeSuffix:
			lo, hi := search.SuffixRange(o.Search)
			q = q.Where("search_text_reversed", docstore.Gte, lo).Where("search_text_reversed", docstore.Lte, hi)
		case search.ModeContains, "":
			q = q.Where("search_terms", docstore.ArrayContains, search.ContainsTerm(o.Search))
		default:
			return q, fmt.Errorf("%w: %q", search.ErrInvalidMode, o.Mode)
		}
	}
	return q, q.Err()
}

func (o ListOptions) ordered(q docstore.Query) (docstore.Query, error) {
	field := o.OrderBy
	dir := o.OrderDir
	if field == "" {
		field, dir = "id", docstore.Desc
	}
	if !orderFields[field] {
		return q, fmt.Errorf("%w: %q", ErrInvalidOrderField, field)
	}
	q = q.OrderBy(field, dir)
	if field != "id" {
		q = q.OrderBy("id", dir)
	}
	return q, nil
}

// List returns a page of examples across packs. Contains searches are
// approximate; see package search.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]entities.Example, error) {
	q, err := opts.query()
	if err != nil {
		return nil, err
	}
	q, err = opts.ordered(q)
	if err != nil {
		return nil, err
	}
	docs, err := docstore.Paginate(ctx, r.store, q, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list examples: %w", err)
	}
	return decodeAll(docs)
}

// Count returns the number of examples matching opts, ignoring paging and
// ordering. It fails when the store cannot aggregate.
func (r *Repository) Count(ctx context.Context, opts ListOptions) (int64, error) {
	q, err := opts.query()
	if err != nil {
		return 0, err
	}
	n, err := r.store.Count(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count examples: %w", err)
	}
	return n, nil
}
