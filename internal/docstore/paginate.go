package docstore

import (
	"context"
	"fmt"
)

// Paginate returns up to limit documents of q after skipping offset documents.
//
// The store has no native offset, so the skipped prefix is read and
// discarded: cost grows linearly with offset. Prefer StartAfter for deep pages.
func Paginate(ctx context.Context, store Querier, q Query, limit, offset int) ([]*Document, error) {
	if limit < 0 {
		limit = 0
	}
	if offset > 0 {
		skipped, err := store.Query(ctx, q.Limit(offset))
		if err != nil {
			return nil, fmt.Errorf("skip %d: %w", offset, err)
		}
		if len(skipped) < offset {
			return []*Document{}, nil
		}
		q = q.StartAfter(skipped[len(skipped)-1])
	}
	if limit == 0 {
		return []*Document{}, nil
	}
	return store.Query(ctx, q.Limit(limit))
}

// DeleteMatching deletes every document matched by q in batches of pageSize
// and returns the number deleted. q should carry a stable ordering.
func DeleteMatching(ctx context.Context, store Store, q Query, pageSize int) (int, error) {
	if pageSize <= 0 || pageSize > MaxBatchWrites {
		pageSize = MaxBatchWrites
	}
	deleted := 0
	var cursor *Document
	for {
		page := q.Limit(pageSize)
		if cursor != nil {
			page = page.StartAfter(cursor)
		}
		docs, err := store.Query(ctx, page)
		if err != nil {
			return deleted, err
		}
		if len(docs) == 0 {
			return deleted, nil
		}

		batch := store.Batch()
		for _, doc := range docs {
			batch.Delete(doc.Collection, doc.ID)
		}
		if err := batch.Commit(ctx); err != nil {
			return deleted, fmt.Errorf("delete page of %d: %w", len(docs), err)
		}
		deleted += len(docs)

		if len(docs) < pageSize {
			return deleted, nil
		}
		cursor = docs[len(docs)-1]
	}
}
