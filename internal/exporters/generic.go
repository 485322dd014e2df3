package exporters

import (
	"context"

	"github.com/mrlokans/wordpack/internal/entities"
)

// PackReader reads packs for export. *database.Database implements it.
type PackReader interface {
	ListPacks(ctx context.Context, limit, offset int) ([]entities.PackSummary, error)
	GetPack(ctx context.Context, id string) (*entities.PackDetail, error)
}

type ExportResult struct {
	PacksProcessed    int `json:"packs_processed"`
	ExamplesProcessed int `json:"examples_processed"`
	PacksFailed       int `json:"packs_failed"`
}

// exportPageSize is the listing page size used while walking every pack.
const exportPageSize = 200

// eachPack calls fn with every pack, newest first. Packs deleted between
// listing and reading are skipped.
func eachPack(ctx context.Context, reader PackReader, fn func(pack *entities.PackDetail) error) error {
	for offset := 0; ; offset += exportPageSize {
		page, err := reader.ListPacks(ctx, exportPageSize, offset)
		if err != nil {
			return err
		}
		for _, summary := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			pack, err := reader.GetPack(ctx, summary.ID)
			if err != nil {
				return err
			}
			if pack == nil {
				continue
			}
			if err := fn(pack); err != nil {
				return err
			}
		}
		if len(page) < exportPageSize {
			return nil
		}
	}
}
