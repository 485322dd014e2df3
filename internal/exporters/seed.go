package exporters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/natefinch/atomic"

	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/importers"
)

// SeedExporter dumps every pack in the seed format read by the import-packs
// command.
type SeedExporter struct {
	reader PackReader
}

func NewSeedExporter(reader PackReader) *SeedExporter {
	return &SeedExporter{reader: reader}
}

// Collect reads every pack into a seed document.
func (e *SeedExporter) Collect(ctx context.Context) (*importers.SeedFile, ExportResult, error) {
	seed := &importers.SeedFile{Version: importers.SeedVersion, Packs: []importers.RawPack{}}
	result := ExportResult{}

	err := eachPack(ctx, e.reader, func(pack *entities.PackDetail) error {
		seed.Packs = append(seed.Packs, importers.RawPack{
			ID:      pack.ID,
			Label:   pack.Label,
			Payload: pack.Payload,
		})
		result.PacksProcessed++
		result.ExamplesProcessed += pack.Payload.ExampleCount()
		return nil
	})
	if err != nil {
		return nil, result, fmt.Errorf("collect packs: %w", err)
	}
	return seed, result, nil
}

// WriteFile writes every pack to path as indented JSON. The file is replaced
// atomically, so readers never see a partial export.
func (e *SeedExporter) WriteFile(ctx context.Context, path string) (ExportResult, error) {
	seed, result, err := e.Collect(ctx)
	if err != nil {
		return result, err
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return result, fmt.Errorf("encode seed: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return result, fmt.Errorf("write %s: %w", path, err)
	}

	log.Printf("Export completed: %d packs, %d examples written to %s", result.PacksProcessed, result.ExamplesProcessed, path)
	return result, nil
}
