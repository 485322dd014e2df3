package importers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mrlokans/wordpack/internal/entities"
)

// RawPack is a pack read from any import source.
type RawPack struct {
	ID      string               `json:"id"`
	Label   string               `json:"label"`
	Payload entities.PackPayload `json:"payload"`
}

// Source describes where a batch of packs came from.
type Source struct {
	Name     string
	FilePath string
}

// Converter transforms source data into RawPacks.
//
// Implementations:
//   - SeedConverter (seed.go) - JSONC seed files
type Converter interface {
	Convert() ([]RawPack, Source)
}

// PackWriter persists packs.
type PackWriter interface {
	UpsertPack(ctx context.Context, id, label string, payload entities.PackPayload) error
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	PacksProcessed    int
	ExamplesProcessed int
	PacksFailed       int
	Errors            []string
}

// Pipeline handles the common import workflow: convert, deduplicate by pack
// id, save.
type Pipeline struct {
	writer PackWriter
}

// NewPipeline creates a new import pipeline with the given writer.
func NewPipeline(writer PackWriter) *Pipeline {
	return &Pipeline{writer: writer}
}

// Import saves every pack produced by converter. A failing pack is counted
// and skipped; only cancellation aborts the run.
func (p *Pipeline) Import(ctx context.Context, converter Converter) (ImportResult, error) {
	raw, source := converter.Convert()
	var result ImportResult
	if len(raw) == 0 {
		return result, nil
	}

	for _, pack := range dedupeByID(raw) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.writer.UpsertPack(ctx, pack.ID, pack.Label, pack.Payload); err != nil {
			result.PacksFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", pack.ID, err))
			log.Printf("[IMPORT] %s: pack %q failed: %v", source.Name, pack.ID, err)
			continue
		}
		result.PacksProcessed++
		result.ExamplesProcessed += pack.Payload.ExampleCount()
	}

	log.Printf("[IMPORT] %s: %d packs, %d examples, %d failed",
		source.Name, result.PacksProcessed, result.ExamplesProcessed, result.PacksFailed)
	return result, nil
}

// dedupeByID keeps the last occurrence of each pack id, in first-seen order.
func dedupeByID(raw []RawPack) []RawPack {
	index := make(map[string]int, len(raw))
	out := make([]RawPack, 0, len(raw))
	for _, pack := range raw {
		pack.ID = strings.TrimSpace(pack.ID)
		if i, ok := index[pack.ID]; ok {
			out[i] = pack
			continue
		}
		index[pack.ID] = len(out)
		out = append(out, pack)
	}
	return out
}
