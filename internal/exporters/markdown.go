package exporters

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/utils"
)

// MarkdownExporter renders every pack into a single Markdown document.
type MarkdownExporter struct {
	reader PackReader
}

func NewMarkdownExporter(reader PackReader) *MarkdownExporter {
	return &MarkdownExporter{reader: reader}
}

func quoteYAML(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

// GenerateMarkdown renders one pack with its examples grouped by category.
// Empty categories are omitted.
func GenerateMarkdown(pack *entities.PackDetail) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "---\n")
	fmt.Fprintf(&builder, "id: %s\n", quoteYAML(pack.ID))
	fmt.Fprintf(&builder, "label: %s\n", quoteYAML(pack.Label))
	if pack.Payload.SenseTitle != "" {
		fmt.Fprintf(&builder, "sense: %s\n", quoteYAML(pack.Payload.SenseTitle))
	}
	fmt.Fprintf(&builder, "checked: %d\n", pack.CheckedCount.Int())
	fmt.Fprintf(&builder, "learned: %d\n", pack.LearnedCount.Int())
	if pack.UpdatedAt.String() != "" {
		fmt.Fprintf(&builder, "updated_at: %s\n", pack.UpdatedAt.String())
	}
	fmt.Fprintf(&builder, "---\n\n")
	fmt.Fprintf(&builder, "# %s\n\n", pack.Label)

	for _, category := range entities.Categories {
		items := pack.Payload.Examples[category]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&builder, "## %s\n\n", category)
		for _, item := range items {
			fmt.Fprintf(&builder, "- %s\n", item.En)
			if item.Ja != "" {
				fmt.Fprintf(&builder, "  - %s\n", item.Ja)
			}
			if item.GrammarNote != "" {
				fmt.Fprintf(&builder, "  - *%s*\n", item.GrammarNote)
			}
		}
		fmt.Fprintf(&builder, "\n")
	}

	return builder.String()
}

// Render concatenates every pack, separated by horizontal rules.
func (e *MarkdownExporter) Render(ctx context.Context) (string, ExportResult, error) {
	var builder strings.Builder
	result := ExportResult{}

	err := eachPack(ctx, e.reader, func(pack *entities.PackDetail) error {
		if result.PacksProcessed > 0 {
			builder.WriteString("\n---\n\n")
		}
		builder.WriteString(GenerateMarkdown(pack))
		result.PacksProcessed++
		result.ExamplesProcessed += pack.Payload.ExampleCount()
		return nil
	})
	if err != nil {
		return "", result, fmt.Errorf("render packs: %w", err)
	}
	return builder.String(), result, nil
}

// WriteFile renders every pack and atomically replaces path with the result.
func (e *MarkdownExporter) WriteFile(ctx context.Context, path string) (ExportResult, error) {
	content, result, err := e.Render(ctx)
	if err != nil {
		return result, err
	}
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return result, fmt.Errorf("write %s: %w", path, err)
	}

	log.Printf("Export completed: %d packs, %d examples written to %s", result.PacksProcessed, result.ExamplesProcessed, path)
	return result, nil
}

// WriteDir writes one file per pack into dir, creating it if needed. A pack
// that cannot be written is counted as failed and the export continues.
func (e *MarkdownExporter) WriteDir(ctx context.Context, dir string) (ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := ExportResult{}
	err := eachPack(ctx, e.reader, func(pack *entities.PackDetail) error {
		path := filepath.Join(dir, utils.PackFilename(pack.Label, pack.ID))
		if err := atomic.WriteFile(path, strings.NewReader(GenerateMarkdown(pack))); err != nil {
			log.Printf("Failed to export pack %s: %v", pack.ID, err)
			result.PacksFailed++
			return nil
		}
		result.PacksProcessed++
		result.ExamplesProcessed += pack.Payload.ExampleCount()
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("export packs: %w", err)
	}

	log.Printf("Export completed: %d packs, %d examples, %d failed in %s", result.PacksProcessed, result.ExamplesProcessed, result.PacksFailed, dir)
	return result, nil
}
