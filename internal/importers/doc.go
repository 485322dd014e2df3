// Package importers brings packs and articles in from outside sources.
//
// # Packs
//
// The pack pipeline follows a simple flow:
//
//	Source Data → Converter → RawPack → Pipeline → PackWriter (database.Database)
//
// Each source implements Converter. The Pipeline deduplicates packs by id
// (last one wins) and upserts them one by one, so a single bad pack does not
// abort the file.
//
// Seed files are JSON with comments allowed:
//
//	{
//	  "version": 1,
//	  "packs": [
//	    // a comment
//	    {"id": "wp-1", "label": "bottleneck", "payload": {"examples": {"Dev": [{"en": "..."}]}}},
//	  ],
//	}
//
// # Articles
//
// ArticleImporter downloads a page, extracts its readable text and saves it as
// an article linked to every pack whose label appears in the text.
//
// # Example Usage
//
//	conv, err := importers.LoadSeedFile("packs.jsonc")
//	result, err := importers.NewPipeline(db).Import(ctx, conv)
//
//	imp := importers.NewArticleImporter(importers.NewFetcher(20*time.Second), db, db.Packs)
//	res, err := imp.Import(ctx, "https://example.com/post")
package importers
