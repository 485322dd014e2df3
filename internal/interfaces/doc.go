// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Storage
//
//   - docstore.Store: Document store with transactions, batches and aggregation
//     (internal/docstore/docstore.go). Implemented by MemoryStore and SQLiteStore.
//
// ## Data Access Interfaces
//
//   - PackStore, ExampleStore, ArticleStore, UserStore: Handler dependencies
//     (internal/http/stores.go). Implemented by *database.Database.
//   - PackReader: Read side of export (internal/exporters/generic.go)
//   - LabelSource: Pack labels for mention detection (internal/mentions/detector.go)
//
// ## Import Interfaces
//
//   - Converter: Turns a source into RawPacks (internal/importers/pipeline.go)
//   - PackWriter, ArticleWriter: Persist imported data (internal/importers/)
//
// ## Background Work
//
//   - Reconciler: Recomputes cached category counts (internal/tasks/reconcile.go)
//   - TaskQueue / Enqueuer: Enqueue tasks (internal/http/stores.go, internal/scheduler/)
//
// # Adding a New Import Source
//
// To add support for a new pack source:
//
//  1. Create converter in internal/importers/
//
//     type AnkiConverter struct {
//         Notes []AnkiNote
//     }
//
//     func (c *AnkiConverter) Convert() ([]importers.RawPack, importers.Source) {
//         // Transform to common format
//     }
//
//     var _ importers.Converter = (*AnkiConverter)(nil)
//
//  2. Add a command in internal/cli/ that runs it through importers.Pipeline
//
//  3. Register the command in main.go
//
// # Adding a New Store Backend
//
//  1. Implement docstore.Store in internal/docstore/
//
//  2. Run the shared contract tests in docstore_test.go against it
//
//  3. Add a config.StoreBackend value and open it in entrypoint.OpenDatabase
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
