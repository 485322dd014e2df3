package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/importers"
)

type ImportPacksCommand struct {
	File    string
	DryRun  bool
	Verbose bool
	store   storeFlags
	cfg     *config.Config
}

func NewImportPacksCommand() *ImportPacksCommand {
	return &ImportPacksCommand{cfg: config.NewConfig()}
}

func (cmd *ImportPacksCommand) ParseFlags(args []string) error {
	fs := newFlagSet("import-packs",
		"Import packs from a JSON (or JSONC) seed file. Packs are upserted by id.",
		"import-packs -f ./packs.json",
		"import-packs -f ./packs.jsonc --dry-run",
		"import-packs -f ./packs.json --backend memory --snapshot ./wordpack.json",
	)

	fs.StringVarP(&cmd.File, "file", "f", "", "Seed file to import (required)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse the file and report what would be imported")
	fs.BoolVarP(&cmd.Verbose, "verbose", "v", false, "List every pack")
	cmd.store.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.File == "" {
		fs.Usage()
		return fmt.Errorf("file is required")
	}
	return nil
}

func (cmd *ImportPacksCommand) Run() error {
	conv, err := importers.LoadSeedFile(cmd.File)
	if err != nil {
		return err
	}
	packs, _ := conv.Convert()
	fmt.Printf("Read %d packs from %s\n", len(packs), cmd.File)

	if cmd.Verbose {
		for i, p := range packs {
			fmt.Printf("%d. %s %q (%d examples)\n", i+1, p.ID, p.Label, p.Payload.ExampleCount())
		}
	}

	if cmd.DryRun {
		fmt.Println("Dry run, nothing written")
		return nil
	}

	db, closeDB, err := openDatabase(cmd.cfg, cmd.store)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := importers.NewPipeline(db).Import(context.Background(), conv)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\n=== Import Results ===\n")
	fmt.Printf("Packs imported: %d\n", result.PacksProcessed)
	fmt.Printf("Examples imported: %d\n", result.ExamplesProcessed)
	fmt.Printf("Packs failed: %d\n", result.PacksFailed)
	for _, e := range result.Errors {
		log.Printf("  %s", e)
	}

	if result.PacksFailed > 0 {
		return fmt.Errorf("%d packs failed to import", result.PacksFailed)
	}
	return nil
}
