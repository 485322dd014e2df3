package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/mrlokans/wordpack/internal/cli"
	"github.com/mrlokans/wordpack/internal/config"
	"github.com/mrlokans/wordpack/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every CLI subcommand.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "import-packs":
		cmd = cli.NewImportPacksCommand()
	case "import-article":
		cmd = cli.NewImportArticleCommand()
	case "export":
		cmd = cli.NewExportCommand()
	case "reconcile":
		cmd = cli.NewReconcileCommand()
	case "version":
		fmt.Printf("wordpack %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve           Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import-packs    Import packs from a JSON seed file\n")
	fmt.Fprintf(os.Stderr, "  import-article  Fetch a web page and save it as an article\n")
	fmt.Fprintf(os.Stderr, "  export          Export every pack as JSON or Markdown\n")
	fmt.Fprintf(os.Stderr, "  reconcile       Recompute cached example counts\n")
	fmt.Fprintf(os.Stderr, "  version         Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
