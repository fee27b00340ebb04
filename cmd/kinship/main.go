// Command kinship computes and names family relationships over trees read
// from YAML files, a SQLite file or the PostgreSQL read model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistorai/kinship/internal/config"
)

// Build-time variables set via ldflags.
var (
	commit    = ""
	buildDate = ""
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	file        string
	sqlite      string
	tree        string
	databaseURL string
	format      string
	logLevel    string
}

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("kinship version %s (commit: %s, built: %s)", config.Version, commit, buildDate)
	}

	return fmt.Sprintf("kinship version %s", config.Version)
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "kinship",
		Short:         "Kinship computes and names relationships between people in a family tree",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.file, "file", "f", "", "Tree file (.yaml, .yml or .json)")
	pf.StringVar(&flags.sqlite, "sqlite", "", "SQLite database holding trees (use with --tree)")
	pf.StringVarP(&flags.tree, "tree", "t", "", "Tree ID in the database")
	pf.StringVar(&flags.databaseURL, "database-url", "", "PostgreSQL URL (env: DATABASE_URL)")
	pf.StringVarP(&flags.format, "format", "o", "table", "Output format: table|json|yaml")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (env: LOG_LEVEL)")

	root.AddCommand(newRelateCmd(&flags))
	root.AddCommand(newBatchCmd(&flags))
	root.AddCommand(newMatrixCmd(&flags))
	root.AddCommand(newAncestorsCmd(&flags))
	root.AddCommand(newMigrateCmd(&flags))
	root.AddCommand(newImportCmd(&flags))
	root.AddCommand(newWatchCmd(&flags))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
