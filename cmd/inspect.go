package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"polybackup/internal/archive"
	"polybackup/internal/display"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "List the contents of an archive artifact",
	Long: `Decodes the frame sequence of an archive produced by a directory target
and lists every contained file with its size and, when recorded, its
modification time. Compressed archives (.gz) are handled transparently.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	closer, decoder, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer closer.Close()

	entries, err := decoder.ReadAll()
	if err != nil {
		return err
	}

	renderer := display.NewRenderer(os.Stdout, display.NewPalette(noColor))
	renderer.RenderArchiveListing(args[0], entries)
	return nil
}
