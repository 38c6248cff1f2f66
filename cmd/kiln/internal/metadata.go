package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilnpy/kiln/backend"
)

var metadataOutput string

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Write the project's metadata directory without building",
	Long: `Metadata resolves the project configuration and writes the
dist-info directory a wheel build would embed. The external build
tool never runs.`,
	Args: cobra.NoArgs,
	RunE: runMetadata,
}

func init() {
	metadataCmd.Flags().StringVarP(&metadataOutput, "output-dir", "o", "dist", "Output directory for the metadata directory")
	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	b, err := projectBackend()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(metadataOutput, 0755); err != nil {
		return err
	}
	name, err := b.PrepareMetadata(metadataOutput, backend.Settings{})
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}
