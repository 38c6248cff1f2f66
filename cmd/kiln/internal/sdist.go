package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilnpy/kiln/backend"
)

var sdistOutput string

var sdistCmd = &cobra.Command{
	Use:   "sdist",
	Short: "Build a source distribution from the project in the current directory",
	Long: `Sdist collects the project sources selected by the include and
exclude filters and writes the source archive into the output
directory. The external build tool never runs.`,
	Args: cobra.NoArgs,
	RunE: runSdist,
}

func init() {
	sdistCmd.Flags().StringVarP(&sdistOutput, "output-dir", "o", "dist", "Output directory for the archive")
	rootCmd.AddCommand(sdistCmd)
}

func runSdist(cmd *cobra.Command, args []string) error {
	b, err := projectBackend()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(sdistOutput, 0755); err != nil {
		return err
	}
	name, err := b.BuildSdist(sdistOutput, backend.Settings{})
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}
