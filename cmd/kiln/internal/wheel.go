package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilnpy/kiln/backend"
	"github.com/kilnpy/kiln/pkgs/buildtool/conan"
)

var (
	wheelOutput       string
	wheelHostProfile  string
	wheelBuildProfile string
	wheelBuildDir     string
)

var wheelCmd = &cobra.Command{
	Use:   "wheel",
	Short: "Build a wheel from the project in the current directory",
	Long: `Wheel runs the external build tool, stages the declared packages
together with the compiled extension modules and writes the tagged
archive into the output directory.`,
	Args: cobra.NoArgs,
	RunE: runWheel,
}

func init() {
	wheelCmd.Flags().StringVarP(&wheelOutput, "output-dir", "o", "dist", "Output directory for the archive")
	wheelCmd.Flags().StringVar(&wheelHostProfile, "host-profile", "", "Host-context profile for the build tool")
	wheelCmd.Flags().StringVar(&wheelBuildProfile, "build-profile", "", "Build-context profile for the build tool")
	wheelCmd.Flags().StringVar(&wheelBuildDir, "build-dir", "", "Persistent build directory (default: a temporary one)")
	rootCmd.AddCommand(wheelCmd)
}

func runWheel(cmd *cobra.Command, args []string) error {
	b, err := projectBackend()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(wheelOutput, 0755); err != nil {
		return err
	}
	if rootVerbose {
		tool := conan.New(b.Root)
		tool.Stdout = os.Stderr
		b.Tool = tool
	}
	settings := backend.ParseSettings(map[string]string{
		"host-profile":  wheelHostProfile,
		"build-profile": wheelBuildProfile,
		"build-dir":     wheelBuildDir,
	})
	name, err := b.BuildWheel(context.Background(), wheelOutput, settings)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}
