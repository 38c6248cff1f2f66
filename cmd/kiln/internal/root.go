package internal

import (
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/kilnpy/kiln/backend"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "kiln builds Python distribution archives from native extension projects",
	Long: `kiln resolves a project's pyproject.toml, drives the external build
tool to compile extension modules and assembles wheel and sdist
archives from the results.`,
	Version: backend.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Lwarn)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable verbose output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// projectBackend creates a backend rooted at the working directory.
func projectBackend() (*backend.Backend, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return backend.New(root), nil
}
