package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requiresSdist bool

var requiresCmd = &cobra.Command{
	Use:   "requires",
	Short: "Report extra build requirements, one per line",
	Args:  cobra.NoArgs,
	RunE:  runRequires,
}

func init() {
	requiresCmd.Flags().BoolVar(&requiresSdist, "sdist", false, "Report requirements for sdist builds instead of wheel builds")
	rootCmd.AddCommand(requiresCmd)
}

func runRequires(cmd *cobra.Command, args []string) error {
	b, err := projectBackend()
	if err != nil {
		return err
	}
	var reqs []string
	if requiresSdist {
		reqs = b.GetRequiresForBuildSdist()
	} else {
		reqs = b.GetRequiresForBuildWheel()
	}
	for _, r := range reqs {
		fmt.Println(r)
	}
	return nil
}
