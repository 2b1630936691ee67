package cmd

import (
	"fmt"

	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

var versionDoc = `
Prints the version of findy-alice. The version is set at the build time.`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of the CLI tool",
	Long:  versionDoc,
	RunE: func(_ *cobra.Command, _ []string) (err error) {
		defer err2.Handle(&err)

		try.To1(fmt.Println(rootCmd.Use, utils.Version))
		return nil
	},
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		fmt.Println(err)
	}))

	rootCmd.AddCommand(versionCmd)
}
