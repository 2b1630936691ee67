package cmd

import (
	"log"
	"os"

	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/findy-network/findy-alice/cmds/alice"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

// walletParentCmd represents the wallet command
var walletParentCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Parent command for wallet actions",
	Long: `
Parent command for the actions which only need the wallet file.

This command requires a subcommand so command itself does nothing.
`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the Ethereum address and the connections of the wallet",
	Long: `
Example
	findy-alice wallet show \
		--wallet-name alice \
		--wallet-password secret
`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		c := alice.ShowCmd{WalletCmd: walletCmdOf()}
		try.To(c.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(c.Exec(os.Stdout))
		}
		return nil
	},
}

var deleteEnvs = map[string]string{
	"id": "ID",
}

var walletDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes the record from the wallet",
	Long: `
Deletes the custom record by its id. Deleting the record "ether" removes the
Ethereum keypair, and a new one is created at the next start.

Example
	findy-alice wallet delete \
		--wallet-name alice \
		--wallet-password secret \
		--id ether
`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(deleteEnvs, cmd.Name())
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		delCmd.WalletCmd = walletCmdOf()
		try.To(delCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(delCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var delCmd = alice.DeleteCmd{}

func walletCmdOf() alice.WalletCmd {
	return alice.WalletCmd{
		Cmd:         walletCmd(),
		StoragePath: utils.Settings.StoragePath(),
	}
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	walletDeleteCmd.Flags().StringVar(&delCmd.ID, "id", "",
		flagInfo("record id", walletDeleteCmd.Name(), deleteEnvs["id"]))

	walletParentCmd.AddCommand(walletShowCmd, walletDeleteCmd)
	rootCmd.AddCommand(walletParentCmd)
}
