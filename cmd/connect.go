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

var connectEnvs = map[string]string{
	"ping-every": "PING_EVERY",
}

// connectCmd represents the connect subcommand
var connectCmd = &cobra.Command{
	Use:   "connect <invitation-url>",
	Short: "Command for connecting to an issuer or a verifier",
	Long: `
Accepts the out-of-band invitation and waits until the connection is ready.
After that the credential offers and proof requests received over the
connection are accepted. Lines written to the standard input are sent as basic
messages. /restart closes the wallet and /exit ends the program.

The Ethereum keypair is created to the wallet at the first start.

Example
	findy-alice connect \
		--wallet-name alice \
		--wallet-password secret \
		--user alice-cloud-agent \
		--ping-every 5 \
		'http://localhost:8020?oob=eyJAdHlwZSI6...'
`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(connectEnvs, cmd.Name())
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		utils.Settings.SetPingEvery(pingEvery)
		connCmd.Cmd = aliceCmd()
		connCmd.Invitation = args[0]
		connCmd.Timeout = utils.Settings.Timeout()
		connCmd.PingEvery = utils.Settings.PingEvery()
		try.To(connCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(connCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var (
	connCmd   alice.ConnectCmd
	pingEvery int
)

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	flags := connectCmd.Flags()
	flags.IntVar(&pingEvery, "ping-every", utils.DefaultPingEvery,
		flagInfo("trust ping interval in minutes, 0 is off", connectCmd.Name(), connectEnvs["ping-every"]))
	rootCmd.AddCommand(connectCmd)
}
