package cmd

import (
	"log"
	"os"

	"github.com/findy-network/findy-alice/cmds/alice"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

var sendEnvs = map[string]string{
	"msg":           "MESSAGE",
	"connection-id": "CONNECTION_ID",
}

// sendCmd represents the send subcommand
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Command for sending basic message over the connection",
	Long: `
Sends basic message over a connection made earlier with the connect command.

--msg is required. --connection-id is needed only if the wallet has more than
one connection.

Example
	findy-alice send \
		--wallet-name alice \
		--wallet-password secret \
		--user alice-cloud-agent \
		--msg "Hello world!"
`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(sendEnvs, cmd.Name())
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		msgCmd.Cmd = aliceCmd()
		try.To(msgCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(msgCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var msgCmd = alice.SendCmd{}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	flags := sendCmd.Flags()
	flags.StringVar(&msgCmd.Msg, "msg", "", flagInfo("message to be send", sendCmd.Name(), sendEnvs["msg"]))
	flags.StringVar(&msgCmd.ConnectionID, "connection-id", "", flagInfo("connection id", sendCmd.Name(), sendEnvs["connection-id"]))

	rootCmd.AddCommand(sendCmd)
}
