package cmd

import (
	"os"

	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/findy-network/findy-alice/completionhelp"
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generates shell completion scripts",
	Long: `
To load completion run following:

bash:
	source <(findy-alice completion bash)

zsh: 
	source <(findy-alice completion zsh)

To configure your shell to load completions for each session add command 
above to your shell configuration script (e.g. .bash_profile/.zshrc).

`,
	ValidArgs: []string{"bash", "zsh"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(_ *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			_ = rootCmd.GenZshCompletion(os.Stdout)
		}
	},
}

func walletNameCompletion(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	if path, err := cmd.Flags().GetString("storage-path"); err == nil && path != "" {
		utils.Settings.SetStoragePath(path)
	}
	return completionhelp.WalletNames(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
