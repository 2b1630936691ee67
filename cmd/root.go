package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/findy-network/findy-alice/agent/storage/cfg"
	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/findy-network/findy-alice/cmds"
	"github.com/findy-network/findy-alice/cmds/alice"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FCLI"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: utils.Version,
	Use:     "findy-alice",
	Short:   "Findy alice, a credential holder and prover",
	Long: `
Findy alice is a credential holder and prover. It connects to an issuer or
verifier with an out-of-band invitation and accepts the credential offers and
proof requests sent over the connection. The DIDComm protocols are run by a
findy agency cloud agent.

The wallet of alice stores the Ethereum keypair of the user, which is created
at the first start.
	`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmds.ParseLoggingArgs(rootFlags.logging)
		handleViperFlags(cmd)
		applySettings()
	},
}

// Execute root
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// To fix errors printed twice removing the cobra generators next
		// see: https://github.com/spf13/cobra/issues/304
		// fmt.Println(err)

		os.Exit(1)
	}
}

// RootCmd returns a current root command which can be used for adding own
// commands in an own repo.
//
//	implCmd.AddCommand(listCmd)
func RootCmd() *cobra.Command {
	return rootCmd
}

// DryRun returns a value of a dry run flag.
func DryRun() bool {
	return rootFlags.dryRun
}

// RootFlags are the common flags
type RootFlags struct {
	cfgFile string
	dryRun  bool
	logging string
}

// ClientFlags are the wallet and the agency flags of all commands.
type ClientFlags struct {
	WalletName     string
	WalletKey      string
	WalletPassword string
	StoragePath    string

	AgencyAddr string
	AgencyPort int
	TLSPath    string
	User       string
	Label      string

	Timeout      string
	PollInterval string
	StrictSecret bool
}

var (
	rootFlags = RootFlags{}
	cFlags    = ClientFlags{}
)

var rootEnvs = map[string]string{
	"config":          "CONFIG",
	"logging":         "LOGGING",
	"dry-run":         "DRY_RUN",
	"wallet-name":     "WALLET_NAME",
	"wallet-key":      "WALLET_KEY",
	"wallet-password": "WALLET_PASSWORD",
	"storage-path":    "STORAGE_PATH",
	"agency-addr":     "AGENCY_ADDR",
	"agency-port":     "AGENCY_PORT",
	"tls-path":        "TLS_PATH",
	"user":            "USER",
	"label":           "LABEL",
	"timeout":         "TIMEOUT",
	"poll-interval":   "POLL_INTERVAL",
	"strict-secret":   "STRICT_SECRET",
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.cfgFile, "config", "", flagInfo("configuration file", "", rootEnvs["config"]))
	flags.StringVar(&rootFlags.logging, "logging", "-logtostderr=true -v=2", flagInfo("logging startup arguments", "", rootEnvs["logging"]))
	flags.BoolVarP(&rootFlags.dryRun, "dry-run", "n", false, flagInfo("perform a trial run with no changes made", "", rootEnvs["dry-run"]))

	flags.StringVar(&cFlags.WalletName, "wallet-name", "", flagInfo("wallet name", "", rootEnvs["wallet-name"]))
	flags.StringVar(&cFlags.WalletKey, "wallet-key", "", flagInfo("wallet key, 32 bytes in hex", "", rootEnvs["wallet-key"]))
	flags.StringVar(&cFlags.WalletPassword, "wallet-password", "", flagInfo("wallet password, the key is derived from it if the key isn't given", "", rootEnvs["wallet-password"]))
	flags.StringVar(&cFlags.StoragePath, "storage-path", "", flagInfo("wallet directory, default ~/.findy/alice", "", rootEnvs["storage-path"]))

	flags.StringVar(&cFlags.AgencyAddr, "agency-addr", "localhost", flagInfo("agency gRPC address", "", rootEnvs["agency-addr"]))
	flags.IntVar(&cFlags.AgencyPort, "agency-port", 50051, flagInfo("agency gRPC port", "", rootEnvs["agency-port"]))
	flags.StringVar(&cFlags.TLSPath, "tls-path", "", flagInfo("TLS cert path", "", rootEnvs["tls-path"]))
	flags.StringVar(&cFlags.User, "user", "", flagInfo("cloud agent user", "", rootEnvs["user"]))
	flags.StringVar(&cFlags.Label, "label", "alice", flagInfo("our label in connections", "", rootEnvs["label"]))

	flags.StringVar(&cFlags.Timeout, "timeout", "1m", flagInfo("connection accept timeout", "", rootEnvs["timeout"]))
	flags.StringVar(&cFlags.PollInterval, "poll-interval", "500ms", flagInfo("connection state poll interval", "", rootEnvs["poll-interval"]))
	flags.BoolVar(&cFlags.StrictSecret, "strict-secret", false, flagInfo("don't create a new keypair if the wallet read fails", "", rootEnvs["strict-secret"]))

	for flagKey := range rootEnvs {
		if flagKey == "config" {
			continue
		}
		try.To(viper.BindPFlag(flagKey, flags.Lookup(flagKey)))
	}

	try.To(BindEnvs(rootEnvs, ""))
	try.To(rootCmd.RegisterFlagCompletionFunc("wallet-name", walletNameCompletion))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer("-", "_")
	viper.SetEnvKeyReplacer(replacer)
	readConfigFile()
	readBoundRootFlags()
}

func readBoundRootFlags() {
	rootFlags.logging = viper.GetString("logging")
	rootFlags.dryRun = viper.GetBool("dry-run")

	cFlags.WalletName = viper.GetString("wallet-name")
	cFlags.WalletKey = viper.GetString("wallet-key")
	cFlags.WalletPassword = viper.GetString("wallet-password")
	cFlags.StoragePath = viper.GetString("storage-path")
	cFlags.AgencyAddr = viper.GetString("agency-addr")
	cFlags.AgencyPort = viper.GetInt("agency-port")
	cFlags.TLSPath = viper.GetString("tls-path")
	cFlags.User = viper.GetString("user")
	cFlags.Label = viper.GetString("label")
	cFlags.Timeout = viper.GetString("timeout")
	cFlags.PollInterval = viper.GetString("poll-interval")
	cFlags.StrictSecret = viper.GetBool("strict-secret")
}

func readConfigFile() {
	cfgEnv := os.Getenv(getEnvName("", "config"))
	if rootFlags.cfgFile != "" || cfgEnv != "" {
		printInfo := true
		if rootFlags.cfgFile == "" {
			rootFlags.cfgFile = cfgEnv
			printInfo = false
		}
		viper.SetConfigFile(rootFlags.cfgFile)
		// If a config file is found, read it in.
		if err := viper.ReadInConfig(); err == nil && printInfo {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// applySettings moves the common flags to the settings hub.
func applySettings() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	if cFlags.StoragePath != "" {
		utils.Settings.SetStoragePath(cFlags.StoragePath)
	}
	utils.Settings.SetTimeout(parseDuration(cFlags.Timeout))
	utils.Settings.SetPollInterval(parseDuration(cFlags.PollInterval))
	utils.Settings.SetStrictSecret(cFlags.StrictSecret)
}

// walletCmd returns the wallet part of the commands. The key is derived from
// the password when only the password is given.
func walletCmd() cmds.Cmd {
	key := cFlags.WalletKey
	if key == "" && cFlags.WalletPassword != "" {
		key = cfg.KeyFromPassword(cFlags.WalletName, cFlags.WalletPassword)
	}
	return cmds.Cmd{
		WalletName: cFlags.WalletName,
		WalletKey:  key,
	}
}

func aliceCmd() alice.Cmd {
	return alice.Cmd{
		Cmd: walletCmd(),
		GrpcCmd: cmds.GrpcCmd{
			TLSPath: cFlags.TLSPath,
			Addr:    cFlags.AgencyAddr,
			Port:    cFlags.AgencyPort,
			User:    cFlags.User,
		},
		Label:        cFlags.Label,
		StoragePath:  utils.Settings.StoragePath(),
		StrictSecret: utils.Settings.StrictSecret(),
		PollInterval: utils.Settings.PollInterval(),
	}
}

// BindEnvs calls viper.BindEnv with envMap and cmdName which can be empty if
// flag is general.
func BindEnvs(envMap map[string]string, cmdName string) (err error) {
	defer err2.Handle(&err)
	for flagKey, envName := range envMap {
		finalEnvName := getEnvName(cmdName, envName)
		try.To(viper.BindEnv(flagKey, finalEnvName))
	}
	return nil
}

func flagInfo(info, cmdPrefix, envName string) string {
	return info + ", " + getEnvName(cmdPrefix, envName)
}

func getEnvName(cmdName, envName string) string {
	if cmdName == "" {
		return envPrefix + "_" + strings.ToUpper(envName)
	}
	return envPrefix + "_" + strings.ToUpper(cmdName) + "_" + envName
}

func handleViperFlags(cmd *cobra.Command) {
	setRequiredStringFlags(cmd)
	if cmd.HasParent() {
		handleViperFlags(cmd.Parent())
	}
}

func setRequiredStringFlags(cmd *cobra.Command) {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	try.To(viper.BindPFlags(cmd.LocalFlags()))
	if cmd.PreRunE != nil {
		try.To(cmd.PreRunE(cmd, nil))
	}
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if viper.GetString(f.Name) != "" {
			try.To(cmd.LocalFlags().Set(f.Name, viper.GetString(f.Name)))
		}
	})
}

// SubCmdNeeded prints the help and error messages because the cmd is abstract.
func SubCmdNeeded(cmd *cobra.Command) {
	fmt.Println("Subcommand needed!")
	_ = cmd.Help()
	os.Exit(1)
}
