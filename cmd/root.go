package cmd

import (
	"github.com/spf13/cobra"

	"telly/internal/config"
	"telly/internal/logger"
)

var (
	verbose    bool
	configPath string
	log        = logger.New()
)

var rootCmd = &cobra.Command{
	Use:   "telly",
	Short: "Telly - a universal remote for the TVs on your network",
	Long: `Telly sends remote-control commands to Samsung, LG, Sony, Vizio, Panasonic
and Roku TVs over their native LAN protocols, handles first-time pairing and
finds TVs on the local network.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
			log = logger.New()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to the configuration file")

	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(credentialsCmd)
}
