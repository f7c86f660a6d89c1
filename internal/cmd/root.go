// Package cmd implements the encore command line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chordflow/encore/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "encore",
	Short: "Playback arbitration controller",
	Long: `Encore resolves generic "play X" requests across competing playback
providers. It broadcasts the search phrase, collects confidence bids
within a dynamically extended window, and dispatches the best match,
breaking exact ties at random.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/encore/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/encore")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ENCORE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ENCORE_ARBITER_BASE_TIMEOUT_MS for arbiter.base_timeout_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
