// Package cmd implements the strand command line interface.
package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "Discrete-event simulation runner",
	Long: "strand runs discrete-event simulation experiments: it creates " +
		"one scheduler per replication, drives them to completion, and " +
		"reports each run's terminal state.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		return nil
	},
}

func init() {
	// Values resolve from flags first, then STRAND_* environment
	// variables, then a local .env file.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("log-level", "info",
		"log verbosity (trace, debug, info, warn, error)")

	viper.SetEnvPrefix("STRAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log-level",
		rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
