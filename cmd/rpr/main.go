package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "rpr",
		Short: "Repertoire - track pieces and ordered setlists",
		Long: `rpr keeps a repertoire of musical pieces and the setlists built from them.
Data lives in two CSV files (pieces and setlists) that are loaded at the start
of every command and written back atomically when the command changes them.

Pieces and setlists are referenced by their short display number, their
internal id, or part of their title.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: applyLogFlags,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/repertoire.yaml)")
	rootCmd.PersistentFlags().String("data-dir", ".", "directory holding the CSV files")
	rootCmd.PersistentFlags().String("pieces", "pieces.csv", "pieces file name, relative to --data-dir")
	rootCmd.PersistentFlags().String("setlists", "setlists.csv", "setlists file name, relative to --data-dir")
	rootCmd.PersistentFlags().String("event-log", "artifacts", "directory for the JSONL event log (empty disables it)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, name := range []string{"data-dir", "pieces", "setlists", "event-log", "verbose", "quiet"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("repertoire")
		viper.SetConfigType("yaml")
	}

	// RPR_DATA_DIR, RPR_EVENT_LOG, ...
	viper.SetEnvPrefix("RPR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func applyLogFlags(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
