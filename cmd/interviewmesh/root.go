package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/interviewmesh/config"
)

const app = "interviewmesh"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "interviewmesh runs LLM-driven mock technical interviews",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.Init(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewmesh.yaml in current directory)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}
