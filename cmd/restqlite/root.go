package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/restqlite/restqlite/pkg/config"
)

var cfgFile string
var logLevel string
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "restqlite",
	Short: "restqlite serves a SQLite database as a REST API",
	Long:  `restqlite exposes every table of a SQLite database as a generic REST resource, with signup/login and per-table access policies on top`,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.Version)
			return
		}

		// If no subcommand is provided, print help
		cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/restqlite.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log requests at this level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Print the version number")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
}
