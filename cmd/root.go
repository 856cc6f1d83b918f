/*
Copyright (c) sanidump authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logDir   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "sanidump",
	Short: "Export an anonymized, replayable copy of a PostgreSQL database",
	Long: `sanidump connects to a live PostgreSQL database, applies a declarative
per-column anonymization rule file and streams every user table, in
foreign-key dependency order, into a single dump file that can be
replayed against a fresh database with 'sanidump load'.`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Use != "version" {
			InitLogging(logDir, cmd.Use, logLevel)
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is $HOME/.sanidump.yaml)")

	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", ".",
		"directory for the sanidump log file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"logging level: trace, debug, info, warn, error")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".sanidump" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sanidump")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
