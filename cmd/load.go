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
	"context"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanidump/sanidump/src/tgtdb"
	"github.com/sanidump/sanidump/src/utils"
)

var (
	target    tgtdb.Target
	inputPath string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replay a sanidump dump file into the target database",
	Long: `Replays a dump produced by 'sanidump export' against a target database
whose schema already exists. Tables are loaded in the dump's order, so
foreign key constraints are satisfied without deferring them.`,

	Run: func(cmd *cobra.Command, args []string) {
		loadData()
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	registerTargetDBFlags(loadCmd)

	loadCmd.Flags().StringVarP(&inputPath, "input", "i", "-",
		`dump file to replay ("-" for stdin)`)
}

func registerTargetDBFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&target.Host, "target-db-host", "127.0.0.1",
		"target database server host")
	cmd.Flags().IntVar(&target.Port, "target-db-port", 5432,
		"target database server port")
	cmd.Flags().StringVar(&target.User, "target-db-user", "",
		"connect to target database as the specified user")
	cmd.Flags().StringVar(&target.Password, "target-db-password", "",
		"target password to connect as the specified user")
	cmd.Flags().StringVar(&target.DBName, "target-db-name", "",
		"target database name to load into")
	cmd.Flags().StringVar(&target.SSLMode, "target-ssl-mode", "prefer",
		"one of disable, allow, prefer, require, verify-ca, verify-full")
	cmd.Flags().StringVar(&target.Uri, "target-db-uri", "",
		"connection URI of the target database (overrides the individual connection flags)")
}

func loadData() {
	ctx := context.Background()

	input, err := openInput(inputPath)
	if err != nil {
		utils.ErrExit("open input: %s", err)
	}

	tdb := tgtdb.NewTargetDB(&target)
	if err := tdb.Connect(ctx); err != nil {
		utils.ErrExit("connect to target database: %s", err)
	}
	defer tdb.Disconnect()

	totalRows, err := tdb.Replay(ctx, input)
	if err != nil {
		color.Red("Load of data failed ❌")
		utils.ErrExit("load data: %s", err)
	}
	color.Green("Load of data complete ✅ (%s rows)", humanize.Comma(totalRows))
}

func openInput(path string) (io.Reader, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}
