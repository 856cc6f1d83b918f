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
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/sanidump/sanidump/src/anon"
	"github.com/sanidump/sanidump/src/export"
	"github.com/sanidump/sanidump/src/plan"
	"github.com/sanidump/sanidump/src/srcdb"
	"github.com/sanidump/sanidump/src/utils"
)

var (
	source       srcdb.Source
	ruleFilePath string
	seedFlag     string
	outputPath   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export anonymized table data from the source database",
	Long: `Connects to the source database, resolves the set of tables to export,
orders them by foreign-key dependencies and streams each table's
anonymized projection through COPY into the output dump.`,

	Run: func(cmd *cobra.Command, args []string) {
		exportData()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	registerSourceDBFlags(exportCmd)

	exportCmd.Flags().StringVar(&ruleFilePath, "rules", "",
		"path to the YAML anonymization rule file (required)")
	exportCmd.MarkFlagRequired("rules")

	exportCmd.Flags().StringVar(&seedFlag, "seed", "",
		"seed for the deterministic fake transforms (overrides the rule file seed)")

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "-",
		`output file for the dump ("-" for stdout)`)
}

func registerSourceDBFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&source.Host, "source-db-host", "127.0.0.1",
		"source database server host")
	cmd.Flags().IntVar(&source.Port, "source-db-port", 5432,
		"source database server port")
	cmd.Flags().StringVar(&source.User, "source-db-user", "",
		"connect to source database as the specified user")
	cmd.Flags().StringVar(&source.Password, "source-db-password", "",
		"source password to connect as the specified user")
	cmd.Flags().StringVar(&source.DBName, "source-db-name", "",
		"source database name to be exported")
	cmd.Flags().StringVar(&source.SSLMode, "source-ssl-mode", "prefer",
		"one of disable, allow, prefer, require, verify-ca, verify-full")
	cmd.Flags().StringVar(&source.Uri, "source-db-uri", "",
		"connection URI of the source database (overrides the individual connection flags)")
}

func exportData() {
	ctx := context.Background()

	if !utils.FileOrFolderExists(ruleFilePath) {
		utils.ErrExit("rule file %q does not exist", ruleFilePath)
	}
	ruleSet, err := anon.LoadRuleFile(ruleFilePath)
	if err != nil {
		utils.ErrExit("load rules: %s", err)
	}
	seed := resolveSeed(ruleSet)
	ruleIndex := anon.NewRuleIndex(ruleSet.Rules)

	pg := srcdb.NewPostgreSQL(&source)
	if err := pg.Connect(ctx); err != nil {
		utils.ErrExit("connect to source database: %s", err)
	}
	defer pg.Disconnect()
	if err := pg.CheckServerVersion(ctx); err != nil {
		utils.ErrExit("%s", err)
	}

	allTables, err := pg.GetAllTableNames(ctx)
	if err != nil {
		utils.ErrExit("introspect tables: %s", err)
	}
	fkEdges, err := pg.ListForeignKeys(ctx)
	if err != nil {
		utils.ErrExit("introspect foreign keys: %s", err)
	}

	tables := plan.ResolveTableSet(allTables, ruleIndex)
	exportPlan := plan.BuildPlan(tables, fkEdges)
	if exportPlan.CycleDetected {
		color.Yellow("Warning: foreign key cycle detected, exporting in alphabetical order")
	}
	if len(exportPlan.Tables) == 0 {
		utils.PrintAndLog("No tables to export.")
		return
	}

	var approxTotalRows int64
	for _, table := range exportPlan.Tables {
		approxTotalRows += pg.GetTableApproxRowCount(ctx, table)
	}
	utils.PrintAndLog("exporting %d tables (~%s rows) to %s",
		len(exportPlan.Tables), humanize.Comma(approxTotalRows),
		lo.Ternary(outputPath == "-", "stdout", outputPath))

	sink, err := openSink(outputPath)
	if err != nil {
		utils.ErrExit("open output: %s", err)
	}

	if err := anon.InstallTransformFunctions(ctx, pg.Conn()); err != nil {
		utils.ErrExit("%s", err)
	}

	descriptor := export.NewDescriptor(seed, exportPlan.CycleDetected)
	progress := make(chan export.ProgressEvent, len(exportPlan.Tables))
	progressDone := renderProgress(progress, int64(len(exportPlan.Tables)), descriptor)

	executor := &export.Executor{
		Introspector: pg,
		Streamer:     pg,
		Rules:        ruleIndex,
		Seed:         seed,
		Sink:         sink,
		Progress:     progress,
	}
	runErr := executor.Run(ctx, exportPlan)
	close(progress)
	totalRows := <-progressDone

	if sink != os.Stdout {
		if err := sink.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		color.Red("Export of data failed ❌")
		utils.ErrExit("export data: %s", runErr)
	}

	if outputPath != "-" {
		if err := descriptor.Save(outputPath + ".descriptor.json"); err != nil {
			utils.PrintAndLog("Warning: %s", err)
		}
	}
	color.Green("Export of data complete ✅ (%s rows)", humanize.Comma(totalRows))
}

// resolveSeed picks the run seed: flag wins over the rule file; with
// neither, a fresh random seed is generated and surfaced to the operator
// so the export stays reproducible afterwards.
func resolveSeed(ruleSet *anon.RuleSet) string {
	if seedFlag != "" {
		return seedFlag
	}
	if ruleSet.Seed != "" {
		return ruleSet.Seed
	}
	generated := uuid.NewString()
	utils.PrintAndLog("no seed supplied, generated seed %q - reuse it to reproduce this export", generated)
	return generated
}

func openSink(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}

// renderProgress consumes executor progress events, drives the table
// progress bar on stderr (the dump may be going to stdout) and records
// the per-table row counts into the descriptor. The returned channel
// yields the total exported rows once the event channel closes.
func renderProgress(events <-chan export.ProgressEvent, totalTables int64, descriptor *export.Descriptor) <-chan int64 {
	done := make(chan int64, 1)
	progressContainer := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(42))
	bar := progressContainer.AddBar(totalTables,
		mpb.PrependDecorators(
			decor.Name("tables"),
			decor.CountersNoUnit(" %d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
		),
	)

	go func() {
		var totalRows int64
		for event := range events {
			bar.Increment()
			totalRows += event.Rows
			descriptor.AddTable(event.Table.Qualified(), event.Rows)
		}
		if !bar.Completed() { // the run failed mid-way
			bar.Abort(true)
		}
		progressContainer.Wait()
		done <- totalRows
	}()
	return done
}
