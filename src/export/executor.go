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

// Package export drives the table-by-table anonymized dump: per table it
// compiles the transformed projection, opens a COPY TO STDOUT stream of
// it and frames the raw bytes into the sink for later bulk reload.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/sanidump/sanidump/src/anon"
	"github.com/sanidump/sanidump/src/plan"
)

// Introspector supplies the catalog metadata needed during the export.
type Introspector interface {
	ListColumns(ctx context.Context, table plan.TableRef) ([]string, error)
}

// CopyStreamer opens a server-side COPY TO STDOUT of an arbitrary
// projection and copies the raw byte stream into w, returning the number
// of rows streamed.
type CopyStreamer interface {
	StreamExport(ctx context.Context, w io.Writer, copySQL string) (int64, error)
}

// ProgressEvent is emitted after each table completes.
type ProgressEvent struct {
	Table plan.TableRef
	Rows  int64
}

// Executor runs an export plan to completion, strictly sequential across
// tables: no table starts before the previous table's data and framing
// terminator are both in the sink. The rule index and seed are read-only
// shared state; the sink is owned exclusively by the executor.
type Executor struct {
	Introspector Introspector
	Streamer     CopyStreamer
	Rules        *anon.RuleIndex
	Seed         string
	Sink         io.Writer

	// Progress, if set, receives one event per exported table. Sends are
	// non-blocking; a full channel drops the event rather than stalling
	// the export.
	Progress chan<- ProgressEvent
}

// Run exports every table of the plan in order. The first failure aborts
// the run; remaining tables are never attempted and sink content written
// so far is left in place.
func (e *Executor) Run(ctx context.Context, p *plan.ExportPlan) error {
	for _, table := range p.Tables {
		rows, err := e.exportTable(ctx, table)
		if err != nil {
			return fmt.Errorf("export table %s: %w", table.Qualified(), err)
		}
		e.reportProgress(table, rows)
	}
	log.Infof("export of %d tables complete", len(p.Tables))
	return nil
}

func (e *Executor) exportTable(ctx context.Context, table plan.TableRef) (int64, error) {
	columns, err := e.Introspector.ListColumns(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("list columns: %w", err)
	}

	strategies := make(map[string]anon.Strategy, len(columns))
	for _, column := range columns {
		strategies[column] = e.Rules.StrategyFor(table.Schema, table.Name, column)
	}

	projection := anon.CompileProjection(columns, strategies, e.Seed)
	copySQL := fmt.Sprintf("COPY (SELECT %s FROM %s) TO STDOUT",
		projection, pgx.Identifier{table.Schema, table.Name}.Sanitize())

	if err := writeFrameHeader(e.Sink, table, columns); err != nil {
		return 0, fmt.Errorf("write frame header: %w", err)
	}
	rows, err := e.Streamer.StreamExport(ctx, e.Sink, copySQL)
	if err != nil {
		return rows, fmt.Errorf("stream rows: %w", err)
	}
	if err := writeFrameTerminator(e.Sink); err != nil {
		return rows, fmt.Errorf("write frame terminator: %w", err)
	}
	log.Infof("exported table %s (%d rows)", table.Qualified(), rows)
	return rows, nil
}

func (e *Executor) reportProgress(table plan.TableRef, rows int64) {
	if e.Progress == nil {
		return
	}
	select {
	case e.Progress <- ProgressEvent{Table: table, Rows: rows}:
	default:
	}
}
