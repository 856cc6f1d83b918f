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
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanidump/sanidump/src/anon"
	"github.com/sanidump/sanidump/src/plan"
)

type fakeCatalog struct {
	columns map[string][]string
	errOn   string
}

func (f *fakeCatalog) ListColumns(_ context.Context, table plan.TableRef) ([]string, error) {
	if table.Qualified() == f.errOn {
		return nil, errors.New("catalog unavailable")
	}
	return f.columns[table.Qualified()], nil
}

type streamResponse struct {
	data string
	rows int64
	err  error
}

type fakeStreamer struct {
	responses []streamResponse
	calls     []string
}

func (f *fakeStreamer) StreamExport(_ context.Context, w io.Writer, copySQL string) (int64, error) {
	call := len(f.calls)
	f.calls = append(f.calls, copySQL)
	if call >= len(f.responses) {
		return 0, fmt.Errorf("unexpected call %d: [%s]", call, copySQL)
	}
	response := f.responses[call]
	if response.err != nil {
		return 0, response.err
	}
	if _, err := w.Write([]byte(response.data)); err != nil {
		return 0, err
	}
	return response.rows, nil
}

func newTestPlan(tables ...plan.TableRef) *plan.ExportPlan {
	return &plan.ExportPlan{Tables: tables}
}

func TestExecutorFramesEachTableInOrder(t *testing.T) {
	customers := plan.TableRef{Schema: "public", Name: "customers"}
	orders := plan.TableRef{Schema: "public", Name: "orders"}

	catalog := &fakeCatalog{columns: map[string][]string{
		"public.customers": {"id", "email"},
		"public.orders":    {"id", "customer_id"},
	}}
	streamer := &fakeStreamer{responses: []streamResponse{
		{data: "1\tuser_aaa@example.com\n", rows: 1},
		{data: "10\t1\n20\t1\n", rows: 2},
	}}
	var sink bytes.Buffer

	executor := &Executor{
		Introspector: catalog,
		Streamer:     streamer,
		Rules: anon.NewRuleIndex([]anon.Rule{
			{TableSchema: "public", TableName: "customers", ColumnName: "email", Strategy: anon.FAKE_EMAIL},
		}),
		Seed: "s1",
		Sink: &sink,
	}

	require.NoError(t, executor.Run(context.Background(), newTestPlan(customers, orders)))

	expected := "-- Data for table public.customers\n" +
		"COPY \"public\".\"customers\" (\"id\", \"email\") FROM stdin;\n" +
		"1\tuser_aaa@example.com\n" +
		"\\.\n\n" +
		"-- Data for table public.orders\n" +
		"COPY \"public\".\"orders\" (\"id\", \"customer_id\") FROM stdin;\n" +
		"10\t1\n20\t1\n" +
		"\\.\n\n"
	assert.Equal(t, expected, sink.String())

	require.Len(t, streamer.calls, 2)
	// Rule precedence at SQL level: the email column is transformed, the
	// rest are identity projections, in catalog column order.
	assert.Equal(t,
		`COPY (SELECT "id", pg_temp.sanidump_fake_email("email", 's1') AS "email" FROM "public"."customers") TO STDOUT`,
		streamer.calls[0])
	assert.Equal(t,
		`COPY (SELECT "id", "customer_id" FROM "public"."orders") TO STDOUT`,
		streamer.calls[1])
}

func TestExecutorFailsFast(t *testing.T) {
	t1 := plan.TableRef{Schema: "public", Name: "t1"}
	t2 := plan.TableRef{Schema: "public", Name: "t2"}
	t3 := plan.TableRef{Schema: "public", Name: "t3"}

	catalog := &fakeCatalog{columns: map[string][]string{
		"public.t1": {"id"}, "public.t2": {"id"}, "public.t3": {"id"},
	}}
	streamer := &fakeStreamer{responses: []streamResponse{
		{data: "1\n", rows: 1},
		{err: errors.New("connection dropped mid-stream")},
	}}
	var sink bytes.Buffer

	executor := &Executor{
		Introspector: catalog,
		Streamer:     streamer,
		Rules:        anon.NewRuleIndex(nil),
		Seed:         "s1",
		Sink:         &sink,
	}

	err := executor.Run(context.Background(), newTestPlan(t1, t2, t3))
	require.Error(t, err)
	assert.ErrorContains(t, err, "public.t2")
	assert.ErrorContains(t, err, "connection dropped mid-stream")

	// Table 3 was never attempted.
	assert.Len(t, streamer.calls, 2)
	// The sink keeps everything written before the failure: the first
	// complete frame and the failed table's header.
	assert.Contains(t, sink.String(), "COPY \"public\".\"t1\" (\"id\") FROM stdin;\n1\n\\.\n")
	assert.Contains(t, sink.String(), "COPY \"public\".\"t2\" (\"id\") FROM stdin;\n")
	assert.NotContains(t, sink.String(), "t3")
}

func TestExecutorAbortsOnIntrospectionFailure(t *testing.T) {
	t1 := plan.TableRef{Schema: "public", Name: "t1"}

	executor := &Executor{
		Introspector: &fakeCatalog{errOn: "public.t1"},
		Streamer:     &fakeStreamer{},
		Rules:        anon.NewRuleIndex(nil),
		Seed:         "s1",
		Sink:         &bytes.Buffer{},
	}

	err := executor.Run(context.Background(), newTestPlan(t1))
	require.Error(t, err)
	assert.ErrorContains(t, err, "list columns")
	assert.Empty(t, executor.Streamer.(*fakeStreamer).calls)
}

func TestExecutorEmitsProgressEvents(t *testing.T) {
	t1 := plan.TableRef{Schema: "public", Name: "t1"}
	t2 := plan.TableRef{Schema: "public", Name: "t2"}

	catalog := &fakeCatalog{columns: map[string][]string{
		"public.t1": {"id"}, "public.t2": {"id"},
	}}
	streamer := &fakeStreamer{responses: []streamResponse{
		{data: "1\n", rows: 1},
		{data: "2\n3\n", rows: 2},
	}}
	progress := make(chan ProgressEvent, 2)

	executor := &Executor{
		Introspector: catalog,
		Streamer:     streamer,
		Rules:        anon.NewRuleIndex(nil),
		Seed:         "s1",
		Sink:         &bytes.Buffer{},
		Progress:     progress,
	}

	require.NoError(t, executor.Run(context.Background(), newTestPlan(t1, t2)))
	close(progress)

	var events []ProgressEvent
	for event := range progress {
		events = append(events, event)
	}
	assert.Equal(t, []ProgressEvent{
		{Table: t1, Rows: 1},
		{Table: t2, Rows: 2},
	}, events)
}

// A full progress channel must never stall the export.
func TestExecutorProgressSendIsNonBlocking(t *testing.T) {
	t1 := plan.TableRef{Schema: "public", Name: "t1"}
	t2 := plan.TableRef{Schema: "public", Name: "t2"}

	catalog := &fakeCatalog{columns: map[string][]string{
		"public.t1": {"id"}, "public.t2": {"id"},
	}}
	streamer := &fakeStreamer{responses: []streamResponse{
		{data: "1\n", rows: 1},
		{data: "2\n", rows: 1},
	}}
	progress := make(chan ProgressEvent, 1) // room for only one event

	executor := &Executor{
		Introspector: catalog,
		Streamer:     streamer,
		Rules:        anon.NewRuleIndex(nil),
		Seed:         "s1",
		Sink:         &bytes.Buffer{},
		Progress:     progress,
	}

	require.NoError(t, executor.Run(context.Background(), newTestPlan(t1, t2)))
	assert.Len(t, progress, 1) // second event was dropped, run completed
}
