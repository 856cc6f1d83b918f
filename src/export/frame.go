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
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sanidump/sanidump/src/plan"
)

// FRAME_TERMINATOR is the COPY end-of-data marker psql expects.
const FRAME_TERMINATOR = `\.`

// writeFrameHeader emits the bulk-load framing that makes the following
// raw COPY stream replayable: a psql-compatible COPY ... FROM stdin
// statement naming the destination table and its column list.
func writeFrameHeader(w io.Writer, table plan.TableRef, columns []string) error {
	quotedColumns := make([]string, len(columns))
	for i, column := range columns {
		quotedColumns[i] = pgx.Identifier{column}.Sanitize()
	}
	quotedTable := pgx.Identifier{table.Schema, table.Name}.Sanitize()

	_, err := fmt.Fprintf(w, "-- Data for table %s\nCOPY %s (%s) FROM stdin;\n",
		table.Qualified(), quotedTable, strings.Join(quotedColumns, ", "))
	return err
}

func writeFrameTerminator(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n\n", FRAME_TERMINATOR)
	return err
}
