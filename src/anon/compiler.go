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
package anon

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Session-local transform functions, installed by
// InstallTransformFunctions before the first table is exported.
const (
	FN_REDACT          = "pg_temp.sanidump_redact"
	FN_FAKE_EMAIL      = "pg_temp.sanidump_fake_email"
	FN_FAKE_NAME       = "pg_temp.sanidump_fake_name"
	FN_FAKE_FIRST_NAME = "pg_temp.sanidump_fake_first_name"
	FN_FAKE_LAST_NAME  = "pg_temp.sanidump_fake_last_name"
	FN_FAKE_UUID       = "pg_temp.sanidump_fake_uuid"
)

var seededFunctions = map[Strategy]string{
	FAKE_EMAIL:      FN_FAKE_EMAIL,
	FAKE_NAME:       FN_FAKE_NAME,
	FAKE_FIRST_NAME: FN_FAKE_FIRST_NAME,
	FAKE_LAST_NAME:  FN_FAKE_LAST_NAME,
}

// CompileColumn turns a (column, strategy, seed) triple into a single SQL
// projection term aliased to the original column name, so the projection's
// column order and names are unchanged regardless of the strategy mix.
// Pure and total: an unrecognized strategy compiles like PRESERVE.
func CompileColumn(column string, strategy Strategy, seed string) string {
	ident := pgx.Identifier{column}.Sanitize()
	switch strategy {
	case NULL:
		return fmt.Sprintf("NULL AS %s", ident)
	case ZERO:
		return fmt.Sprintf("0 AS %s", ident)
	case REDACT:
		// Value-only transform: deliberately does not vary by seed.
		return fmt.Sprintf("%s(%s) AS %s", FN_REDACT, ident, ident)
	case FAKE_EMAIL, FAKE_NAME, FAKE_FIRST_NAME, FAKE_LAST_NAME:
		return fmt.Sprintf("%s(%s, %s) AS %s", seededFunctions[strategy], ident, quoteLiteral(seed), ident)
	case FAKE_UUID:
		return fmt.Sprintf("%s(%s::text, %s)::uuid AS %s", FN_FAKE_UUID, ident, quoteLiteral(seed), ident)
	default:
		// PRESERVE, SKIP and anything unrecognized: identity reference.
		return ident
	}
}

// CompileProjection joins the per-column terms in catalog column order.
func CompileProjection(columns []string, strategies map[string]Strategy, seed string) string {
	terms := make([]string, len(columns))
	for i, column := range columns {
		terms[i] = CompileColumn(column, strategies[column], seed)
	}
	return strings.Join(terms, ", ")
}

// quoteLiteral embeds s as a SQL string literal. Single quotes are
// doubled, which is sufficient with standard_conforming_strings.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
