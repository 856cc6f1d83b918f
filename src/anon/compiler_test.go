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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileColumn(t *testing.T) {
	tests := []struct {
		column   string
		strategy Strategy
		expected string
	}{
		{"email", FAKE_EMAIL, `pg_temp.sanidump_fake_email("email", 's1') AS "email"`},
		{"full_name", FAKE_NAME, `pg_temp.sanidump_fake_name("full_name", 's1') AS "full_name"`},
		{"first", FAKE_FIRST_NAME, `pg_temp.sanidump_fake_first_name("first", 's1') AS "first"`},
		{"last", FAKE_LAST_NAME, `pg_temp.sanidump_fake_last_name("last", 's1') AS "last"`},
		{"ssn", REDACT, `pg_temp.sanidump_redact("ssn") AS "ssn"`},
		{"notes", NULL, `NULL AS "notes"`},
		{"balance", ZERO, `0 AS "balance"`},
		{"ext_id", FAKE_UUID, `pg_temp.sanidump_fake_uuid("ext_id"::text, 's1')::uuid AS "ext_id"`},
		{"id", PRESERVE, `"id"`},
		{"id", SKIP, `"id"`},
		{"id", Strategy("future_strategy"), `"id"`}, // unrecognized falls back to identity
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CompileColumn(tt.column, tt.strategy, "s1"),
			"column %q strategy %q", tt.column, tt.strategy)
	}
}

// Compiler purity: identical arguments yield byte-identical SQL.
func TestCompileColumnIsPure(t *testing.T) {
	first := CompileColumn("email", FAKE_EMAIL, "seed-42")
	second := CompileColumn("email", FAKE_EMAIL, "seed-42")
	assert.Equal(t, first, second)
}

func TestCompileColumnQuotesHostileIdentifiers(t *testing.T) {
	// A column name containing quote characters must not break out of
	// its identifier quoting.
	expr := CompileColumn(`ev"il`, PRESERVE, "s1")
	assert.Equal(t, `"ev""il"`, expr)

	expr = CompileColumn(`a"; DROP TABLE users; --`, FAKE_EMAIL, "s1")
	assert.Equal(t, `pg_temp.sanidump_fake_email("a""; DROP TABLE users; --", 's1') AS "a""; DROP TABLE users; --"`, expr)
}

func TestCompileColumnQuotesSeedLiteral(t *testing.T) {
	expr := CompileColumn("email", FAKE_EMAIL, `s'1`)
	assert.Equal(t, `pg_temp.sanidump_fake_email("email", 's''1') AS "email"`, expr)
}

func TestCompileProjectionPreservesColumnOrder(t *testing.T) {
	columns := []string{"id", "email", "name"}
	strategies := map[string]Strategy{
		"id":    PRESERVE,
		"email": FAKE_EMAIL,
		"name":  PRESERVE,
	}

	projection := CompileProjection(columns, strategies, "s1")
	assert.Equal(t, `"id", pg_temp.sanidump_fake_email("email", 's1') AS "email", "name"`, projection)
}
