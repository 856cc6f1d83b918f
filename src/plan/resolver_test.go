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
package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanidump/sanidump/src/anon"
)

func TestResolveTableSetFiltersInternalSchemas(t *testing.T) {
	allTables := []TableRef{
		ref("public", "customers"),
		ref("information_schema", "tables"),
		ref("pg_catalog", "pg_class"),
		ref("pg_toast", "pg_toast_1234"),
		ref("billing", "invoices"),
	}

	resolved := ResolveTableSet(allTables, anon.NewRuleIndex(nil))
	assert.ElementsMatch(t, []TableRef{ref("public", "customers"), ref("billing", "invoices")}, resolved)
}

func TestResolveTableSetHonorsSkipRules(t *testing.T) {
	allTables := []TableRef{
		ref("public", "customers"),
		ref("public", "audit_log"),
	}
	// Column rules on a skipped table do not keep it in the set.
	rules := anon.NewRuleIndex([]anon.Rule{
		{TableSchema: "public", TableName: "audit_log", Strategy: anon.SKIP},
		{TableSchema: "public", TableName: "audit_log", ColumnName: "actor", Strategy: anon.FAKE_NAME},
	})

	resolved := ResolveTableSet(allTables, rules)
	assert.Equal(t, []TableRef{ref("public", "customers")}, resolved)
}

func TestResolveTableSetEmptyResultIsValid(t *testing.T) {
	rules := anon.NewRuleIndex([]anon.Rule{
		{TableSchema: "public", TableName: "only_table", Strategy: anon.SKIP},
	})

	resolved := ResolveTableSet([]TableRef{ref("public", "only_table")}, rules)
	assert.Empty(t, resolved)
}
