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
	"strings"

	"github.com/samber/lo"

	"github.com/sanidump/sanidump/src/anon"
)

var internalSchemas = []string{"information_schema"}

// Schemas reserved by the engine (pg_catalog, pg_toast, pg_temp_N, ...).
const enginePrefix = "pg_"

// ResolveTableSet filters the full catalog table list down to the set of
// tables to export: internal/system schemas and tables with a table-level
// skip rule are removed. Output order is not significant; Order decides
// the export order. An empty result is a valid (empty) export.
func ResolveTableSet(allTables []TableRef, rules *anon.RuleIndex) []TableRef {
	return lo.Filter(allTables, func(t TableRef, _ int) bool {
		if isInternalSchema(t.Schema) {
			return false
		}
		return !rules.IsTableSkipped(t.Schema, t.Name)
	})
}

func isInternalSchema(schema string) bool {
	return lo.Contains(internalSchemas, schema) || strings.HasPrefix(schema, enginePrefix)
}
