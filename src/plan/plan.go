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

// Package plan computes the set of tables to export and the order in
// which to export them so that a sequential reload never sees a child
// row before its parent.
package plan

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// TableRef identifies one exportable table.
type TableRef struct {
	Schema string
	Name   string
}

func (t TableRef) Qualified() string {
	return t.Schema + "." + t.Name
}

// FKEdge records that Child has a foreign key referencing Parent, i.e.
// Parent's rows must be loaded before Child's.
type FKEdge struct {
	Child  TableRef
	Parent TableRef
}

// ExportPlan is the sole artifact consumed by the export executor.
type ExportPlan struct {
	Tables        []TableRef
	CycleDetected bool
}

// Order topologically sorts tables by their FK dependencies using Kahn's
// algorithm. Edges whose endpoints are not both in the table set are
// invisible; self-references impose no ordering and are ignored. The
// initial frontier is sorted alphabetically by qualified name and then
// processed FIFO, so the output is deterministic for a given input.
//
// When a cycle is detected the partial result is discarded and the full
// table list, sorted alphabetically, is returned with the second return
// value set to true. Order never fails.
func Order(tables []TableRef, fks []FKEdge) ([]TableRef, bool) {
	index := make(map[string]int, len(tables))
	for i, table := range tables {
		index[table.Qualified()] = i
	}

	inDegree := make([]int, len(tables))
	adjacency := make([][]int, len(tables))
	for _, fk := range fks {
		child, childInSet := index[fk.Child.Qualified()]
		parent, parentInSet := index[fk.Parent.Qualified()]
		if !childInSet || !parentInSet || child == parent {
			continue
		}
		inDegree[child]++
		adjacency[parent] = append(adjacency[parent], child)
	}

	var frontier []int
	for i := range tables {
		if inDegree[i] == 0 {
			frontier = append(frontier, i)
		}
	}
	sort.Slice(frontier, func(a, b int) bool {
		return tables[frontier[a]].Qualified() < tables[frontier[b]].Qualified()
	})

	ordered := make([]TableRef, 0, len(tables))
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		ordered = append(ordered, tables[node])
		for _, child := range adjacency[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				frontier = append(frontier, child)
			}
		}
	}

	if len(ordered) < len(tables) {
		log.Warnf("foreign key cycle detected among %d tables, falling back to alphabetical export order; "+
			"the reload may need FK constraints deferred or disabled", len(tables)-len(ordered))
		fallback := sortedAlphabetically(tables)
		return fallback, true
	}
	return ordered, false
}

// BuildPlan is the Order wrapper used by the CLI.
func BuildPlan(tables []TableRef, fks []FKEdge) *ExportPlan {
	ordered, cycle := Order(tables, fks)
	return &ExportPlan{Tables: ordered, CycleDetected: cycle}
}

func sortedAlphabetically(tables []TableRef) []TableRef {
	out := make([]TableRef, len(tables))
	copy(out, tables)
	sort.Slice(out, func(a, b int) bool {
		return out[a].Qualified() < out[b].Qualified()
	})
	return out
}
