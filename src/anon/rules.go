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
)

// Strategy names one of the supported column transforms.
type Strategy string

const (
	FAKE_EMAIL      Strategy = "fake_email"
	FAKE_NAME       Strategy = "fake_name"
	FAKE_FIRST_NAME Strategy = "fake_first_name"
	FAKE_LAST_NAME  Strategy = "fake_last_name"
	REDACT          Strategy = "redact"
	NULL            Strategy = "null"
	ZERO            Strategy = "zero"
	FAKE_UUID       Strategy = "fake_uuid"
	SKIP            Strategy = "skip" // table-level only
	PRESERVE        Strategy = "preserve"
)

var allStrategies = []Strategy{
	FAKE_EMAIL, FAKE_NAME, FAKE_FIRST_NAME, FAKE_LAST_NAME,
	REDACT, NULL, ZERO, FAKE_UUID, SKIP, PRESERVE,
}

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for _, strategy := range allStrategies {
		if s == string(strategy) {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Rule is a single anonymization directive. ColumnName is empty for
// table-level rules, which is valid only with the SKIP strategy.
type Rule struct {
	TableSchema string
	TableName   string
	ColumnName  string
	Strategy    Strategy
}

func (r Rule) QualifiedTable() string {
	return r.TableSchema + "." + r.TableName
}

// RuleIndex is the immutable (schema, table, column) -> strategy lookup
// built once before a dump begins and shared read-only across the run.
type RuleIndex struct {
	columnStrategies map[string]Strategy
	skippedTables    map[string]bool
}

func NewRuleIndex(rules []Rule) *RuleIndex {
	index := &RuleIndex{
		columnStrategies: make(map[string]Strategy),
		skippedTables:    make(map[string]bool),
	}
	for _, rule := range rules {
		if rule.ColumnName == "" {
			if rule.Strategy == SKIP {
				index.skippedTables[rule.QualifiedTable()] = true
			}
			continue
		}
		index.columnStrategies[rule.QualifiedTable()+"."+rule.ColumnName] = rule.Strategy
	}
	return index
}

// StrategyFor resolves the strategy for a column. Columns without a
// matching rule default to PRESERVE.
func (ri *RuleIndex) StrategyFor(schema, table, column string) Strategy {
	if strategy, ok := ri.columnStrategies[schema+"."+table+"."+column]; ok {
		return strategy
	}
	return PRESERVE
}

func (ri *RuleIndex) IsTableSkipped(schema, table string) bool {
	return ri.skippedTables[schema+"."+table]
}
