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
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DEFAULT_SCHEMA = "public"

// RuleSet is a validated rule file: the directives plus the optional
// run-wide seed (overridable from the command line).
type RuleSet struct {
	Seed  string
	Rules []Rule
}

type ruleFileYaml struct {
	Seed  string          `yaml:"seed"`
	Rules []ruleEntryYaml `yaml:"rules"`
}

type ruleEntryYaml struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	Strategy string `yaml:"strategy"`
}

// LoadRuleFile parses and validates a YAML rule file. Tables may be
// schema-qualified; unqualified names fall back to the public schema.
func LoadRuleFile(path string) (*RuleSet, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf ruleFileYaml
	if err := yaml.Unmarshal(contents, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file %q: %w", path, err)
	}

	ruleSet := &RuleSet{Seed: rf.Seed}
	for i, entry := range rf.Rules {
		rule, err := validateRuleEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("rule %d in %q: %w", i+1, path, err)
		}
		ruleSet.Rules = append(ruleSet.Rules, rule)
	}
	log.Infof("loaded %d rules from %q", len(ruleSet.Rules), path)
	return ruleSet, nil
}

func validateRuleEntry(entry ruleEntryYaml) (Rule, error) {
	if entry.Table == "" {
		return Rule{}, fmt.Errorf("missing table name")
	}
	schema, table := splitQualifiedTable(entry.Table)

	strategy, err := ParseStrategy(entry.Strategy)
	if err != nil {
		return Rule{}, err
	}

	if strategy == SKIP && entry.Column != "" {
		return Rule{}, fmt.Errorf("strategy %q is table-level, cannot target column %q", SKIP, entry.Column)
	}
	if strategy != SKIP && entry.Column == "" {
		return Rule{}, fmt.Errorf("strategy %q requires a column", strategy)
	}

	return Rule{
		TableSchema: schema,
		TableName:   table,
		ColumnName:  entry.Column,
		Strategy:    strategy,
	}, nil
}

func splitQualifiedTable(name string) (string, string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 1 {
		return DEFAULT_SCHEMA, parts[0]
	}
	return parts[0], parts[1]
}
