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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TableEntry records one exported table in the descriptor.
type TableEntry struct {
	TableName string `json:"TableName"`
	RowCount  int64  `json:"RowCount"`
}

// Descriptor is the operator-facing metadata written next to a completed
// dump. The seed itself is never stored; its fingerprint lets operators
// tell whether two dumps were produced with the same seed.
type Descriptor struct {
	RunID           string       `json:"RunID"`
	ExportedAt      time.Time    `json:"ExportedAt"`
	SeedFingerprint string       `json:"SeedFingerprint"`
	CycleDetected   bool         `json:"CycleDetected"`
	Tables          []TableEntry `json:"Tables"`
}

func NewDescriptor(seed string, cycleDetected bool) *Descriptor {
	return &Descriptor{
		RunID:           uuid.NewString(),
		ExportedAt:      time.Now().UTC(),
		SeedFingerprint: seedFingerprint(seed),
		CycleDetected:   cycleDetected,
	}
}

func (d *Descriptor) AddTable(tableName string, rowCount int64) {
	d.Tables = append(d.Tables, TableEntry{TableName: tableName, RowCount: rowCount})
}

func (d *Descriptor) Save(filePath string) error {
	log.Infof("storing export descriptor at %q: %v", filePath, spew.Sdump(d))
	contents, err := json.MarshalIndent(d, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal export descriptor: %w", err)
	}
	err = os.WriteFile(filePath, contents, 0644)
	if err != nil {
		return fmt.Errorf("write export descriptor: %w", err)
	}
	return nil
}

func seedFingerprint(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}
