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

// Package tgtdb replays a sanidump dump file into a fresh database whose
// schema already exists. It is the mirror of the export path: the same
// framing, consumed instead of produced.
package tgtdb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Target holds the connection parameters of the database being seeded.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Uri      string
}

func (t *Target) GetConnectionUri() string {
	if t.Uri != "" {
		return t.Uri
	}
	hostAndPort := fmt.Sprintf("%s:%d", t.Host, t.Port)
	targetUrl := &url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(t.User, t.Password),
		Host:     hostAndPort,
		Path:     t.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", t.SSLMode),
	}
	t.Uri = targetUrl.String()
	return t.Uri
}

// TargetDB is the single session used for the sequential replay.
type TargetDB struct {
	target *Target

	conn *pgx.Conn
}

func NewTargetDB(target *Target) *TargetDB {
	return &TargetDB{target: target}
}

func (tdb *TargetDB) Connect(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, tdb.target.GetConnectionUri())
	tdb.conn = conn
	return err
}

func (tdb *TargetDB) Disconnect() {
	if tdb.conn == nil {
		return
	}
	err := tdb.conn.Close(context.Background())
	if err != nil {
		log.Infof("Failed to close connection to the target database: %s", err)
	}
}
