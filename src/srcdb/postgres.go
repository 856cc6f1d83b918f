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
package srcdb

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/sanidump/sanidump/src/plan"
)

// Transform function DDL uses hex bit-string casts, available since PG 11.
const MIN_SUPPORTED_PG_VERSION = "11.0"

// PostgreSQL wraps the single shared session used for catalog
// introspection and the per-table COPY exports. Exports are strictly
// sequential, so one connection is all the run ever needs.
type PostgreSQL struct {
	source *Source

	db *pgx.Conn
}

func NewPostgreSQL(source *Source) *PostgreSQL {
	return &PostgreSQL{source: source}
}

func (pg *PostgreSQL) Connect(ctx context.Context) error {
	db, err := pgx.Connect(ctx, pg.source.GetConnectionUri())
	pg.db = db
	return err
}

func (pg *PostgreSQL) Disconnect() {
	if pg.db == nil {
		return
	}
	err := pg.db.Close(context.Background())
	if err != nil {
		log.Infof("Failed to close connection to the source database: %s", err)
	}
}

// Conn exposes the shared session, e.g. for installing the transform
// functions on it before the export starts.
func (pg *PostgreSQL) Conn() *pgx.Conn {
	return pg.db
}

func (pg *PostgreSQL) GetVersion(ctx context.Context) (string, error) {
	var v string
	query := "SELECT setting FROM pg_settings WHERE name = 'server_version'"
	err := pg.db.QueryRow(ctx, query).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("run query %q on source: %w", query, err)
	}
	return v, nil
}

// CheckServerVersion fails when the server is older than
// MIN_SUPPORTED_PG_VERSION.
func (pg *PostgreSQL) CheckServerVersion(ctx context.Context) error {
	serverVersion, err := pg.GetVersion(ctx)
	if err != nil {
		return err
	}
	// server_version may carry a distro suffix, e.g. "14.5 (Ubuntu ...)".
	current, err := version.NewVersion(strings.Fields(serverVersion)[0])
	if err != nil {
		return fmt.Errorf("parse server version %q: %w", serverVersion, err)
	}
	minimum := version.Must(version.NewVersion(MIN_SUPPORTED_PG_VERSION))
	if current.LessThan(minimum) {
		return fmt.Errorf("source server version %s is older than minimum supported version %s",
			serverVersion, MIN_SUPPORTED_PG_VERSION)
	}
	log.Infof("source server version: %s", serverVersion)
	return nil
}

// GetAllTableNames returns every base table in the database. System and
// internal schemas are not filtered here; plan.ResolveTableSet owns that.
func (pg *PostgreSQL) GetAllTableNames(ctx context.Context) ([]plan.TableRef, error) {
	query := `SELECT table_schema, table_name
			  FROM information_schema.tables
			  WHERE table_type = 'BASE TABLE'`
	rows, err := pg.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query source database for table names: %w", err)
	}
	defer rows.Close()

	var tables []plan.TableRef
	for rows.Next() {
		var t plan.TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table name row: %w", err)
		}
		tables = append(tables, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate table name rows: %w", rows.Err())
	}
	log.Infof("query found %d tables in the source db", len(tables))
	return tables, nil
}

// ListColumns returns the table's column names in ordinal order.
func (pg *PostgreSQL) ListColumns(ctx context.Context, table plan.TableRef) ([]string, error) {
	query := `SELECT column_name
			  FROM information_schema.columns
			  WHERE table_schema = $1 AND table_name = $2
			  ORDER BY ordinal_position`
	rows, err := pg.db.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", table.Qualified(), err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan column name row: %w", err)
		}
		columns = append(columns, column)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate column rows of %s: %w", table.Qualified(), rows.Err())
	}
	return columns, nil
}

// ListForeignKeys returns one (child, parent) edge per FK constraint.
func (pg *PostgreSQL) ListForeignKeys(ctx context.Context) ([]plan.FKEdge, error) {
	query := `SELECT cn.nspname, c.relname, pn.nspname, p.relname
			  FROM pg_constraint con
			  JOIN pg_class c ON c.oid = con.conrelid
			  JOIN pg_namespace cn ON cn.oid = c.relnamespace
			  JOIN pg_class p ON p.oid = con.confrelid
			  JOIN pg_namespace pn ON pn.oid = p.relnamespace
			  WHERE con.contype = 'f'`
	rows, err := pg.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign key constraints: %w", err)
	}
	defer rows.Close()

	var edges []plan.FKEdge
	for rows.Next() {
		var e plan.FKEdge
		if err := rows.Scan(&e.Child.Schema, &e.Child.Name, &e.Parent.Schema, &e.Parent.Name); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		edges = append(edges, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate foreign key rows: %w", rows.Err())
	}
	log.Infof("query found %d foreign key constraints", len(edges))
	return edges, nil
}

// GetTableApproxRowCount reads the planner's row estimate; cheap, and
// close enough for progress totals.
func (pg *PostgreSQL) GetTableApproxRowCount(ctx context.Context, table plan.TableRef) int64 {
	var approxRowCount int64
	query := `SELECT coalesce((SELECT reltuples::bigint FROM pg_class WHERE oid = to_regclass($1)), 0)`
	err := pg.db.QueryRow(ctx, query, table.Qualified()).Scan(&approxRowCount)
	if err != nil {
		log.Warnf("failed to query approx row count of %q: %s", table.Qualified(), err)
		return 0
	}
	if approxRowCount < 0 { // reltuples is -1 for never-analyzed tables
		return 0
	}
	return approxRowCount
}

// GetTableRowCount runs an exact count(*). Used only where exactness is
// worth a full scan.
func (pg *PostgreSQL) GetTableRowCount(ctx context.Context, table plan.TableRef) (int64, error) {
	var rowCount int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", quoteTable(table))
	err := pg.db.QueryRow(ctx, query).Scan(&rowCount)
	if err != nil {
		return 0, fmt.Errorf("query row count of %s: %w", table.Qualified(), err)
	}
	return rowCount, nil
}

// StreamExport runs a COPY ... TO STDOUT statement, writing the raw byte
// chunks into w as the server produces them. Memory use is bounded by one
// protocol chunk; a slow w backpressures the read from the server.
func (pg *PostgreSQL) StreamExport(ctx context.Context, w io.Writer, copySQL string) (int64, error) {
	log.Infof("streaming export: [%s]", copySQL)
	tag, err := pg.db.PgConn().CopyTo(ctx, w, copySQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func quoteTable(table plan.TableRef) string {
	return pgx.Identifier{table.Schema, table.Name}.Sanitize()
}
