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
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// The fakers are pure functions of (value, seed): the md5 of seed||value
// picks the output, so two runs with the same seed produce the same fake
// data without a persisted mapping table. All of them map NULL to NULL.
var transformFunctionDDLs = []string{
	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_redact(val text) RETURNS text
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL ELSE repeat('x', length(val)) END $$`,

	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_fake_email(val text, seed text) RETURNS text
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL
	   ELSE 'user_' || substr(md5(seed || val), 1, 12) || '@example.com' END $$`,

	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_fake_first_name(val text, seed text) RETURNS text
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL
	   ELSE (ARRAY['Alex','Avery','Casey','Jamie','Jordan','Morgan','Quinn','Riley','Sam','Taylor'])
	        [1 + ('x' || substr(md5(seed || val), 1, 7))::bit(28)::int % 10] END $$`,

	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_fake_last_name(val text, seed text) RETURNS text
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL
	   ELSE (ARRAY['Brown','Chen','Davis','Garcia','Johnson','Lee','Martin','Patel','Smith','Wilson'])
	        [1 + ('x' || substr(md5(seed || val), 9, 7))::bit(28)::int % 10] END $$`,

	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_fake_name(val text, seed text) RETURNS text
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL
	   ELSE pg_temp.sanidump_fake_first_name(val, seed) || ' ' || pg_temp.sanidump_fake_last_name(val, seed) END $$`,

	`CREATE OR REPLACE FUNCTION pg_temp.sanidump_fake_uuid(val text, seed text) RETURNS uuid
	LANGUAGE sql IMMUTABLE AS
	$$ SELECT CASE WHEN val IS NULL THEN NULL ELSE md5(seed || val)::uuid END $$`,
}

// InstallTransformFunctions creates the transform functions in pg_temp on
// the shared export session. pg_temp keeps them session-local, so the
// export leaves no server-side footprint behind.
func InstallTransformFunctions(ctx context.Context, conn *pgx.Conn) error {
	for _, ddl := range transformFunctionDDLs {
		if _, err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("install transform function: %w", err)
		}
	}
	log.Infof("installed %d transform functions in pg_temp", len(transformFunctionDDLs))
	return nil
}
