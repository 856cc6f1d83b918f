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
package tgtdb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const frameTerminator = `\.`

// Replay scans a dump stream frame by frame: each COPY ... FROM stdin
// header is executed as a COPY on the target connection, fed with the raw
// data lines up to the \. terminator. Tables arrive in the dump's
// FK-dependency order, so a plain sequential replay satisfies the
// constraints. First error aborts; returns the total rows loaded so far.
func (tdb *TargetDB) Replay(ctx context.Context, r io.Reader) (int64, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)
	var totalRows int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return totalRows, fmt.Errorf("read dump: %w", err)
		}
		atEOF := err == io.EOF

		statement := strings.TrimSpace(line)
		switch {
		case statement == "" || strings.HasPrefix(statement, "--"):
			// framing comment or blank separator
		case strings.HasPrefix(statement, "COPY ") && strings.HasSuffix(statement, "FROM stdin;"):
			rows, err := tdb.replayFrame(ctx, reader, strings.TrimSuffix(statement, ";"))
			if err != nil {
				return totalRows, err
			}
			totalRows += rows
		default:
			return totalRows, fmt.Errorf("unexpected statement in dump: %q", statement)
		}

		if atEOF {
			return totalRows, nil
		}
	}
}

func (tdb *TargetDB) replayFrame(ctx context.Context, reader *bufio.Reader, copyStatement string) (int64, error) {
	log.Infof("replaying frame: [%s]", copyStatement)
	frame := &frameDataReader{reader: reader}
	tag, err := tdb.conn.PgConn().CopyFrom(ctx, frame, copyStatement)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) {
			err = fmt.Errorf("%s, %s", err.Error(), pgerr.Where)
		}
		return tag.RowsAffected(), fmt.Errorf("replay [%s]: %w", copyStatement, err)
	}
	return tag.RowsAffected(), nil
}

// frameDataReader yields the raw data lines of one frame and reports EOF
// at the \. terminator, leaving the underlying reader positioned on the
// next frame.
type frameDataReader struct {
	reader  *bufio.Reader
	pending []byte
	done    bool
}

func (f *frameDataReader) Read(p []byte) (int, error) {
	if len(f.pending) == 0 {
		if f.done {
			return 0, io.EOF
		}
		line, err := f.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return 0, err
		}
		if isTerminatorLine(line) {
			f.done = true
			return 0, io.EOF
		}
		if err == io.EOF {
			// Data ran out before the terminator: truncated dump.
			return 0, io.ErrUnexpectedEOF
		}
		f.pending = line
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func isTerminatorLine(line []byte) bool {
	return strings.TrimRight(string(line), "\r\n") == frameTerminator
}
