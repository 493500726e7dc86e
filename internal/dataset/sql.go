package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultTable is the table products are read from when none is configured.
const DefaultTable = "products"

// SQLSource reads products from a table. When Categories is set only rows of
// those main categories are read.
type SQLSource struct {
	DB         *sql.DB
	Dialect    Dialect
	Table      string
	Categories []string
	Label      string
}

func (s *SQLSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return string(s.Dialect) + ":" + s.table()
}

func (s *SQLSource) table() string {
	if s.Table == "" {
		return DefaultTable
	}
	return s.Table
}

func (s *SQLSource) query() (string, []any) {
	q := fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(s.table()))
	if len(s.Categories) == 0 {
		return q, nil
	}

	if s.Dialect == DialectPostgres {
		return q + ` WHERE main_category = ANY($1)`, []any{pq.Array(s.Categories)}
	}

	args := make([]any, len(s.Categories))
	for i, c := range s.Categories {
		args[i] = c
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(s.Categories)), ",")
	return q + ` WHERE main_category IN (` + placeholders + `)`, args
}

func (s *SQLSource) Read(ctx context.Context) (*Dataset, error) {
	q, args := s.query()
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table(), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	parser, err := newRowParser(s.Name(), columns)
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	builder := NewBuilder(batchSize)
	row := 0
	for rows.Next() {
		row++
		if err := rows.Scan(dest...); err != nil {
			return nil, &ParseError{Source: s.Name(), Row: row, Err: err}
		}
		cells := make([]string, len(values))
		for i, v := range values {
			if v.Valid {
				cells[i] = v.String
			}
		}
		p, err := parser.parse(row, cells)
		if err != nil {
			return nil, err
		}
		builder.Append(p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table(), err)
	}
	return builder.Build(), nil
}

// OpenSQL opens a database for a dataset location: postgres:// and
// postgresql:// DSNs use pgx, anything else is treated as a SQLite file.
func OpenSQL(location string) (*sql.DB, Dialect, error) {
	if isPostgresDSN(location) {
		db, err := sql.Open("pgx", location)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return db, DialectPostgres, nil
	}

	path := strings.TrimPrefix(location, "sqlite://")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite: %w", err)
	}
	return db, DialectSQLite, nil
}

func isPostgresDSN(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
