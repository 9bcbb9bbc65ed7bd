package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-job-scraper-go/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore talks to the region tables over a direct Postgres
// connection, such as the Supabase pooler.
type PostgresStore struct {
	db *pgxpool.Pool

	// CreateTables makes the sink create missing region tables.
	CreateTables bool
}

var _ Store = (*PostgresStore)(nil)

// ConnectPostgres opens a pool for connString and verifies it.
func ConnectPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour

	// The Supabase pooler runs PgBouncer in transaction mode, which cannot
	// hold prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Table returns the named region table.
func (s *PostgresStore) Table(name string) Table {
	return &PostgresTable{db: s.db, name: name, create: s.CreateTables}
}

type PostgresTable struct {
	db     *pgxpool.Pool
	name   string
	create bool
}

func (t *PostgresTable) Name() string {
	return t.name
}

func (t *PostgresTable) ident() string {
	return pgx.Identifier{t.name}.Sanitize()
}

// EnsureTable creates the table with every column as text and the unique
// key the sink relies on.
func (t *PostgresTable) EnsureTable(ctx context.Context) error {
	if !t.create {
		return nil
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + t.ident() + " (id BIGSERIAL PRIMARY KEY"
	for _, col := range models.Columns {
		ddl += ", " + pgx.Identifier{col.Name}.Sanitize() + " TEXT"
	}
	ddl += ", created_at TIMESTAMPTZ NOT NULL DEFAULT now(), UNIQUE (job_title, company_name))"
	if _, err := t.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, err)
	}
	return nil
}

// keysQuery pages through the key columns in unique-key order so that
// consecutive pages neither overlap nor skip rows.
func (t *PostgresTable) keysQuery(offset, limit int) (string, []interface{}, error) {
	return psql.Select("job_title", "company_name").
		From(t.ident()).
		OrderBy("job_title", "company_name").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
}

func (t *PostgresTable) FetchKeys(ctx context.Context, offset, limit int) ([]KeyPair, error) {
	query, args, err := t.keysQuery(offset, limit)
	if err != nil {
		return nil, fmt.Errorf("build key query: %w", err)
	}

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select keys from %s: %w", t.name, err)
	}
	defer rows.Close()

	var keys []KeyPair
	for rows.Next() {
		var title, company *string
		if err := rows.Scan(&title, &company); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		var kp KeyPair
		if title != nil {
			kp.Title = *title
		}
		if company != nil {
			kp.Company = *company
		}
		keys = append(keys, kp)
	}
	return keys, rows.Err()
}

func (t *PostgresTable) InsertRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, len(models.Columns))
	for i, c := range models.Columns {
		cols[i] = c.Name
	}

	builder := psql.Insert(t.ident()).Columns(cols...)
	for _, row := range rows {
		values := row.Values()
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v
		}
		builder = builder.Values(args...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", t.name, err)
	}
	return nil
}
