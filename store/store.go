// Package store runs the benchmark's PostgreSQL statements over a single
// connection: schema setup, seeding, targeted JSONB updates and size
// introspection.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/weiihann/jsonbbench/harness"
	"github.com/weiihann/jsonbbench/workload"
)

// Benchmark table names.
const (
	LargeTable = "test_jsonb_large"
	SmallTable = "test_jsonb_small"
)

// DB is the subset of *pgx.Conn used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgx.Conn)(nil)

// Connect opens the single connection used for a whole run.
func Connect(ctx context.Context, cfg *pgx.ConnConfig) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return conn, nil
}

// Store issues benchmark statements against db.
type Store struct {
	db    DB
	Large string
	Small string

	// Now stamps updatedAt on each update. Defaults to time.Now.
	Now func() time.Time
}

// New creates a Store using the default table names.
func New(db DB) *Store {
	return &Store{
		db:    db,
		Large: LargeTable,
		Small: SmallTable,
		Now:   time.Now,
	}
}

func ident(table string) string {
	return pgx.Identifier{table}.Sanitize()
}

// Reset drops both tables if present and creates them again.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{s.Large, s.Small} {
		if _, err := s.db.Exec(ctx, "DROP TABLE IF EXISTS "+ident(table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	for _, table := range []string{s.Large, s.Small} {
		_, err := s.db.Exec(ctx, fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, data JSONB)`,
			ident(table),
		))
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}

	return nil
}

// Seed inserts exactly one row into each table.
func (s *Store) Seed(
	ctx context.Context,
	large workload.LargeDocument,
	small workload.SmallDocument,
) error {
	if err := s.insert(ctx, s.Large, large); err != nil {
		return err
	}

	return s.insert(ctx, s.Small, small)
}

func (s *Store) insert(ctx context.Context, table string, doc any) error {
	_, err := s.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (data) VALUES ($1)`, ident(table)),
		doc,
	)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}

	return nil
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64

	err := s.db.QueryRow(ctx, "SELECT count(*) FROM "+ident(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}

	return n, nil
}

// Updater returns an updater that rewrites data.updatedAt of the row in
// table.
func (s *Store) Updater(table string) *Updater {
	return &Updater{store: s, table: table}
}

// Updater sets the updatedAt field of a table's row to the current time.
type Updater struct {
	store *Store
	table string
}

var _ harness.Updater = (*Updater)(nil)

// Apply fetches the id of one row and updates its updatedAt field in
// place, leaving every other field untouched. Without ORDER BY the row
// picked is arbitrary when the table holds more than one. An empty
// table is not an error: nothing is written.
func (u *Updater) Apply(ctx context.Context) error {
	var id int64

	err := u.store.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT id FROM %s LIMIT 1`, ident(u.table)),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select id from %s: %w", u.table, err)
	}

	updatedAt := workload.Timestamp(u.store.now())

	_, err = u.store.db.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET data = jsonb_set(data, '{updatedAt}', to_jsonb($1::text), true)
		WHERE id = $2`, ident(u.table)),
		updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update %s id %d: %w", u.table, id, err)
	}

	return nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

var _ harness.Sampler = (*Store)(nil)

// Sizes measures both tables.
func (s *Store) Sizes(ctx context.Context) (harness.TableSizes, error) {
	large, err := s.TableSize(ctx, s.Large)
	if err != nil {
		return harness.TableSizes{}, err
	}

	small, err := s.TableSize(ctx, s.Small)
	if err != nil {
		return harness.TableSizes{}, err
	}

	return harness.TableSizes{Large: large, Small: small}, nil
}

// TableSize returns the total and main relation sizes of table. The
// remainder is attributed to TOAST and indexes.
func (s *Store) TableSize(ctx context.Context, table string) (harness.TableSize, error) {
	var total, main int64

	err := s.db.QueryRow(ctx, `
		SELECT
			pg_total_relation_size($1::text::regclass),
			pg_relation_size($1::text::regclass)`,
		ident(table),
	).Scan(&total, &main)
	if err != nil {
		return harness.TableSize{}, fmt.Errorf("table size %s: %w", table, err)
	}

	return harness.NewTableSize(total, main), nil
}
