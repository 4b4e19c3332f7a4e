// Package sqlite is an embedded record store for development, the catalogctl
// CLI and tests. LIKE in SQLite folds ASCII case only.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_items (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         REAL NOT NULL CHECK (price >= 0),
	currency      TEXT NOT NULL DEFAULT 'PHP',
	game_platform TEXT,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_items_platform ON game_items (game_platform);
`

const selectColumns = `SELECT id, name, description, price, currency, game_platform, created_at FROM game_items`

// Store implements catalog.Repository on a SQLite file.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ catalog.Repository = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, path: path, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying catalog schema: %w", err)
	}
	return nil
}

func (s *Store) FetchAll(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying all items: %w", err)
	}
	return scanItems(rows)
}

func (s *Store) FetchByID(ctx context.Context, id int64) (catalog.Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("querying item %d: %w", id, err)
	}
	return item, nil
}

func (s *Store) Query(ctx context.Context, p catalog.Predicate, limit int) ([]catalog.Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	where, args := catalog.WhereClause(p, "LIKE", func(int) string { return "?" })
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE `+where+` ORDER BY id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("substring query: %w", err)
	}
	return scanItems(rows)
}

func (s *Store) Insert(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC().Truncate(time.Second)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO game_items (name, description, price, currency, game_platform, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.Name, item.Description, item.Price, item.Currency, nullable(item.Platform), item.CreatedAt.Unix(),
	)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return catalog.Item{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return item, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (catalog.Item, error) {
	var (
		item     catalog.Item
		platform sql.NullString
		created  int64
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Currency, &platform, &created); err != nil {
		return catalog.Item{}, err
	}
	item.Platform = platform.String
	item.CreatedAt = time.Unix(created, 0).UTC()
	return item, nil
}

func scanItems(rows *sql.Rows) ([]catalog.Item, error) {
	defer rows.Close()
	var items []catalog.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
