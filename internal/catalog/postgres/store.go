// Package postgres is the PostgreSQL record store backing the storefront
// catalog.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/postgres"
)

//go:embed schema.sql
var schema string

const selectColumns = `SELECT id, name, description, price, currency, game_platform, created_at FROM game_items`

// Store implements catalog.Repository on PostgreSQL.
type Store struct {
	db *postgres.Client
}

var _ catalog.Repository = (*Store)(nil)

func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying catalog schema: %w", err)
	}
	return nil
}

func (s *Store) FetchAll(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.db.DB.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying all items: %w", err)
	}
	return scanItems(rows)
}

func (s *Store) FetchByID(ctx context.Context, id int64) (catalog.Item, error) {
	row := s.db.DB.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
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
	where, args := catalog.WhereClause(p, "ILIKE", placeholder)
	args = append(args, limit)
	query := selectColumns + ` WHERE ` + where + ` ORDER BY id LIMIT ` + placeholder(len(args))
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("substring query: %w", err)
	}
	return scanItems(rows)
}

func (s *Store) Insert(ctx context.Context, item catalog.Item) (catalog.Item, error) {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO game_items (name, description, price, currency, game_platform)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
			item.Name, item.Description, item.Price, item.Currency, nullable(item.Platform),
		).Scan(&item.ID, &item.CreatedAt)
	})
	if err != nil {
		return catalog.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	return item, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM game_items WHERE id = $1`, id)
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
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (catalog.Item, error) {
	var (
		item     catalog.Item
		platform sql.NullString
	)
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Currency, &platform, &item.CreatedAt)
	item.Platform = platform.String
	return item, err
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
