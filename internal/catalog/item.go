// Package catalog defines the storefront item model and the record-store
// contracts the search core reads from. Backends live in the postgres and
// sqlite subpackages.
package catalog

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
)

// DefaultCurrency is applied to items created without a currency.
const DefaultCurrency = "PHP"

// ErrNotFound is returned by FetchByID and Delete when no item has the
// requested identifier.
var ErrNotFound = apperrors.ErrItemNotFound

// Item is a read-only snapshot of a catalog row.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Currency    string    `json:"currency"`
	Platform    string    `json:"game_platform,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Field selects which columns a keyword is matched against.
type Field uint8

const (
	FieldName Field = 1 << iota
	FieldDescription
	FieldPlatform

	FieldsAll = FieldName | FieldDescription | FieldPlatform
)

// Predicate is a case-insensitive substring filter. Keyword is matched
// against any of Fields; Platform, when set, must also match the platform
// column. Both are taken literally, LIKE wildcards included.
type Predicate struct {
	Keyword  string
	Fields   Field
	Platform string
}

// Store is the read side of the record store used by the search core.
type Store interface {
	FetchAll(ctx context.Context) ([]Item, error)
	FetchByID(ctx context.Context, id int64) (Item, error)
	Query(ctx context.Context, p Predicate, limit int) ([]Item, error)
	Ping(ctx context.Context) error
}

// Writer is the admin side of the record store.
type Writer interface {
	Insert(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id int64) error
	Migrate(ctx context.Context) error
}

// Repository is a backend implementing both sides.
type Repository interface {
	Store
	Writer
	Close() error
}

// EscapeLike escapes LIKE metacharacters so s matches literally with
// ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// WhereClause renders p as a SQL condition. op is the case-insensitive match
// operator of the dialect and placeholder renders the n-th bind parameter
// (1-based). An empty predicate renders "TRUE".
func WhereClause(p Predicate, op string, placeholder func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	bind := func(v string) string {
		args = append(args, "%"+EscapeLike(v)+"%")
		return placeholder(len(args))
	}
	match := func(column, v string) string {
		return column + " " + op + " " + bind(v) + ` ESCAPE '\'`
	}

	if p.Keyword != "" {
		fields := p.Fields
		if fields == 0 {
			fields = FieldsAll
		}
		var alts []string
		if fields&FieldName != 0 {
			alts = append(alts, match("name", p.Keyword))
		}
		if fields&FieldDescription != 0 {
			alts = append(alts, match("description", p.Keyword))
		}
		if fields&FieldPlatform != 0 {
			alts = append(alts, match("game_platform", p.Keyword))
		}
		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}
	if p.Platform != "" {
		conds = append(conds, match("game_platform", p.Platform))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}
