package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// ErrStoreUnavailable indicates the catalog store dependency is not configured.
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

// ErrRuleNotFound indicates the requested price rule does not exist.
var ErrRuleNotFound = errors.New("catalog: price rule not found")

// Store provides catalog record accessors.
type Store interface {
	FindByCode(ctx context.Context, code string) (Product, bool, error)
	FindByRef(ctx context.Context, ref string) (Product, bool, error)
	BackfillCode(ctx context.Context, id uuid.UUID, code string) error
	Insert(ctx context.Context, p Product) (Product, error)
}

// RuleStore provides CRUD over the ordered price-rule table.
type RuleStore interface {
	ListRules(ctx context.Context) ([]PriceRule, error)
	CreateRule(ctx context.Context, keyword string, amount pricing.Money, position int) (PriceRule, error)
	UpdateRule(ctx context.Context, rule PriceRule) (PriceRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

// NewStore constructs a catalog store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// PGStore implements Store and RuleStore against Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

const productColumns = `id, catalog, code, manual_ref, manufacturer, style, size_label, base_price`

// FindByCode performs an exact code lookup. Primary catalog rows win when both
// catalogs carry the same code.
func (s *PGStore) FindByCode(ctx context.Context, code string) (Product, bool, error) {
	if s == nil || s.pool == nil {
		return Product{}, false, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM catalog_products
WHERE code = $1 ORDER BY catalog = 'primary' DESC LIMIT 1`, code)
	return scanProduct(row)
}

// FindByRef performs a case-insensitive exact manual-reference lookup.
func (s *PGStore) FindByRef(ctx context.Context, ref string) (Product, bool, error) {
	if s == nil || s.pool == nil {
		return Product{}, false, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM catalog_products
WHERE lower(manual_ref) = lower($1) ORDER BY catalog = 'primary' DESC LIMIT 1`, ref)
	return scanProduct(row)
}

// BackfillCode sets the record's code so future scans resolve exactly.
// Repeating the same backfill is a no-op.
func (s *PGStore) BackfillCode(ctx context.Context, id uuid.UUID, code string) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `UPDATE catalog_products
SET code = $2, updated_at = now()
WHERE id = $1 AND code IS DISTINCT FROM $2`, id, code)
	return err
}

// Insert stores a new catalog record and returns it with its generated id.
func (s *PGStore) Insert(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	var price any
	if p.BasePrice != nil {
		price = *p.BasePrice
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO catalog_products (catalog, code, manual_ref, manufacturer, style, size_label, base_price)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		string(p.Catalog), p.Code, p.ManualRef, p.Manufacturer, p.Style, p.Size, price).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListRules returns the rule table in explicit position order.
func (s *PGStore) ListRules(ctx context.Context) ([]PriceRule, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, keyword, amount, position FROM price_rules ORDER BY position, keyword`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriceRule
	for rows.Next() {
		var r PriceRule
		if err := rows.Scan(&r.ID, &r.Keyword, &r.Amount, &r.Position); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateRule appends a rule at the given position.
func (s *PGStore) CreateRule(ctx context.Context, keyword string, amount pricing.Money, position int) (PriceRule, error) {
	if s == nil || s.pool == nil {
		return PriceRule{}, ErrStoreUnavailable
	}
	rule := PriceRule{Keyword: keyword, Amount: amount, Position: position}
	err := s.pool.QueryRow(ctx, `INSERT INTO price_rules (keyword, amount, position)
VALUES ($1, $2, $3) RETURNING id`, keyword, amount, position).Scan(&rule.ID)
	if err != nil {
		return PriceRule{}, err
	}
	return rule, nil
}

// UpdateRule rewrites a rule's keyword, amount, and position.
func (s *PGStore) UpdateRule(ctx context.Context, rule PriceRule) (PriceRule, error) {
	if s == nil || s.pool == nil {
		return PriceRule{}, ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE price_rules SET keyword = $2, amount = $3, position = $4, updated_at = now()
WHERE id = $1`, rule.ID, rule.Keyword, rule.Amount, rule.Position)
	if err != nil {
		return PriceRule{}, err
	}
	if tag.RowsAffected() == 0 {
		return PriceRule{}, ErrRuleNotFound
	}
	return rule, nil
}

// DeleteRule removes a rule by id.
func (s *PGStore) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, bool, error) {
	var (
		p     Product
		price pgtype.Int8
	)
	err := row.Scan(&p.ID, &p.Catalog, &p.Code, &p.ManualRef, &p.Manufacturer, &p.Style, &p.Size, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, false, nil
		}
		return Product{}, false, err
	}
	if price.Valid {
		v := pricing.Money(price.Int64)
		p.BasePrice = &v
	}
	return p, true, nil
}
