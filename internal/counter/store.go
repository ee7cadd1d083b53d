// Package counter maintains the persistent month-end inventory counters and
// the machine intake log.
package counter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-gudang/internal/obs"
	"github.com/noah-isme/backend-gudang/internal/pricing"
)

// ErrStoreUnavailable indicates the counter store dependency is not configured.
var ErrStoreUnavailable = errors.New("counter: store unavailable")

// Key addresses one counter row. Ref carries the product code when known,
// otherwise the manual reference.
type Key struct {
	Ref          string
	Style        string
	Size         string
	Manufacturer string
}

// Normalize trims key fields so equal scans land on the same counter row.
func (k Key) Normalize() Key {
	return Key{
		Ref:          strings.TrimSpace(k.Ref),
		Style:        strings.TrimSpace(k.Style),
		Size:         strings.TrimSpace(k.Size),
		Manufacturer: strings.TrimSpace(k.Manufacturer),
	}
}

// Sink receives idempotent upsert-with-increment commands from the scan
// workflow.
type Sink interface {
	IncrementOrCreate(ctx context.Context, key Key, delta int, price pricing.Money) error
}

// MachineEvent is one machine intake record. Machines are logged even when
// flawed, unlike supply counters.
type MachineEvent struct {
	Name         string
	Code         string
	SerialNumber string
	Quantity     int
	ScannedAt    time.Time
}

// MachineLog records machine intake independently of the counters.
type MachineLog interface {
	Record(ctx context.Context, e MachineEvent) error
}

// Count is a counter row as listed for month-end review.
type Count struct {
	ID            uuid.UUID     `json:"id"`
	Ref           string        `json:"ref"`
	Style         string        `json:"style"`
	Size          string        `json:"size,omitempty"`
	Manufacturer  string        `json:"manufacturer,omitempty"`
	Quantity      int           `json:"quantity"`
	PriceSnapshot pricing.Money `json:"priceSnapshot"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewStore constructs a counter store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// PGStore implements Sink and MachineLog against Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// IncrementOrCreate adds delta to the row's quantity, creating the row at
// delta when absent. The price snapshot is overwritten on every call.
func (s *PGStore) IncrementOrCreate(ctx context.Context, key Key, delta int, price pricing.Money) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	key = key.Normalize()
	_, err := s.pool.Exec(ctx, `INSERT INTO inventory_counts (ref, style, size_label, manufacturer, quantity, price_snapshot)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (ref, style, size_label, manufacturer)
DO UPDATE SET quantity = inventory_counts.quantity + EXCLUDED.quantity,
              price_snapshot = EXCLUDED.price_snapshot,
              updated_at = now()`,
		key.Ref, key.Style, key.Size, key.Manufacturer, delta, price)
	if err != nil {
		obs.CountInventoryIncrement("error")
		return err
	}
	obs.CountInventoryIncrement("ok")
	return nil
}

// Record appends one machine intake row.
func (s *PGStore) Record(ctx context.Context, e MachineEvent) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	at := e.ScannedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO machine_log (name, code, serial_number, quantity, scanned_at)
VALUES ($1, $2, $3, $4, $5)`, e.Name, e.Code, e.SerialNumber, e.Quantity, at)
	return err
}

// ListCounts returns counter rows for month-end review, newest first.
func (s *PGStore) ListCounts(ctx context.Context, limit, offset int) ([]Count, int64, error) {
	if s == nil || s.pool == nil {
		return nil, 0, ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM inventory_counts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, ref, style, size_label, manufacturer, quantity, price_snapshot, updated_at
FROM inventory_counts ORDER BY updated_at DESC, ref LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.ID, &c.Ref, &c.Style, &c.Size, &c.Manufacturer, &c.Quantity, &c.PriceSnapshot, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
