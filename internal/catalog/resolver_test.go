package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gudang/internal/catalog"
	"github.com/noah-isme/backend-gudang/internal/pricing"
)

type fakeStore struct {
	products  map[uuid.UUID]catalog.Product
	failWith  error
	backfills []string
}

func newFakeStore(products ...catalog.Product) *fakeStore {
	s := &fakeStore{products: map[uuid.UUID]catalog.Product{}}
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) FindByCode(_ context.Context, code string) (catalog.Product, bool, error) {
	if s.failWith != nil {
		return catalog.Product{}, false, s.failWith
	}
	for _, p := range s.products {
		if p.Code == code {
			return p, true, nil
		}
	}
	return catalog.Product{}, false, nil
}

func (s *fakeStore) FindByRef(_ context.Context, ref string) (catalog.Product, bool, error) {
	if s.failWith != nil {
		return catalog.Product{}, false, s.failWith
	}
	for _, p := range s.products {
		if strings.EqualFold(p.ManualRef, ref) {
			return p, true, nil
		}
	}
	return catalog.Product{}, false, nil
}

func (s *fakeStore) BackfillCode(_ context.Context, id uuid.UUID, code string) error {
	if s.failWith != nil {
		return s.failWith
	}
	p, ok := s.products[id]
	if !ok {
		return errors.New("unknown product")
	}
	if p.Code != code {
		p.Code = code
		s.products[id] = p
		s.backfills = append(s.backfills, code)
	}
	return nil
}

func (s *fakeStore) Insert(_ context.Context, p catalog.Product) (catalog.Product, error) {
	if s.failWith != nil {
		return catalog.Product{}, s.failWith
	}
	p.ID = uuid.New()
	s.products[p.ID] = p
	return p, nil
}

func money(v pricing.Money) *pricing.Money { return &v }

func TestResolverByCode(t *testing.T) {
	store := newFakeStore(catalog.Product{
		Catalog:      catalog.Primary,
		Code:         "123456789012",
		Manufacturer: "Brother",
		Style:        "Thread White",
		BasePrice:    money(1_000),
	})
	r := catalog.Resolver{Store: store}

	res, err := r.ByCode(context.Background(), "123456789012")
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, catalog.MatchedByCode, res.MatchedBy)
	require.Equal(t, "Brother Thread White", res.Product.Description())

	res, err = r.ByCode(context.Background(), "000000000000")
	require.NoError(t, err)
	require.False(t, res.Matched)
	require.Equal(t, catalog.ReasonNoCatalogEntry, res.Reason)
}

func TestResolverByManualRefCaseInsensitive(t *testing.T) {
	store := newFakeStore(catalog.Product{
		Catalog:   catalog.Overstock,
		ManualRef: "REF-100",
		Style:     "Bobbin Pack",
	})
	r := catalog.Resolver{Store: store}

	res, err := r.ByManualRef(context.Background(), "ref-100")
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, catalog.MatchedByManualRef, res.MatchedBy)

	res, err = r.ByManualRef(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, res.Matched)
	require.Equal(t, catalog.ReasonNoManualMatch, res.Reason)
}

func TestResolverPropagatesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("connection refused")
	r := catalog.Resolver{Store: store}

	_, err := r.ByCode(context.Background(), "123")
	require.Error(t, err)
	_, err = r.ByManualRef(context.Background(), "REF")
	require.Error(t, err)
}

func TestBackfillIdempotent(t *testing.T) {
	product := catalog.Product{ID: uuid.New(), Catalog: catalog.Primary, ManualRef: "REF-1"}
	store := newFakeStore(product)

	require.NoError(t, store.BackfillCode(context.Background(), product.ID, "999"))
	require.NoError(t, store.BackfillCode(context.Background(), product.ID, "999"))
	require.Len(t, store.backfills, 1)
}
