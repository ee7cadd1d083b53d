package counter

import (
	"context"
	"testing"
)

func TestKeyNormalize(t *testing.T) {
	key := Key{Ref: " 123 ", Style: "Thread ", Size: " 40wt", Manufacturer: " Brother "}
	got := key.Normalize()
	want := Key{Ref: "123", Style: "Thread", Size: "40wt", Manufacturer: "Brother"}
	if got != want {
		t.Fatalf("unexpected normalized key: %+v", got)
	}
}

func TestNilStoreGuards(t *testing.T) {
	var s *PGStore
	ctx := context.Background()
	if err := s.IncrementOrCreate(ctx, Key{}, 1, 0); err != ErrStoreUnavailable {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.Record(ctx, MachineEvent{}); err != ErrStoreUnavailable {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
