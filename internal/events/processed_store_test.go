package events

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestProcessedStore(t *testing.T) *ProcessedStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProcessedStore(client)
}

func TestProcessedStoreRoundTrip(t *testing.T) {
	store := newTestProcessedStore(t)
	ctx := context.Background()

	seen, err := store.AlreadyProcessed(ctx, "acs", "evt-1")
	if err != nil {
		t.Fatalf("AlreadyProcessed failed: %v", err)
	}
	if seen {
		t.Fatal("fresh event reported as processed")
	}

	first, err := store.MarkProcessed(ctx, "acs", "evt-1")
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if !first {
		t.Fatal("first mark reported as duplicate")
	}

	second, err := store.MarkProcessed(ctx, "acs", "evt-1")
	if err != nil {
		t.Fatalf("second MarkProcessed failed: %v", err)
	}
	if second {
		t.Fatal("duplicate mark reported as first")
	}

	seen, err = store.AlreadyProcessed(ctx, "acs", "evt-1")
	if err != nil {
		t.Fatalf("AlreadyProcessed failed: %v", err)
	}
	if !seen {
		t.Fatal("marked event not reported as processed")
	}
}

func TestProcessedStoreNilSafe(t *testing.T) {
	var store *ProcessedStore
	ctx := context.Background()

	if seen, err := store.AlreadyProcessed(ctx, "acs", "evt-1"); err != nil || seen {
		t.Fatalf("nil store AlreadyProcessed = %v, %v", seen, err)
	}
	if ok, err := store.MarkProcessed(ctx, "acs", "evt-1"); err != nil || !ok {
		t.Fatalf("nil store MarkProcessed = %v, %v", ok, err)
	}
}

func TestProcessedStoreEmptyEventID(t *testing.T) {
	store := newTestProcessedStore(t)
	ctx := context.Background()

	// Events without ids are never deduped.
	if seen, _ := store.AlreadyProcessed(ctx, "acs", ""); seen {
		t.Fatal("empty event id reported as processed")
	}
	if ok, _ := store.MarkProcessed(ctx, "acs", ""); !ok {
		t.Fatal("empty event id mark should be a no-op success")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "acs", ""); seen {
		t.Fatal("empty event id became processed")
	}
}
