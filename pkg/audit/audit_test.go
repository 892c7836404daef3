package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	records := []*Record{
		{ID: "1", UserID: "alice", Category: "guardrail", Action: "guardrail.triggered", CreatedAt: base},
		{ID: "2", UserID: "bob", Category: "budget", Action: "budget.exceeded", CreatedAt: base.Add(time.Minute)},
		{ID: "3", UserID: "alice", Category: "approval", Action: "approval.created", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := store.Store(ctx, r); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	got, err := store.Query(ctx, &Query{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for alice, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "3" {
		t.Errorf("expected newest record first, got %s", got[0].ID)
	}

	n, err := store.Count(ctx, &Query{Category: "budget"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 budget record, got %d", n)
	}
}

func TestMemoryStoreDeleteOlderThan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -100)
	store.Store(ctx, &Record{ID: "old", CreatedAt: old})
	store.Store(ctx, &Record{ID: "new", CreatedAt: time.Now()})

	deleted, err := store.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	n, _ := store.Count(ctx, nil)
	if n != 1 {
		t.Errorf("expected 1 remaining, got %d", n)
	}
}

func TestRecorderWritesAndFillsDefaults(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, RecorderConfig{})

	rec.Emit(&Record{UserID: "alice", Action: "approval.created", Category: "approval"})
	rec.Close()

	records, err := store.Query(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID == "" {
		t.Error("expected ID to be assigned")
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be assigned")
	}
	if rec.WrittenCount() != 1 {
		t.Errorf("expected written count 1, got %d", rec.WrittenCount())
	}
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Store(ctx context.Context, record *Record) error {
	return errors.New("disk on fire")
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	rec := NewRecorder(&failingStore{}, RecorderConfig{})

	// Must not panic or surface the error to the caller.
	rec.Emit(&Record{Action: "guardrail.triggered", Category: "guardrail"})
	rec.Close()

	if rec.WrittenCount() != 0 {
		t.Error("nothing should have been written")
	}
}

func TestRecorderSample(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, RecorderConfig{
		SampleMaxChars: 20,
		Redact:         func(s string) string { return strings.ReplaceAll(s, "secret", "[REDACTED]") },
	})
	defer rec.Close()

	sample := rec.Sample("this is a secret and a very long line of text")
	if strings.Contains(sample, "secret") {
		t.Error("sample should be redacted")
	}
	if len(sample) > 20 {
		t.Errorf("sample should be truncated to 20 chars, got %d", len(sample))
	}
}

func TestPruner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Store(ctx, &Record{ID: "ancient", CreatedAt: time.Now().AddDate(0, 0, -120)})
	store.Store(ctx, &Record{ID: "recent", CreatedAt: time.Now()})

	pruner := NewPruner(store, 90)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	// Zero retention disables pruning.
	disabled := NewPruner(store, 0)
	deleted, err = disabled.Prune(ctx)
	if err != nil || deleted != 0 {
		t.Errorf("disabled pruner should be a no-op, got %d, %v", deleted, err)
	}
}
