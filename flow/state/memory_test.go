package state

import (
	"context"
	"testing"
	"time"

	"github.com/SUMERGeg/lostfound/flow"
)

func TestMemoryPutGetDelete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	p := flow.NewPayload(flow.FlowLost, time.Now())
	p.Listing.Category = "keys"
	step := flow.StepFor(flow.FlowLost, flow.StageAttributes)
	if err := s.Put(ctx, "u1", step, p); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, ok, err := s.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.Step != step || rec.Payload.Listing.Category != "keys" {
		t.Fatalf("rec = %+v", rec)
	}

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Fatalf("count = %d", n)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "u1"); ok {
		t.Fatal("record survived delete")
	}
	// deleting again is a no-op
	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestMemoryIsolatesStoredPayload(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p := flow.NewPayload(flow.FlowLost, time.Now())
	step := flow.StepFor(flow.FlowLost, flow.StageCategory)
	if err := s.Put(ctx, "u1", step, p); err != nil {
		t.Fatalf("put: %v", err)
	}
	p.Listing.Category = "mutated-after-put"

	rec, _, _ := s.Get(ctx, "u1")
	if rec.Payload.Listing.Category != "" {
		t.Fatalf("put did not copy payload: %q", rec.Payload.Listing.Category)
	}

	rec.Payload.Listing.Category = "mutated-after-get"
	again, _, _ := s.Get(ctx, "u1")
	if again.Payload.Listing.Category != "" {
		t.Fatalf("get did not copy payload: %q", again.Payload.Listing.Category)
	}
}

func TestMemorySweepExpiresStaleRecords(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	p := flow.NewPayload(flow.FlowLost, now)
	_ = s.Put(ctx, "stale", flow.StepFor(flow.FlowLost, flow.StageCategory), p)

	now = now.Add(30 * time.Minute)
	_ = s.Put(ctx, "fresh", flow.StepFor(flow.FlowFound, flow.StageCategory), flow.NewPayload(flow.FlowFound, now))

	now = now.Add(31 * time.Minute)
	removed, err := s.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if _, ok, _ := s.Get(ctx, "stale"); ok {
		t.Fatal("stale record survived sweep")
	}
	if _, ok, _ := s.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh record swept")
	}
}
