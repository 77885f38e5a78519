package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codesummary/internal/gate"
)

// assertDrained fails when any slot is still held.
func assertDrained(t *testing.T, g *gate.Gate) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := range g.Capacity() {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("slot %d still held: %v", i, err)
		}
	}
	for range g.Capacity() {
		g.Release()
	}
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := gate.New(3)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func(context.Context) error {
				time.Sleep(2 * time.Millisecond)
				return nil
			})
		}()
	}
	wg.Wait()
	if g.Peak() > 3 {
		t.Fatalf("peak %d exceeded capacity", g.Peak())
	}
	if g.Total() != 20 {
		t.Fatalf("total = %d", g.Total())
	}
	assertDrained(t, g)
}

func TestGateAcquireHonoursContext(t *testing.T) {
	g := gate.New(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	g.Release()
	assertDrained(t, g)
}

func TestGateMinimumCapacity(t *testing.T) {
	if gate.New(0).Capacity() != 1 {
		t.Fatal("expected capacity floor of 1")
	}
}

func TestDoPropagatesError(t *testing.T) {
	g := gate.New(2)
	want := errors.New("fail")
	if err := g.Do(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
	assertDrained(t, g)
}
