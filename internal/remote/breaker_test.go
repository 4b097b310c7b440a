package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"carpool/internal/remote"
	"carpool/internal/remote/memory"
)

type failingEndpoint struct {
	err   error
	calls int
}

func (f *failingEndpoint) Fetch(context.Context, string) (*remote.Document, error) {
	f.calls++
	return nil, f.err
}

func (f *failingEndpoint) Save(context.Context, string, remote.Document) error {
	f.calls++
	return f.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingEndpoint{err: errors.New("connection refused")}
	b := remote.WithBreaker("test", next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Fetch(ctx, "alice"); err == nil {
			t.Fatal("expected error")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", b.State())
	}

	_, err := b.Fetch(ctx, "alice")
	if !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from open breaker, got %v", err)
	}
	if next.calls != 3 {
		t.Errorf("open breaker still called through: %d calls", next.calls)
	}
}

func TestBreakerIgnoresVersionConflicts(t *testing.T) {
	next := &failingEndpoint{err: remote.ErrVersionConflict}
	b := remote.WithBreaker("test", next, time.Minute)

	for i := 0; i < 5; i++ {
		if err := b.Save(context.Background(), "alice", remote.Document{}); !errors.Is(err, remote.ErrVersionConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("conflicts tripped the breaker")
	}
}

func TestMemoryEndpointVersioning(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	doc, err := m.Fetch(ctx, "alice")
	if err != nil || doc != nil {
		t.Fatalf("expected no document, got %+v %v", doc, err)
	}

	if err := m.Save(ctx, "alice", remote.Document{Data: "{}", Version: 0}); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(ctx, "alice", remote.Document{Data: "{}", Version: 0}); !errors.Is(err, remote.ErrVersionConflict) {
		t.Errorf("stale save should conflict, got %v", err)
	}

	doc, _ = m.Fetch(ctx, "alice")
	if doc.Version != 1 || doc.LastUpdated.IsZero() {
		t.Errorf("unexpected doc %+v", doc)
	}
	if m.Saves() != 1 {
		t.Errorf("saves = %d", m.Saves())
	}
}

func TestBreakerPassesDocumentsThrough(t *testing.T) {
	m := memory.New()
	m.Put("alice", `{"travellers":[]}`)
	b := remote.WithBreaker("test", m, time.Minute)

	doc, err := b.Fetch(context.Background(), "alice")
	if err != nil || doc == nil || doc.Version != 1 {
		t.Fatalf("got %+v %v", doc, err)
	}
	missing, err := b.Fetch(context.Background(), "bob")
	if err != nil || missing != nil {
		t.Errorf("expected nil document, got %+v %v", missing, err)
	}
}
