package memory

import (
	"context"
	"errors"
	"testing"

	"budget/internal/ledger"
	"budget/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Load(ctx); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("Load before Create: got %v", err)
	}
	if err := s.Save(ctx, ledger.New()); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("Save before Create: got %v", err)
	}
	if err := s.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx); !errors.Is(err, storage.ErrAlreadyInitialized) {
		t.Fatalf("second Create: got %v", err)
	}

	p, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := p.NewBox("cat"); err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	// Unsaved changes stay local to the loaded copy.
	again, _ := s.Load(ctx)
	if again.Has("cat") {
		t.Fatal("unsaved box leaked into the store")
	}

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.NewBox("dog"); err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	again, _ = s.Load(ctx)
	if !again.Has("cat") || again.Has("dog") {
		t.Fatalf("store holds %v", again.Boxes())
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}
