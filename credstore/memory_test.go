package credstore

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "sess:a:token", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "sess:a:userRole", "staff"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "sess:b:token", "other"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := s.Get(ctx, "sess:a:token")
	if err != nil || !ok || v != "tok" {
		t.Fatalf("Get = %q, %v, %v; want tok, true, nil", v, ok, err)
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("Get(missing) reported present")
	}

	if err := s.DeleteAll(ctx, "sess:a:"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "sess:a:token"); ok {
		t.Fatal("sess:a:token survived DeleteAll")
	}
	if _, ok, _ := s.Get(ctx, "sess:a:userRole"); ok {
		t.Fatal("sess:a:userRole survived DeleteAll")
	}
	// Other sessions untouched.
	if v, _, _ := s.Get(ctx, "sess:b:token"); v != "other" {
		t.Fatalf("sess:b:token = %q after DeleteAll of sess:a:", v)
	}
}
