package credstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PlaintextRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Set(ctx, "sess:a:token", "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Reopen and verify persistence.
	reopened, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, _ := reopened.Get(ctx, "sess:a:token")
	if !ok || v != "tok" {
		t.Fatalf("Get after reopen = %q, %v; want tok, true", v, ok)
	}
}

func TestFileStore_EncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Set(ctx, "sess:a:token", "secret-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// The token must not appear in the file on disk.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("secret-token")) {
		t.Fatal("plaintext token found in encrypted file")
	}

	reopened, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, _ := reopened.Get(ctx, "sess:a:token")
	if !ok || v != "secret-token" {
		t.Fatalf("Get after reopen = %q, %v; want secret-token, true", v, ok)
	}

	// Wrong passphrase must fail, not return garbage.
	if _, err := NewFileStore(path, "wrong"); err == nil {
		t.Fatal("expected error opening with wrong passphrase")
	}
}

func TestFileStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_ = store.Set(ctx, "sess:a:token", "1")
	_ = store.Set(ctx, "sess:a:userRole", "staff")
	_ = store.Set(ctx, "sess:b:token", "2")

	if err := store.DeleteAll(ctx, "sess:a:"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "sess:a:token"); ok {
		t.Fatal("sess:a:token survived DeleteAll")
	}
	if v, _, _ := store.Get(ctx, "sess:b:token"); v != "2" {
		t.Fatal("sess:b:token should survive")
	}
}
