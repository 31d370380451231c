package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewStorage(path, "")
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("Get() found a value in fresh storage")
	}

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// A fresh instance over the same file sees the value
	reloaded, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := reloaded.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get() after reload = %q, %v, %v", v, ok, err)
	}
}

func TestStorage_RemoveSurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := reloaded.Get(ctx, "k"); ok {
		t.Fatal("removed value survived reload")
	}
}

func TestStorage_UnflushedChangesStayInMemory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	// No Flush: nothing on disk yet
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("storage file written without Flush (stat err = %v)", err)
	}
}

func TestStorage_FilePermissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestStorage_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStorage(path, ""); err == nil {
		t.Fatal("NewStorage() accepted a malformed file")
	}
}

func TestStorage_FlushWithoutChangesIsNoOp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewStorage(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Flush() with no changes created the file")
	}
}
