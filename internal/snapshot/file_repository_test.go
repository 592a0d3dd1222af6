package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)
	ctx := context.Background()

	payload := []byte("snapshot-bytes")
	if err := repo.Save(ctx, payload); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Load = %q, want %q", got, payload)
	}

	if repo.Path() != filepath.Join(dir, "parking.snap") {
		t.Errorf("Path = %s, want %s", repo.Path(), filepath.Join(dir, "parking.snap"))
	}
}

func TestFileRepositoryMissingFile(t *testing.T) {
	repo := NewFileRepository(t.TempDir())

	data, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on empty dir: %v", err)
	}
	if data != nil {
		t.Errorf("Load = %q, want nil", data)
	}
}

func TestFileRepositorySaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	repo := NewFileRepository(dir)
	ctx := context.Background()

	if err := repo.Save(ctx, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(repo.Path()); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestFileRepositoryOverwriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)
	ctx := context.Background()

	if err := repo.Save(ctx, []byte("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, []byte("second")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Load = %q, want %q", got, "second")
	}

	// No temp file should be left behind.
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
