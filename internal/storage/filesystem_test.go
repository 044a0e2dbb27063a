package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFilesystemSourceGetImage(t *testing.T) {
	dir := t.TempDir()
	want := []byte("image-bytes")
	if err := os.WriteFile(filepath.Join(dir, "plate.png"), want, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	source, err := NewFilesystemSource(dir)
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}

	got, err := source.GetImage(context.Background(), "plate.png")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("data = %q, want %q", got, want)
	}
}

func TestFilesystemSourceMissing(t *testing.T) {
	source, err := NewFilesystemSource(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}

	if _, err := source.GetImage(context.Background(), "nope.png"); err == nil {
		t.Error("expected error for missing image")
	}

	exists, err := source.Exists(context.Background(), "nope.png")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("missing image reported as existing")
	}
}

func TestFilesystemSourceTraversal(t *testing.T) {
	source, err := NewFilesystemSource(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}

	if _, err := source.GetImage(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}
}
