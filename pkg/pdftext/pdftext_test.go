package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("  quarterly numbers are up  \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Extract(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "quarterly numbers are up" {
		t.Fatalf("Extract() = %q", got)
	}
}

func TestExtractTruncatesByRune(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "long.md")
	if err := os.WriteFile(path, []byte(strings.Repeat("é", 10)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Extract(context.Background(), path, 4)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "éééé" {
		t.Fatalf("Extract() = %q", got)
	}
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("   "), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Extract(context.Background(), empty, 10); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	bogus := filepath.Join(dir, "bogus.pdf")
	if err := os.WriteFile(bogus, []byte("this is not a pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Extract(context.Background(), bogus, 10); err == nil {
		t.Fatal("expected error for a malformed pdf")
	}

	if _, err := Extract(context.Background(), filepath.Join(dir, "missing.txt"), 10); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Extract(ctx, path, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
