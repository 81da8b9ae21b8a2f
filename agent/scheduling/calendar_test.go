package scheduling

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFileCalendarCreatesEmptyDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "calendar.json")
	if _, err := NewFileCalendar(path, time.UTC); err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read calendar: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode calendar: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("expected empty document, got %v", doc)
	}
}

func TestFileCalendarAddAndBusy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calendar.json")
	cal, err := NewFileCalendar(path, time.UTC)
	if err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}
	ctx := context.Background()

	iv := span(t, "2025-07-12T11:00:00", "2025-07-12T12:00:00")
	if err := cal.Add(ctx, "2025-07-12", iv); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := cal.Busy(ctx, "2025-07-12")
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if diff := cmp.Diff([]Interval{iv}, got); diff != "" {
		t.Fatalf("busy mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read calendar: %v", err)
	}
	var doc map[string][][2]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode calendar: %v", err)
	}
	want := map[string][][2]string{
		"2025-07-12": {{"2025-07-12T11:00:00", "2025-07-12T12:00:00"}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("file format mismatch (-want +got):\n%s", diff)
	}

	empty, err := cal.Busy(ctx, "2025-07-13")
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no busy intervals, got %+v", empty)
	}
}

func TestFileCalendarSharesLockPerPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calendar.json")
	a, err := NewFileCalendar(path, time.UTC)
	if err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}
	b, err := NewFileCalendar(path, time.UTC)
	if err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}
	if a.mu != b.mu {
		t.Fatal("calendars on the same path must share a lock")
	}

	ctx := context.Background()
	if err := a.Add(ctx, "2025-07-12", span(t, "2025-07-12T09:00:00", "2025-07-12T10:00:00")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, err := b.Busy(ctx, "2025-07-12")
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected shared state, got %+v", got)
	}
}

func TestFileCalendarNullDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calendar.json")
	if err := os.WriteFile(path, []byte("null"), 0o644); err != nil {
		t.Fatalf("write calendar: %v", err)
	}
	cal, err := NewFileCalendar(path, time.UTC)
	if err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}
	ctx := context.Background()

	iv := span(t, "2025-07-12T11:00:00", "2025-07-12T12:00:00")
	if err := cal.Add(ctx, "2025-07-12", iv); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, err := cal.Busy(ctx, "2025-07-12")
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if diff := cmp.Diff([]Interval{iv}, got); diff != "" {
		t.Fatalf("busy mismatch (-want +got):\n%s", diff)
	}
}

func TestCalendarsRejectEmptyInterval(t *testing.T) {
	t.Parallel()

	iv := span(t, "2025-07-12T10:00:00", "2025-07-12T10:00:00")
	if err := NewMemoryCalendar().Add(context.Background(), "2025-07-12", iv); err == nil {
		t.Fatal("memory calendar accepted an empty interval")
	}

	cal, err := NewFileCalendar(filepath.Join(t.TempDir(), "c.json"), time.UTC)
	if err != nil {
		t.Fatalf("NewFileCalendar() error = %v", err)
	}
	if err := cal.Add(context.Background(), "2025-07-12", iv); err == nil {
		t.Fatal("file calendar accepted an empty interval")
	}
}

func TestConfigLocation(t *testing.T) {
	t.Parallel()

	loc, err := Config{Timezone: "UTC"}.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("Location() = %v, want UTC", loc)
	}
	if _, err := (Config{Timezone: "Not/AZone"}).Location(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
