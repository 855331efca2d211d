package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "a", CreatedAt: base, Mode: "fast-ocr", DetectedLanguage: "en", OriginalText: "Hello", TranslatedText: "Bonjour"},
		{SessionID: "b", CreatedAt: base.Add(time.Minute), Mode: "vision", OriginalText: "[Text extracted by vision]", TranslatedText: "Salut"},
		{SessionID: "c", CreatedAt: base.Add(2 * time.Minute), Mode: "rich-ocr", DetectedLanguage: "ja", OriginalText: "こんにちは", TranslatedText: "Bonjour"},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries, want 2", len(got))
	}
	if got[0].SessionID != "c" || got[1].SessionID != "b" {
		t.Errorf("Recent() order = [%s %s], want [c b]", got[0].SessionID, got[1].SessionID)
	}
	if got[0].OriginalText != "こんにちは" || got[0].DetectedLanguage != "ja" {
		t.Errorf("Recent()[0] = %+v, unexpected content", got[0])
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, base.Add(2*time.Minute))
	}
	if got[0].ID == 0 {
		t.Error("Recent() returned entry without ID")
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d entries, want 3", len(all))
	}
}

func TestRecordStampsTime(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	if err := s.Record(ctx, Entry{SessionID: "x", Mode: "fast-ocr", OriginalText: "a", TranslatedText: "b"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	got, err := s.Recent(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent() = %v, %v", got, err)
	}
	if got[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want a recent time", got[0].CreatedAt)
	}
}

func TestOpenFileReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Record(ctx, Entry{SessionID: "persist", Mode: "vision", OriginalText: "o", TranslatedText: "t"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "persist" {
		t.Errorf("Recent() = %+v, want the persisted entry", got)
	}
}
