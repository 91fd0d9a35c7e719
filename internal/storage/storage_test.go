package storage

import (
	"context"
	"path/filepath"
	"testing"

	"pullupd/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || s != nil {
			t.Errorf("Open(driver=%q) = %v, %v; want nil, nil", driver, s, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	s, err := Open(Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, ok, err := s.GetBlob(ctx, "workouts"); err != nil || ok {
		t.Fatalf("missing blob = ok=%v, err=%v; want absent", ok, err)
	}
	if err := s.PutBlob(ctx, "workouts", []byte(`[{"id":"w1"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	b, ok, err := s.GetBlob(ctx, "workouts")
	if err != nil || !ok || string(b) != `[{"id":"w1"}]` {
		t.Fatalf("get = %q, %v, %v", b, ok, err)
	}

	// Overwrite replaces, not appends.
	if err := s.PutBlob(ctx, "workouts", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if b, _, _ := s.GetBlob(ctx, "workouts"); string(b) != `[]` {
		t.Fatalf("after overwrite = %q", b)
	}
}

func TestFileRejectsBadKeys(t *testing.T) {
	t.Parallel()
	s, err := Open(Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.PutBlob(ctx, key, []byte("x")); err == nil {
			t.Errorf("PutBlob(%q) should reject the key", key)
		}
		if _, _, err := s.GetBlob(ctx, key); err == nil {
			t.Errorf("GetBlob(%q) should reject the key", key)
		}
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, ok, err := s.GetBlob(ctx, "settings"); err != nil || ok {
		t.Fatalf("missing blob = ok=%v, err=%v; want absent", ok, err)
	}
	if err := s.PutBlob(ctx, "settings", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutBlob(ctx, "settings", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, ok, err := s.GetBlob(ctx, "settings")
	if err != nil || !ok || string(b) != `{"a":2}` {
		t.Fatalf("get after upsert = %q, %v, %v", b, ok, err)
	}
}
