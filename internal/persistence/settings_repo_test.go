package persistence

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *SettingsRepo {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewSettingsRepo(db)
}

func TestSettingsRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	if err := repo.Upsert(ctx, "hotkey", map[string]any{"ctrl": true, "key": "space"}); err != nil {
		t.Fatalf("upsert hotkey: %v", err)
	}
	if err := repo.Upsert(ctx, "sample_rate", 16000); err != nil {
		t.Fatalf("upsert sample_rate: %v", err)
	}
	if err := repo.Upsert(ctx, "sample_rate", 48000); err != nil {
		t.Fatalf("update sample_rate: %v", err)
	}

	values, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if values["sample_rate"] != float64(48000) {
		t.Fatalf("sample_rate = %#v", values["sample_rate"])
	}
	hk, ok := values["hotkey"].(map[string]any)
	if !ok || hk["key"] != "space" {
		t.Fatalf("hotkey = %#v", values["hotkey"])
	}
}

func TestSettingsRepoReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	_ = repo.Upsert(ctx, "language", "de")
	_ = repo.Upsert(ctx, "obsolete", true)
	if err := repo.ReplaceAll(ctx, map[string]any{"language": "en"}); err != nil {
		t.Fatalf("replace all: %v", err)
	}

	values, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(values) != 1 || values["language"] != "en" {
		t.Fatalf("unexpected values after replace: %#v", values)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")
	for i := 0; i < 2; i++ {
		db, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var version int
		if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
			t.Fatalf("read version: %v", err)
		}
		if version != len(migrations) {
			t.Fatalf("user_version = %d, want %d", version, len(migrations))
		}
		_ = db.Close()
	}
}
