package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepoUpsertPrice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", 65000.5, 1700000000000); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}

	price, ts, err := repo.GetLatestPrice(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetLatestPrice failed: %v", err)
	}
	if price != 65000.5 || ts != 1700000000000 {
		t.Errorf("got price=%v ts=%v", price, ts)
	}
}

func TestSQLiteRepoUpsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_ = repo.UpsertLatestPrice(ctx, "BTCUSDT", 65000.5, 1700000000000)
	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", 66000.0, 1700000001000); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	price, ts, err := repo.GetLatestPrice(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetLatestPrice failed: %v", err)
	}
	if price != 66000.0 || ts != 1700000001000 {
		t.Errorf("got price=%v ts=%v after overwrite", price, ts)
	}
}

func TestSQLiteRepoInsertSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	payload := `{"BTCUSDT":{"lastPrice":65000.5}}`
	if err := repo.InsertSnapshot(context.Background(), 1700000000000, payload); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
}
