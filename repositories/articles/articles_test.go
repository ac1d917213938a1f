package articles

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/utils/databases"
)

func newTestRepository(t *testing.T) *Impl {
	t.Helper()

	db := databases.New(filepath.Join(t.TempDir(), "articles.db"))
	if err := db.Run(); err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(db.Shutdown)

	repo := New(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return repo
}

func sampleArticles(base time.Time) []entities.Article {
	return []entities.Article{
		{Title: "first", Link: "https://example.com/1", PublishedAt: base, OriginSource: "alpha", SourceName: "Alpha"},
		{Title: "second", Link: "https://example.com/2", PublishedAt: base.Add(-time.Hour), OriginSource: "alpha", SourceName: "Alpha"},
		{Title: "third", Link: "https://example.com/3", PublishedAt: base.Add(-48 * time.Hour), OriginSource: "beta", SourceName: "Beta"},
	}
}

func TestSaveAllUpsertsOnLink(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	saved, err := repo.SaveAll(ctx, sampleArticles(base))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != 3 {
		t.Fatalf("expected 3 saved articles, got %v", saved)
	}

	updated := []entities.Article{
		{Title: "first, edited", Link: "https://example.com/1", PublishedAt: base, OriginSource: "alpha"},
		{Title: "first, duplicate in batch", Link: "https://example.com/1", PublishedAt: base, OriginSource: "alpha"},
	}
	if _, err := repo.SaveAll(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count := storedTotal(t, repo); count != 3 {
		t.Errorf("expected 3 rows after upsert, got %v", count)
	}

	result, err := repo.Find(ctx, Query{Source: "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[0].Title != "first, edited" {
		t.Errorf("expected edited title first, got %+v", result)
	}
}

func TestExistingLinks(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.SaveAll(ctx, sampleArticles(time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	existing, err := repo.ExistingLinks(ctx, []string{"https://example.com/1", "https://example.com/404"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found := existing["https://example.com/1"]; !found {
		t.Error("expected stored link to be reported")
	}
	if _, found := existing["https://example.com/404"]; found {
		t.Error("expected unknown link to be absent")
	}
}

func TestFindFiltersAndOrders(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repo.SaveAll(ctx, sampleArticles(base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := repo.Find(ctx, Query{StartDate: base.Add(-2 * time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[0].Title != "first" {
		t.Errorf("unexpected date filtered result %+v", result)
	}

	result, err = repo.Find(ctx, Query{Ascending: true, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Title != "third" {
		t.Errorf("expected oldest article, got %+v", result)
	}

	if _, err = repo.Find(ctx, Query{OrderBy: "link; DROP TABLE articles"}); !errors.Is(err, ErrInvalidOrderBy) {
		t.Errorf("expected ErrInvalidOrderBy, got %v", err)
	}
}

func TestStatsAndDeleteBefore(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if _, err := repo.SaveAll(ctx, sampleArticles(base)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 3 || stats.BySource["alpha"] != 2 || stats.BySource["beta"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	deleted, err := repo.DeleteBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted row, got %v", deleted)
	}
	if count := storedTotal(t, repo); count != 2 {
		t.Errorf("expected 2 remaining rows, got %v", count)
	}
}

func TestQueryNormalize(t *testing.T) {
	query, column, err := Query{Limit: 10000, Offset: -3}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query.Limit != MaxLimit || query.Offset != 0 || column != "pub_date" {
		t.Errorf("unexpected normalized query %+v, column %v", query, column)
	}

	query, _, _ = Query{}.Normalize()
	if query.Limit != DefaultLimit {
		t.Errorf("expected default limit, got %v", query.Limit)
	}
}

func storedTotal(t *testing.T, repo Repository) int64 {
	t.Helper()

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return stats.Total
}
