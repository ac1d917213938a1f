package articles

import (
	"context"
	"errors"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/utils/databases"
)

const (
	DefaultLimit   = 50
	MaxLimit       = 500
	DefaultOrderBy = "pub_date"

	linkChunkSize = 500
)

var (
	ErrInvalidOrderBy = errors.New("unsupported order column")
)

// orderColumns lists the columns a caller may sort on.
var orderColumns = map[string]string{
	"pub_date":    "pub_date",
	"pubDate":     "pub_date",
	"created_at":  "created_at",
	"createdAt":   "created_at",
	"title":       "title",
	"source":      "source",
	"source_name": "source_name",
}

type Query struct {
	Limit     int
	Offset    int
	OrderBy   string
	Ascending bool
	Source    string
	StartDate time.Time
	EndDate   time.Time
}

type Stats struct {
	Total    int64            `json:"total"`
	BySource map[string]int64 `json:"bySource"`
}

type Repository interface {
	Migrate(ctx context.Context) error
	ExistingLinks(ctx context.Context, links []string) (map[string]struct{}, error)
	SaveAll(ctx context.Context, articles []entities.Article) (int, error)
	Find(ctx context.Context, query Query) ([]entities.Article, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

type Impl struct {
	db databases.SqlConnection
}

type PostgresImpl struct {
	db databases.PostgresConnection
}

// Normalize applies defaults and bounds to a query and resolves its order column.
func (q Query) Normalize() (Query, string, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.OrderBy == "" {
		q.OrderBy = DefaultOrderBy
	}

	column, ok := orderColumns[q.OrderBy]
	if !ok {
		return q, "", ErrInvalidOrderBy
	}
	return q, column, nil
}

func chunkLinks(links []string) [][]string {
	var chunks [][]string
	for start := 0; start < len(links); start += linkChunkSize {
		end := min(start+linkChunkSize, len(links))
		chunks = append(chunks, links[start:end])
	}
	return chunks
}

func dedupLinks(articles []entities.Article) []entities.Article {
	seen := make(map[string]struct{}, len(articles))
	result := make([]entities.Article, 0, len(articles))
	for _, article := range articles {
		if article.Link == "" {
			continue
		}
		if _, found := seen[article.Link]; found {
			continue
		}
		seen[article.Link] = struct{}{}
		article.ID = 0
		result = append(result, article)
	}
	return result
}
