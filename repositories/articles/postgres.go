package articles

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/utils/databases"

	"github.com/lib/pq"
)

const (
	postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL UNIQUE,
	guid TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	pub_date TIMESTAMPTZ NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	source_name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source);`

	postgresUpsert = `
INSERT INTO articles (title, link, guid, author, summary, content, pub_date, source, source_name, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (link) DO UPDATE SET
	title = EXCLUDED.title,
	guid = EXCLUDED.guid,
	author = EXCLUDED.author,
	summary = EXCLUDED.summary,
	content = EXCLUDED.content,
	pub_date = EXCLUDED.pub_date,
	source = EXCLUDED.source,
	source_name = EXCLUDED.source_name`

	postgresColumns = "id, title, link, guid, author, summary, content, pub_date, source, source_name, created_at"
)

func NewPostgres(db databases.PostgresConnection) *PostgresImpl {
	return &PostgresImpl{db: db}
}

func (repo *PostgresImpl) Migrate(ctx context.Context) error {
	if _, err := repo.db.GetSQL().ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create articles schema: %w", err)
	}
	return nil
}

func (repo *PostgresImpl) ExistingLinks(ctx context.Context, links []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, chunk := range chunkLinks(links) {
		rows, err := repo.db.GetSQL().QueryContext(ctx,
			"SELECT link FROM articles WHERE link = ANY($1)", pq.Array(chunk))
		if err != nil {
			return nil, fmt.Errorf("failed to check article existence: %w", err)
		}

		for rows.Next() {
			var link string
			if err := rows.Scan(&link); err != nil {
				rows.Close()
				return nil, err
			}
			existing[link] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return existing, nil
}

func (repo *PostgresImpl) SaveAll(ctx context.Context, articles []entities.Article) (int, error) {
	records := dedupLinks(articles)
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := repo.db.GetSQL().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, postgresUpsert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, article := range records {
		_, err = stmt.ExecContext(ctx, article.Title, article.Link, article.GUID, article.Author,
			article.Summary, article.Content, article.PublishedAt.UTC(), article.OriginSource,
			article.SourceName, now)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert article %v: %w", article.Link, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit articles: %w", err)
	}

	return len(records), nil
}

func (repo *PostgresImpl) Find(ctx context.Context, query Query) ([]entities.Article, error) {
	query, column, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	if query.Source != "" {
		args = append(args, query.Source)
		conditions = append(conditions, fmt.Sprintf("(source = $%d OR source_name = $%d)", len(args), len(args)))
	}
	if !query.StartDate.IsZero() {
		args = append(args, query.StartDate)
		conditions = append(conditions, fmt.Sprintf("pub_date >= $%d", len(args)))
	}
	if !query.EndDate.IsZero() {
		args = append(args, query.EndDate)
		conditions = append(conditions, fmt.Sprintf("pub_date <= $%d", len(args)))
	}

	var builder strings.Builder
	builder.WriteString("SELECT " + postgresColumns + " FROM articles")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	direction := "DESC"
	if query.Ascending {
		direction = "ASC"
	}
	args = append(args, query.Limit, query.Offset)
	fmt.Fprintf(&builder, " ORDER BY %s %s LIMIT $%d OFFSET $%d", column, direction, len(args)-1, len(args))

	rows, err := repo.db.GetSQL().QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var result []entities.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, article)
	}

	return result, rows.Err()
}

func (repo *PostgresImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := repo.db.GetSQL().ExecContext(ctx, "DELETE FROM articles WHERE pub_date < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old articles: %w", err)
	}
	return result.RowsAffected()
}

func (repo *PostgresImpl) Stats(ctx context.Context) (Stats, error) {
	rows, err := repo.db.GetSQL().QueryContext(ctx, "SELECT source, count(*) FROM articles GROUP BY source")
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute article stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{BySource: make(map[string]int64)}
	for rows.Next() {
		var source string
		var total int64
		if err := rows.Scan(&source, &total); err != nil {
			return Stats{}, err
		}
		stats.Total += total
		stats.BySource[source] += total
	}

	return stats, rows.Err()
}

func scanArticle(rows *sql.Rows) (entities.Article, error) {
	var article entities.Article
	var id int64
	err := rows.Scan(&id, &article.Title, &article.Link, &article.GUID, &article.Author,
		&article.Summary, &article.Content, &article.PublishedAt, &article.OriginSource,
		&article.SourceName, &article.CreatedAt)
	article.ID = uint(id)
	return article, err
}
