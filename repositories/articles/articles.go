package articles

import (
	"context"
	"fmt"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/utils/databases"

	"gorm.io/gorm/clause"
)

func New(db databases.SqlConnection) *Impl {
	return &Impl{db: db}
}

func (repo *Impl) Migrate(ctx context.Context) error {
	return repo.db.GetDB().WithContext(ctx).AutoMigrate(&entities.Article{})
}

func (repo *Impl) ExistingLinks(ctx context.Context, links []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, chunk := range chunkLinks(links) {
		var found []string
		err := repo.db.GetDB().WithContext(ctx).
			Model(&entities.Article{}).
			Where("link IN ?", chunk).
			Pluck("link", &found).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check article existence: %w", err)
		}
		for _, link := range found {
			existing[link] = struct{}{}
		}
	}

	return existing, nil
}

func (repo *Impl) SaveAll(ctx context.Context, articles []entities.Article) (int, error) {
	records := dedupLinks(articles)
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range records {
		records[i].CreatedAt = now
		records[i].PublishedAt = records[i].PublishedAt.UTC()
	}

	err := repo.db.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "link"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "guid", "author", "summary", "content", "pub_date", "source", "source_name",
			}),
		}).
		CreateInBatches(&records, 100).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert articles: %w", err)
	}

	return len(records), nil
}

func (repo *Impl) Find(ctx context.Context, query Query) ([]entities.Article, error) {
	query, column, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	tx := repo.db.GetDB().WithContext(ctx).Model(&entities.Article{})
	if query.Source != "" {
		tx = tx.Where("source = ? OR source_name = ?", query.Source, query.Source)
	}
	if !query.StartDate.IsZero() {
		tx = tx.Where("pub_date >= ?", query.StartDate.UTC())
	}
	if !query.EndDate.IsZero() {
		tx = tx.Where("pub_date <= ?", query.EndDate.UTC())
	}

	var result []entities.Article
	err = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: !query.Ascending}).
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	return result, nil
}

func (repo *Impl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repo.db.GetDB().WithContext(ctx).
		Where("pub_date < ?", cutoff.UTC()).
		Delete(&entities.Article{})

	return result.RowsAffected, result.Error
}

func (repo *Impl) Stats(ctx context.Context) (Stats, error) {
	type sourceCount struct {
		Source string
		Total  int64
	}

	var rows []sourceCount
	err := repo.db.GetDB().WithContext(ctx).
		Model(&entities.Article{}).
		Select("source, count(*) as total").
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute article stats: %w", err)
	}

	stats := Stats{BySource: make(map[string]int64, len(rows))}
	for _, row := range rows {
		stats.Total += row.Total
		stats.BySource[row.Source] += row.Total
	}

	return stats, nil
}
