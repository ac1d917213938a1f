package aggregator

import (
	"context"

	"rsshub-push/models/entities"
	"rsshub-push/repositories/articles"
	"rsshub-push/services/cls"
	"rsshub-push/services/feeds"
)

const (
	DefaultConcurrency = 5
)

type Service interface {
	FetchAll(ctx context.Context, sources []entities.FeedSource) []entities.Article
	FetchAllWithOptions(ctx context.Context, sources []entities.FeedSource, opts feeds.Options) []entities.Article
	Sources() []entities.FeedSource
}

type Impl struct {
	concurrency int
	sources     []entities.FeedSource
	feedService feeds.Service
	clsService  cls.Service
	articleRepo articles.Repository
}
