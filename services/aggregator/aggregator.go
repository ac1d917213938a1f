package aggregator

import (
	"context"
	"sort"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/repositories/articles"
	"rsshub-push/services/cls"
	"rsshub-push/services/feeds"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// New builds the aggregator. clsService and articleRepo are optional.
func New(concurrency int, sources []entities.FeedSource, feedService feeds.Service,
	clsService cls.Service, articleRepo articles.Repository) *Impl {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Impl{
		concurrency: concurrency,
		sources:     sources,
		feedService: feedService,
		clsService:  clsService,
		articleRepo: articleRepo,
	}
}

func (service *Impl) Sources() []entities.FeedSource {
	return service.sources
}

func (service *Impl) FetchAll(ctx context.Context, sources []entities.FeedSource) []entities.Article {
	return service.FetchAllWithOptions(ctx, sources, service.feedService.DefaultOptions())
}

// FetchAllWithOptions fans out one fetch per source, merges the financial news roll
// when enabled and returns everything newest first. Ties keep source order.
func (service *Impl) FetchAllWithOptions(ctx context.Context, sources []entities.FeedSource, opts feeds.Options) []entities.Article {
	start := time.Now()
	slots := make([][]entities.Article, len(sources)+1)

	var g errgroup.Group
	g.SetLimit(service.concurrency)
	for i, source := range sources {
		g.Go(func() error {
			slots[i] = service.feedService.Fetch(ctx, source, opts)
			return nil
		})
	}

	if service.clsService != nil {
		g.Go(func() error {
			clsArticles, err := service.clsService.Fetch(ctx)
			if err != nil {
				log.Error().Err(err).Str(constants.LogFeedName, cls.SourceName).Msg("Failed to fetch roll list")
				return nil
			}
			slots[len(sources)] = clsArticles
			return nil
		})
	}
	_ = g.Wait()

	var total int
	for _, slot := range slots {
		total += len(slot)
	}
	result := make([]entities.Article, 0, total)
	for _, slot := range slots {
		result = append(result, slot...)
	}

	SortByRecency(result)

	log.Info().
		Int(constants.LogSourceNumber, len(sources)).
		Int(constants.LogArticleNumber, len(result)).
		Dur(constants.LogDuration, time.Since(start)).
		Msg("Sources aggregated")

	if service.articleRepo != nil {
		service.persist(ctx, result)
	}

	return result
}

// SortByRecency sorts newest first and keeps the input order on equal timestamps.
func SortByRecency(items []entities.Article) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// persist stores the articles not seen yet. It never alters the caller's list.
func (service *Impl) persist(ctx context.Context, items []entities.Article) {
	if len(items) == 0 {
		return
	}

	links := make([]string, 0, len(items))
	for _, item := range items {
		links = append(links, item.Link)
	}

	existing, err := service.articleRepo.ExistingLinks(ctx, links)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check stored articles, persistence skipped")
		return
	}

	fresh := make([]entities.Article, 0, len(items))
	for _, item := range items {
		if _, found := existing[item.Link]; !found {
			fresh = append(fresh, item)
		}
	}
	if len(fresh) == 0 {
		log.Debug().Msg("No new article to persist")
		return
	}

	saved, err := service.articleRepo.SaveAll(ctx, fresh)
	if err != nil {
		log.Error().Err(err).Int(constants.LogArticleNumber, len(fresh)).Msg("Failed to persist articles")
		return
	}

	log.Info().Int(constants.LogArticleNumber, saved).Msg("Articles persisted")
}
