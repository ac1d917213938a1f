package pusher

import (
	"context"
	"fmt"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/pkg/observer"
	"rsshub-push/services/aggregator"
	"rsshub-push/services/wecom"

	"github.com/rs/zerolog/log"
)

func New(aggregatorService aggregator.Service, delivery wecom.Service, pushed *PushedSet, title string) *Impl {
	if pushed == nil {
		pushed = NewPushedSet(HighWaterMark, RetainedOnTrim)
	}

	return &Impl{
		aggregator: aggregatorService,
		delivery:   delivery,
		pushed:     pushed,
		title:      title,
		observers:  make(map[observer.Observer]struct{}),
	}
}

func (service *Impl) Register(o observer.Observer) {
	service.observerMu.Lock()
	defer service.observerMu.Unlock()
	service.observers[o] = struct{}{}
}

func (service *Impl) Notify(e observer.Event) {
	service.observerMu.RLock()
	defer service.observerMu.RUnlock()
	for o := range service.observers {
		o.OnNotify(e)
	}
}

func (service *Impl) PushedCount() int {
	return service.pushed.Len()
}

func (service *Impl) TickInProgress() bool {
	return service.ticking.Load()
}

// Tick pushes the articles never delivered before. Items are marked as pushed
// before delivery, so a failed delivery is not retried on the next tick.
func (service *Impl) Tick(ctx context.Context) error {
	if !service.tickMu.TryLock() {
		log.Warn().Msg("Push tick skipped, another one is running")
		return ErrTickInProgress
	}
	defer service.tickMu.Unlock()
	service.ticking.Store(true)
	defer service.ticking.Store(false)

	start := time.Now()
	items := service.aggregator.FetchAll(ctx, service.aggregator.Sources())
	fresh := service.unseen(items)
	if len(fresh) == 0 {
		log.Info().Int(constants.LogArticleNumber, len(items)).Msg("No new article to push")
		return nil
	}

	for _, item := range fresh {
		service.pushed.Add(item.Identities()...)
	}

	if err := service.delivery.SendArticles(ctx, service.title, fresh); err != nil {
		log.Error().Err(err).Int(constants.LogArticleNumber, len(fresh)).Msg("Failed to deliver new articles")
		service.Notify(observer.NewPushFailedEvent(service.title, fresh, err))
		return nil
	}

	log.Info().
		Int(constants.LogArticleNumber, len(fresh)).
		Int("pushedCount", service.pushed.Len()).
		Dur(constants.LogDuration, time.Since(start)).
		Msg("New articles pushed")
	service.Notify(observer.NewArticlesPushedEvent(service.title, fresh))

	return nil
}

// PushLatest delivers the n most recent articles regardless of what was pushed before.
func (service *Impl) PushLatest(ctx context.Context, n int) (PushResult, error) {
	if n <= 0 {
		n = DefaultManualTop
	}

	items := service.aggregator.FetchAll(ctx, service.aggregator.Sources())
	if len(items) == 0 {
		return PushResult{Success: true, Message: MessageNoNewArticles}, nil
	}

	top := items[:min(n, len(items))]
	if err := service.delivery.SendArticles(ctx, service.title, top); err != nil {
		log.Error().Err(err).Int(constants.LogArticleNumber, len(top)).Msg("Manual push failed")
		return PushResult{Success: false, Message: MessagePushFailed}, err
	}

	log.Info().Int(constants.LogArticleNumber, len(top)).Msg("Manual push delivered")
	service.Notify(observer.NewArticlesPushedEvent(service.title, top))

	return PushResult{
		Success:  true,
		Message:  fmt.Sprintf("pushed %d articles", len(top)),
		Count:    len(top),
		Articles: top,
	}, nil
}

func (service *Impl) unseen(items []entities.Article) []entities.Article {
	batch := make(map[string]struct{}, len(items))
	fresh := make([]entities.Article, 0, len(items))

	for _, item := range items {
		if service.pushed.Has(item.Link) || service.pushed.Has(item.GUID) {
			continue
		}
		if _, found := batch[item.Link]; found {
			continue
		}
		batch[item.Link] = struct{}{}
		fresh = append(fresh, item)
	}
	return fresh
}
