package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/services/monitor"

	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

func New(config Config, monitorService monitor.Service) *Impl {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 10
	}

	fp := gofeed.NewParser()
	fp.UserAgent = config.UserAgent

	return &Impl{
		config:  config,
		client:  &http.Client{},
		parser:  fp,
		cache:   cache.New(defaultCacheTTL, cacheCleanup),
		monitor: monitorService,
		now:     time.Now,
	}
}

func (service *Impl) DefaultOptions() Options {
	return Options{
		Timeout:  service.config.RequestTimeout,
		MaxItems: service.config.MaxItems,
	}
}

func (service *Impl) ClearCache() {
	service.cache.Flush()
}

// Fetch never fails: every outcome is recorded in the monitor and an exhausted
// source yields an empty list.
func (service *Impl) Fetch(ctx context.Context, source entities.FeedSource, opts Options) []entities.Article {
	opts = service.withDefaults(opts)
	policy := PolicyFor(source.Route())

	if !opts.BypassCache {
		if cached, found := service.cache.Get(source.URL); found {
			articles := truncate(cached.([]entities.Article), opts.MaxItems)
			handle := service.monitor.RecordStart(source.Name, source.URL)
			service.monitor.RecordSuccess(handle, len(articles), true)
			log.Debug().
				Str(constants.LogFeedName, source.Name).
				Int(constants.LogArticleNumber, len(articles)).
				Msg("Serving feed from cache")
			return articles
		}
	}

	strategies := service.strategies(source)
	if len(strategies) == 0 {
		handle := service.monitor.RecordStart(source.Name, source.URL)
		service.monitor.RecordFailure(handle, ErrNoStrategy)
		log.Error().
			Str(constants.LogFeedName, source.Name).
			Str(constants.LogFeedURL, source.URL).
			Msg("No endpoint configured for rsshub route, source ignored")
		return []entities.Article{}
	}

	for _, st := range strategies {
		handle := service.monitor.RecordStart(source.Name, source.URL)
		articles, err := service.withRetry(ctx, source, st, opts)
		if err != nil {
			service.monitor.RecordFailure(handle, err)
			log.Error().Err(err).
				Str(constants.LogFeedName, source.Name).
				Str(constants.LogFeedURL, source.URL).
				Str(constants.LogStrategy, st.name).
				Msg("Strategy exhausted")
			continue
		}

		service.cache.Set(source.URL, articles, policy.TTL)
		articles = truncate(articles, opts.MaxItems)
		service.monitor.RecordSuccess(handle, len(articles), false)

		log.Info().
			Str(constants.LogFeedName, source.Name).
			Str(constants.LogStrategy, st.name).
			Int(constants.LogArticleNumber, len(articles)).
			Dur(constants.LogDuration, service.now().Sub(handle.Started)).
			Msg("Feed fetched")
		return articles
	}

	log.Warn().
		Str(constants.LogFeedName, source.Name).
		Str(constants.LogFeedURL, source.URL).
		Str(constants.LogFeedType, string(source.Kind)).
		Msg("All strategies failed, source ignored")
	return []entities.Article{}
}

// CheckHealth fetches every source with the cache bypassed and returns the resulting verdicts.
func (service *Impl) CheckHealth(ctx context.Context, sources []entities.FeedSource) []monitor.SourceHealth {
	opts := service.DefaultOptions()
	opts.BypassCache = true

	result := make([]monitor.SourceHealth, 0, len(sources))
	for _, source := range sources {
		service.Fetch(ctx, source, opts)
		health, _ := service.monitor.Health(source.URL)
		health.Name = source.Name
		health.URL = source.URL
		result = append(result, health)
	}
	return result
}

func (service *Impl) withDefaults(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = service.config.RequestTimeout
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = service.config.MaxItems
	}
	return opts
}

func (service *Impl) strategies(source entities.FeedSource) []strategy {
	if !source.IsAggregated() {
		return []strategy{{name: StrategyFeed, fetch: service.fetchFeed}}
	}

	var result []strategy
	if service.config.AggregatorURL != "" {
		result = append(result, strategy{name: StrategyAggregationAPI, fetch: service.fetchAggregated})
	}
	if service.config.InstanceURL != "" || !source.IsRoute() {
		result = append(result, strategy{name: StrategyRSSHubInstance, fetch: service.fetchInstance})
	}
	return result
}

func (service *Impl) withRetry(ctx context.Context, source entities.FeedSource, st strategy, opts Options) ([]entities.Article, error) {
	var lastErr error
	for attempt := 1; attempt <= service.config.RetryAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		articles, err := st.fetch(attemptCtx, source, opts)
		cancel()
		if err == nil {
			return articles, nil
		}

		lastErr = err
		log.Warn().Err(err).
			Str(constants.LogFeedName, source.Name).
			Str(constants.LogStrategy, st.name).
			Int(constants.LogAttempt, attempt).
			Msg("Fetch attempt failed")

		if attempt == service.config.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(service.config.RetryDelay):
		}
	}

	return nil, fmt.Errorf("%v failed after %d attempts: %w", st.name, service.config.RetryAttempts, lastErr)
}

func (service *Impl) fetchAggregated(ctx context.Context, source entities.FeedSource, _ Options) ([]entities.Article, error) {
	requestURL, err := service.AggregatorURL(source)
	if err != nil {
		return nil, err
	}

	body, err := service.get(ctx, requestURL, "application/json")
	if err != nil {
		return nil, err
	}

	var payload aggregatorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("%w: code %d %v", ErrMalformedPayload, payload.Code, payload.Message)
	}
	if payload.Data == nil || payload.Data.Entries == nil {
		return nil, fmt.Errorf("%w: missing entries", ErrMalformedPayload)
	}

	now := service.now()
	articles := make([]entities.Article, 0, len(payload.Data.Entries))
	for _, entry := range payload.Data.Entries {
		if article, ok := normalizeEntry(entry, source, now); ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

func (service *Impl) fetchInstance(ctx context.Context, source entities.FeedSource, _ Options) ([]entities.Article, error) {
	requestURL, err := service.InstanceURL(source)
	if err != nil {
		return nil, err
	}
	return service.parseFeed(ctx, source, requestURL)
}

func (service *Impl) fetchFeed(ctx context.Context, source entities.FeedSource, _ Options) ([]entities.Article, error) {
	return service.parseFeed(ctx, source, source.URL)
}

func (service *Impl) parseFeed(ctx context.Context, source entities.FeedSource, requestURL string) ([]entities.Article, error) {
	body, err := service.get(ctx, requestURL, "application/rss+xml, application/atom+xml, application/xml, text/xml")
	if err != nil {
		return nil, err
	}

	feed, err := service.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	now := service.now()
	articles := make([]entities.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if article, ok := normalizeItem(item, feed, source, now); ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// AggregatorURL builds the aggregation API query. Routes are sent as rsshub://
// URLs, full feed URLs are sent as they are.
func (service *Impl) AggregatorURL(source entities.FeedSource) (string, error) {
	u, err := url.Parse(service.config.AggregatorURL)
	if err != nil {
		return "", err
	}

	query := u.Query()
	if source.IsRoute() {
		query.Set("url", entities.RSSHubScheme+source.Route())
	} else {
		query.Set("url", source.Target())
	}
	PolicyFor(source.Route()).Apply(query, service.config.ForceRefresh, service.now())
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// InstanceURL builds the route URL against the configured RSSHub instance.
// A full feed URL already names its instance and is only decorated.
func (service *Impl) InstanceURL(source entities.FeedSource) (string, error) {
	target := source.Target()
	if source.IsRoute() {
		target = strings.TrimRight(service.config.InstanceURL, "/") + "/" + source.Route()
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	query := u.Query()
	PolicyFor(source.Route()).Apply(query, service.config.ForceRefresh, service.now())
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (service *Impl) get(ctx context.Context, requestURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if service.config.UserAgent != "" {
		req.Header.Set("User-Agent", service.config.UserAgent)
	}
	if service.config.ForceRefresh {
		req.Header.Set("Cache-Control", "no-cache")
	} else {
		req.Header.Set("Cache-Control", "max-age=0")
	}

	resp, err := service.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLength))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// truncate returns a copy so callers never share the cached backing array.
func truncate(articles []entities.Article, limit int) []entities.Article {
	n := len(articles)
	if limit > 0 && n > limit {
		n = limit
	}
	result := make([]entities.Article, n)
	copy(result, articles)
	return result
}
