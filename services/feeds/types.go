package feeds

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/services/monitor"

	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

const (
	StrategyAggregationAPI = "aggregation-api"
	StrategyRSSHubInstance = "rsshub-instance"
	StrategyFeed           = "feed"

	UnnamedSource = "unnamed source"

	defaultCacheTTL   = 5 * time.Minute
	cacheCleanup      = 10 * time.Minute
	maxResponseLength = 10 << 20
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNoSources        = errors.New("no feed source configured")
	ErrNoStrategy       = errors.New("no aggregation api or rsshub instance configured")
)

type Service interface {
	Fetch(ctx context.Context, source entities.FeedSource, opts Options) []entities.Article
	DefaultOptions() Options
	CheckHealth(ctx context.Context, sources []entities.FeedSource) []monitor.SourceHealth
	ClearCache()
}

// Options tunes a single fetch. Zero values fall back to the service configuration.
type Options struct {
	Timeout     time.Duration
	BypassCache bool
	MaxItems    int
}

type Config struct {
	AggregatorURL  string
	InstanceURL    string
	UserAgent      string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	MaxItems       int
	ForceRefresh   bool
}

type Impl struct {
	config  Config
	client  *http.Client
	parser  *gofeed.Parser
	cache   *cache.Cache
	monitor monitor.Service
	now     func() time.Time
}

type strategy struct {
	name  string
	fetch func(ctx context.Context, source entities.FeedSource, opts Options) ([]entities.Article, error)
}

type aggregatorResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    *aggregatorData `json:"data"`
}

type aggregatorData struct {
	Entries []aggregatorEntry `json:"entries"`
}

type aggregatorEntry struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	GUID        string `json:"guid"`
	Author      string `json:"author"`
	AuthorURL   string `json:"authorUrl"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
}
