package api

import (
	"net/http"
	"time"

	"rsshub-push/repositories/articles"
	"rsshub-push/services/aggregator"
	"rsshub-push/services/feeds"
	"rsshub-push/services/monitor"
	"rsshub-push/services/pusher"
	"rsshub-push/services/scheduler"

	"github.com/patrickmn/go-cache"
)

const (
	articlesCacheKey  = "articles"
	defaultCacheTTL   = 5 * time.Minute
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	messageNotFound            = "not found"
	messageInternalError       = "internal server error"
	messagePersistenceDisabled = "persistence is disabled"
)

// Dependencies lists the services behind the HTTP surface. Articles is nil when
// persistence is disabled.
type Dependencies struct {
	Aggregator     aggregator.Service
	Feeds          feeds.Service
	Pusher         pusher.Service
	Scheduler      scheduler.Service
	Monitor        monitor.Service
	Articles       articles.Repository
	CacheTTL       time.Duration
	ConfigProblems []string
	Started        time.Time
}

type Server struct {
	deps       Dependencies
	cache      *cache.Cache
	httpServer *http.Server
}

type envelope map[string]any

type articlesResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Count     int    `json:"count"`
	Cached    bool   `json:"cached"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Healthy   int    `json:"healthy"`
	Unhealthy int    `json:"unhealthy"`
	Sources   any    `json:"sources"`
	Timestamp string `json:"timestamp"`
}
