package monitor

import (
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

type Service interface {
	RecordStart(name, url string) Handle
	RecordSuccess(handle Handle, items int, fromCache bool)
	RecordFailure(handle Handle, err error)
	Health(url string) (SourceHealth, bool)
	Report() Report
	Reset()
}

// Handle identifies one in-flight upstream request.
type Handle struct {
	ID      string
	Name    string
	URL     string
	Started time.Time
}

type SourceHealth struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Status       string    `json:"status"`
	ResponseTime int64     `json:"responseTime"`
	Items        int       `json:"items"`
	LastError    string    `json:"error,omitempty"`
	LastSuccess  time.Time `json:"lastSuccess,omitempty"`
	LastFailure  time.Time `json:"lastFailure,omitempty"`
	LastChecked  string    `json:"lastChecked,omitempty"`
	Requests     int64     `json:"requests"`
	Failures     int64     `json:"failures"`
	CacheHits    int64     `json:"cacheHits"`
}

type Report struct {
	TotalRequests int64          `json:"totalRequests"`
	CacheHits     int64          `json:"cacheHits"`
	Failures      int64          `json:"failures"`
	CacheHitRate  float64        `json:"cacheHitRate"`
	InFlight      int            `json:"inFlight"`
	Since         string         `json:"since"`
	Sources       []SourceHealth `json:"sources"`
}

type Impl struct {
	mu       sync.Mutex
	sources  map[string]*SourceHealth
	inFlight map[string]Handle
	started  time.Time
	now      func() time.Time
}
