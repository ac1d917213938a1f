package pusher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"rsshub-push/models/entities"
	"rsshub-push/pkg/observer"
	"rsshub-push/services/aggregator"
	"rsshub-push/services/wecom"
)

const (
	// Bounds of the PushedSet, counted in items. An item holds its link and guid.
	HighWaterMark  = 10000
	RetainedOnTrim = 5000

	DefaultManualTop = 3

	MessageNoNewArticles = "no new articles"
	MessagePushFailed    = "push failed"
)

var (
	ErrTickInProgress = errors.New("a push tick is already running")
)

type Service interface {
	observer.Notifier
	Tick(ctx context.Context) error
	PushLatest(ctx context.Context, n int) (PushResult, error)
	PushedCount() int
	TickInProgress() bool
}

type PushResult struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Count    int                `json:"count"`
	Articles []entities.Article `json:"articles,omitempty"`
}

// PushedSet remembers delivered items in insertion order. Each identity
// belongs to exactly one item.
type PushedSet struct {
	mu        sync.Mutex
	items     [][]string
	members   map[string]struct{}
	highWater int
	retained  int
}

type Impl struct {
	aggregator aggregator.Service
	delivery   wecom.Service
	pushed     *PushedSet
	title      string

	tickMu  sync.Mutex
	ticking atomic.Bool

	observerMu sync.RWMutex
	observers  map[observer.Observer]struct{}
}
