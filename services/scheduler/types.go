package scheduler

import (
	"context"
	"sync"
	"time"

	"rsshub-push/repositories/articles"
	"rsshub-push/services/pusher"

	"github.com/go-co-op/gocron/v2"
)

const (
	DefaultCron     = "0 * * * *"
	DefaultInterval = time.Hour
	retentionCron   = "30 3 * * *"
	pushJobName     = "Push new articles"
	pushJobTag      = "push"
)

type Service interface {
	Start() (*Handle, error)
	Stop(handle *Handle) error
	TriggerNow(ctx context.Context) error
	Status() Status
}

type Config struct {
	Enabled        bool
	CronExpression string
	Timezone       string
	RetentionDays  int
}

// Handle references the registered push job. Interval is set when the cron
// expression had to be approximated.
type Handle struct {
	job      gocron.Job
	Interval time.Duration
}

type Status struct {
	Enabled        bool       `json:"enabled"`
	CronExpression string     `json:"cronExpression"`
	Timezone       string     `json:"timezone"`
	PushedCount    int        `json:"pushedCount"`
	Running        bool       `json:"running"`
	TickInProgress bool       `json:"tickInProgress"`
	Interval       string     `json:"interval,omitempty"`
	NextRun        *time.Time `json:"nextRun,omitempty"`
	NextRunIn      string     `json:"nextRunIn,omitempty"`
	LastRun        *time.Time `json:"lastRun,omitempty"`
}

type Impl struct {
	ctx         context.Context
	config      Config
	scheduler   gocron.Scheduler
	pusher      pusher.Service
	articleRepo articles.Repository

	mu     sync.Mutex
	handle *Handle
}
