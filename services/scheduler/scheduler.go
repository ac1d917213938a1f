package scheduler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/repositories/articles"
	"rsshub-push/services/pusher"

	"github.com/dustin/go-humanize"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// New registers the retention job when both a repository and a retention period are set.
// The push job itself is only registered by Start.
func New(ctx context.Context, config Config, scheduler gocron.Scheduler,
	pusherService pusher.Service, articleRepo articles.Repository) (*Impl, error) {
	if config.CronExpression == "" {
		config.CronExpression = DefaultCron
	}

	service := &Impl{
		ctx:         ctx,
		config:      config,
		scheduler:   scheduler,
		pusher:      pusherService,
		articleRepo: articleRepo,
	}

	if config.RetentionDays > 0 && articleRepo != nil {
		_, errJob := scheduler.NewJob(
			gocron.CronJob(retentionCron, false),
			gocron.NewTask(func() { service.purge() }),
			gocron.WithName("Delete old articles"),
		)
		if errJob != nil {
			return nil, errJob
		}
	}

	return service, nil
}

// Start registers the push job. A disabled scheduler returns a nil handle.
func (service *Impl) Start() (*Handle, error) {
	if !service.config.Enabled {
		log.Info().Msg("Scheduled push is disabled")
		return nil, nil
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if service.handle != nil {
		return service.handle, nil
	}

	handle := &Handle{}
	task := gocron.NewTask(func() { service.tick() })
	options := []gocron.JobOption{
		gocron.WithName(pushJobName),
		gocron.WithTags(pushJobTag),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	job, err := service.scheduler.NewJob(gocron.CronJob(service.config.CronExpression, false), task, options...)
	if err != nil {
		handle.Interval = CronInterval(service.config.CronExpression)
		log.Warn().Err(err).
			Str("cron", service.config.CronExpression).
			Str("interval", handle.Interval.String()).
			Msg("Cron expression rejected, falling back to a fixed interval")

		job, err = service.scheduler.NewJob(gocron.DurationJob(handle.Interval), task, options...)
		if err != nil {
			return nil, err
		}
	}

	handle.job = job
	service.handle = handle
	log.Info().
		Str("cron", service.config.CronExpression).
		Str("timezone", service.config.Timezone).
		Msg("Scheduled push started")

	return handle, nil
}

func (service *Impl) Stop(handle *Handle) error {
	if handle == nil || handle.job == nil {
		return nil
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if err := service.scheduler.RemoveJob(handle.job.ID()); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return err
	}
	if service.handle == handle {
		service.handle = nil
	}

	log.Info().Msg("Scheduled push stopped")
	return nil
}

func (service *Impl) TriggerNow(ctx context.Context) error {
	log.Info().Msg("Manual push tick triggered")
	return service.pusher.Tick(ctx)
}

func (service *Impl) Status() Status {
	status := Status{
		Enabled:        service.config.Enabled,
		CronExpression: service.config.CronExpression,
		Timezone:       service.config.Timezone,
		PushedCount:    service.pusher.PushedCount(),
		TickInProgress: service.pusher.TickInProgress(),
	}

	service.mu.Lock()
	handle := service.handle
	service.mu.Unlock()
	if handle == nil {
		return status
	}

	status.Running = true
	if handle.Interval > 0 {
		status.Interval = handle.Interval.String()
	}
	if next, err := handle.job.NextRun(); err == nil && !next.IsZero() {
		status.NextRun = &next
		status.NextRunIn = humanize.Time(next)
	}
	if last, err := handle.job.LastRun(); err == nil && !last.IsZero() {
		status.LastRun = &last
	}

	return status
}

func (service *Impl) tick() {
	err := service.pusher.Tick(service.ctx)
	if errors.Is(err, pusher.ErrTickInProgress) {
		log.Debug().Str(constants.LogJobName, pushJobName).Msg("Previous tick still running")
	} else if err != nil {
		log.Error().Err(err).Str(constants.LogJobName, pushJobName).Msg("Push tick failed")
	}
}

func (service *Impl) purge() {
	cutoff := time.Now().AddDate(0, 0, -service.config.RetentionDays)
	deleted, err := service.articleRepo.DeleteBefore(service.ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old articles")
		return
	}

	log.Info().
		Int64(constants.LogArticleNumber, deleted).
		Str("cutoff", humanize.Time(cutoff)).
		Msg("Old articles deleted")
}

// CronInterval approximates the common cron patterns with a fixed interval.
// Anything it does not recognize runs hourly.
func CronInterval(expression string) time.Duration {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return DefaultInterval
	}

	switch normalized := strings.Join(fields, " "); {
	case normalized == "* * * * *":
		return time.Minute
	case normalized == "0 * * * *":
		return time.Hour
	case normalized == "0 0 * * *":
		return 24 * time.Hour
	case normalized == "0 0 * * 0":
		return 7 * 24 * time.Hour
	case strings.HasPrefix(fields[0], "*/") && strings.Join(fields[1:], " ") == "* * * *":
		minutes, err := strconv.Atoi(strings.TrimPrefix(fields[0], "*/"))
		if err != nil || minutes <= 0 {
			return DefaultInterval
		}
		return time.Duration(minutes) * time.Minute
	default:
		return DefaultInterval
	}
}
