package monitor

import (
	"sort"
	"time"

	"rsshub-push/models/constants"

	"github.com/dustin/go-humanize"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// New creates the monitor and, when a cron expression is given, schedules a periodic report log.
func New(scheduler gocron.Scheduler, reportCron string) (*Impl, error) {
	service := &Impl{
		sources:  make(map[string]*SourceHealth),
		inFlight: make(map[string]Handle),
		started:  time.Now(),
		now:      time.Now,
	}

	if scheduler != nil && reportCron != "" {
		_, errJob := scheduler.NewJob(
			gocron.CronJob(reportCron, false),
			gocron.NewTask(func() { service.logReport() }),
			gocron.WithName("Report fetch monitor"),
		)
		if errJob != nil {
			return nil, errJob
		}
	}

	return service, nil
}

func (service *Impl) RecordStart(name, url string) Handle {
	handle := Handle{
		ID:      uuid.NewString(),
		Name:    name,
		URL:     url,
		Started: service.now(),
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	service.inFlight[handle.ID] = handle
	source := service.source(name, url)
	source.Requests++

	return handle
}

func (service *Impl) RecordSuccess(handle Handle, items int, fromCache bool) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.inFlight, handle.ID)

	now := service.now()
	source := service.source(handle.Name, handle.URL)
	source.Status = StatusHealthy
	source.Items = items
	source.LastSuccess = now
	source.LastError = ""
	if fromCache {
		source.CacheHits++
	} else {
		source.ResponseTime = now.Sub(handle.Started).Milliseconds()
	}
}

func (service *Impl) RecordFailure(handle Handle, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.inFlight, handle.ID)

	now := service.now()
	source := service.source(handle.Name, handle.URL)
	source.Status = StatusUnhealthy
	source.Items = 0
	source.Failures++
	source.LastFailure = now
	source.ResponseTime = now.Sub(handle.Started).Milliseconds()
	if err != nil {
		source.LastError = err.Error()
	}
}

func (service *Impl) Health(url string) (SourceHealth, bool) {
	service.mu.Lock()
	defer service.mu.Unlock()

	source, found := service.sources[url]
	if !found {
		return SourceHealth{URL: url, Status: StatusUnknown}, false
	}
	return service.snapshot(source), true
}

func (service *Impl) Report() Report {
	service.mu.Lock()
	defer service.mu.Unlock()

	report := Report{
		InFlight: len(service.inFlight),
		Since:    humanize.Time(service.started),
		Sources:  make([]SourceHealth, 0, len(service.sources)),
	}
	for _, source := range service.sources {
		report.TotalRequests += source.Requests
		report.CacheHits += source.CacheHits
		report.Failures += source.Failures
		report.Sources = append(report.Sources, service.snapshot(source))
	}
	if report.TotalRequests > 0 {
		report.CacheHitRate = float64(report.CacheHits) / float64(report.TotalRequests)
	}

	sort.Slice(report.Sources, func(i, j int) bool {
		return report.Sources[i].Name < report.Sources[j].Name
	})

	return report
}

func (service *Impl) Reset() {
	service.mu.Lock()
	defer service.mu.Unlock()

	service.sources = make(map[string]*SourceHealth)
	service.inFlight = make(map[string]Handle)
	service.started = service.now()
}

func (service *Impl) source(name, url string) *SourceHealth {
	source, found := service.sources[url]
	if !found {
		source = &SourceHealth{Name: name, URL: url, Status: StatusUnknown}
		service.sources[url] = source
	}
	return source
}

func (service *Impl) snapshot(source *SourceHealth) SourceHealth {
	result := *source
	last := source.LastSuccess
	if source.LastFailure.After(last) {
		last = source.LastFailure
	}
	if !last.IsZero() {
		result.LastChecked = humanize.Time(last)
	}
	return result
}

func (service *Impl) logReport() {
	report := service.Report()
	log.Info().
		Int(constants.LogSourceNumber, len(report.Sources)).
		Int64("requests", report.TotalRequests).
		Int64("failures", report.Failures).
		Str("cacheHitRate", humanize.FormatFloat("#.##", report.CacheHitRate*100)+"%").
		Msgf("Fetch monitor report since %v", report.Since)

	for _, source := range report.Sources {
		if source.Status == StatusUnhealthy {
			log.Warn().
				Str(constants.LogFeedName, source.Name).
				Str(constants.LogFeedURL, source.URL).
				Str("lastError", source.LastError).
				Msg("Source is unhealthy")
		}
	}
}
