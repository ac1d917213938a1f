package monitor

import (
	"errors"
	"testing"
)

func TestRecordOutcomes(t *testing.T) {
	service, err := New(nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle := service.RecordStart("alpha", "https://alpha.example.com/rss")
	service.RecordSuccess(handle, 5, false)

	handle = service.RecordStart("beta", "https://beta.example.com/rss")
	service.RecordFailure(handle, errors.New("timeout"))

	handle = service.RecordStart("alpha", "https://alpha.example.com/rss")
	service.RecordSuccess(handle, 5, true)

	alpha, found := service.Health("https://alpha.example.com/rss")
	if !found || alpha.Status != StatusHealthy || alpha.Items != 5 || alpha.CacheHits != 1 {
		t.Errorf("unexpected alpha health %+v", alpha)
	}

	beta, found := service.Health("https://beta.example.com/rss")
	if !found || beta.Status != StatusUnhealthy || beta.LastError != "timeout" {
		t.Errorf("unexpected beta health %+v", beta)
	}

	if _, found := service.Health("https://unknown.example.com"); found {
		t.Error("expected unknown source to be absent")
	}

	report := service.Report()
	if report.TotalRequests != 3 || report.Failures != 1 || report.CacheHits != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.InFlight != 0 {
		t.Errorf("expected no in-flight request, got %v", report.InFlight)
	}
	if len(report.Sources) != 2 || report.Sources[0].Name != "alpha" {
		t.Errorf("expected sources sorted by name, got %+v", report.Sources)
	}
}

func TestFailureThenSuccessIsHealthy(t *testing.T) {
	service, _ := New(nil, "")

	handle := service.RecordStart("gamma", "rsshub://gamma")
	service.RecordFailure(handle, errors.New("aggregation api down"))
	handle = service.RecordStart("gamma", "rsshub://gamma")
	service.RecordSuccess(handle, 2, false)

	health, _ := service.Health("rsshub://gamma")
	if health.Status != StatusHealthy || health.LastError != "" || health.Failures != 1 {
		t.Errorf("unexpected health %+v", health)
	}

	service.Reset()
	if report := service.Report(); len(report.Sources) != 0 {
		t.Errorf("expected empty report after reset, got %+v", report)
	}
}
