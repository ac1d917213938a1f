package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/services/monitor"
)

func rssFixture(title string, count int, base time.Time) string {
	var items strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&items, `<item>
<title>%s item %d</title>
<link>https://%s.example.com/%d</link>
<guid>%s-%d</guid>
<description>summary %d</description>
<pubDate>%s</pubDate>
</item>`, title, i, title, i, title, i, i, base.Add(-time.Duration(i)*time.Minute).Format(time.RFC1123Z))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>%s</title>
<link>https://%s.example.com</link>
%s
</channel></rss>`, title, title, items.String())
}

func newTestService(t *testing.T, config Config) (*Impl, *monitor.Impl) {
	t.Helper()

	monitorService, err := monitor.New(nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 5 * time.Millisecond
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = time.Second
	}
	return New(config, monitorService), monitorService
}

func TestFetchStandardFeed(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture("alpha", 5, base))
	}))
	defer server.Close()

	service, monitorService := newTestService(t, Config{MaxItems: 3})
	source := entities.FeedSource{Name: "Alpha", URL: server.URL, Kind: entities.FeedKindRSS}

	articles := service.Fetch(context.Background(), source, Options{})
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %v", len(articles))
	}

	first := articles[0]
	if first.Title != "alpha item 0" || first.Link != "https://alpha.example.com/0" || first.GUID != "alpha-0" {
		t.Errorf("unexpected article %+v", first)
	}
	if !first.PublishedAt.Equal(base) {
		t.Errorf("expected published %v, got %v", base, first.PublishedAt)
	}
	if first.SourceName != "Alpha" || first.OriginSource != "https://alpha.example.com" {
		t.Errorf("unexpected source fields %+v", first)
	}

	health, _ := monitorService.Health(server.URL)
	if health.Status != monitor.StatusHealthy {
		t.Errorf("expected healthy source, got %+v", health)
	}
}

func TestFetchIsIdempotent(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture("beta", 4, base))
	}))
	defer server.Close()

	service, _ := newTestService(t, Config{})
	source := entities.FeedSource{Name: "Beta", URL: server.URL}
	opts := Options{BypassCache: true}

	first := service.Fetch(context.Background(), source, opts)
	second := service.Fetch(context.Background(), source, opts)
	if len(first) != 4 {
		t.Fatalf("expected 4 articles, got %v", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFetchServesFromCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, rssFixture("gamma", 2, time.Now()))
	}))
	defer server.Close()

	service, monitorService := newTestService(t, Config{})
	source := entities.FeedSource{Name: "Gamma", URL: server.URL}

	service.Fetch(context.Background(), source, Options{})
	cached := service.Fetch(context.Background(), source, Options{})
	if len(cached) != 2 {
		t.Errorf("expected cached articles, got %v", len(cached))
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single upstream request, got %v", hits.Load())
	}

	health, _ := monitorService.Health(server.URL)
	if health.CacheHits != 1 {
		t.Errorf("expected one cache hit, got %+v", health)
	}

	service.Fetch(context.Background(), source, Options{BypassCache: true})
	if hits.Load() != 2 {
		t.Errorf("expected bypass to reach upstream, got %v requests", hits.Load())
	}
}

func TestFetchRetriesThenDegrades(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service, monitorService := newTestService(t, Config{RetryAttempts: 3})
	source := entities.FeedSource{Name: "Broken", URL: server.URL}

	articles := service.Fetch(context.Background(), source, Options{})
	if articles == nil || len(articles) != 0 {
		t.Errorf("expected an empty non-nil list, got %#v", articles)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %v", hits.Load())
	}

	health, _ := monitorService.Health(server.URL)
	if health.Status != monitor.StatusUnhealthy || !strings.Contains(health.LastError, "502") {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	service, monitorService := newTestService(t, Config{RetryAttempts: 2, RequestTimeout: 30 * time.Millisecond})
	source := entities.FeedSource{Name: "Slow", URL: server.URL}

	if articles := service.Fetch(context.Background(), source, Options{}); len(articles) != 0 {
		t.Errorf("expected no article, got %v", len(articles))
	}

	health, _ := monitorService.Health(server.URL)
	if health.Status != monitor.StatusUnhealthy {
		t.Errorf("expected unhealthy source, got %+v", health)
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer server.Close()

	service, _ := newTestService(t, Config{RetryAttempts: 1})
	articles := service.Fetch(context.Background(), entities.FeedSource{Name: "Junk", URL: server.URL}, Options{})
	if len(articles) != 0 {
		t.Errorf("expected no article, got %v", len(articles))
	}
}

func TestFetchAggregatedAPI(t *testing.T) {
	var query atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code":0,"data":{"entries":[
			{"title":" Hot ","url":"https://36kr.com/p/1","guid":"g1","author":"kr","description":"d","content":"c","publishedAt":"2024-05-01T10:00:00Z","authorUrl":"https://36kr.com"},
			{"title":"guid only","guid":"https://36kr.com/p/2","publishedAt":"2024-05-01T09:00:00Z"},
			{"title":"no identity"}
		]}}`)
	}))
	defer server.Close()

	service, _ := newTestService(t, Config{AggregatorURL: server.URL + "/feeds"})
	source := entities.FeedSource{Name: "36Kr", URL: "rsshub://36kr/hot-list, "}

	articles := service.Fetch(context.Background(), source, Options{})
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %+v", articles)
	}
	if articles[0].Title != "Hot" || articles[0].OriginSource != "https://36kr.com" {
		t.Errorf("unexpected first article %+v", articles[0])
	}
	if articles[1].Link != "https://36kr.com/p/2" || articles[1].OriginSource != "36Kr" {
		t.Errorf("unexpected guid fallback %+v", articles[1])
	}

	params := query.Load().(url.Values)
	if got := params["url"]; len(got) != 1 || got[0] != "rsshub://36kr/hot-list" {
		t.Errorf("unexpected url param %v", got)
	}
	if got := params["bypass"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("expected high frequency bypass param, got %v", params)
	}
}

func TestFetchAggregatedFallsBackToInstance(t *testing.T) {
	var aggregatorHits atomic.Int32
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aggregatorHits.Add(1)
		fmt.Fprint(w, `{"code":0,"data":{}}`)
	}))
	defer aggregator.Close()

	instance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/github/trending/daily" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, rssFixture("github", 2, time.Now()))
	}))
	defer instance.Close()

	service, monitorService := newTestService(t, Config{
		AggregatorURL: aggregator.URL,
		InstanceURL:   instance.URL + "/",
		RetryAttempts: 2,
	})
	source := entities.FeedSource{Name: "Trending", URL: "rsshub://github/trending/daily"}

	articles := service.Fetch(context.Background(), source, Options{})
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles from the instance, got %v", len(articles))
	}
	if aggregatorHits.Load() != 2 {
		t.Errorf("expected the aggregation api to be retried twice, got %v", aggregatorHits.Load())
	}

	health, _ := monitorService.Health(source.URL)
	if health.Status != monitor.StatusHealthy || health.Failures != 1 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestFetchRSSHubSourceWithFullURL(t *testing.T) {
	var aggregatorParam atomic.Value
	aggregator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aggregatorParam.Store(r.URL.Query().Get("url"))
		fmt.Fprint(w, `{"code":0,"data":{}}`)
	}))
	defer aggregator.Close()

	var feedPath atomic.Value
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feedPath.Store(r.URL.Path)
		fmt.Fprint(w, rssFixture("kr", 2, time.Now()))
	}))
	defer feed.Close()

	service, _ := newTestService(t, Config{
		AggregatorURL: aggregator.URL,
		InstanceURL:   "http://instance.invalid",
		RetryAttempts: 1,
	})
	source := entities.FeedSource{Name: "36Kr", URL: feed.URL + "/36kr/hot-list", Kind: entities.FeedKindRSSHub}

	articles := service.Fetch(context.Background(), source, Options{})
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles from the feed URL, got %v", len(articles))
	}
	if got, _ := aggregatorParam.Load().(string); got != source.URL {
		t.Errorf("expected the feed URL to be sent unchanged, got %q", got)
	}
	if got, _ := feedPath.Load().(string); got != "/36kr/hot-list" {
		t.Errorf("unexpected feed path %q", got)
	}

	instanceURL, err := service.InstanceURL(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(instanceURL, source.URL+"?") {
		t.Errorf("expected the feed URL to be fetched directly, got %v", instanceURL)
	}
}

func TestFetchRSSHubFullURLWithoutEndpoints(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture("direct", 1, time.Now()))
	}))
	defer feed.Close()

	service, _ := newTestService(t, Config{RetryAttempts: 1})
	source := entities.FeedSource{Name: "Direct", URL: feed.URL + "/weibo/user/1", Kind: entities.FeedKindRSSHub}

	if articles := service.Fetch(context.Background(), source, Options{}); len(articles) != 1 {
		t.Errorf("expected 1 article, got %v", len(articles))
	}
}

func TestFetchRouteWithoutEndpointsIsReported(t *testing.T) {
	service, monitorService := newTestService(t, Config{})
	source := entities.FeedSource{Name: "Orphan", URL: "rsshub://36kr/hot-list"}

	articles := service.Fetch(context.Background(), source, Options{})
	if articles == nil || len(articles) != 0 {
		t.Errorf("expected an empty non-nil list, got %#v", articles)
	}

	health, _ := monitorService.Health(source.URL)
	if health.Status != monitor.StatusUnhealthy || health.LastError != ErrNoStrategy.Error() {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestCacheKeepsFullList(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, rssFixture("delta", 5, time.Now()))
	}))
	defer server.Close()

	service, _ := newTestService(t, Config{MaxItems: 10})
	source := entities.FeedSource{Name: "Delta", URL: server.URL}

	if short := service.Fetch(context.Background(), source, Options{MaxItems: 2}); len(short) != 2 {
		t.Fatalf("expected 2 articles, got %v", len(short))
	}
	full := service.Fetch(context.Background(), source, Options{MaxItems: 5})
	if len(full) != 5 {
		t.Errorf("expected the cached list to hold 5 articles, got %v", len(full))
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single upstream request, got %v", hits.Load())
	}
}

func TestCheckHealth(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFixture("good", 1, time.Now()))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	service, _ := newTestService(t, Config{RetryAttempts: 1})
	result := service.CheckHealth(context.Background(), []entities.FeedSource{
		{Name: "good", URL: good.URL},
		{Name: "bad", URL: bad.URL},
	})

	if len(result) != 2 || result[0].Status != monitor.StatusHealthy || result[1].Status != monitor.StatusUnhealthy {
		t.Errorf("unexpected health result %+v", result)
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		route string
		want  Frequency
	}{
		{"twitter/user/elonmusk", FrequencyHigh},
		{"36kr/hot-list", FrequencyHigh},
		{"github/trending/daily", FrequencyMedium},
		{"ruanyf/weekly", FrequencyLow},
		{"some/unknown/route", FrequencyHigh},
	}

	for _, tt := range tests {
		if got := PolicyFor(tt.route).Frequency; got != tt.want {
			t.Errorf("PolicyFor(%q) = %v, want %v", tt.route, got, tt.want)
		}
	}
}

func TestPolicyApply(t *testing.T) {
	now := time.UnixMilli(1714557600000)

	query := url.Values{}
	policies[FrequencyLow].Apply(query, false, now)
	if len(query) != 0 {
		t.Errorf("expected no parameter for low frequency routes, got %v", query)
	}

	query = url.Values{}
	policies[FrequencyMedium].Apply(query, true, now)
	for _, key := range []string{"refresh", "force", "no_cache", "_t", "timestamp", "rand", "nocache"} {
		if _, found := query[key]; !found {
			t.Errorf("expected %v to be set, got %v", key, query)
		}
	}
	if _, found := query["bypass"]; found {
		t.Error("medium frequency routes must not bypass upstream cache")
	}
	if query["_t"][0] != "1714557600000" {
		t.Errorf("unexpected timestamp %v", query["_t"])
	}
}

func TestParseSources(t *testing.T) {
	sources, err := ParseSources(`[{"name":"36Kr","url":"rsshub://36kr/hot-list","type":"rss"},{"url":"https://blog.example.com/rss"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %v", sources)
	}
	if sources[0].Kind != entities.FeedKindRSSHub {
		t.Errorf("expected rsshub url to win over declared type, got %v", sources[0].Kind)
	}
	if sources[1].Name != UnnamedSource || sources[1].Kind != entities.FeedKindRSS {
		t.Errorf("unexpected defaulted source %+v", sources[1])
	}

	sources, err = ParseSources("Hacker News,https://hnrss.org/frontpage| ,https://example.com/feed|rsshub://zhihu/hot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 3 || sources[0].Name != "Hacker News" || sources[1].Name != UnnamedSource || sources[2].URL != "rsshub://zhihu/hot" {
		t.Errorf("unexpected delimited sources %+v", sources)
	}

	if _, err := ParseSources("  "); err != ErrNoSources {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
	if _, err := ParseSources("[{"); err == nil {
		t.Error("expected a JSON error")
	}
}
