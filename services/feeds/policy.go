package feeds

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyHigh   Frequency = "high"
	FrequencyMedium Frequency = "medium"
	FrequencyLow    Frequency = "low"
)

// CachePolicy drives both the local cache lifetime and the cache-busting
// parameters sent upstream for a route.
type CachePolicy struct {
	Frequency   Frequency
	TTL         time.Duration
	CacheBuster bool
	Bypass      bool
}

var policies = map[Frequency]CachePolicy{
	FrequencyHigh:   {Frequency: FrequencyHigh, TTL: 5 * time.Minute, CacheBuster: true, Bypass: true},
	FrequencyMedium: {Frequency: FrequencyMedium, TTL: 15 * time.Minute, CacheBuster: true},
	FrequencyLow:    {Frequency: FrequencyLow, TTL: time.Hour},
}

// First match wins.
var routeFrequencies = []struct {
	keyword   string
	frequency Frequency
}{
	{"twitter", FrequencyHigh},
	{"weibo", FrequencyHigh},
	{"zhihu", FrequencyHigh},
	{"36kr", FrequencyHigh},
	{"toutiao", FrequencyHigh},
	{"news", FrequencyHigh},
	{"blog", FrequencyMedium},
	{"github", FrequencyMedium},
	{"jianshu", FrequencyMedium},
	{"weekly", FrequencyLow},
	{"monthly", FrequencyLow},
}

func PolicyFor(route string) CachePolicy {
	for _, mapping := range routeFrequencies {
		if strings.Contains(route, mapping.keyword) {
			return policies[mapping.frequency]
		}
	}
	return policies[FrequencyHigh]
}

// Apply adds the policy parameters to query.
func (p CachePolicy) Apply(query url.Values, forceRefresh bool, now time.Time) {
	if forceRefresh {
		query.Set("refresh", "true")
		query.Set("force", "1")
		query.Set("no_cache", "1")
	}

	if p.CacheBuster {
		millis := strconv.FormatInt(now.UnixMilli(), 10)
		query.Set("_t", millis)
		query.Set("timestamp", millis)
		query.Set("rand", strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
		query.Set("nocache", "1")
	}

	if p.Bypass {
		query.Set("_cache", "no")
		query.Set("cache", "false")
		query.Set("bypass", "true")
	}
}
