package entities

import "strings"

type FeedKind string

const (
	FeedKindRSS    FeedKind = "rss"
	FeedKindRSSHub FeedKind = "rsshub"

	RSSHubScheme = "rsshub://"
)

// FeedSource is one upstream feed, loaded once from the configuration.
type FeedSource struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Kind FeedKind `json:"type"`
}

// IsAggregated reports whether the source must be resolved through the aggregation API.
// An rsshub:// URL wins over the declared kind.
func (s FeedSource) IsAggregated() bool {
	return s.Kind == FeedKindRSSHub || s.IsRoute()
}

// IsRoute reports whether the URL is an rsshub:// route rather than a full feed URL.
func (s FeedSource) IsRoute() bool {
	return strings.HasPrefix(strings.TrimSpace(s.URL), RSSHubScheme)
}

// Target returns the URL without surrounding blanks or trailing separators.
func (s FeedSource) Target() string {
	return strings.TrimRight(strings.TrimSpace(s.URL), ", \t")
}

// Route returns the rsshub route without scheme, e.g. "36kr/hot-list".
func (s FeedSource) Route() string {
	route := strings.TrimPrefix(s.Target(), RSSHubScheme)
	return strings.TrimLeft(route, "/")
}
