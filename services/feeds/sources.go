package feeds

import (
	"encoding/json"
	"strings"

	"rsshub-push/models/entities"
)

// ParseSources reads the configured source list, either a JSON array of
// {name,url,type} objects or the "name,url|name,url" shorthand.
func ParseSources(raw string) ([]entities.FeedSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoSources
	}

	if strings.HasPrefix(raw, "[") {
		var sources []entities.FeedSource
		if err := json.Unmarshal([]byte(raw), &sources); err != nil {
			return nil, err
		}
		return cleanSources(sources), nil
	}

	var sources []entities.FeedSource
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, url, found := strings.Cut(part, ",")
		if !found {
			name, url = "", name
		}
		sources = append(sources, entities.FeedSource{Name: name, URL: url})
	}

	return cleanSources(sources), nil
}

func cleanSources(sources []entities.FeedSource) []entities.FeedSource {
	result := make([]entities.FeedSource, 0, len(sources))
	for _, source := range sources {
		source.Name = strings.TrimSpace(source.Name)
		source.URL = strings.TrimSpace(source.URL)
		if source.URL == "" {
			continue
		}
		if source.Name == "" {
			source.Name = UnnamedSource
		}
		if source.IsAggregated() {
			source.Kind = entities.FeedKindRSSHub
		} else if source.Kind == "" {
			source.Kind = entities.FeedKindRSS
		}
		result = append(result, source)
	}
	return result
}
