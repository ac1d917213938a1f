package feeds

import (
	"strings"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/utils/dates"

	"github.com/mmcdole/gofeed"
)

func normalizeEntry(entry aggregatorEntry, source entities.FeedSource, now time.Time) (entities.Article, bool) {
	link := firstNonEmpty(entry.URL, entry.GUID)
	if link == "" {
		return entities.Article{}, false
	}

	return entities.Article{
		Title:        strings.TrimSpace(entry.Title),
		Link:         link,
		GUID:         strings.TrimSpace(entry.GUID),
		Author:       strings.TrimSpace(entry.Author),
		Summary:      entry.Description,
		Content:      entry.Content,
		PublishedAt:  dates.ParsePublished(entry.PublishedAt, now),
		OriginSource: firstNonEmpty(entry.AuthorURL, source.Name),
		SourceName:   source.Name,
	}, true
}

func normalizeItem(item *gofeed.Item, feed *gofeed.Feed, source entities.FeedSource, now time.Time) (entities.Article, bool) {
	if item == nil {
		return entities.Article{}, false
	}

	link := firstNonEmpty(item.Link, item.GUID)
	if link == "" {
		return entities.Article{}, false
	}

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	default:
		published = dates.ParsePublished(firstNonEmpty(item.Published, item.Updated), now)
	}

	var author string
	if item.Author != nil {
		author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	var origin string
	if feed != nil {
		origin = feed.Link
	}

	return entities.Article{
		Title:        strings.TrimSpace(item.Title),
		Link:         strings.TrimSpace(link),
		GUID:         strings.TrimSpace(item.GUID),
		Author:       strings.TrimSpace(author),
		Summary:      item.Description,
		Content:      item.Content,
		PublishedAt:  published,
		OriginSource: firstNonEmpty(origin, source.Name),
		SourceName:   source.Name,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
