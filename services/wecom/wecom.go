package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func New(config Config) *Impl {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Title == "" {
		config.Title = DefaultTitle
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Every(config.Rate)
	}

	return &Impl{
		config:  config,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

func ValidKey(key string) bool {
	return utf8.RuneCountInString(key) == KeyLength
}

func (service *Impl) SendArticles(ctx context.Context, title string, articles []entities.Article) error {
	if len(articles) == 0 {
		return ErrNoArticles
	}
	return service.SendMarkdown(ctx, service.Format(title, articles))
}

func (service *Impl) SendMarkdown(ctx context.Context, content string) error {
	if !ValidKey(service.config.Key) {
		return ErrInvalidKey
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	body, err := json.Marshal(markdownMessage{
		MsgType:  msgTypeMarkdown,
		Markdown: markdownContent{Content: Truncate(content)},
	})
	if err != nil {
		return err
	}

	if err := service.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, service.config.Timeout)
	defer cancel()

	webhookURL := service.config.URL + "?key=" + url.QueryEscape(service.config.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.ExternalName+"/"+constants.Version)

	resp, err := service.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var result ack
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: status %d, unreadable ack: %v", ErrDeliveryFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.ErrCode != 0 {
		return fmt.Errorf("%w: status %d, errcode %d %v", ErrDeliveryFailed, resp.StatusCode, result.ErrCode, result.ErrMsg)
	}

	log.Debug().Int("contentLength", len(body)).Msg("Webhook message delivered")
	return nil
}

// Format renders the markdown digest. An empty title falls back to the configured one.
func (service *Impl) Format(title string, articles []entities.Article) string {
	now := service.now().In(service.config.Location).Format(displayDateFormat)
	if title == "" {
		title = service.config.Title + " - " + now
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "> 📅 更新时间: %s\n\n", now)

	for i, article := range articles {
		fmt.Fprintf(&sb, "## %d. %s\n", i+1, article.Title)
		if article.Author != "" {
			fmt.Fprintf(&sb, "👤 作者: %s\n", article.Author)
		}
		fmt.Fprintf(&sb, "📅 发布时间: %s\n", article.PublishedAt.In(service.config.Location).Format(displayDateFormat))

		if summary := strings.TrimSpace(article.Summary); summary != "" {
			fmt.Fprintf(&sb, "> %s\n", shorten(summary, maxSummaryLength))
		}

		fmt.Fprintf(&sb, "🔗 [查看文章](%s)\n", article.Link)
		source := article.OriginSource
		if source == "" {
			source = article.SourceName
		}
		fmt.Fprintf(&sb, "📰 来源: %s\n\n", source)

		if i < len(articles)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return sb.String()
}

// Truncate cuts content longer than MaxContentLength characters and appends the marker.
func Truncate(content string) string {
	if utf8.RuneCountInString(content) <= MaxContentLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:TruncatedLength]) + TruncationMarker
}

func shorten(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}
