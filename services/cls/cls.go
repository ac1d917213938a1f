package cls

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/services/monitor"
	"rsshub-push/utils/dates"

	"github.com/rs/zerolog/log"
)

func New(config Config, monitorService monitor.Service) *Impl {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Category == "" {
		config.Category = DefaultCategory
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Impl{
		config:  config,
		client:  &http.Client{},
		monitor: monitorService,
		now:     time.Now,
	}
}

// Sign computes md5(hex(sha1(query))) over the query sorted by key.
func Sign(params url.Values) string {
	sha := sha1.Sum([]byte(params.Encode()))
	sum := md5.Sum([]byte(hex.EncodeToString(sha[:])))
	return hex.EncodeToString(sum[:])
}

// Params returns the signed roll list query for the given instant.
func (service *Impl) Params(lastTime time.Time) url.Values {
	params := url.Values{}
	params.Set("app", appName)
	params.Set("category", service.config.Category)
	params.Set("last_time", strconv.FormatInt(lastTime.Unix(), 10))
	params.Set("os", appOS)
	params.Set("refresh_type", "1")
	params.Set("rn", strconv.Itoa(service.config.PageSize))
	params.Set("sv", appVersion)

	if service.config.StaticSign != "" {
		params.Set("sign", service.config.StaticSign)
	} else {
		params.Set("sign", Sign(params))
	}
	return params
}

func (service *Impl) Fetch(ctx context.Context) ([]entities.Article, error) {
	handle := service.monitor.RecordStart(SourceName, service.config.URL)

	articles, err := service.fetch(ctx)
	if err != nil {
		service.monitor.RecordFailure(handle, err)
		return []entities.Article{}, err
	}

	service.monitor.RecordSuccess(handle, len(articles), false)
	log.Info().
		Str(constants.LogFeedName, SourceName).
		Int(constants.LogArticleNumber, len(articles)).
		Dur(constants.LogDuration, service.now().Sub(handle.Started)).
		Msg("Roll list fetched")

	return articles, nil
}

func (service *Impl) fetch(ctx context.Context) ([]entities.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, service.config.Timeout)
	defer cancel()

	u, err := url.Parse(service.config.URL)
	if err != nil {
		return nil, err
	}
	u.RawQuery = service.Params(service.now()).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if service.config.UserAgent != "" {
		req.Header.Set("User-Agent", service.config.UserAgent)
	}

	resp, err := service.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload rollResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Errno != 0 || payload.Data == nil || payload.Data.RollData == nil {
		return nil, fmt.Errorf("%w: errno %d %v", ErrMalformedPayload, payload.Errno, payload.Msg)
	}

	now := service.now()
	articles := make([]entities.Article, 0, len(payload.Data.RollData))
	for _, item := range payload.Data.RollData {
		if article, ok := normalize(item, now); ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

func normalize(item rollItem, now time.Time) (entities.Article, bool) {
	link := strings.TrimSpace(item.ShareURL)
	if link == "" && item.ID != 0 {
		link = fmt.Sprintf(detailURL, item.ID)
	}
	if link == "" {
		return entities.Article{}, false
	}

	published := now
	if item.CTime > 0 {
		published = dates.FromUnix(item.CTime)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = shorten(strings.TrimSpace(item.Brief), fallbackTitle)
	}

	var guid string
	if item.ID != 0 {
		guid = "cls-" + strconv.FormatInt(item.ID, 10)
	}

	return entities.Article{
		Title:        title,
		Link:         link,
		GUID:         guid,
		Author:       SourceName,
		Summary:      item.Brief,
		Content:      item.Content,
		PublishedAt:  published,
		OriginSource: SiteURL,
		SourceName:   SourceName,
	}, true
}

func shorten(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
