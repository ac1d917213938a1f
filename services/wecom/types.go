package wecom

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rsshub-push/models/entities"

	"golang.org/x/time/rate"
)

const (
	DefaultURL   = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send"
	DefaultTitle = "RSS 订阅更新"
	KeyLength    = 36

	MaxContentLength  = 4096
	TruncatedLength   = 4000
	TruncationMarker  = "\n\n...内容过长，已截断"
	maxSummaryLength  = 200
	displayDateFormat = "2006/1/2 15:04:05"
	msgTypeMarkdown   = "markdown"
)

var (
	ErrInvalidKey     = errors.New("webhook key must be 36 characters long")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrNoArticles     = errors.New("no article to deliver")
	ErrDeliveryFailed = errors.New("webhook rejected the message")
)

type Service interface {
	SendArticles(ctx context.Context, title string, articles []entities.Article) error
	SendMarkdown(ctx context.Context, content string) error
	Format(title string, articles []entities.Article) string
}

type Config struct {
	URL      string
	Key      string
	Title    string
	Rate     time.Duration
	Timeout  time.Duration
	Location *time.Location
}

type Impl struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

type markdownMessage struct {
	MsgType  string          `json:"msgtype"`
	Markdown markdownContent `json:"markdown"`
}

type markdownContent struct {
	Content string `json:"content"`
}

type ack struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}
