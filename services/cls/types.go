package cls

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rsshub-push/models/entities"
	"rsshub-push/services/monitor"
)

const (
	DefaultURL      = "https://www.cls.cn/v1/roll/get_roll_list"
	DefaultCategory = "red"
	DefaultPageSize = 20
	SourceName      = "财联社"
	SiteURL         = "https://www.cls.cn"

	appName       = "CailianpressWeb"
	appOS         = "web"
	appVersion    = "8.4.6"
	detailURL     = "https://www.cls.cn/detail/%d"
	fallbackTitle = 60
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrMalformedPayload = errors.New("malformed roll list payload")
)

type Service interface {
	Fetch(ctx context.Context) ([]entities.Article, error)
}

type Config struct {
	URL        string
	Category   string
	PageSize   int
	StaticSign string
	UserAgent  string
	Timeout    time.Duration
}

type Impl struct {
	config  Config
	client  *http.Client
	monitor monitor.Service
	now     func() time.Time
}

type rollResponse struct {
	Errno int       `json:"errno"`
	Msg   string    `json:"msg"`
	Data  *rollData `json:"data"`
}

type rollData struct {
	RollData []rollItem `json:"roll_data"`
}

type rollItem struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Brief      string `json:"brief"`
	Content    string `json:"content"`
	ShareURL   string `json:"shareurl"`
	CTime      int64  `json:"ctime"`
	ReadingNum int64  `json:"reading_num"`
}
