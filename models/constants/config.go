package constants

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	ConfigFileName = ".env"

	ExternalName = "rsshub-push"
	Version      = "1.2.0"

	// HTTP port serving the API and the liveness probe.
	Port = "PORT"

	// Zerolog values from [trace, debug, info, warn, error, fatal, panic].
	LogLevel = "LOG_LEVEL"

	// Boolean; JSON logs when true, console logs otherwise.
	Production = "PRODUCTION"

	// JSON array of {name,url,type} or "name,url|name,url".
	RSSFeeds = "RSS_FEEDS"

	// Number of entries kept per feed after a fetch.
	MaxItemsPerFeed = "MAX_ITEMS_PER_FEED"

	// Number of feeds fetched in parallel.
	FetchConcurrency = "FETCH_CONCURRENCY"

	UserAgent = "USER_AGENT"

	// Endpoint resolving rsshub:// routes into JSON entries.
	AggregatorURL = "AGGREGATOR_URL"

	// Public RSSHub instance tried when the aggregation endpoint fails.
	RSSHubInstanceURL = "RSSHUB_INSTANCE_URL"

	APIRetryAttempts = "API_RETRY_ATTEMPTS"
	// Duration type.
	APIRetryDelay = "API_RETRY_DELAY"
	// Duration type.
	APIRequestTimeout = "API_REQUEST_TIMEOUT"
	// Boolean; adds force refresh parameters to aggregated feed requests.
	APIForceRefresh = "API_FORCE_REFRESH"

	//nolint:gosec // False positive.
	// WeCom group robot key, 36 characters.
	WxRobotKey   = "WX_ROBOT_KEY"
	WxRobotURL   = "WX_ROBOT_URL"
	WxRobotTitle = "WX_ROBOT_TITLE"
	// Minimum delay between two webhook calls. Duration type.
	WxRobotRate = "WX_ROBOT_RATE"

	// Boolean; scheduled push.
	ScheduleEnabled  = "SCHEDULE_ENABLED"
	ScheduleCron     = "SCHEDULE_CRON"
	ScheduleTimezone = "SCHEDULE_TIMEZONE"

	// Cron tab to log the fetch monitor report.
	HealthCronTab = "HEALTH_CRON_TAB"

	// Stored articles older than this number of days are deleted daily; 0 disables.
	RetentionDays = "RETENTION_DAYS"

	// CLS roll list.
	CLSEnabled  = "CLS_ENABLED"
	CLSCategory = "CLS_CATEGORY"
	CLSPageSize = "CLS_PAGE_SIZE"
	// Static sign sent instead of the computed one when set.
	CLSSign = "CLS_SIGN"
	CLSURL  = "CLS_URL"

	// Boolean; stores fetched articles.
	PersistenceEnabled = "PERSISTENCE_ENABLED"
	// One of [sqlite, postgres].
	DatabaseDriver = "DATABASE_DRIVER"
	// SQLITE_URL URL.
	SqliteURL = "SQLITE_URL"
	// Postgres DSN, e.g. a Supabase connection string.
	DatabaseURL = "DATABASE_URL"

	// Response cache of /api/rss/articles. Duration type.
	ArticlesCacheTTL = "ARTICLES_CACHE_TTL"

	// TELEGRAM BOT, optional mirror of pushed digests.
	TelegramBotToken = "TELEGRAM_BOT_TOKEN"
	TelegramChatID   = "TELEGRAM_CHAT_ID"

	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"

	defaultPort               = 3000
	defaultLogLevel           = zerolog.InfoLevel
	defaultProduction         = false
	defaultMaxItemsPerFeed    = 10
	defaultFetchConcurrency   = 5
	defaultUserAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	defaultAggregatorURL      = "https://api.follow.is/feeds"
	defaultRSSHubInstanceURL  = "https://rsshub.app"
	defaultAPIRetryAttempts   = 3
	defaultAPIRetryDelay      = 2 * time.Second
	defaultAPIRequestTimeout  = 10 * time.Second
	defaultAPIForceRefresh    = false
	defaultWxRobotKey         = ""
	defaultWxRobotURL         = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send"
	defaultWxRobotTitle       = "RSS Digest"
	defaultWxRobotRate        = 3 * time.Second
	defaultScheduleEnabled    = false
	defaultScheduleCron       = "0 * * * *"
	defaultScheduleTimezone   = "Asia/Shanghai"
	defaultHealthCronTab      = "*/30 * * * *"
	defaultRetentionDays      = 0
	defaultCLSEnabled         = false
	defaultCLSCategory        = "red"
	defaultCLSPageSize        = 20
	defaultCLSSign            = ""
	defaultCLSURL             = "https://www.cls.cn/v1/roll/get_roll_list"
	defaultPersistenceEnabled = false
	defaultDatabaseDriver     = DriverSqlite
	defaultSqliteURL          = "rsshub-push.db"
	defaultDatabaseURL        = ""
	defaultArticlesCacheTTL   = 5 * time.Minute
	defaultTelegramBotToken   = ""
	defaultTelegramChatID     = 0
)

func GetDefaultConfigValues() map[string]any {
	return map[string]any{
		Port:               defaultPort,
		LogLevel:           defaultLogLevel.String(),
		Production:         defaultProduction,
		RSSFeeds:           "",
		MaxItemsPerFeed:    defaultMaxItemsPerFeed,
		FetchConcurrency:   defaultFetchConcurrency,
		UserAgent:          defaultUserAgent,
		AggregatorURL:      defaultAggregatorURL,
		RSSHubInstanceURL:  defaultRSSHubInstanceURL,
		APIRetryAttempts:   defaultAPIRetryAttempts,
		APIRetryDelay:      defaultAPIRetryDelay,
		APIRequestTimeout:  defaultAPIRequestTimeout,
		APIForceRefresh:    defaultAPIForceRefresh,
		WxRobotKey:         defaultWxRobotKey,
		WxRobotURL:         defaultWxRobotURL,
		WxRobotTitle:       defaultWxRobotTitle,
		WxRobotRate:        defaultWxRobotRate,
		ScheduleEnabled:    defaultScheduleEnabled,
		ScheduleCron:       defaultScheduleCron,
		ScheduleTimezone:   defaultScheduleTimezone,
		HealthCronTab:      defaultHealthCronTab,
		RetentionDays:      defaultRetentionDays,
		CLSEnabled:         defaultCLSEnabled,
		CLSCategory:        defaultCLSCategory,
		CLSPageSize:        defaultCLSPageSize,
		CLSSign:            defaultCLSSign,
		CLSURL:             defaultCLSURL,
		PersistenceEnabled: defaultPersistenceEnabled,
		DatabaseDriver:     defaultDatabaseDriver,
		SqliteURL:          defaultSqliteURL,
		DatabaseURL:        defaultDatabaseURL,
		ArticlesCacheTTL:   defaultArticlesCacheTTL,
		TelegramBotToken:   defaultTelegramBotToken,
		TelegramChatID:     defaultTelegramChatID,
	}
}
