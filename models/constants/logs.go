package constants

import "github.com/rs/zerolog"

const (
	LogFileName      = "fileName"
	LogFeedName      = "feedName"
	LogFeedURL       = "feedURL"
	LogFeedType      = "feedType"
	LogStrategy      = "strategy"
	LogAttempt       = "attempt"
	LogArticleNumber = "articleNumber"
	LogSourceNumber  = "sourceNumber"
	LogDuration      = "duration"
	LogJobName       = "jobName"
	LogChatID        = "chatID"
	LogLevelFallback = zerolog.InfoLevel
)
