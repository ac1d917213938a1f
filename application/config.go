package application

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"rsshub-push/models/constants"
	"rsshub-push/services/cls"
	"rsshub-push/services/feeds"
	"rsshub-push/services/scheduler"
	"rsshub-push/services/wecom"

	"github.com/spf13/viper"
)

// ValidateConfig lists every configuration problem. None of them prevents the
// process from serving its liveness probe.
func ValidateConfig() []string {
	problems := make([]string, 0)

	sources, err := feeds.ParseSources(viper.GetString(constants.RSSFeeds))
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("%s is invalid: %v", constants.RSSFeeds, err))
	case len(sources) == 0:
		problems = append(problems, fmt.Sprintf("%s does not contain any usable source", constants.RSSFeeds))
	}

	key := viper.GetString(constants.WxRobotKey)
	switch {
	case key == "":
		problems = append(problems, fmt.Sprintf("%s is missing", constants.WxRobotKey))
	case !wecom.ValidKey(key):
		problems = append(problems, fmt.Sprintf("%s must be %d characters long", constants.WxRobotKey, wecom.KeyLength))
	}

	if _, err := time.LoadLocation(viper.GetString(constants.ScheduleTimezone)); err != nil {
		problems = append(problems, fmt.Sprintf("%s is not a known timezone", constants.ScheduleTimezone))
	}

	if viper.GetBool(constants.PersistenceEnabled) {
		switch viper.GetString(constants.DatabaseDriver) {
		case constants.DriverSqlite:
			if viper.GetString(constants.SqliteURL) == "" {
				problems = append(problems, fmt.Sprintf("%s is missing", constants.SqliteURL))
			}
		case constants.DriverPostgres:
			if viper.GetString(constants.DatabaseURL) == "" {
				problems = append(problems, fmt.Sprintf("%s is missing", constants.DatabaseURL))
			}
		default:
			problems = append(problems, fmt.Sprintf("%s must be %s or %s", constants.DatabaseDriver, constants.DriverSqlite, constants.DriverPostgres))
		}
	}

	if viper.GetString(constants.TelegramBotToken) != "" && viper.GetInt64(constants.TelegramChatID) == 0 {
		problems = append(problems, fmt.Sprintf("%s is required with %s", constants.TelegramChatID, constants.TelegramBotToken))
	}

	return problems
}

func loadLocation() *time.Location {
	location, err := time.LoadLocation(viper.GetString(constants.ScheduleTimezone))
	if err != nil {
		return time.UTC
	}
	return location
}

func feedsConfig() feeds.Config {
	return feeds.Config{
		AggregatorURL:  viper.GetString(constants.AggregatorURL),
		InstanceURL:    viper.GetString(constants.RSSHubInstanceURL),
		UserAgent:      viper.GetString(constants.UserAgent),
		RetryAttempts:  viper.GetInt(constants.APIRetryAttempts),
		RetryDelay:     viper.GetDuration(constants.APIRetryDelay),
		RequestTimeout: viper.GetDuration(constants.APIRequestTimeout),
		MaxItems:       viper.GetInt(constants.MaxItemsPerFeed),
		ForceRefresh:   viper.GetBool(constants.APIForceRefresh),
	}
}

func clsConfig() cls.Config {
	return cls.Config{
		URL:        viper.GetString(constants.CLSURL),
		Category:   viper.GetString(constants.CLSCategory),
		PageSize:   viper.GetInt(constants.CLSPageSize),
		StaticSign: viper.GetString(constants.CLSSign),
		UserAgent:  viper.GetString(constants.UserAgent),
		Timeout:    viper.GetDuration(constants.APIRequestTimeout),
	}
}

func wecomConfig(location *time.Location) wecom.Config {
	return wecom.Config{
		URL:      viper.GetString(constants.WxRobotURL),
		Key:      viper.GetString(constants.WxRobotKey),
		Title:    viper.GetString(constants.WxRobotTitle),
		Rate:     viper.GetDuration(constants.WxRobotRate),
		Timeout:  viper.GetDuration(constants.APIRequestTimeout),
		Location: location,
	}
}

func schedulerConfig(location *time.Location) scheduler.Config {
	return scheduler.Config{
		Enabled:        viper.GetBool(constants.ScheduleEnabled),
		CronExpression: viper.GetString(constants.ScheduleCron),
		Timezone:       location.String(),
		RetentionDays:  viper.GetInt(constants.RetentionDays),
	}
}
