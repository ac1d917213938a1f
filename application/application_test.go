package application

import (
	"strings"
	"testing"
	"time"

	"rsshub-push/models/constants"

	"github.com/spf13/viper"
)

func setDefaults(t *testing.T) {
	t.Helper()

	viper.Reset()
	for key, value := range constants.GetDefaultConfigValues() {
		viper.SetDefault(key, value)
	}
	t.Cleanup(viper.Reset)
}

func TestValidateConfigReportsProblems(t *testing.T) {
	setDefaults(t)
	viper.Set(constants.WxRobotKey, "0123456789")
	viper.Set(constants.ScheduleTimezone, "Mars/Olympus")
	viper.Set(constants.PersistenceEnabled, true)
	viper.Set(constants.DatabaseDriver, constants.DriverPostgres)
	viper.Set(constants.TelegramBotToken, "token")

	problems := strings.Join(ValidateConfig(), "\n")
	for _, want := range []string{
		constants.RSSFeeds,
		constants.WxRobotKey + " must be 36 characters long",
		constants.ScheduleTimezone,
		constants.DatabaseURL + " is missing",
		constants.TelegramChatID,
	} {
		if !strings.Contains(problems, want) {
			t.Errorf("expected a problem about %q, got\n%v", want, problems)
		}
	}
}

func TestValidateConfigAcceptsCompleteSetup(t *testing.T) {
	setDefaults(t)
	viper.Set(constants.RSSFeeds, `[{"name":"36Kr","url":"rsshub://36kr/hot-list"}]`)
	viper.Set(constants.WxRobotKey, "693a91f6-7xxx-4bc4-97a0-0ec2sifa5aaa")

	if problems := ValidateConfig(); len(problems) != 0 {
		t.Errorf("expected no problem, got %v", problems)
	}
}

func TestConfigBuilders(t *testing.T) {
	setDefaults(t)
	viper.Set(constants.APIRetryDelay, "250ms")
	viper.Set(constants.ScheduleEnabled, "true")

	config := feedsConfig()
	if config.RetryDelay != 250*time.Millisecond || config.RetryAttempts != 3 || config.MaxItems != 10 {
		t.Errorf("unexpected feeds config %+v", config)
	}

	location := loadLocation()
	if location.String() != "Asia/Shanghai" {
		t.Errorf("unexpected location %v", location)
	}

	schedule := schedulerConfig(location)
	if !schedule.Enabled || schedule.CronExpression != "0 * * * *" || schedule.Timezone != "Asia/Shanghai" {
		t.Errorf("unexpected scheduler config %+v", schedule)
	}

	if wecomConfig(location).Rate != 3*time.Second {
		t.Errorf("unexpected webhook rate %v", wecomConfig(location).Rate)
	}
	if clsConfig().StaticSign != "" {
		t.Error("expected computed signatures by default")
	}
}
