package application

import (
	"context"
	"fmt"
	"time"

	"rsshub-push/api"
	"rsshub-push/models/constants"
	"rsshub-push/repositories/articles"
	"rsshub-push/services/aggregator"
	"rsshub-push/services/cls"
	"rsshub-push/services/feeds"
	"rsshub-push/services/monitor"
	"rsshub-push/services/pusher"
	"rsshub-push/services/scheduler"
	"rsshub-push/services/telegram"
	"rsshub-push/services/wecom"
	databases "rsshub-push/utils/databases"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func New() (*Impl, error) {
	started := time.Now()
	problems := ValidateConfig()
	for _, problem := range problems {
		log.Warn().Msgf("Configuration problem: %v", problem)
	}

	ctx, cancel := context.WithCancel(context.Background())
	location := loadLocation()

	gocronScheduler, errScheduler := gocron.NewScheduler(gocron.WithLocation(location))
	if errScheduler != nil {
		cancel()
		return nil, errScheduler
	}

	sources, errSources := feeds.ParseSources(viper.GetString(constants.RSSFeeds))
	if errSources != nil {
		log.Warn().Err(errSources).Msg("No feed source loaded")
	}
	log.Info().Int(constants.LogSourceNumber, len(sources)).Msg("Feed sources loaded")

	// Persistence
	db, articleRepo, errDB := newArticleRepository(ctx)
	if errDB != nil {
		log.Error().Err(errDB).Msg("Persistence unavailable, continuing without it")
	}

	monitorService, errMonitor := monitor.New(gocronScheduler, viper.GetString(constants.HealthCronTab))
	if errMonitor != nil {
		cancel()
		return nil, errMonitor
	}

	var clsService cls.Service
	if viper.GetBool(constants.CLSEnabled) {
		clsService = cls.New(clsConfig(), monitorService)
	}

	feedService := feeds.New(feedsConfig(), monitorService)
	aggregatorService := aggregator.New(viper.GetInt(constants.FetchConcurrency), sources, feedService, clsService, articleRepo)
	delivery := wecom.New(wecomConfig(location))
	pusherService := pusher.New(aggregatorService, delivery, pusher.NewPushedSet(pusher.HighWaterMark, pusher.RetainedOnTrim), viper.GetString(constants.WxRobotTitle))

	pushScheduler, errPush := scheduler.New(ctx, schedulerConfig(location), gocronScheduler, pusherService, articleRepo)
	if errPush != nil {
		cancel()
		return nil, errPush
	}

	var telegramService telegram.Service
	if token := viper.GetString(constants.TelegramBotToken); token != "" {
		tg, errTg := telegram.New(token, viper.GetInt64(constants.TelegramChatID), pusherService, pushScheduler)
		if errTg != nil {
			log.Warn().Err(errTg).Msg("Telegram mirror disabled")
		} else {
			telegramService = tg
		}
	}

	server := api.New(api.Dependencies{
		Aggregator:     aggregatorService,
		Feeds:          feedService,
		Pusher:         pusherService,
		Scheduler:      pushScheduler,
		Monitor:        monitorService,
		Articles:       articleRepo,
		CacheTTL:       viper.GetDuration(constants.ArticlesCacheTTL),
		ConfigProblems: problems,
		Started:        started,
	})

	return &Impl{
		cancel:          cancel,
		scheduler:       gocronScheduler,
		pushScheduler:   pushScheduler,
		telegramService: telegramService,
		server:          server,
		db:              db,
		addr:            fmt.Sprintf(":%d", viper.GetInt(constants.Port)),
	}, nil
}

func newArticleRepository(ctx context.Context) (databases.Connection, articles.Repository, error) {
	if !viper.GetBool(constants.PersistenceEnabled) {
		return nil, nil, nil
	}

	var db databases.Connection
	var repo articles.Repository
	switch driver := viper.GetString(constants.DatabaseDriver); driver {
	case constants.DriverPostgres:
		conn := databases.NewPostgres(viper.GetString(constants.DatabaseURL))
		db, repo = conn, articles.NewPostgres(conn)
	case constants.DriverSqlite:
		conn := databases.New(viper.GetString(constants.SqliteURL))
		db, repo = conn, articles.New(conn)
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", driver)
	}

	if err := db.Run(); err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Shutdown()
		return nil, nil, err
	}

	return db, repo, nil
}

func (app *Impl) Run() {
	app.scheduler.Start()

	handle, err := app.pushScheduler.Start()
	if err != nil {
		log.Error().Err(err).Msg("Cannot start scheduled push, continuing...")
	}
	app.pushHandle = handle

	for _, job := range app.scheduler.Jobs() {
		scheduledTime, err := job.NextRun()
		if err == nil {
			log.Info().Msgf("%v scheduled at %v", job.Name(), scheduledTime)
		}
	}

	if app.telegramService != nil {
		go func() {
			if err := app.telegramService.ListenAndDispatch(); err != nil {
				log.Error().Err(err).Msg("Telegram bot stopped")
			}
		}()
	}

	go func() {
		if err := app.server.Run(app.addr); err != nil {
			log.Fatal().Err(err).Msg("HTTP server stopped")
		}
	}()
}

func (app *Impl) Shutdown() {
	app.server.Shutdown()
	if err := app.pushScheduler.Stop(app.pushHandle); err != nil {
		log.Error().Err(err).Msg("Cannot stop scheduled push, continuing...")
	}
	app.cancel()
	if err := app.scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Cannot shutdown scheduler, continuing...")
	}
	if app.telegramService != nil {
		app.telegramService.Shutdown()
	}
	if app.db != nil {
		app.db.Shutdown()
	}
	log.Info().Msgf("Application is no longer running")
}
