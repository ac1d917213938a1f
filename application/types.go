package application

import (
	"context"

	"rsshub-push/api"
	"rsshub-push/services/scheduler"
	"rsshub-push/services/telegram"
	databases "rsshub-push/utils/databases"

	"github.com/go-co-op/gocron/v2"
)

type Application interface {
	Run()
	Shutdown()
}

type Impl struct {
	cancel          context.CancelFunc
	scheduler       gocron.Scheduler
	pushScheduler   scheduler.Service
	pushHandle      *scheduler.Handle
	telegramService telegram.Service
	server          *api.Server
	db              databases.Connection
	addr            string
}
