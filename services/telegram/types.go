package telegram

import (
	"errors"

	"rsshub-push/services/pusher"
	"rsshub-push/services/scheduler"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

type MessageType int

const (
	MessageTypeWelcome MessageType = 1
	MessageTypeHelp    MessageType = 2

	parseMode         = "HTML"
	maxMirroredItems  = 10
	maxMessageLength  = 4000
	manualPushArticle = 3
)

var (
	ErrTokenIsMissing         = errors.New("telegram token is missing")
	ErrChatIsMissing          = errors.New("telegram chat id is missing")
	ErrBotNotInitialized      = errors.New("telegram bot is not ready yet")
	ErrFailedToStartListening = errors.New("telegram bot can't start to listen command")
)

type Service interface {
	ListenAndDispatch() error
	Shutdown()
}

type sender interface {
	SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

type Impl struct {
	bot       *gotgbot.Bot
	sender    sender
	updater   *ext.Updater
	chatID    int64
	pusher    pusher.Service
	scheduler scheduler.Service
}
