package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/pkg/observer"
	"rsshub-push/services/pusher"
	"rsshub-push/services/scheduler"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

func New(token string, chatID int64, pusherService pusher.Service, schedulerService scheduler.Service) (*Impl, error) {
	if token == "" {
		return &Impl{}, ErrTokenIsMissing
	}
	if chatID == 0 {
		return &Impl{}, ErrChatIsMissing
	}

	b, err := gotgbot.NewBot(token, nil)
	if err != nil {
		return &Impl{}, ErrBotNotInitialized
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			log.Warn().Err(err).Msg("an error occurred while handling update")
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	service := &Impl{
		bot:       b,
		sender:    b,
		chatID:    chatID,
		pusher:    pusherService,
		scheduler: schedulerService,
	}
	dispatcher.AddHandler(handlers.NewCommand("start", service.startCmd))
	dispatcher.AddHandler(handlers.NewCommand("help", service.helpCmd))
	dispatcher.AddHandler(handlers.NewCommand("status", service.statusCmd))
	dispatcher.AddHandler(handlers.NewCommand("push", service.pushCmd))

	service.updater = ext.NewUpdater(dispatcher, nil)
	pusherService.Register(service)

	return service, nil
}

func (service *Impl) ListenAndDispatch() error {
	err := service.updater.StartPolling(service.bot, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return ErrFailedToStartListening
	}

	log.Info().Str("username", service.bot.User.Username).Msg("Telegram bot listening")
	return nil
}

func (service *Impl) Shutdown() {
	if service.updater == nil {
		return
	}
	if err := service.updater.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop telegram updater")
	}
}

// OnNotify mirrors webhook deliveries into the configured chat.
func (service *Impl) OnNotify(e observer.Event) {
	var msg string
	switch e.E {
	case observer.ArticlesPushedEvent:
		msg = formatArticles(e.Title, e.Articles)
	case observer.PushFailedEvent:
		msg = formatFailure(e.Articles, e.Err)
	default:
		return
	}

	service.send(service.chatID, msg)
}

func (service *Impl) send(chatID int64, msg string) {
	_, err := service.sender.SendMessage(chatID, msg, &gotgbot.SendMessageOpts{ParseMode: parseMode})
	if err != nil {
		log.Error().Err(err).Int64(constants.LogChatID, chatID).Msg("Failed to send telegram message")
	}
}

func (service *Impl) allowed(cmd string, ctx *ext.Context) bool {
	log.Info().Str("cmd", cmd).Str("username", ctx.EffectiveChat.Username).Int64(constants.LogChatID, ctx.EffectiveChat.Id).Msg("command received")
	if ctx.EffectiveChat.Id != service.chatID {
		log.Warn().Str("cmd", cmd).Int64(constants.LogChatID, ctx.EffectiveChat.Id).Msg("forbidden usage")
		return false
	}
	return true
}

func (service *Impl) startCmd(b *gotgbot.Bot, ctx *ext.Context) error {
	if service.allowed("start", ctx) {
		service.send(ctx.EffectiveChat.Id, getMessageFromMessageType(MessageTypeWelcome))
	}
	return nil
}

func (service *Impl) helpCmd(b *gotgbot.Bot, ctx *ext.Context) error {
	if service.allowed("help", ctx) {
		service.send(ctx.EffectiveChat.Id, getMessageFromMessageType(MessageTypeHelp))
	}
	return nil
}

func (service *Impl) statusCmd(b *gotgbot.Bot, ctx *ext.Context) error {
	if service.allowed("status", ctx) {
		service.send(ctx.EffectiveChat.Id, formatStatus(service.scheduler.Status()))
	}
	return nil
}

func (service *Impl) pushCmd(b *gotgbot.Bot, ctx *ext.Context) error {
	if !service.allowed("push", ctx) {
		return nil
	}

	result, err := service.pusher.PushLatest(context.Background(), manualPushArticle)
	if err != nil {
		service.send(ctx.EffectiveChat.Id, "⚠️ <b>Push failed</b>\n"+html.EscapeString(err.Error()))
		return nil
	}
	service.send(ctx.EffectiveChat.Id, "✅ "+html.EscapeString(result.Message))
	return nil
}

func formatArticles(title string, articles []entities.Article) string {
	var sb strings.Builder
	if title == "" {
		title = "New articles"
	}
	fmt.Fprintf(&sb, "📢 <b>%s</b> (%d)\n\n", html.EscapeString(title), len(articles))

	for i, article := range articles {
		if i == maxMirroredItems {
			fmt.Fprintf(&sb, "… and %d more\n", len(articles)-maxMirroredItems)
			break
		}

		line := fmt.Sprintf("🔹 <a href=\"%s\">%s</a>", html.EscapeString(article.Link), html.EscapeString(article.Title))
		if article.SourceName != "" {
			line += " · <i>" + html.EscapeString(article.SourceName) + "</i>"
		}
		line += " · " + humanize.Time(article.PublishedAt) + "\n"

		if sb.Len()+len(line) > maxMessageLength {
			fmt.Fprintf(&sb, "… and %d more\n", len(articles)-i)
			break
		}
		sb.WriteString(line)
	}

	return sb.String()
}

func formatFailure(articles []entities.Article, err error) string {
	msg := fmt.Sprintf("⚠️ <b>Webhook delivery failed</b> for %d article(s)\n", len(articles))
	if err != nil {
		msg += "<code>" + html.EscapeString(err.Error()) + "</code>\n"
	}
	msg += "These articles will not be pushed again."
	return msg
}

func formatStatus(status scheduler.Status) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Scheduler status</b>\n\n")
	fmt.Fprintf(&sb, "Enabled: <code>%v</code>\n", status.Enabled)
	fmt.Fprintf(&sb, "Running: <code>%v</code>\n", status.Running)
	fmt.Fprintf(&sb, "Cron: <code>%s</code> (%s)\n", html.EscapeString(status.CronExpression), html.EscapeString(status.Timezone))
	fmt.Fprintf(&sb, "Pushed identities: <code>%s</code>\n", humanize.Comma(int64(status.PushedCount)))
	if status.NextRunIn != "" {
		fmt.Fprintf(&sb, "Next run: %s\n", status.NextRunIn)
	}
	return sb.String()
}

func getMessageFromMessageType(messageType MessageType) string {
	switch messageType {
	case MessageTypeHelp:
		msg := "🤖 <b>" + constants.ExternalName + "</b> – Help\n\n"
		msg += "Every article pushed to the WeCom group is mirrored here.\n\n"
		msg += "📝 <b>Commands available:</b>\n"
		msg += "📊 /status – Show the scheduler status.\n"
		msg += "🚀 /push – Push the 3 most recent articles now.\n"
		msg += "💡 /help – Show this help message.\n"
		return msg

	default:
		msg := "👋 Hi! I'm <b>" + constants.ExternalName + "</b> 🤖\n\n"
		msg += "I mirror the feed digests pushed to your WeCom group.\n\n"
		msg += "💬 Type /help for a list of commands."
		return msg
	}
}
