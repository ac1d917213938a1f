package observer

import "rsshub-push/models/entities"

type EventType int

const (
	ArticlesPushedEvent EventType = 1
	PushFailedEvent     EventType = 2
)

type Event struct {
	E        EventType
	Title    string
	Articles []entities.Article
	Err      error
}

func NewArticlesPushedEvent(title string, articles []entities.Article) Event {
	return Event{E: ArticlesPushedEvent, Title: title, Articles: articles}
}

func NewPushFailedEvent(title string, articles []entities.Article, err error) Event {
	return Event{E: PushFailedEvent, Title: title, Articles: articles, Err: err}
}

type Observer interface {
	OnNotify(Event)
}

type Notifier interface {
	Register(Observer)
	Notify(Event)
}
