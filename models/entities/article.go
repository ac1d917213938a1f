package entities

import "time"

// Article is the normalized shape of every upstream item. Link is the natural key.
type Article struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Title        string    `json:"title"`
	Link         string    `json:"link" gorm:"uniqueIndex;not null"`
	GUID         string    `json:"guid,omitempty" gorm:"column:guid"`
	Author       string    `json:"author"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	PublishedAt  time.Time `json:"pubDate" gorm:"column:pub_date;index"`
	OriginSource string    `json:"source" gorm:"column:source;index"`
	SourceName   string    `json:"sourceName,omitempty"`
	CreatedAt    time.Time `json:"-"`
}

func (Article) TableName() string {
	return "articles"
}

// Identities returns the keys under which the article is remembered once pushed.
func (a Article) Identities() []string {
	if a.GUID != "" && a.GUID != a.Link {
		return []string{a.Link, a.GUID}
	}
	return []string{a.Link}
}
