package models

import "time"

// Article is one news item as returned by the Finnhub /news endpoint.
// Fields the API omits decode to their zero values; a missing datetime
// therefore sorts as the oldest possible article.
type Article struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// NewsRecord is the persisted form of an article. The primary key is the
// source-assigned article id, so uniqueness is enforced by the store and a
// record exists at most once per id. IngestedAt is set locally at insert
// time and reflects processing time, not publish time.
type NewsRecord struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Category   string    `gorm:"index" json:"category"`
	Datetime   int64     `gorm:"index" json:"datetime"`
	Headline   string    `json:"headline"`
	Source     string    `json:"source"`
	Summary    string    `json:"summary"`
	URL        string    `json:"url"`
	IngestedAt time.Time `json:"ingested_at"`
}

func (NewsRecord) TableName() string {
	return "forex_news"
}
