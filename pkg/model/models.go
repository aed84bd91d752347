package model

import "time"

type ItemType string

const (
	ItemMovie  = ItemType("Movie")
	ItemSeries = ItemType("Series")
)

// Item is a catalog entry as reported by the upstream media server.
type Item struct {
	ID             string
	Name           string
	Type           ItemType
	Overview       string
	ProductionYear int
}

// Episode belongs to a series. Upstream may omit season/episode numbers,
// in which case they are zero.
type Episode struct {
	ID            string
	SeasonNumber  int
	EpisodeNumber int
}

// MediaServerSettings is the mutable upstream connection settings row,
// managed outside of this service and re-read on cache expiry.
type MediaServerSettings struct {
	tableName struct{} `pg:"media_settings"` //nolint

	ID        int64
	Enabled   bool      `pg:",use_zero"`
	ServerURL string
	APIKey    string
	AuthToken string
	Username  string
	Password  string
	UserID    string
	UpdatedAt time.Time
}
