package model

import (
	"time"
)

// Document is one named JSON document of the key-value store. A document
// is always written whole.
type Document struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// SubscriptionRow is a remote list of share-links. IsProxy fetches it
// through the local SOCKS inbound; IsHtml scrapes links out of a web page
// instead of expecting a plain or Base64 list.
type SubscriptionRow struct {
	Name    string `json:"name"`
	Note    string `json:"note"`
	URL     string `json:"url"`
	IsProxy bool   `json:"isProxy"`
	IsHtml  bool   `json:"isHtml"`
}
