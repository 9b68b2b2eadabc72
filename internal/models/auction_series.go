package models

import "time"

// AuctionSeries is one immutable cache row: a serialized auction record
// sequence for a single term. Rows are never updated after insert; expiry
// makes them logically dead without deleting them.
type AuctionSeries struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Term        string    `gorm:"column:term;not null;index"`
	RetrievedAt time.Time `gorm:"column:retrieved;not null"`
	ExpiresAt   time.Time `gorm:"column:expires;not null;index"`
	Payload     []byte    `gorm:"column:data;type:blob;not null"`
	ContentHash string    `gorm:"column:content_hash;size:64;uniqueIndex;not null"`
}

// TableName pins the cache table name.
func (AuctionSeries) TableName() string {
	return "auction_series"
}
