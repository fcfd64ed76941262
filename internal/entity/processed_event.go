package entity

import "time"

// ProcessedEvent records an external transaction id exactly once. The
// primary key is the idempotency guard: a second insert with the same id is
// rejected by the storage layer, never by application memory.
type ProcessedEvent struct {
	CreatedAt time.Time

	EventID string `gorm:"primaryKey"`
	UserID  string
	Outcome string
}

// PostbackLog is the audit trail of inbound completion notifications. One
// row is written per notification, accepted or not, for dispute resolution.
type PostbackLog struct {
	Base

	UserID           string
	TransactionID    string
	CompletionStatus int
	Accepted         bool
	Detail           string
}
