package entity

import "time"

// DrawParticipation is the per-user-per-draw aggregate of applied tickets.
// It is a cache over Ticket records; the reconciliation auditor repairs any
// drift between the two.
type DrawParticipation struct {
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID string `gorm:"primaryKey"`
	User   User   `gorm:"foreignKey:UserID"`

	DrawID string `gorm:"primaryKey"`
	Draw   Draw   `gorm:"foreignKey:DrawID"`

	TicketsUsed int
	IsWinner    bool
}
