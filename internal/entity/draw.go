package entity

import (
	"database/sql"
	"time"

	"github.com/ticketdraw/backend/pkg/enum"
)

type DrawStatus string

var (
	DrawOpen      = enum.New(DrawStatus("open"))
	DrawCompleted = enum.New(DrawStatus("completed"))
	DrawCancelled = enum.New(DrawStatus("cancelled"))
)

type Draw struct {
	Base

	TargetDate   time.Time
	Prize        int64
	TotalTickets int
	Status       DrawStatus

	// OpenKey holds a constant while the draw is open and NULL afterwards.
	// The unique index on it guarantees at most one open draw at a time.
	OpenKey sql.NullString `gorm:"unique"`

	WinnerUserID sql.NullString
	WinnerUser   *User `gorm:"foreignKey:WinnerUserID"`
}

// OpenKeyValue is the only value ever stored in Draw.OpenKey.
const OpenKeyValue = "open"
