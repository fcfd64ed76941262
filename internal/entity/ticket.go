package entity

import (
	"database/sql"

	"github.com/ticketdraw/backend/pkg/enum"
)

type TicketSource string

var (
	SourceSurvey   = enum.New(TicketSource("survey"))
	SourceSocial   = enum.New(TicketSource("social"))
	SourceReferral = enum.New(TicketSource("referral"))

	// SourceEmergency marks operator-issued recovery tickets. Keeping them
	// out of the survey source preserves the first-survey referral check.
	SourceEmergency = enum.New(TicketSource("emergency"))
)

// Ticket is one immutable unit of lottery entry. It is never deleted except
// by an explicit reconciliation repair.
type Ticket struct {
	Base

	UserID string
	User   User `gorm:"foreignKey:UserID"`

	Source TicketSource

	// TransactionID is the external idempotency token of the event which
	// created this ticket. Referral tickets embed the referred user id here.
	TransactionID string `gorm:"unique"`

	IsApplied bool
	DrawID    sql.NullString
}
