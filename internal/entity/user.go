package entity

import (
	"database/sql"

	"github.com/ticketdraw/backend/pkg/enum"
)

type GlobalRole string

var (
	RoleSuperAdmin = enum.New(GlobalRole("super_admin"))
	RoleAdmin      = enum.New(GlobalRole("admin"))
	RoleUser       = enum.New(GlobalRole("user"))
)

var GlobalAdminRoles = []GlobalRole{RoleSuperAdmin, RoleAdmin}

type User struct {
	Base

	Name  string `gorm:"unique"`
	Email string
	Role  GlobalRole `gorm:"default:user"`

	// AvailableTickets is the redeemable balance, zeroed on every draw
	// reset. TotalTickets is the lifetime counter and never decreases.
	AvailableTickets int
	TotalTickets     int

	HasWon      bool
	LastWinDate sql.NullTime

	ReferralCode string `gorm:"unique"`

	// ReferredBy is a weak reference to the user who invited this one.
	ReferredBy     sql.NullString
	ReferredByUser *User `gorm:"foreignKey:ReferredBy"`
}
