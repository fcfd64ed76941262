package model

type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Role             string `json:"role,omitempty"`
	AvailableTickets int    `json:"available_tickets"`
	TotalTickets     int    `json:"total_tickets"`
	HasWon           bool   `json:"has_won"`
	LastWinDate      string `json:"last_win_date,omitempty"`
	ReferralCode     string `json:"referral_code,omitempty"`
	ReferredBy       string `json:"referred_by,omitempty"`
}

type GetUserRequest struct{}

type GetUserResponse struct {
	User User `json:"user"`
}
