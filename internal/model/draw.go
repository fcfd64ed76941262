package model

type Draw struct {
	ID           string `json:"id"`
	TargetDate   string `json:"target_date"`
	Prize        int64  `json:"prize"`
	TotalTickets int    `json:"total_tickets"`
	Status       string `json:"status"`
	WinnerUserID string `json:"winner_user_id,omitempty"`
}

type DrawParticipation struct {
	UserID      string `json:"user_id"`
	DrawID      string `json:"draw_id"`
	TicketsUsed int    `json:"tickets_used"`
	IsWinner    bool   `json:"is_winner"`
}

type GetCurrentDrawRequest struct{}

type GetCurrentDrawResponse struct {
	Draw Draw `json:"draw"`
}

type CloseDrawsRequest struct{}

type CloseDrawsResponse struct {
	Closed []Draw `json:"closed"`
}

type PickWinnerRequest struct {
	DrawID string `json:"draw_id"`
	UserID string `json:"user_id"`
}

type PickWinnerResponse struct {
	Draw Draw `json:"draw"`
}
