package model

const (
	DiscrepancyCountMismatch      = "count_mismatch"
	DiscrepancyOrphanRow          = "orphan_row"
	DiscrepancyMissingRow         = "missing_row"
	DiscrepancyBalanceOverApplied = "balance_over_applied"
)

type Discrepancy struct {
	DrawID   string `json:"draw_id"`
	Type     string `json:"type"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

type VerifyTicketsRequest struct {
	UserID string `json:"user_id"`
}

type VerifyTicketsResponse struct {
	HasDiscrepancy bool          `json:"has_discrepancy"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
}

type RepairTicketsRequest struct {
	UserID string `json:"user_id"`
}

type RepairTicketsResponse struct {
	Repaired []Discrepancy `json:"repaired"`
}

type IssueEmergencyTicketRequest struct {
	UserID string `json:"user_id"`
}

type IssueEmergencyTicketResponse struct {
	TicketID string `json:"ticket_id"`
}
