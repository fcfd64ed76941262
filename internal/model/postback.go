package model

// PostbackRequest is the inbound completion notification of the external
// offer provider. It is delivered at least once; completion_status is 1 for
// a fully completed task and anything else for partial or disqualified ones.
type PostbackRequest struct {
	UserID                string `json:"user_id"`
	ExternalTransactionID string `json:"external_transaction_id"`
	CompletionStatus      int    `json:"completion_status"`
	AuthHash              string `json:"auth_hash"`
	TestMode              bool   `json:"test_mode"`
}

const (
	PostbackStatusCredited     = "credited"
	PostbackStatusDuplicate    = "duplicate"
	PostbackStatusNotCompleted = "not_completed"
)

type PostbackResponse struct {
	Credited       bool   `json:"credited"`
	Status         string `json:"status"`
	AwardedTickets int    `json:"awarded_tickets,omitempty"`
}
