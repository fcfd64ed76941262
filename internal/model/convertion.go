package model

import (
	"time"

	"github.com/ticketdraw/backend/internal/entity"
)

func ConvertUser(user *entity.User) User {
	if user == nil {
		return User{}
	}

	resp := User{
		ID:               user.ID,
		Name:             user.Name,
		Role:             string(user.Role),
		AvailableTickets: user.AvailableTickets,
		TotalTickets:     user.TotalTickets,
		HasWon:           user.HasWon,
		ReferralCode:     user.ReferralCode,
	}

	if user.LastWinDate.Valid {
		resp.LastWinDate = user.LastWinDate.Time.Format(time.RFC3339)
	}

	if user.ReferredBy.Valid {
		resp.ReferredBy = user.ReferredBy.String
	}

	return resp
}

func ConvertDraw(draw *entity.Draw) Draw {
	if draw == nil {
		return Draw{}
	}

	resp := Draw{
		ID:           draw.ID,
		TargetDate:   draw.TargetDate.Format(time.RFC3339),
		Prize:        draw.Prize,
		TotalTickets: draw.TotalTickets,
		Status:       string(draw.Status),
	}

	if draw.WinnerUserID.Valid {
		resp.WinnerUserID = draw.WinnerUserID.String
	}

	return resp
}

func ConvertDrawParticipation(participation *entity.DrawParticipation) DrawParticipation {
	if participation == nil {
		return DrawParticipation{}
	}

	return DrawParticipation{
		UserID:      participation.UserID,
		DrawID:      participation.DrawID,
		TicketsUsed: participation.TicketsUsed,
		IsWinner:    participation.IsWinner,
	}
}
