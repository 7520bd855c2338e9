package handlers

import (
	"strconv"

	"github.com/spec-kit/redemption-queue/internal/api/dto"
	"github.com/spec-kit/redemption-queue/internal/domain"
)

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func publicTicket(v *domain.TicketView) dto.PublicTicketResponse {
	return dto.PublicTicketResponse{
		QueueNumber:     v.QueueNumber,
		ProductType:     v.ProductType,
		Status:          v.Status,
		RobloxUsername:  v.RobloxUsername,
		ProblemCategory: v.ProblemCategory,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

// adminTicket renders the merged fields of v, not the ticket's raw columns.
func adminTicket(v *domain.TicketView) dto.AdminTicketResponse {
	return dto.AdminTicketResponse{
		ID:                  v.ID,
		QueueNumber:         v.QueueNumber,
		ContactInfo:         v.ContactInfo,
		ProductType:         v.ProductType,
		Status:              v.Status,
		AdminNotes:          v.AdminNotes,
		ProblemCategory:     v.ProblemCategory,
		CustomerName:        v.CustomerName,
		RobloxUsername:      v.RobloxUsername,
		RobloxPassword:      v.RobloxPassword,
		RobuxAmount:         v.RobuxAmount,
		AssignedCode:        v.AssignedCode,
		AssignedAccountCode: v.AssignedAccountCode,
		CodeID:              v.CodeID,
		RedemptionRequestID: v.RedemptionRequestID,
		MatchedRequestID:    v.MatchedRequestID,
		MatchRule:           v.MatchRule.String(),
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
