package rest

import (
	"time"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/review"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

// RegisterUserRequest is the body of POST /api/v1/users
type RegisterUserRequest struct {
	DisplayName   string `json:"display_name" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// UserResponse is the wire representation of a user
type UserResponse struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	WalletAddress string     `json:"wallet_address"`
	VPBalance     int        `json:"vp_balance"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// BalanceResponse is the wire representation of a user's ledger state
type BalanceResponse struct {
	UserID     string `json:"user_id"`
	VPBalance  int    `json:"vp_balance"`
	Reconciled bool   `json:"reconciled"`
}

// CreateRecordRequest is the body of POST /api/v1/records
type CreateRecordRequest struct {
	Title             string    `json:"title" binding:"required"`
	Body              string    `json:"body" binding:"required"`
	EvidenceURL       *string   `json:"evidence_url,omitempty"`
	TimeOccurredStart time.Time `json:"time_occurred_start" binding:"required"`
	TimeOccurredEnd   time.Time `json:"time_occurred_end" binding:"required"`
	CreatedBy         *string   `json:"created_by,omitempty"`
}

// RecordResponse is the wire representation of a record
type RecordResponse struct {
	ID                   string              `json:"id"`
	Title                string              `json:"title"`
	Body                 string              `json:"body"`
	EvidenceURL          *string             `json:"evidence_url,omitempty"`
	TimeOccurredStart    time.Time           `json:"time_occurred_start"`
	TimeOccurredEnd      time.Time           `json:"time_occurred_end"`
	ResolutionLevel      int                 `json:"resolution_level"`
	ResolutionMultiplier float64             `json:"resolution_multiplier"`
	Status               domain.RecordStatus `json:"status"`
	CreatedBy            *string             `json:"created_by,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// RecordDetailResponse is the wire representation of a record and its review requests
type RecordDetailResponse struct {
	Record         RecordResponse          `json:"record"`
	ReviewRequests []ReviewRequestResponse `json:"review_requests"`
}

// CreateReviewRequestRequest is the body of POST /api/v1/records/:id/review-requests
type CreateReviewRequestRequest struct {
	RequesterID       string `json:"requester_id" binding:"required"`
	Reason            string `json:"reason" binding:"required"`
	EvidenceURL       string `json:"evidence_url" binding:"required"`
	IsCounterEvidence *bool  `json:"is_counter_evidence,omitempty"`
}

// ReviewRequestResponse is the wire representation of a review request
type ReviewRequestResponse struct {
	ID                string              `json:"id"`
	RecordID          string              `json:"record_id"`
	RequesterID       *string             `json:"requester_id,omitempty"`
	Reason            string              `json:"reason"`
	EvidenceURL       string              `json:"evidence_url"`
	IsCounterEvidence bool                `json:"is_counter_evidence"`
	Status            domain.ReviewStatus `json:"status"`
	Verdict           *domain.Verdict     `json:"verdict,omitempty"`
	ExpiresAt         time.Time           `json:"expires_at"`
	FinalizedAt       *time.Time          `json:"finalized_at,omitempty"`
	VPCost            int                 `json:"vp_cost"`
	CreatedAt         time.Time           `json:"created_at"`
}

// ResolutionPreviewResponse is the wire representation of a resolution preview
type ResolutionPreviewResponse struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Level      int       `json:"level"`
	Multiplier float64   `json:"multiplier"`
}

// SweepResponse is the result of a manually triggered sweep
type SweepResponse struct {
	Finalized int `json:"finalized"`
}

func toUserResponse(user *schema.User) UserResponse {
	return UserResponse{
		ID:            user.ID.String(),
		DisplayName:   user.DisplayName,
		WalletAddress: user.WalletAddress,
		VPBalance:     user.VPBalance,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}

func toRecordResponse(record *schema.Record) RecordResponse {
	var createdBy *string
	if record.CreatedBy != nil {
		s := record.CreatedBy.String()
		createdBy = &s
	}
	return RecordResponse{
		ID:                   record.ID.String(),
		Title:                record.Title,
		Body:                 record.Body,
		EvidenceURL:          record.EvidenceURL,
		TimeOccurredStart:    record.TimeOccurredStart,
		TimeOccurredEnd:      record.TimeOccurredEnd,
		ResolutionLevel:      record.ResolutionLevel,
		ResolutionMultiplier: record.ResolutionMultiplier,
		Status:               record.Status,
		CreatedBy:            createdBy,
		CreatedAt:            record.CreatedAt,
		UpdatedAt:            record.UpdatedAt,
	}
}

func toRecordResponses(records []*schema.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	return out
}

func toReviewRequestResponse(request *schema.ReviewRequest) ReviewRequestResponse {
	var requesterID *string
	if request.RequesterID != nil {
		s := request.RequesterID.String()
		requesterID = &s
	}
	return ReviewRequestResponse{
		ID:                request.ID.String(),
		RecordID:          request.RecordID.String(),
		RequesterID:       requesterID,
		Reason:            request.Reason,
		EvidenceURL:       request.EvidenceURL,
		IsCounterEvidence: request.IsCounterEvidence,
		Status:            request.Status,
		Verdict:           request.Verdict,
		ExpiresAt:         request.ExpiresAt,
		FinalizedAt:       request.FinalizedAt,
		VPCost:            request.VPCost,
		CreatedAt:         request.CreatedAt,
	}
}

func toReviewRequestResponses(requests []*schema.ReviewRequest) []ReviewRequestResponse {
	out := make([]ReviewRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, toReviewRequestResponse(request))
	}
	return out
}

func toResolutionPreviewResponse(preview review.ResolutionPreview) ResolutionPreviewResponse {
	return ResolutionPreviewResponse{
		Start:      preview.Start,
		End:        preview.End,
		Level:      preview.Level,
		Multiplier: preview.Multiplier,
	}
}
