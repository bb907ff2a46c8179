package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/ledger"
	"github.com/truburn/claim-ledger/internal/review"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// RegisterUser creates a user with the initial VP grant
	// POST /api/v1/users
	RegisterUser(c *gin.Context)

	// GetBalance returns a user's cached VP balance plus a reconciliation check
	// GET /api/v1/users/:id/balance
	GetBalance(c *gin.Context)

	// ListFeed lists records in a lifecycle bucket: live, investigating, archive
	// GET /api/v1/feed/:bucket
	ListFeed(c *gin.Context)

	// CreateRecord submits a claim
	// POST /api/v1/records
	CreateRecord(c *gin.Context)

	// GetRecord returns a record and its review requests
	// GET /api/v1/records/:id
	GetRecord(c *gin.Context)

	// CreateReviewRequest opens a review request against a record
	// POST /api/v1/records/:id/review-requests
	CreateReviewRequest(c *gin.Context)

	// PreviewResolution computes the resolution for a window centered on a timestamp
	// GET /api/v1/resolution/preview?center=<RFC3339>&hours=<float>
	PreviewResolution(c *gin.Context)

	// SweepExpired settles all past-due review requests
	// POST /api/v1/reviews/sweep
	SweepExpired(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	service *review.Service
	ledger  *ledger.Ledger
}

// NewHandler creates a new REST API handler
func NewHandler(service *review.Service, ldg *ledger.Ledger) Handler {
	return &handler{service: service, ledger: ldg}
}

// RegisterUser creates a user with the initial VP grant
func (h *handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), req.DisplayName, req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// GetBalance returns a user's cached VP balance plus a reconciliation check
func (h *handler) GetBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid user id")
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	reconciled := h.ledger.Reconcile(c.Request.Context(), userID) == nil

	c.JSON(http.StatusOK, BalanceResponse{
		UserID:     userID.String(),
		VPBalance:  balance,
		Reconciled: reconciled,
	})
}

// ListFeed lists records in a lifecycle bucket
func (h *handler) ListFeed(c *gin.Context) {
	bucket := review.FeedBucket(c.Param("bucket"))

	records, err := h.service.ListFeed(c.Request.Context(), bucket)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": toRecordResponses(records)})
}

// CreateRecord submits a claim
func (h *handler) CreateRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := review.CreateRecordParams{
		Title:             req.Title,
		Body:              req.Body,
		EvidenceURL:       req.EvidenceURL,
		TimeOccurredStart: req.TimeOccurredStart,
		TimeOccurredEnd:   req.TimeOccurredEnd,
	}
	if req.CreatedBy != nil {
		createdBy, err := uuid.Parse(*req.CreatedBy)
		if err != nil {
			respondBadRequest(c, "Invalid created_by id")
			return
		}
		params.CreatedBy = &createdBy
	}

	record, err := h.service.CreateRecord(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRecordResponse(record))
}

// GetRecord returns a record and its review requests
func (h *handler) GetRecord(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid record id")
		return
	}

	record, requests, err := h.service.RecordDetail(c.Request.Context(), recordID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecordDetailResponse{
		Record:         toRecordResponse(record),
		ReviewRequests: toReviewRequestResponses(requests),
	})
}

// CreateReviewRequest opens a review request against a record
func (h *handler) CreateReviewRequest(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid record id")
		return
	}

	var req CreateReviewRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	requesterID, err := uuid.Parse(req.RequesterID)
	if err != nil {
		respondBadRequest(c, "Invalid requester id")
		return
	}

	// Challenges default to carrying counter-evidence
	isCounterEvidence := true
	if req.IsCounterEvidence != nil {
		isCounterEvidence = *req.IsCounterEvidence
	}

	request, err := h.service.CreateReviewRequest(c.Request.Context(), recordID, requesterID, req.Reason, req.EvidenceURL, isCounterEvidence)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toReviewRequestResponse(request))
}

// PreviewResolution computes the resolution for a window centered on a timestamp
func (h *handler) PreviewResolution(c *gin.Context) {
	center, err := time.Parse(time.RFC3339, c.Query("center"))
	if err != nil {
		respondBadRequest(c, "Invalid or missing center timestamp (RFC3339)")
		return
	}

	hours, err := strconv.ParseFloat(c.DefaultQuery("hours", "72"), 64)
	if err != nil {
		respondBadRequest(c, "Invalid hours value")
		return
	}

	preview, err := h.service.PreviewResolution(center, hours)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResolutionPreviewResponse(preview))
}

// SweepExpired settles all past-due review requests
func (h *handler) SweepExpired(c *gin.Context) {
	count, err := h.service.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SweepResponse{Finalized: count})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
