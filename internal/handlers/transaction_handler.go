package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/config"
	"github.com/proptrust/backend/internal/middleware"
	"github.com/proptrust/backend/internal/services"
)

type TransactionHandler struct {
	posting        *services.PostingService
	reconciliation *services.ReconciliationService
	cfg            *config.LedgerConfig
	validator      *services.ValidationHelper
}

func NewTransactionHandler(posting *services.PostingService, reconciliation *services.ReconciliationService, cfg *config.LedgerConfig) *TransactionHandler {
	return &TransactionHandler{
		posting:        posting,
		reconciliation: reconciliation,
		cfg:            cfg,
		validator:      services.NewValidationHelper(),
	}
}

type postTransactionRequest struct {
	TransactionType string `json:"transaction_type" validate:"required,oneof=deposit withdrawal interest fee"`
	Amount          string `json:"amount" validate:"required"`
	TransactionDate string `json:"transaction_date" validate:"required,datetime=2006-01-02"`
	Description     string `json:"description" validate:"max=500"`
	ReferenceNumber string `json:"reference_number" validate:"max=64"`
	TenantID        *int64 `json:"tenant_id" validate:"omitempty,gt=0"`
	LeaseID         *int64 `json:"lease_id" validate:"omitempty,gt=0"`
}

// PostTransaction appends one ledger transaction
// @Summary Post a transaction
// @Description Post a deposit, withdrawal, fee or interest transaction against an account
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param transaction body postTransactionRequest true "Transaction data"
// @Success 201 {object} models.TrustTransaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions [post]
func (h *TransactionHandler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	var req postTransactionRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, nil)
		return
	}
	date, _ := time.Parse("2006-01-02", req.TransactionDate)

	txn, err := h.posting.Post(r.Context(), &services.PostingRequest{
		AccountID:       accountID,
		TransactionType: req.TransactionType,
		Amount:          amount,
		TransactionDate: date,
		Description:     req.Description,
		ReferenceNumber: req.ReferenceNumber,
		TenantID:        req.TenantID,
		LeaseID:         req.LeaseID,
	})
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(txn)
}

// GetTransaction fetches one ledger row
// @Summary Get transaction by ID
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param txId path int true "Transaction ID"
// @Success 200 {object} models.TrustTransaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{txId} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathID(w, r, "txId")
	if !ok {
		return
	}

	txn, err := h.posting.GetTransaction(r.Context(), txID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// ListTransactions fetches an account's ledger with filters
// @Summary List account transactions
// @Description List an account's transactions, filterable by date range, type and reconciliation status
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param type query string false "Transaction type"
// @Param reconciled query bool false "Reconciliation status"
// @Param limit query int false "Row limit"
// @Success 200 {object} object{transactions=[]models.TrustTransaction,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	filter := &services.TransactionFilter{Limit: h.cfg.DefaultTxLimit}
	q := r.URL.Query()

	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			services.SendErrorResponse(w, "Invalid from date", http.StatusBadRequest, nil)
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			services.SendErrorResponse(w, "Invalid to date", http.StatusBadRequest, nil)
			return
		}
		filter.To = t
	}
	if txType := q.Get("type"); txType != "" {
		filter.TransactionType = txType
	}
	if rec := q.Get("reconciled"); rec != "" {
		reconciled := rec == "true"
		filter.Reconciled = &reconciled
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if filter.Limit > h.cfg.MaxTxLimit {
		filter.Limit = h.cfg.MaxTxLimit
	}

	transactions, err := h.posting.ListTransactions(r.Context(), accountID, filter)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

type reconcileRequest struct {
	TransactionIDs     []int64 `json:"transaction_ids" validate:"required,min=1,dive,gt=0"`
	ReconciliationDate string  `json:"reconciliation_date" validate:"required,datetime=2006-01-02"`
}

// Reconcile marks transactions as reconciled
// @Summary Reconcile transactions
// @Description Mark a batch of transactions as reconciled against an external statement; idempotent
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body reconcileRequest true "Transaction ids and reconciliation date"
// @Success 200 {object} object{reconciled=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/reconcile [post]
func (h *TransactionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	var req reconcileRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	date, _ := time.Parse("2006-01-02", req.ReconciliationDate)
	changed, err := h.reconciliation.Reconcile(r.Context(), accountID, req.TransactionIDs, date, userID)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"reconciled": changed})
}
