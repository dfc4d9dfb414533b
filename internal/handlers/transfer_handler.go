package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proptrust/backend/internal/services"
)

type TransferHandler struct {
	service   *services.TransferService
	validator *services.ValidationHelper
}

func NewTransferHandler(service *services.TransferService) *TransferHandler {
	return &TransferHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type transferRequest struct {
	FromAccountID int64  `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID   int64  `json:"to_account_id" validate:"required,gt=0"`
	Amount        string `json:"amount" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string `json:"description" validate:"max=500"`
}

// Transfer moves funds between two trust accounts
// @Summary Transfer between accounts
// @Description Atomically post a withdrawal on the source and a deposit on the destination
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transfer body transferRequest true "Transfer details"
// @Success 201 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest

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
	date, _ := time.Parse("2006-01-02", req.Date)

	result, err := h.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, amount, date, req.Description)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}
