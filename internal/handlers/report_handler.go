package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/proptrust/backend/internal/services"
)

type ReportHandler struct {
	statements *services.StatementService
	audit      *services.AuditService
}

func NewReportHandler(statements *services.StatementService, audit *services.AuditService) *ReportHandler {
	return &ReportHandler{statements: statements, audit: audit}
}

// GetStatement renders an account statement
// @Summary Generate account statement
// @Description Generate a statement over a date range, as JSON or CSV
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Param format query string false "json or csv" default(json)
// @Success 200 {object} models.Statement
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/statement [get]
func (h *ReportHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountId")
	if !ok {
		return
	}

	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}

	statement, err := h.statements.Generate(r.Context(), accountID, from, to)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		filename := fmt.Sprintf("statement-%d-%s.csv", accountID, from.Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := statement.WriteCSV(w); err != nil {
			services.SendErrorResponse(w, "Failed to render statement", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statement)
}

// GetAuditReport renders a property-level audit report
// @Summary Generate property audit report
// @Description Statements for every trust account of the property plus deposit-compliance checks
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param propertyId path int true "Property ID"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} models.AuditReport
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /properties/{propertyId}/audit-report [get]
func (h *ReportHandler) GetAuditReport(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := pathID(w, r, "propertyId")
	if !ok {
		return
	}

	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}

	report, err := h.audit.GenerateReport(r.Context(), propertyID, from, to)
	if err != nil {
		services.SendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid or missing from date", http.StatusBadRequest, nil)
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid or missing to date", http.StatusBadRequest, nil)
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		services.SendErrorResponse(w, "to date precedes from date", http.StatusBadRequest, nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
