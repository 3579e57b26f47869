/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the monthly payroll pipeline via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the orchestrator
  and the batch driver.

ENDPOINTS:
  Calculation:
    POST   /api/payroll/calculate                           Batch calculation for a month

  Statements:
    GET    /api/paystatements?month=YYYY-MM                 List statements of a month
    GET    /api/paystatements/{employeeCode}/{month}        Get one statement
    POST   /api/paystatements/{employeeCode}/{month}/approve Approve one statement
    POST   /api/paystatements/approve?month=YYYY-MM         Close the whole month

  Scenarios (development only):
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Reset the database and load a scenario

  Health:
    GET    /health

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (statement reads, scenario seeding)
  - Orchestrator: Single-employee calculation and approval
  - Batch: Bounded parallel calculation with per-employee failures

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, or a batch where every employee failed
  - 207: Batch where some employees failed
  - 404: Statement or employee not found
  - 409: Statement is APPROVED
  - 422: Missing configuration, pending leave/overtime request
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Orchestrator *payroll.Orchestrator
	Batch        *payroll.Batch

	// Scenario loading wipes the database; it is only routed when enabled.
	ScenariosEnabled bool

	logger *slog.Logger
}

// NewHandler creates a new handler with the given store. The batch runs up
// to workers calculations at a time.
func NewHandler(store *sqlite.Store, workers int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	o := payroll.NewOrchestrator(store, payroll.WithLogger(logger))
	return &Handler{
		Store:        store,
		Orchestrator: o,
		Batch:        payroll.NewBatch(o, workers, logger),
		logger:       logger,
	}
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate runs the batch for the requested employees.
// POST /api/payroll/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	month, err := generic.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	codes := make([]payroll.EmployeeCode, len(req.EmployeeCodes))
	for i, c := range req.EmployeeCodes {
		codes[i] = payroll.EmployeeCode(c)
	}

	res := h.Batch.Run(r.Context(), month, codes)

	resp := CalculateResponse{
		Month:        month.String(),
		Total:        res.Total,
		SuccessCount: res.SuccessCount(),
		Statements:   make([]PayStatementDTO, len(res.Statements)),
		Failures:     make([]string, len(res.Failures)),
	}
	for i, s := range res.Statements {
		resp.Statements[i] = toPayStatementDTO(s)
	}
	for i, f := range res.Failures {
		resp.Failures[i] = f.Message()
	}

	status := http.StatusOK
	switch {
	case res.Total == 0 || resp.SuccessCount == 0:
		status = http.StatusBadRequest
	case len(res.Failures) > 0:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// STATEMENTS
// =============================================================================

// ListStatements returns every statement of a month.
// GET /api/paystatements?month=YYYY-MM
func (h *Handler) ListStatements(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r.URL.Query().Get("month"))
	if !ok {
		return
	}

	stmts, err := h.Store.ListStatements(r.Context(), month)
	if err != nil {
		writeDomainError(w, "Failed to list statements", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayStatementDTOs(stmts))
}

// GetStatement returns one statement.
// GET /api/paystatements/{employeeCode}/{month}
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	emp := payroll.EmployeeCode(chi.URLParam(r, "employeeCode"))
	month, ok := monthParam(w, chi.URLParam(r, "month"))
	if !ok {
		return
	}

	stmt, err := h.Store.GetStatement(r.Context(), emp, month)
	if err != nil {
		writeDomainError(w, "Failed to get statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayStatementDTO(stmt))
}

// ApproveStatement moves one DRAFT statement to APPROVED.
// POST /api/paystatements/{employeeCode}/{month}/approve
func (h *Handler) ApproveStatement(w http.ResponseWriter, r *http.Request) {
	emp := payroll.EmployeeCode(chi.URLParam(r, "employeeCode"))
	month, ok := monthParam(w, chi.URLParam(r, "month"))
	if !ok {
		return
	}

	stmt, err := h.Orchestrator.Approve(r.Context(), emp, month)
	if err != nil {
		writeDomainError(w, "Failed to approve statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayStatementDTO(stmt))
}

// ApprovePeriod closes every DRAFT statement of a month.
// POST /api/paystatements/approve?month=YYYY-MM
func (h *Handler) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r.URL.Query().Get("month"))
	if !ok {
		return
	}

	n, err := h.Orchestrator.ApprovePeriod(r.Context(), month)
	if err != nil {
		writeDomainError(w, "Failed to approve period", err)
		return
	}
	writeJSON(w, http.StatusOK, ApprovePeriodResponse{Month: month.String(), Approved: n})
}

// Health reports whether the database is reachable.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func monthParam(w http.ResponseWriter, raw string) (generic.Month, bool) {
	if raw == "" {
		writeError(w, http.StatusBadRequest, "month is required (YYYY-MM)", nil)
		return generic.Month{}, false
	}
	month, err := generic.ParseMonth(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return generic.Month{}, false
	}
	return month, true
}

// statusFor maps payroll errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case payroll.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrImmutableState):
		return http.StatusConflict
	case payroll.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
