package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/models"
	"github.com/username/spendwise/backend/src/security/validation"
	"github.com/username/spendwise/backend/src/services"
)

type BudgetHandler struct {
	service services.BudgetService
}

func NewBudgetHandler(service services.BudgetService) *BudgetHandler {
	return &BudgetHandler{service: service}
}

type budgetRequest struct {
	Name        string       `json:"name"`
	Amount      models.Money `json:"amount"`
	Period      string       `json:"period"`
	StartDate   string       `json:"startDate"`
	EndDate     *string      `json:"endDate"`
	IsRecurring *bool        `json:"isRecurring"`
	CategoryID  *int64       `json:"categoryId"`
	Status      string       `json:"status"`
}

func (req *budgetRequest) sanitizeAndValidate() error {
	req.Name = validation.SanitizeText(strings.TrimSpace(req.Name))
	req.StartDate = strings.TrimSpace(req.StartDate)

	if err := validation.ValidateStringNotEmpty(req.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveCents(req.Amount.Cents(), "amount"); err != nil {
		return err
	}
	if err := validation.ValidateOneOf(req.Period, "period",
		models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly, models.PeriodYearly, models.PeriodCustom); err != nil {
		return err
	}
	if err := validation.ValidateDate(req.StartDate, "startDate"); err != nil {
		return err
	}
	if req.EndDate != nil {
		trimmed := strings.TrimSpace(*req.EndDate)
		if trimmed == "" {
			req.EndDate = nil
		} else {
			if err := validation.ValidateDate(trimmed, "endDate"); err != nil {
				return err
			}
			req.EndDate = &trimmed
		}
	}
	return nil
}

func (req *budgetRequest) toInput() services.BudgetInput {
	return services.BudgetInput{
		Name:        req.Name,
		Amount:      req.Amount,
		Period:      req.Period,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsRecurring: req.IsRecurring,
		CategoryID:  req.CategoryID,
		Status:      req.Status,
	}
}

// sendBudgetError maps service failures onto the HTTP surface.
func sendBudgetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrBudgetNotFound):
		sendJSONMsg(w, "Budget not found", http.StatusNotFound)
	case errors.Is(err, services.ErrCategoryNotFound):
		sendJSONMsg(w, "Category not found or unauthorized", http.StatusNotFound)
	case errors.Is(err, services.ErrEndDateRequired), errors.Is(err, services.ErrInvalidEndDate):
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
	default:
		logger.ErrorFromContext(r.Context(), "Budget operation failed", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
	}
}

// ListBudgets returns every matching budget with its spending evaluation.
// Unrecognized filter values are ignored rather than rejected, so a stale
// client query still returns the full list.
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var filter models.BudgetFilter
	if v := r.URL.Query().Get("status"); models.IsValidBudgetStatus(v) {
		filter.Status = v
	}
	if v := r.URL.Query().Get("period"); models.IsValidPeriod(v) {
		filter.Period = v
	}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			filter.CategoryID = id
		}
	}

	evaluations, err := h.service.ListBudgets(r.Context(), userID, filter)
	if err != nil {
		sendBudgetError(w, r, err)
		return
	}
	if evaluations == nil {
		evaluations = []models.BudgetEvaluation{}
	}
	writeJSON(w, http.StatusOK, evaluations)
}

func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Budget not found", http.StatusNotFound)
		return
	}

	detail, err := h.service.GetBudget(r.Context(), id, userID)
	if err != nil {
		sendBudgetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}

	budget, err := h.service.CreateBudget(r.Context(), userID, req.toInput())
	if err != nil {
		sendBudgetError(w, r, err)
		return
	}

	logger.InfoFromContext(r.Context(), "Budget created", "budgetID", budget.ID)
	writeJSON(w, http.StatusCreated, budget)
}

func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Budget not found", http.StatusNotFound)
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}

	budget, err := h.service.UpdateBudget(r.Context(), id, userID, req.toInput())
	if err != nil {
		sendBudgetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) UpdateBudgetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Budget not found", http.StatusNotFound)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.IsValidBudgetStatus(body.Status) {
		sendJSONMsg(w, "status must be one of: active, completed, cancelled", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateBudgetStatus(r.Context(), id, userID, body.Status); err != nil {
		sendBudgetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
}

func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Budget not found", http.StatusNotFound)
		return
	}

	if err := h.service.DeleteBudget(r.Context(), id, userID); err != nil {
		sendBudgetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Budget removed"})
}
