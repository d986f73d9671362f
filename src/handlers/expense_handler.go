package handlers

import (
	"database/sql"
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

type ExpenseHandler struct {
	expenses   services.ExpenseStore
	categories services.CategoryStore
}

func NewExpenseHandler(expenses services.ExpenseStore, categories services.CategoryStore) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, categories: categories}
}

type expenseRequest struct {
	Amount      models.Money `json:"amount"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	Type        string       `json:"type"`
	CategoryID  int64        `json:"categoryId"`
}

func (req *expenseRequest) sanitizeAndValidate() error {
	req.Description = validation.SanitizeText(strings.TrimSpace(req.Description))
	req.Date = strings.TrimSpace(req.Date)

	if err := validation.ValidatePositiveCents(req.Amount.Cents(), "amount"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Description, validation.MaxDescriptionLength, "description"); err != nil {
		return err
	}
	if err := validation.ValidateDate(req.Date, "date"); err != nil {
		return err
	}
	if req.Type == "" {
		req.Type = models.TypeExpense
	}
	return validation.ValidateOneOf(req.Type, "type", models.TypeExpense, models.TypeIncome)
}

// checkCategory verifies the target category exists and belongs to the
// caller before an expense is attached to it.
func (h *ExpenseHandler) checkCategory(w http.ResponseWriter, r *http.Request, categoryID, userID int64) bool {
	if categoryID <= 0 {
		sendJSONMsg(w, "Category not found or unauthorized", http.StatusNotFound)
		return false
	}
	if _, err := h.categories.FindOne(r.Context(), categoryID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Category not found or unauthorized", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to check category ownership", "categoryID", categoryID, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return false
	}
	return true
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	q := models.ExpenseQuery{
		SortBy:    r.URL.Query().Get("sortBy"),
		SortOrder: r.URL.Query().Get("sortOrder"),
	}

	if v := r.URL.Query().Get("startDate"); v != "" && models.ValidDate(v) {
		q.StartDate = v
	}
	if v := r.URL.Query().Get("endDate"); v != "" && models.ValidDate(v) {
		q.EndDate = v
	}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.CategoryID = id
		}
	}
	if v := r.URL.Query().Get("type"); models.IsValidTransactionType(v) {
		q.Type = v
	}
	if v := r.URL.Query().Get("minAmount"); v != "" {
		if m, err := models.ParseCents(v); err == nil {
			q.MinAmount = m
		}
	}
	if v := r.URL.Query().Get("maxAmount"); v != "" {
		if m, err := models.ParseCents(v); err == nil {
			q.MaxAmount = m
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			q.Offset = n
		}
	}

	expenses, count, err := h.expenses.List(r.Context(), userID, q)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list expenses", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    count,
		"expenses": expenses,
	})
}

func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		return
	}

	expense, err := h.expenses.FindOne(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to load expense", "expenseID", id, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.checkCategory(w, r, req.CategoryID, userID) {
		return
	}

	expense := &models.Expense{
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
		Type:        req.Type,
		CategoryID:  req.CategoryID,
	}
	if err := h.expenses.Create(r.Context(), expense); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create expense", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}

	// Reload so the response carries the joined category.
	created, err := h.expenses.FindOne(r.Context(), expense.ID, userID)
	if err != nil {
		created = expense
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		return
	}

	expense, err := h.expenses.FindOne(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to load expense for update", "expenseID", id, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = expense.Type
	}
	if req.Date == "" {
		req.Date = expense.Date
	}
	if req.CategoryID == 0 {
		req.CategoryID = expense.CategoryID
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CategoryID != expense.CategoryID && !h.checkCategory(w, r, req.CategoryID, userID) {
		return
	}

	expense.Amount = req.Amount
	expense.Description = req.Description
	expense.Date = req.Date
	expense.Type = req.Type
	expense.CategoryID = req.CategoryID
	if err := h.expenses.Update(r.Context(), expense); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update expense", "expenseID", id, "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}

	updated, err := h.expenses.FindOne(r.Context(), id, userID)
	if err != nil {
		updated = expense
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		return
	}

	if err := h.expenses.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Expense not found", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to delete expense", "expenseID", id, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Expense removed"})
}
