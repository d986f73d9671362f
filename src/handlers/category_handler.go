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

type CategoryHandler struct {
	store services.CategoryStore
}

func NewCategoryHandler(store services.CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (req *categoryRequest) sanitizeAndValidate() error {
	req.Name = validation.SanitizeText(strings.TrimSpace(req.Name))
	req.Description = validation.SanitizeText(strings.TrimSpace(req.Description))
	req.Icon = validation.StripUnprintable(strings.TrimSpace(req.Icon))

	if err := validation.ValidateStringNotEmpty(req.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	if err := validation.ValidateOneOf(req.Type, "type", models.TypeExpense, models.TypeIncome); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Description, validation.MaxDescriptionLength, "description"); err != nil {
		return err
	}
	return validation.ValidateStringMaxLength(req.Icon, validation.MaxIconLength, "icon")
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	categories, err := h.store.FindMany(r.Context(), userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list categories", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}

	category := &models.Category{
		UserID:      userID,
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Icon:        req.Icon,
	}
	if err := h.store.Create(r.Context(), category); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create category", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}

	logger.InfoFromContext(r.Context(), "Category created", "categoryID", category.ID)
	writeJSON(w, http.StatusCreated, category)
}

// loadOwnedCategory enforces the 404-before-401 distinction: a missing
// category and someone else's category produce different statuses.
func (h *CategoryHandler) loadOwnedCategory(w http.ResponseWriter, r *http.Request, userID int64) *models.Category {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Category not found", http.StatusNotFound)
		return nil
	}

	category, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Category not found", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to load category", "categoryID", id, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return nil
	}
	if category.UserID != userID {
		sendJSONMsg(w, "User not authorized", http.StatusUnauthorized)
		return nil
	}
	return category
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	category := h.loadOwnedCategory(w, r, userID)
	if category == nil {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONMsg(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = category.Type
	}
	if err := req.sanitizeAndValidate(); err != nil {
		sendJSONMsg(w, err.Error(), http.StatusBadRequest)
		return
	}

	category.Name = req.Name
	category.Type = req.Type
	category.Description = req.Description
	category.Icon = req.Icon
	if err := h.store.Update(r.Context(), category); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update category", "categoryID", category.ID, "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	category := h.loadOwnedCategory(w, r, userID)
	if category == nil {
		return
	}

	if err := h.store.Delete(r.Context(), category.ID); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to delete category", "categoryID", category.ID, "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Category removed"})
}
