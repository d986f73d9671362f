package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/models"
	"github.com/username/spendwise/backend/src/services"
)

type NotificationHandler struct {
	store services.NotificationStore
}

func NewNotificationHandler(store services.NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	notifications, err := h.store.ListForUser(r.Context(), userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list notifications", "error", err)
		sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONMsg(w, "Notification not found", http.StatusNotFound)
		return
	}

	if err := h.store.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONMsg(w, "Notification not found", http.StatusNotFound)
		} else {
			logger.ErrorFromContext(r.Context(), "Failed to mark notification read", "notificationID", id, "error", err)
			sendJSONMsg(w, "Server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "isRead": true})
}
