package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/username/spendwise/backend/src/database"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/model"
)

// ContextualLoggerMiddleware attaches a request-scoped logger carrying a
// request ID, method, and path to the context.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		reqLogger := logger.L.With(
			"requestID", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx := logger.ToContext(r.Context(), reqLogger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the bearer access token and requires a live
// session row for it, so revoked tokens stop working immediately.
func (h *UserHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			sendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		subject, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			sendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		session, err := model.GetSessionByToken(database.DB, tokenString)
		if err != nil {
			logger.WarnFromContext(r.Context(), "Token valid but no live session", "error", err)
			sendJSONError(w, "Session expired or revoked", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil || userID != session.UserID {
			sendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		reqLogger := logger.FromContext(r.Context()).With("userID", userID)
		ctx := logger.ToContext(r.Context(), reqLogger)
		ctx = context.WithValue(ctx, userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
