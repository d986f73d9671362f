package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/spendwise/backend/src/config"
	"github.com/username/spendwise/backend/src/database"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/model"
	"github.com/username/spendwise/backend/src/models"
	"github.com/username/spendwise/backend/src/security"
	"github.com/username/spendwise/backend/src/security/validation"
	"github.com/username/spendwise/backend/src/services"
	"golang.org/x/oauth2"
)

type contextKey string

const userIDContextKey contextKey = "userID"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{6,}$`)

var googleOauthConfig *oauth2.Config

type UserHandler struct {
	authService *security.AuthService
	categories  services.CategoryStore
	// loginAttempts counts recent failed logins per email so brute
	// force attempts back off before bcrypt does the work.
	loginAttempts *cache.Cache
}

func NewUserHandler(authService *security.AuthService, categories services.CategoryStore, loginAttempts *cache.Cache) *UserHandler {
	return &UserHandler{
		authService:   authService,
		categories:    categories,
		loginAttempts: loginAttempts,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendJSONMsg writes the {"msg": ...} error shape used by the resource
// endpoints (categories, expenses, budgets, notifications).
func sendJSONMsg(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"msg": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

// Default categories seeded for every new account, so budgets and
// expenses have something to attach to from day one.
var defaultCategories = []models.Category{
	{Name: "Food & Dining", Type: models.TypeExpense, Description: "Restaurants, groceries, and food delivery", Icon: "🍽️"},
	{Name: "Transportation", Type: models.TypeExpense, Description: "Public transit, fuel, car maintenance", Icon: "🚗"},
	{Name: "Housing", Type: models.TypeExpense, Description: "Rent, utilities, maintenance", Icon: "🏠"},
	{Name: "Entertainment", Type: models.TypeExpense, Description: "Movies, games, hobbies", Icon: "🎮"},
	{Name: "Shopping", Type: models.TypeExpense, Description: "Clothing, electronics, personal items", Icon: "🛍️"},
	{Name: "Healthcare", Type: models.TypeExpense, Description: "Medical expenses, medications, insurance", Icon: "⚕️"},
	{Name: "Education", Type: models.TypeExpense, Description: "Tuition, books, courses", Icon: "📚"},
	{Name: "Bills & Utilities", Type: models.TypeExpense, Description: "Phone, internet, electricity", Icon: "📱"},
	{Name: "Salary", Type: models.TypeIncome, Description: "Regular employment income", Icon: "💰"},
	{Name: "Investments", Type: models.TypeIncome, Description: "Stock dividends, interest, capital gains", Icon: "📈"},
	{Name: "Freelance", Type: models.TypeIncome, Description: "Contract work and side gigs", Icon: "💻"},
	{Name: "Gifts", Type: models.TypeIncome, Description: "Money received as gifts", Icon: "🎁"},
}

// seedDefaultCategories creates the starter set for a new user. Failures
// are logged but never fail the registration; the user can create
// categories manually.
func (h *UserHandler) seedDefaultCategories(ctx context.Context, userID int64) {
	for _, c := range defaultCategories {
		category := c
		category.UserID = userID
		if err := h.categories.Create(ctx, &category); err != nil {
			logger.L.Error("Failed to seed default category", "userID", userID, "category", c.Name, "error", err)
		}
	}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Username = validation.SanitizeText(strings.TrimSpace(credentials.Username))
	credentials.Email = strings.ToLower(validation.SanitizeText(strings.TrimSpace(credentials.Email)))
	credentials.Password = strings.TrimSpace(credentials.Password)

	if credentials.Username == "" && strings.Contains(credentials.Email, "@") {
		credentials.Username = strings.Split(credentials.Email, "@")[0]
	}

	if credentials.Username == "" {
		sendJSONError(w, "Username is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(credentials.Username, 50, "Username"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(credentials.Email) {
		sendJSONError(w, "Invalid email format", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(credentials.Password) {
		sendJSONError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	// Check username uniqueness
	_, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err == nil {
		sendJSONError(w, "Username already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.L.Error("Error checking username uniqueness", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	// Check email uniqueness
	_, err = model.GetUserByEmail(database.DB, credentials.Email)
	if err == nil {
		sendJSONError(w, "Email address already in use", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.L.Error("Error checking email uniqueness", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := h.authService.HashPassword(credentials.Password)
	if err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     credentials.Username,
		Email:        credentials.Email,
		Password:     hashedPassword,
		AuthProvider: "local",
	}
	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("Failed to create user in DB", "error", err)
		sendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	h.seedDefaultCategories(r.Context(), user.ID)
	logger.L.Info("User registered", "userID", user.ID)

	accessToken, refreshToken, err := h.issueTokens(user, r)
	if err != nil {
		logger.L.Error("Failed to issue tokens after registration", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          userPayload(user),
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	logger.L.Debug("Login request received", "remoteAddr", r.RemoteAddr)

	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		logger.L.Warn("Invalid request body for login", "error", err)
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Email = strings.ToLower(validation.SanitizeText(strings.TrimSpace(credentials.Email)))

	throttleKey := "login:" + credentials.Email
	if attempts, found := h.loginAttempts.Get(throttleKey); found {
		if attempts.(int) >= config.Cfg.MaxLoginAttempts {
			logger.L.Warn("Login throttled", "email", credentials.Email)
			sendJSONError(w, "Too many failed login attempts. Please try again later.", http.StatusTooManyRequests)
			return
		}
	}

	user, err := model.GetUserByEmail(database.DB, credentials.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.L.Error("User lookup by email failed for login", "error", err)
		}
		h.recordFailedLogin(throttleKey)
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Warn("Password check failed for login", "userID", user.ID)
		h.recordFailedLogin(throttleKey)
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	h.loginAttempts.Delete(throttleKey)

	if err := model.RecordLogin(database.DB, user.ID, r.RemoteAddr); err != nil {
		logger.L.Error("Failed to record login info", "userID", user.ID, "error", err)
	}

	accessToken, refreshToken, err := h.issueTokens(user, r)
	if err != nil {
		logger.L.Error("Failed to issue tokens on login", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User login successful, tokens generated", "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          userPayload(user),
	})
}

func (h *UserHandler) recordFailedLogin(key string) {
	if err := h.loginAttempts.Add(key, 1, config.Cfg.LoginAttemptWindow); err != nil {
		h.loginAttempts.IncrementInt(key, 1)
	}
}

// issueTokens mints an access/refresh token pair and records the session.
func (h *UserHandler) issueTokens(user *model.User, r *http.Request) (string, string, error) {
	userIDStr := fmt.Sprintf("%d", user.ID)
	accessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		IsBlocked:    false,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func userPayload(user *model.User) map[string]any {
	return map[string]any{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"auth_provider": user.AuthProvider,
	}
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil || requestBody.RefreshToken == "" {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, requestBody.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh token lookup failed", "error", err)
		sendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		logger.L.Error("Failed to generate access token on refresh", "userID", session.UserID, "error", err)
		sendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}
	if err := model.RotateAccessToken(database.DB, session.ID, accessToken); err != nil {
		logger.L.Error("Failed to rotate access token", "sessionID", session.ID, "error", err)
		sendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		sendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	if err := model.BlockSession(database.DB, tokenString); err != nil {
		logger.L.Error("Failed to block session on logout", "error", err)
		sendJSONError(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to load current user", "userID", userID, "error", err)
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": user})
}

func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(strings.TrimSpace(body.NewPassword)) {
		sendJSONError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	if err := user.CheckPassword(body.CurrentPassword); err != nil {
		sendJSONError(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	hashed, err := h.authService.HashPassword(strings.TrimSpace(body.NewPassword))
	if err != nil {
		logger.L.Error("Failed to hash new password", "userID", userID, "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := user.UpdatePassword(database.DB, hashed); err != nil {
		logger.L.Error("Failed to store new password", "userID", userID, "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	// Existing sessions die with the old password.
	if err := model.BlockUserSessions(database.DB, userID); err != nil {
		logger.L.Error("Failed to revoke sessions after password change", "userID", userID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully. Please log in again."})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}
