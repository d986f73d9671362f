package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/spendwise/backend/src/config"
	"github.com/username/spendwise/backend/src/database"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/model"
)

func InitializeGoogleOAuthConfig() {
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  config.Cfg.GoogleRedirectURL,
		ClientID:     config.Cfg.GoogleClientID,
		ClientSecret: config.Cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *UserHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url := googleOauthConfig.AuthCodeURL(config.Cfg.OAuthStateString)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *UserHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("state") != config.Cfg.OAuthStateString {
		logger.L.Warn("Invalid OAuth state from Google callback")
		http.Redirect(w, r, signinErrorURL("invalid_state"), http.StatusTemporaryRedirect)
		return
	}

	code := r.FormValue("code")
	token, err := googleOauthConfig.Exchange(context.Background(), code)
	if err != nil {
		logger.L.Error("Failed to exchange code for token", "error", err)
		http.Redirect(w, r, signinErrorURL("token_exchange_failed"), http.StatusTemporaryRedirect)
		return
	}

	response, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		logger.L.Error("Failed to get user info from Google", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_failed"), http.StatusTemporaryRedirect)
		return
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		logger.L.Error("Failed to read user info response body", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_read_failed"), http.StatusTemporaryRedirect)
		return
	}

	var googleUser struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Verified bool   `json:"verified_email"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(contents, &googleUser); err != nil {
		logger.L.Error("Failed to unmarshal Google user info", "error", err)
		http.Redirect(w, r, signinErrorURL("userinfo_parse_failed"), http.StatusTemporaryRedirect)
		return
	}

	if !googleUser.Verified {
		http.Redirect(w, r, signinErrorURL("email_not_verified_by_google"), http.StatusTemporaryRedirect)
		return
	}

	user, err := model.GetUserByEmail(database.DB, googleUser.Email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		newUser := &model.User{
			Username:     googleUser.Email,
			Email:        googleUser.Email,
			Password:     "",
			AuthProvider: "google",
		}
		if err := newUser.CreateUser(database.DB); err != nil {
			logger.L.Error("Failed to create Google user", "error", err)
			http.Redirect(w, r, signinErrorURL("user_creation_failed"), http.StatusTemporaryRedirect)
			return
		}
		user = newUser
		h.seedDefaultCategories(r.Context(), user.ID)
	case err != nil:
		logger.L.Error("User lookup failed during Google callback", "error", err)
		http.Redirect(w, r, signinErrorURL("user_lookup_failed"), http.StatusTemporaryRedirect)
		return
	default:
		// A local account with this email keeps password login only.
		if user.AuthProvider == "local" || user.Password != "" {
			logger.L.Warn("Google login attempt for existing local account", "userID", user.ID)
			http.Redirect(w, r, signinErrorURL("email_already_exists_local"), http.StatusTemporaryRedirect)
			return
		}
	}

	if err := model.RecordLogin(database.DB, user.ID, r.RemoteAddr); err != nil {
		logger.L.Error("Failed to record login info", "userID", user.ID, "error", err)
	}

	accessToken, refreshToken, err := h.issueTokens(user, r)
	if err != nil {
		logger.L.Error("Failed to issue tokens for Google user", "userID", user.ID, "error", err)
		http.Redirect(w, r, signinErrorURL("token_generation_failed"), http.StatusTemporaryRedirect)
		return
	}

	userJSON, err := json.Marshal(userPayload(user))
	if err != nil {
		logger.L.Error("Failed to marshal user object for frontend", "error", err)
		http.Redirect(w, r, signinErrorURL("user_data_build_failed"), http.StatusTemporaryRedirect)
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/google/callback?token=%s&refresh_token=%s&user=%s",
		config.Cfg.FrontendBaseURL,
		accessToken,
		refreshToken,
		url.QueryEscape(string(userJSON)))
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

func signinErrorURL(code string) string {
	return fmt.Sprintf("%s/signin?error=%s", config.Cfg.FrontendBaseURL, code)
}
