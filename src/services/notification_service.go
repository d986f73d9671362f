package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/model"
	"github.com/username/spendwise/backend/src/models"
)

// NotificationService records user notifications and mails them out when
// SMTP is available. Delivery failures are logged, never propagated: a
// budget create must not fail because a mail server is down.
type NotificationService struct {
	store NotificationStore
	email EmailService
	db    *sql.DB
}

func NewNotificationService(store NotificationStore, email EmailService, db *sql.DB) *NotificationService {
	return &NotificationService{store: store, email: email, db: db}
}

func (s *NotificationService) BudgetCreated(ctx context.Context, b *models.Budget) {
	scope := "all categories"
	if b.Category != nil {
		scope = b.Category.Name
	}

	n := &models.Notification{
		UserID:   b.UserID,
		Type:     models.NotificationBudgetCreated,
		Title:    "Budget created",
		Message:  fmt.Sprintf("Your %s budget %q (%s) is now tracking spending against a limit of %s.", b.Period, b.Name, scope, b.Amount),
		Metadata: fmt.Sprintf(`{"budgetId":%d}`, b.ID),
	}
	if err := s.store.Create(ctx, n); err != nil {
		logger.L.Error("Failed to record budget_created notification", "userID", b.UserID, "budgetID", b.ID, "error", err)
	}

	// Mail delivery happens off the request path.
	go s.sendBudgetCreatedEmail(b, n.Message)
}

func (s *NotificationService) sendBudgetCreatedEmail(b *models.Budget, message string) {
	user, err := model.GetUserByID(s.db, b.UserID)
	if err != nil {
		logger.L.Error("Failed to load user for budget notification email", "userID", b.UserID, "error", err)
		return
	}

	body := fmt.Sprintf(`
		<h2>New budget: %s</h2>
		<p>Hi %s,</p>
		<p>%s</p>
		<p>You will see its progress on your dashboard as expenses come in.</p>`,
		b.Name, user.Username, message)

	if err := s.email.Send(user.Email, "Your new budget is live", body); err != nil {
		logger.L.Error("Failed to send budget notification email", "userID", b.UserID, "budgetID", b.ID, "error", err)
	}
}
