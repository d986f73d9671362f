package models

import "time"

// Notification types recorded for a user.
const (
	NotificationBudgetCreated  = "budget_created"
	NotificationBudgetAlert    = "budget_alert"
	NotificationBudgetExceeded = "budget_exceeded"
	NotificationMonthlySummary = "monthly_summary"
	NotificationYearlySummary  = "yearly_summary"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	Metadata  string    `json:"metadata,omitempty"` // JSON blob, opaque to the server
	CreatedAt time.Time `json:"createdAt"`
}
