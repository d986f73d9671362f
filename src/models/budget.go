package models

import "time"

// Budget recurrence periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodCustom  = "custom"
)

// Budget lifecycle statuses. These only change through explicit updates,
// never as a side effect of spending.
const (
	BudgetStatusActive    = "active"
	BudgetStatusCompleted = "completed"
	BudgetStatusCancelled = "cancelled"
)

// Spending classifications derived from progress.
const (
	SpendingOnTrack  = "on-track"
	SpendingWarning  = "warning"
	SpendingExceeded = "exceeded"
)

// Budget is a spending ceiling over a time window. EndDate is nil for
// open-ended budgets (evaluated through the current date) and only
// meaningful for the custom period. A nil CategoryID spans all of the
// owner's categories.
type Budget struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"userId"`
	Name        string       `json:"name"`
	Amount      Money        `json:"amount"`
	Period      string       `json:"period"`
	StartDate   string       `json:"startDate"`
	EndDate     *string      `json:"endDate"`
	IsRecurring bool         `json:"isRecurring"`
	CategoryID  *int64       `json:"categoryId"`
	Status      string       `json:"status"`
	Category    *CategoryRef `json:"category,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// BudgetFilter narrows budget listings. Empty/zero fields are not applied.
type BudgetFilter struct {
	Status     string
	Period     string
	CategoryID int64
}

// BudgetEvaluation is the derived spending view of one budget. It is
// computed fresh on every read and never persisted. Progress is clamped
// to 100 for display; RawProgress keeps the unclamped ratio so heavily
// overspent budgets still classify as exceeded.
type BudgetEvaluation struct {
	Budget
	Spent       Money   `json:"spent"`
	Remaining   Money   `json:"remaining"`
	Progress    float64 `json:"progress"`
	RawProgress float64 `json:"-"`
	StatusInfo  string  `json:"statusInfo"`
}

// BudgetDetail extends an evaluation with the trailing 7-day spending
// trend used by the single-budget view.
type BudgetDetail struct {
	BudgetEvaluation
	DailySpending []DailyBucket `json:"dailySpending"`
}

func IsValidPeriod(p string) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

func IsValidBudgetStatus(s string) bool {
	switch s {
	case BudgetStatusActive, BudgetStatusCompleted, BudgetStatusCancelled:
		return true
	}
	return false
}
