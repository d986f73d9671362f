package services

import (
	"context"
	"errors"

	"github.com/username/spendwise/backend/src/models"
)

// Common service errors. Handlers map these to HTTP statuses; anything
// else is treated as a data-access failure and surfaced as a 500.
var (
	ErrBudgetNotFound   = errors.New("budget not found")
	ErrCategoryNotFound = errors.New("category not found or unauthorized")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrInvalidEndDate   = errors.New("end date must be after start date")
	ErrEndDateRequired  = errors.New("end date is required for custom period budgets")
)

// LedgerQuery is the read-only aggregation facade over the expense
// ledger. Both methods are side-effect free; a storage failure is
// returned as an error, never as a partial sum.
type LedgerQuery interface {
	// SumAmount returns the total of all matching amounts, zero when
	// nothing matches.
	SumAmount(ctx context.Context, filter models.ExpenseFilter) (models.Money, error)
	// DailySums groups matching rows by calendar date within
	// [rangeStart, rangeEnd] inclusive, ascending. Days without rows
	// are omitted.
	DailySums(ctx context.Context, filter models.ExpenseFilter, rangeStart, rangeEnd string) ([]models.DailyBucket, error)
}

// BudgetStore persists budget definitions. All reads are scoped to an
// owner; FindOne reports a missing or foreign-owned row as sql.ErrNoRows.
type BudgetStore interface {
	FindMany(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.Budget, error)
	FindOne(ctx context.Context, id, userID int64) (*models.Budget, error)
	Create(ctx context.Context, b *models.Budget) error
	Update(ctx context.Context, b *models.Budget) error
	UpdateStatus(ctx context.Context, id, userID int64, status string) error
	Delete(ctx context.Context, id, userID int64) error
}

// CategoryStore persists categories. FindByID loads without an owner
// check so callers can distinguish "missing" from "not yours".
type CategoryStore interface {
	FindMany(ctx context.Context, userID int64) ([]models.Category, error)
	FindOne(ctx context.Context, id, userID int64) (*models.Category, error)
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id int64) error
}

// ExpenseStore persists ledger entries.
type ExpenseStore interface {
	List(ctx context.Context, userID int64, q models.ExpenseQuery) ([]models.Expense, int, error)
	FindOne(ctx context.Context, id, userID int64) (*models.Expense, error)
	Create(ctx context.Context, e *models.Expense) error
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, id, userID int64) error
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

// EmailService sends user-facing mail. Implementations must be safe for
// concurrent use; budget notifications are sent from goroutines.
type EmailService interface {
	Send(to, subject, htmlBody string) error
}

// BudgetNotifier is told about budget lifecycle events worth surfacing
// to the user. Implementations must not block the caller on delivery.
type BudgetNotifier interface {
	BudgetCreated(ctx context.Context, b *models.Budget)
}

// BudgetInput carries the validated fields of a budget create/update
// request.
type BudgetInput struct {
	Name        string
	Amount      models.Money
	Period      string
	StartDate   string
	EndDate     *string
	IsRecurring *bool
	CategoryID  *int64
	Status      string // update only; ignored when not a recognized value
}

// BudgetService owns budget CRUD and the on-demand spending evaluation.
type BudgetService interface {
	ListBudgets(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.BudgetEvaluation, error)
	GetBudget(ctx context.Context, id, userID int64) (*models.BudgetDetail, error)
	CreateBudget(ctx context.Context, userID int64, input BudgetInput) (*models.Budget, error)
	UpdateBudget(ctx context.Context, id, userID int64, input BudgetInput) (*models.Budget, error)
	UpdateBudgetStatus(ctx context.Context, id, userID int64, status string) error
	DeleteBudget(ctx context.Context, id, userID int64) error
}
