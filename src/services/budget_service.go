package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/username/spendwise/backend/src/models"
	"golang.org/x/sync/errgroup"
)

// Spending classification thresholds. Fixed constants, not configurable
// per budget.
const (
	warningThreshold  = 75.0
	exceededThreshold = 100.0
)

// trendDays is the length of the trailing daily-spending window on the
// single-budget view, in calendar days including today.
const trendDays = 7

type budgetService struct {
	budgets    BudgetStore
	categories CategoryStore
	ledger     LedgerQuery
	notifier   BudgetNotifier
	now        func() time.Time
}

// NewBudgetService wires the budget CRUD and evaluation logic. notifier
// may be nil when lifecycle notifications are not wanted.
func NewBudgetService(budgets BudgetStore, categories CategoryStore, ledger LedgerQuery, notifier BudgetNotifier) BudgetService {
	return &budgetService{
		budgets:    budgets,
		categories: categories,
		ledger:     ledger,
		notifier:   notifier,
		now:        time.Now,
	}
}

// spendingFilter builds the ledger filter shared by the evaluator and
// the trend query: owner plus expense type, narrowed to the budget's
// category when it has one. Income never counts against a budget.
func spendingFilter(b *models.Budget) models.ExpenseFilter {
	filter := models.ExpenseFilter{
		UserID: b.UserID,
		Type:   models.TypeExpense,
	}
	if b.CategoryID != nil {
		filter.CategoryID = *b.CategoryID
	}
	return filter
}

// evaluate computes the derived spending view of one budget as of now.
// Open-ended budgets (no end date) are evaluated through the current
// date, so their spent figure keeps growing as transactions accrue.
func (s *budgetService) evaluate(ctx context.Context, b models.Budget, now time.Time) (models.BudgetEvaluation, error) {
	filter := spendingFilter(&b)
	filter.DateFrom = b.StartDate
	if b.EndDate != nil && *b.EndDate != "" {
		filter.DateTo = *b.EndDate
	} else {
		filter.DateTo = now.Format(models.DateLayout)
	}

	spent, err := s.ledger.SumAmount(ctx, filter)
	if err != nil {
		return models.BudgetEvaluation{}, fmt.Errorf("evaluating budget %d: %w", b.ID, err)
	}

	remaining := b.Amount - spent
	if remaining < 0 {
		remaining = 0
	}

	// Amount > 0 is guaranteed by create/update validation, so the
	// ratio is always defined here.
	raw := float64(spent.Cents()) / float64(b.Amount.Cents()) * 100

	statusInfo := models.SpendingOnTrack
	switch {
	case raw >= exceededThreshold:
		statusInfo = models.SpendingExceeded
	case raw >= warningThreshold:
		statusInfo = models.SpendingWarning
	}

	return models.BudgetEvaluation{
		Budget:      b,
		Spent:       spent,
		Remaining:   remaining,
		Progress:    math.Min(100, raw),
		RawProgress: raw,
		StatusInfo:  statusInfo,
	}, nil
}

// ListBudgets loads the owner's budgets (newest start date first) and
// evaluates each one. The evaluations are independent reads, so they run
// concurrently; output order follows the store order regardless of
// completion order. Any single failure fails the whole listing.
func (s *budgetService) ListBudgets(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.BudgetEvaluation, error) {
	budgets, err := s.budgets.FindMany(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	now := s.now()
	evaluations := make([]models.BudgetEvaluation, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range budgets {
		i, b := i, b
		g.Go(func() error {
			ev, err := s.evaluate(gctx, b, now)
			if err != nil {
				return err
			}
			evaluations[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evaluations, nil
}

// GetBudget evaluates a single budget and attaches the trailing 7-day
// spending trend. The trend window always ends today and ignores the
// budget's own start/end dates; days without spending are absent from
// the result, not zero-filled.
func (s *budgetService) GetBudget(ctx context.Context, id, userID int64) (*models.BudgetDetail, error) {
	b, err := s.findBudget(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	evaluation, err := s.evaluate(ctx, *b, now)
	if err != nil {
		return nil, err
	}

	rangeStart := now.AddDate(0, 0, -(trendDays - 1)).Format(models.DateLayout)
	rangeEnd := now.Format(models.DateLayout)
	dailySpending, err := s.ledger.DailySums(ctx, spendingFilter(b), rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("computing daily spending for budget %d: %w", id, err)
	}
	if dailySpending == nil {
		dailySpending = []models.DailyBucket{}
	}

	return &models.BudgetDetail{
		BudgetEvaluation: evaluation,
		DailySpending:    dailySpending,
	}, nil
}

func (s *budgetService) CreateBudget(ctx context.Context, userID int64, input BudgetInput) (*models.Budget, error) {
	if input.CategoryID != nil {
		if err := s.checkCategoryOwnership(ctx, *input.CategoryID, userID); err != nil {
			return nil, err
		}
	}

	endDate, err := resolveEndDate(input.Period, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	isRecurring := true
	if input.IsRecurring != nil {
		isRecurring = *input.IsRecurring
	}

	b := &models.Budget{
		UserID:      userID,
		Name:        input.Name,
		Amount:      input.Amount,
		Period:      input.Period,
		StartDate:   input.StartDate,
		EndDate:     endDate,
		IsRecurring: isRecurring,
		CategoryID:  input.CategoryID,
		Status:      models.BudgetStatusActive,
	}
	if err := s.budgets.Create(ctx, b); err != nil {
		return nil, err
	}

	created, err := s.findBudget(ctx, b.ID, userID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.BudgetCreated(ctx, created)
	}
	return created, nil
}

func (s *budgetService) UpdateBudget(ctx context.Context, id, userID int64, input BudgetInput) (*models.Budget, error) {
	b, err := s.findBudget(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if err := s.checkCategoryOwnership(ctx, *input.CategoryID, userID); err != nil {
			return nil, err
		}
	}

	endDate, err := resolveEndDate(input.Period, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	b.Name = input.Name
	b.Amount = input.Amount
	b.Period = input.Period
	b.StartDate = input.StartDate
	b.EndDate = endDate
	b.CategoryID = input.CategoryID
	if input.IsRecurring != nil {
		b.IsRecurring = *input.IsRecurring
	}
	// Unrecognized status values fall through without effect.
	if models.IsValidBudgetStatus(input.Status) {
		b.Status = input.Status
	}

	if err := s.budgets.Update(ctx, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, err
	}
	return s.findBudget(ctx, id, userID)
}

func (s *budgetService) UpdateBudgetStatus(ctx context.Context, id, userID int64, status string) error {
	if err := s.budgets.UpdateStatus(ctx, id, userID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBudgetNotFound
		}
		return err
	}
	return nil
}

func (s *budgetService) DeleteBudget(ctx context.Context, id, userID int64) error {
	if err := s.budgets.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBudgetNotFound
		}
		return err
	}
	return nil
}

func (s *budgetService) findBudget(ctx context.Context, id, userID int64) (*models.Budget, error) {
	b, err := s.budgets.FindOne(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("loading budget %d: %w", id, err)
	}
	return b, nil
}

func (s *budgetService) checkCategoryOwnership(ctx context.Context, categoryID, userID int64) error {
	if _, err := s.categories.FindOne(ctx, categoryID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("verifying category %d: %w", categoryID, err)
	}
	return nil
}

// resolveEndDate applies the period rules: only custom budgets carry an
// end date, and it must be strictly after the start date. The ISO date
// layout makes the string comparison chronological.
func resolveEndDate(period, startDate string, endDate *string) (*string, error) {
	if period != models.PeriodCustom {
		return nil, nil
	}
	if endDate == nil || *endDate == "" {
		return nil, ErrEndDateRequired
	}
	if *endDate <= startDate {
		return nil, ErrInvalidEndDate
	}
	return endDate, nil
}
