package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/username/spendwise/backend/src/models"
)

type fakeLedger struct {
	mu         sync.Mutex
	sumFn      func(models.ExpenseFilter) (models.Money, error)
	daily      []models.DailyBucket
	dailyErr   error
	sumFilters []models.ExpenseFilter
	rangeStart string
	rangeEnd   string
}

func (f *fakeLedger) SumAmount(ctx context.Context, filter models.ExpenseFilter) (models.Money, error) {
	f.mu.Lock()
	f.sumFilters = append(f.sumFilters, filter)
	f.mu.Unlock()
	if f.sumFn != nil {
		return f.sumFn(filter)
	}
	return 0, nil
}

func (f *fakeLedger) DailySums(ctx context.Context, filter models.ExpenseFilter, rangeStart, rangeEnd string) ([]models.DailyBucket, error) {
	f.mu.Lock()
	f.rangeStart, f.rangeEnd = rangeStart, rangeEnd
	f.mu.Unlock()
	return f.daily, f.dailyErr
}

type fakeBudgetStore struct {
	budgets     []models.Budget
	findManyErr error
	nextID      int64
}

func (f *fakeBudgetStore) FindMany(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.Budget, error) {
	if f.findManyErr != nil {
		return nil, f.findManyErr
	}
	var out []models.Budget
	for _, b := range f.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBudgetStore) FindOne(ctx context.Context, id, userID int64) (*models.Budget, error) {
	for i := range f.budgets {
		if f.budgets[i].ID == id && f.budgets[i].UserID == userID {
			b := f.budgets[i]
			return &b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBudgetStore) Create(ctx context.Context, b *models.Budget) error {
	f.nextID++
	b.ID = f.nextID
	f.budgets = append(f.budgets, *b)
	return nil
}

func (f *fakeBudgetStore) Update(ctx context.Context, b *models.Budget) error {
	for i := range f.budgets {
		if f.budgets[i].ID == b.ID && f.budgets[i].UserID == b.UserID {
			f.budgets[i] = *b
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeBudgetStore) UpdateStatus(ctx context.Context, id, userID int64, status string) error {
	for i := range f.budgets {
		if f.budgets[i].ID == id && f.budgets[i].UserID == userID {
			f.budgets[i].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeBudgetStore) Delete(ctx context.Context, id, userID int64) error {
	for i := range f.budgets {
		if f.budgets[i].ID == id && f.budgets[i].UserID == userID {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeCategoryStore maps category ID to owning user ID.
type fakeCategoryStore struct {
	owners map[int64]int64
}

func (f *fakeCategoryStore) FindMany(ctx context.Context, userID int64) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeCategoryStore) FindOne(ctx context.Context, id, userID int64) (*models.Category, error) {
	if owner, ok := f.owners[id]; ok && owner == userID {
		return &models.Category{ID: id, UserID: userID, Name: "Groceries", Type: models.TypeExpense}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	if owner, ok := f.owners[id]; ok {
		return &models.Category{ID: id, UserID: owner}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCategoryStore) Create(ctx context.Context, c *models.Category) error { return nil }
func (f *fakeCategoryStore) Update(ctx context.Context, c *models.Category) error { return nil }
func (f *fakeCategoryStore) Delete(ctx context.Context, id int64) error           { return nil }

type fakeNotifier struct {
	mu      sync.Mutex
	created []int64
}

func (f *fakeNotifier) BudgetCreated(ctx context.Context, b *models.Budget) {
	f.mu.Lock()
	f.created = append(f.created, b.ID)
	f.mu.Unlock()
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(budgets *fakeBudgetStore, categories *fakeCategoryStore, ledger *fakeLedger, notifier BudgetNotifier) *budgetService {
	if categories == nil {
		categories = &fakeCategoryStore{owners: map[int64]int64{}}
	}
	svc := NewBudgetService(budgets, categories, ledger, notifier).(*budgetService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func monthlyBudget(id, userID int64, amountCents int64) models.Budget {
	return models.Budget{
		ID:        id,
		UserID:    userID,
		Name:      fmt.Sprintf("Budget %d", id),
		Amount:    models.Money(amountCents),
		Period:    models.PeriodMonthly,
		StartDate: "2025-06-01",
		Status:    models.BudgetStatusActive,
	}
}

func TestEvaluateClassification(t *testing.T) {
	tests := []struct {
		name          string
		amountCents   int64
		spentCents    int64
		wantStatus    string
		wantProgress  float64
		wantRaw       float64
		wantRemaining int64
	}{
		{"no spending", 50000, 0, models.SpendingOnTrack, 0, 0, 50000},
		{"just under warning", 100000, 74999, models.SpendingOnTrack, 74.999, 74.999, 25001},
		{"at warning threshold", 100000, 75000, models.SpendingWarning, 75, 75, 25000},
		{"at limit", 100000, 100000, models.SpendingExceeded, 100, 100, 0},
		{"overspent clamps display", 50000, 55000, models.SpendingExceeded, 100, 110, 0},
		{"heavily overspent", 10000, 25000, models.SpendingExceeded, 100, 250, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{sumFn: func(models.ExpenseFilter) (models.Money, error) {
				return models.Money(tt.spentCents), nil
			}}
			store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, tt.amountCents)}}
			svc := newTestService(store, nil, ledger, nil)

			ev, err := svc.evaluate(context.Background(), store.budgets[0], testNow)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if ev.StatusInfo != tt.wantStatus {
				t.Errorf("StatusInfo = %q, want %q", ev.StatusInfo, tt.wantStatus)
			}
			if math.Abs(ev.Progress-tt.wantProgress) > 1e-9 {
				t.Errorf("Progress = %v, want %v", ev.Progress, tt.wantProgress)
			}
			if math.Abs(ev.RawProgress-tt.wantRaw) > 1e-9 {
				t.Errorf("RawProgress = %v, want %v", ev.RawProgress, tt.wantRaw)
			}
			if ev.Remaining.Cents() != tt.wantRemaining {
				t.Errorf("Remaining = %d cents, want %d", ev.Remaining.Cents(), tt.wantRemaining)
			}
			if ev.Spent.Cents() != tt.spentCents {
				t.Errorf("Spent = %d cents, want %d", ev.Spent.Cents(), tt.spentCents)
			}
		})
	}
}

func TestEvaluateWindowAndScoping(t *testing.T) {
	t.Run("open-ended budget runs through today", func(t *testing.T) {
		ledger := &fakeLedger{}
		b := monthlyBudget(1, 7, 50000)
		svc := newTestService(&fakeBudgetStore{budgets: []models.Budget{b}}, nil, ledger, nil)

		if _, err := svc.evaluate(context.Background(), b, testNow); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		filter := ledger.sumFilters[0]
		if filter.DateFrom != "2025-06-01" {
			t.Errorf("DateFrom = %q, want 2025-06-01", filter.DateFrom)
		}
		if filter.DateTo != "2025-06-15" {
			t.Errorf("DateTo = %q, want evaluation date 2025-06-15", filter.DateTo)
		}
		if filter.Type != models.TypeExpense {
			t.Errorf("Type = %q, want expense", filter.Type)
		}
		if filter.CategoryID != 0 {
			t.Errorf("CategoryID = %d, want 0 for all-category budget", filter.CategoryID)
		}
	})

	t.Run("fixed end date bounds the window", func(t *testing.T) {
		ledger := &fakeLedger{}
		b := monthlyBudget(1, 7, 50000)
		b.Period = models.PeriodCustom
		end := "2025-06-10"
		b.EndDate = &end
		svc := newTestService(&fakeBudgetStore{}, nil, ledger, nil)

		if _, err := svc.evaluate(context.Background(), b, testNow); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got := ledger.sumFilters[0].DateTo; got != "2025-06-10" {
			t.Errorf("DateTo = %q, want budget end date", got)
		}
	})

	t.Run("category budget narrows the filter", func(t *testing.T) {
		ledger := &fakeLedger{}
		b := monthlyBudget(1, 7, 50000)
		catID := int64(3)
		b.CategoryID = &catID
		svc := newTestService(&fakeBudgetStore{}, nil, ledger, nil)

		if _, err := svc.evaluate(context.Background(), b, testNow); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got := ledger.sumFilters[0].CategoryID; got != 3 {
			t.Errorf("CategoryID = %d, want 3", got)
		}
	})
}

func TestListBudgets(t *testing.T) {
	t.Run("preserves store order with mixed evaluations", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{
			monthlyBudget(1, 7, 100000),
			monthlyBudget(2, 7, 100000),
			monthlyBudget(3, 7, 100000),
		}}
		ledger := &fakeLedger{sumFn: func(f models.ExpenseFilter) (models.Money, error) {
			return 0, nil
		}}
		svc := newTestService(store, nil, ledger, nil)

		evaluations, err := svc.ListBudgets(context.Background(), 7, models.BudgetFilter{})
		if err != nil {
			t.Fatalf("ListBudgets: %v", err)
		}
		if len(evaluations) != 3 {
			t.Fatalf("got %d evaluations, want 3", len(evaluations))
		}
		for i, want := range []int64{1, 2, 3} {
			if evaluations[i].ID != want {
				t.Errorf("evaluations[%d].ID = %d, want %d", i, evaluations[i].ID, want)
			}
		}
	})

	t.Run("single ledger failure fails the whole listing", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{
			monthlyBudget(1, 7, 100000),
			monthlyBudget(2, 7, 100000),
		}}
		boom := errors.New("disk error")
		var calls int
		var mu sync.Mutex
		ledger := &fakeLedger{sumFn: func(f models.ExpenseFilter) (models.Money, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				return 0, boom
			}
			return 100, nil
		}}
		svc := newTestService(store, nil, ledger, nil)

		if _, err := svc.ListBudgets(context.Background(), 7, models.BudgetFilter{}); !errors.Is(err, boom) {
			t.Fatalf("ListBudgets error = %v, want wrapped %v", err, boom)
		}
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		evaluations, err := svc.ListBudgets(context.Background(), 7, models.BudgetFilter{})
		if err != nil {
			t.Fatalf("ListBudgets: %v", err)
		}
		if len(evaluations) != 0 {
			t.Errorf("got %d evaluations, want 0", len(evaluations))
		}
	})
}

func TestGetBudget(t *testing.T) {
	t.Run("attaches trailing seven day trend", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 100000)}}
		ledger := &fakeLedger{daily: []models.DailyBucket{
			{Day: "2025-06-10", Total: 1250},
			{Day: "2025-06-14", Total: 3000},
		}}
		svc := newTestService(store, nil, ledger, nil)

		detail, err := svc.GetBudget(context.Background(), 1, 7)
		if err != nil {
			t.Fatalf("GetBudget: %v", err)
		}
		if ledger.rangeStart != "2025-06-09" || ledger.rangeEnd != "2025-06-15" {
			t.Errorf("trend range = [%s, %s], want [2025-06-09, 2025-06-15]", ledger.rangeStart, ledger.rangeEnd)
		}
		if len(detail.DailySpending) != 2 {
			t.Fatalf("got %d trend buckets, want 2", len(detail.DailySpending))
		}
		if detail.DailySpending[0].Day != "2025-06-10" {
			t.Errorf("first bucket day = %q", detail.DailySpending[0].Day)
		}
	})

	t.Run("no trend rows yields empty slice", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 100000)}}
		svc := newTestService(store, nil, &fakeLedger{}, nil)

		detail, err := svc.GetBudget(context.Background(), 1, 7)
		if err != nil {
			t.Fatalf("GetBudget: %v", err)
		}
		if detail.DailySpending == nil {
			t.Error("DailySpending is nil, want empty slice")
		}
	})

	t.Run("unknown budget", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		if _, err := svc.GetBudget(context.Background(), 99, 7); !errors.Is(err, ErrBudgetNotFound) {
			t.Fatalf("error = %v, want ErrBudgetNotFound", err)
		}
	})

	t.Run("foreign budget looks missing", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 100000)}}
		svc := newTestService(store, nil, &fakeLedger{}, nil)
		if _, err := svc.GetBudget(context.Background(), 1, 8); !errors.Is(err, ErrBudgetNotFound) {
			t.Fatalf("error = %v, want ErrBudgetNotFound", err)
		}
	})
}

func TestCreateBudget(t *testing.T) {
	baseInput := func() BudgetInput {
		return BudgetInput{
			Name:      "Groceries June",
			Amount:    models.Money(50000),
			Period:    models.PeriodMonthly,
			StartDate: "2025-06-01",
		}
	}

	t.Run("defaults and notification", func(t *testing.T) {
		store := &fakeBudgetStore{}
		notifier := &fakeNotifier{}
		svc := newTestService(store, nil, &fakeLedger{}, notifier)

		created, err := svc.CreateBudget(context.Background(), 7, baseInput())
		if err != nil {
			t.Fatalf("CreateBudget: %v", err)
		}
		if !created.IsRecurring {
			t.Error("IsRecurring defaulted to false, want true")
		}
		if created.Status != models.BudgetStatusActive {
			t.Errorf("Status = %q, want active", created.Status)
		}
		if created.EndDate != nil {
			t.Errorf("EndDate = %v, want nil for monthly period", *created.EndDate)
		}
		if len(notifier.created) != 1 || notifier.created[0] != created.ID {
			t.Errorf("notifier calls = %v, want [%d]", notifier.created, created.ID)
		}
	})

	t.Run("foreign category rejected", func(t *testing.T) {
		categories := &fakeCategoryStore{owners: map[int64]int64{3: 99}}
		svc := newTestService(&fakeBudgetStore{}, categories, &fakeLedger{}, nil)

		input := baseInput()
		catID := int64(3)
		input.CategoryID = &catID
		if _, err := svc.CreateBudget(context.Background(), 7, input); !errors.Is(err, ErrCategoryNotFound) {
			t.Fatalf("error = %v, want ErrCategoryNotFound", err)
		}
	})

	t.Run("custom period requires end date", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		input := baseInput()
		input.Period = models.PeriodCustom
		if _, err := svc.CreateBudget(context.Background(), 7, input); !errors.Is(err, ErrEndDateRequired) {
			t.Fatalf("error = %v, want ErrEndDateRequired", err)
		}
	})

	t.Run("custom end date must follow start", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		input := baseInput()
		input.Period = models.PeriodCustom
		end := "2025-06-01"
		input.EndDate = &end
		if _, err := svc.CreateBudget(context.Background(), 7, input); !errors.Is(err, ErrInvalidEndDate) {
			t.Fatalf("error = %v, want ErrInvalidEndDate", err)
		}
	})

	t.Run("non-custom period drops end date", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		input := baseInput()
		end := "2025-12-31"
		input.EndDate = &end
		created, err := svc.CreateBudget(context.Background(), 7, input)
		if err != nil {
			t.Fatalf("CreateBudget: %v", err)
		}
		if created.EndDate != nil {
			t.Errorf("EndDate = %v, want nil", *created.EndDate)
		}
	})
}

func TestUpdateBudget(t *testing.T) {
	t.Run("unrecognized status is ignored", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 50000)}}
		svc := newTestService(store, nil, &fakeLedger{}, nil)

		updated, err := svc.UpdateBudget(context.Background(), 1, 7, BudgetInput{
			Name:      "Renamed",
			Amount:    models.Money(60000),
			Period:    models.PeriodMonthly,
			StartDate: "2025-06-01",
			Status:    "archived",
		})
		if err != nil {
			t.Fatalf("UpdateBudget: %v", err)
		}
		if updated.Status != models.BudgetStatusActive {
			t.Errorf("Status = %q, want active to survive bogus input", updated.Status)
		}
		if updated.Name != "Renamed" {
			t.Errorf("Name = %q, want Renamed", updated.Name)
		}
	})

	t.Run("valid status applies", func(t *testing.T) {
		store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 50000)}}
		svc := newTestService(store, nil, &fakeLedger{}, nil)

		updated, err := svc.UpdateBudget(context.Background(), 1, 7, BudgetInput{
			Name:      "Budget 1",
			Amount:    models.Money(50000),
			Period:    models.PeriodMonthly,
			StartDate: "2025-06-01",
			Status:    models.BudgetStatusCompleted,
		})
		if err != nil {
			t.Fatalf("UpdateBudget: %v", err)
		}
		if updated.Status != models.BudgetStatusCompleted {
			t.Errorf("Status = %q, want completed", updated.Status)
		}
	})

	t.Run("missing budget", func(t *testing.T) {
		svc := newTestService(&fakeBudgetStore{}, nil, &fakeLedger{}, nil)
		_, err := svc.UpdateBudget(context.Background(), 1, 7, BudgetInput{
			Name: "x", Amount: 100, Period: models.PeriodMonthly, StartDate: "2025-06-01",
		})
		if !errors.Is(err, ErrBudgetNotFound) {
			t.Fatalf("error = %v, want ErrBudgetNotFound", err)
		}
	})
}

func TestUpdateBudgetStatusAndDelete(t *testing.T) {
	store := &fakeBudgetStore{budgets: []models.Budget{monthlyBudget(1, 7, 50000)}}
	svc := newTestService(store, nil, &fakeLedger{}, nil)

	if err := svc.UpdateBudgetStatus(context.Background(), 1, 7, models.BudgetStatusCancelled); err != nil {
		t.Fatalf("UpdateBudgetStatus: %v", err)
	}
	if store.budgets[0].Status != models.BudgetStatusCancelled {
		t.Errorf("Status = %q, want cancelled", store.budgets[0].Status)
	}

	if err := svc.UpdateBudgetStatus(context.Background(), 1, 8, models.BudgetStatusActive); !errors.Is(err, ErrBudgetNotFound) {
		t.Fatalf("foreign status update error = %v, want ErrBudgetNotFound", err)
	}

	if err := svc.DeleteBudget(context.Background(), 1, 7); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if err := svc.DeleteBudget(context.Background(), 1, 7); !errors.Is(err, ErrBudgetNotFound) {
		t.Fatalf("second delete error = %v, want ErrBudgetNotFound", err)
	}
}

func TestResolveEndDate(t *testing.T) {
	end := "2025-07-01"
	empty := ""

	tests := []struct {
		name    string
		period  string
		endDate *string
		want    *string
		wantErr error
	}{
		{"monthly ignores end date", models.PeriodMonthly, &end, nil, nil},
		{"custom keeps end date", models.PeriodCustom, &end, &end, nil},
		{"custom without end date", models.PeriodCustom, nil, nil, ErrEndDateRequired},
		{"custom with empty end date", models.PeriodCustom, &empty, nil, ErrEndDateRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveEndDate(tt.period, "2025-06-01", tt.endDate)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("end date = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("end date = %q, want %q", *got, *tt.want)
			}
		})
	}
}
