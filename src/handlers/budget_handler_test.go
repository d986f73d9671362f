package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/username/spendwise/backend/src/logger"
	"github.com/username/spendwise/backend/src/models"
	"github.com/username/spendwise/backend/src/services"
)

func init() {
	logger.InitLogger("error")
}

// fakeBudgetService records calls and returns canned results.
type fakeBudgetService struct {
	gotFilter models.BudgetFilter
	gotInput  services.BudgetInput
	listResp  []models.BudgetEvaluation
	budget    *models.Budget
	detail    *models.BudgetDetail
	err       error
}

func (f *fakeBudgetService) ListBudgets(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.BudgetEvaluation, error) {
	f.gotFilter = filter
	return f.listResp, f.err
}

func (f *fakeBudgetService) GetBudget(ctx context.Context, id, userID int64) (*models.BudgetDetail, error) {
	return f.detail, f.err
}

func (f *fakeBudgetService) CreateBudget(ctx context.Context, userID int64, input services.BudgetInput) (*models.Budget, error) {
	f.gotInput = input
	return f.budget, f.err
}

func (f *fakeBudgetService) UpdateBudget(ctx context.Context, id, userID int64, input services.BudgetInput) (*models.Budget, error) {
	f.gotInput = input
	return f.budget, f.err
}

func (f *fakeBudgetService) UpdateBudgetStatus(ctx context.Context, id, userID int64, status string) error {
	return f.err
}

func (f *fakeBudgetService) DeleteBudget(ctx context.Context, id, userID int64) error {
	return f.err
}

func newBudgetRouter(svc services.BudgetService) http.Handler {
	h := NewBudgetHandler(svc)
	r := chi.NewRouter()
	r.Get("/budgets", h.ListBudgets)
	r.Post("/budgets", h.CreateBudget)
	r.Get("/budgets/{id}", h.GetBudget)
	r.Put("/budgets/{id}", h.UpdateBudget)
	r.Delete("/budgets/{id}", h.DeleteBudget)
	r.Put("/budgets/{id}/status", h.UpdateBudgetStatus)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), userIDContextKey, int64(7))
	return req.WithContext(ctx)
}

func TestListBudgetsFilterParsing(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.BudgetFilter
	}{
		{"no filters", "", models.BudgetFilter{}},
		{"valid filters", "?status=active&period=monthly&categoryId=3", models.BudgetFilter{Status: "active", Period: "monthly", CategoryID: 3}},
		{"invalid enums ignored", "?status=bogus&period=fortnightly&categoryId=abc", models.BudgetFilter{}},
		{"mixed validity", "?status=completed&period=nope", models.BudgetFilter{Status: "completed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBudgetService{}
			rec := httptest.NewRecorder()
			newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/budgets"+tt.query, ""))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if svc.gotFilter != tt.want {
				t.Errorf("filter = %+v, want %+v", svc.gotFilter, tt.want)
			}
		})
	}
}

func TestListBudgetsEmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newBudgetRouter(&fakeBudgetService{}).ServeHTTP(rec, authedRequest(http.MethodGet, "/budgets", ""))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestGetBudgetErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", "/budgets/42", services.ErrBudgetNotFound, http.StatusNotFound, "Budget not found"},
		{"non-numeric id", "/budgets/abc", nil, http.StatusNotFound, "Budget not found"},
		{"storage failure", "/budgets/42", context.DeadlineExceeded, http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBudgetService{err: tt.err}
			rec := httptest.NewRecorder()
			newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, tt.target, ""))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["msg"] != tt.wantMsg {
				t.Errorf("msg = %q, want %q", body["msg"], tt.wantMsg)
			}
		})
	}
}

func TestCreateBudget(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeBudgetService{budget: &models.Budget{ID: 1, Name: "Groceries", Amount: 50000}}
		rec := httptest.NewRecorder()
		body := `{"name":"Groceries","amount":500.00,"period":"monthly","startDate":"2025-06-01"}`
		newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/budgets", body))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}
		if svc.gotInput.Amount.Cents() != 50000 {
			t.Errorf("amount = %d cents, want 50000", svc.gotInput.Amount.Cents())
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		bodies := map[string]string{
			"missing name":    `{"amount":500,"period":"monthly","startDate":"2025-06-01"}`,
			"zero amount":     `{"name":"x","amount":0,"period":"monthly","startDate":"2025-06-01"}`,
			"negative amount": `{"name":"x","amount":-5,"period":"monthly","startDate":"2025-06-01"}`,
			"bad period":      `{"name":"x","amount":500,"period":"fortnightly","startDate":"2025-06-01"}`,
			"bad start date":  `{"name":"x","amount":500,"period":"monthly","startDate":"June 1st"}`,
			"bad end date":    `{"name":"x","amount":500,"period":"custom","startDate":"2025-06-01","endDate":"soon"}`,
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				newBudgetRouter(&fakeBudgetService{}).ServeHTTP(rec, authedRequest(http.MethodPost, "/budgets", body))
				if rec.Code != http.StatusBadRequest {
					t.Errorf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
				}
			})
		}
	})

	t.Run("foreign category", func(t *testing.T) {
		svc := &fakeBudgetService{err: services.ErrCategoryNotFound}
		rec := httptest.NewRecorder()
		body := `{"name":"x","amount":500,"period":"monthly","startDate":"2025-06-01","categoryId":3}`
		newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/budgets", body))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Category not found or unauthorized") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("custom period errors map to 400", func(t *testing.T) {
		svc := &fakeBudgetService{err: services.ErrEndDateRequired}
		rec := httptest.NewRecorder()
		body := `{"name":"x","amount":500,"period":"custom","startDate":"2025-06-01"}`
		newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/budgets", body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUpdateBudgetStatus(t *testing.T) {
	t.Run("rejects unknown status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newBudgetRouter(&fakeBudgetService{}).ServeHTTP(rec,
			authedRequest(http.MethodPut, "/budgets/1/status", `{"status":"archived"}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("accepts valid status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newBudgetRouter(&fakeBudgetService{}).ServeHTTP(rec,
			authedRequest(http.MethodPut, "/budgets/1/status", `{"status":"completed"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestDeleteBudget(t *testing.T) {
	rec := httptest.NewRecorder()
	newBudgetRouter(&fakeBudgetService{}).ServeHTTP(rec, authedRequest(http.MethodDelete, "/budgets/1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Budget removed") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestBudgetEvaluationWireShape(t *testing.T) {
	end := "2025-06-30"
	svc := &fakeBudgetService{listResp: []models.BudgetEvaluation{{
		Budget: models.Budget{
			ID: 1, UserID: 7, Name: "Groceries", Amount: 50000,
			Period: models.PeriodMonthly, StartDate: "2025-06-01", EndDate: &end,
			Status: models.BudgetStatusActive,
		},
		Spent:       55000,
		Remaining:   0,
		Progress:    100,
		RawProgress: 110,
		StatusInfo:  models.SpendingExceeded,
	}}}

	rec := httptest.NewRecorder()
	newBudgetRouter(svc).ServeHTTP(rec, authedRequest(http.MethodGet, "/budgets", ""))

	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	ev := out[0]
	if ev["amount"] != 500.00 || ev["spent"] != 550.00 {
		t.Errorf("amount/spent = %v/%v, want 500/550 as decimals", ev["amount"], ev["spent"])
	}
	if ev["progress"] != 100.0 {
		t.Errorf("progress = %v, want clamped 100", ev["progress"])
	}
	if _, leaked := ev["RawProgress"]; leaked {
		t.Error("RawProgress leaked into the JSON payload")
	}
	if ev["statusInfo"] != models.SpendingExceeded {
		t.Errorf("statusInfo = %v, want exceeded", ev["statusInfo"])
	}
}
