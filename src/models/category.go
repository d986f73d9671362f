package models

import "time"

// Category types mirror transaction types: a category holds either
// expenses or income entries.
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId,omitempty"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// CategoryRef is the slimmed-down category shape embedded in expense and
// budget responses.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon,omitempty"`
}

func IsValidCategoryType(t string) bool {
	return t == TypeExpense || t == TypeIncome
}
