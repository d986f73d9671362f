package models

import (
	"time"
)

// DateLayout is the wire and storage format for calendar dates. Dates
// carry no time component; the lexical order of this layout matches
// chronological order, so SQL BETWEEN works directly on the strings.
const DateLayout = "2006-01-02"

// Expense is a single ledger entry. Amount is always non-negative; the
// direction of the money flow is carried by Type.
type Expense struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"userId"`
	Amount      Money        `json:"amount"`
	Description string       `json:"description,omitempty"`
	Date        string       `json:"date"`
	Type        string       `json:"type"`
	CategoryID  int64        `json:"categoryId"`
	Category    *CategoryRef `json:"category,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// ExpenseFilter narrows ledger queries. Zero values mean "not filtered".
// UserID is always required; Type is set to TypeExpense by all budget
// evaluation paths so income never counts against a budget.
type ExpenseFilter struct {
	UserID     int64
	Type       string
	CategoryID int64  // 0 means all categories
	DateFrom   string // inclusive, DateLayout
	DateTo     string // inclusive, DateLayout
}

// ExpenseQuery drives the expense listing endpoint. Zero values mean
// "not filtered"; SortBy/SortOrder are whitelisted by the store.
type ExpenseQuery struct {
	StartDate  string
	EndDate    string
	CategoryID int64
	Type       string
	MinAmount  Money
	MaxAmount  Money
	SortBy     string
	SortOrder  string
	Limit      int
	Offset     int
}

// DailyBucket is one day of aggregated spending. Days without matching
// rows are never materialized as zero buckets.
type DailyBucket struct {
	Day   string `json:"day"`
	Total Money  `json:"total"`
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func IsValidTransactionType(t string) bool {
	return t == TypeExpense || t == TypeIncome
}
