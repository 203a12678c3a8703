package core

import (
	"errors"
	"strings"
	"time"
)

const (
	FoodAndDining  Category = "Food & Dining"
	Travel         Category = "Travel"
	Shopping       Category = "Shopping"
	Entertainment  Category = "Entertainment"
	BillsUtilities Category = "Bills & Utilities"
	Health         Category = "Health"
	Other          Category = "Other"
)

type (
	Category string

	// Credential is the opaque bearer token issued by the backend.
	Credential string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is the client's cached copy of a server-owned record.
	Expense struct {
		ID       string
		Title    string
		Category Category
		Amount   Money
		Date     Date
	}

	// Draft is unvalidated form state for an expense under edit.
	// A zero Date means the server assigns one at creation.
	Draft struct {
		Title    string
		Category Category
		Amount   Money
		Date     Date
	}

	// Profile is read-only account data; fetched, never mutated locally.
	Profile struct {
		Username string
		Email    string
	}
)

var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Empty reports whether the credential is absent.
func (c Credential) Empty() bool {
	return c == ""
}

// Categories returns the fixed category set in stable display order.
func Categories() []Category {
	return []Category{
		FoodAndDining,
		Travel,
		Shopping,
		Entertainment,
		BillsUtilities,
		Health,
		Other,
	}
}

// Known reports whether c is part of the fixed category set.
func (c Category) Known() bool {
	switch c {
	case FoodAndDining, Travel, Shopping, Entertainment, BillsUtilities, Health, Other:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches a category name case-insensitively against the
// fixed set. Returns ErrUnknownCategory for anything outside it.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (d Draft) Validate() error {
	if len(strings.TrimSpace(d.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(d.Title) > 200 {
		return ErrTitleTooLong
	}
	if !d.Category.Known() {
		return ErrUnknownCategory
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
