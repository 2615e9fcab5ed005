package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly   BillingType = "weekly"
	Monthly  BillingType = "monthly"
	Yearly   BillingType = "yearly"
	Lifetime BillingType = "lifetime"
)

const (
	StatusActive   Status = "active"
	StatusWishlist Status = "wishlist"
)

const (
	AccessOwned  AccessType = "owned"
	AccessShared AccessType = "shared"
)

type (
	BillingType string
	Status      string
	AccessType  string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Subscription is a recurring (or lifetime) charge owned by the storage layer.
	// The zero StopDate means no planned cancellation.
	Subscription struct {
		ID          string
		Name        string
		Category    Category
		BillingType BillingType
		Amount      Money
		StartDate   Date
		HasStopDate bool
		StopDate    Date
		Status      Status
		AccessType  AccessType
		UserPaying  bool
		Notes       string
	}

	// OneTimeItem is a single purchase counted in the year of its date.
	OneTimeItem struct {
		ID       string
		Name     string
		Category Category
		Amount   Money
		Date     Date
		Notes    string
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 200 characters)")
	ErrInvalidBillingType = errors.New("invalid billing type")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidAccessType  = errors.New("invalid access type")
	ErrStopBeforeStart    = errors.New("stop date must be after start date")
	ErrMissingDate        = errors.New("date is required")
	ErrInvalidDate        = errors.New("invalid date")
)

var validationErrors = []error{
	ErrInvalidDay, ErrInvalidMonth, ErrInvalidAmount, ErrEmptyName,
	ErrNameTooLong, ErrInvalidBillingType, ErrInvalidStatus,
	ErrInvalidAccessType, ErrStopBeforeStart, ErrMissingDate,
	ErrInvalidDate, ErrUnknownCategory,
}

// IsValidationError reports whether err stems from rejected record input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DateLayout is the calendar date format used at every boundary.
const DateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its local calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (used for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Times scales the amount by a billing count.
func (m Money) Times(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (b BillingType) IsValid() bool {
	switch b {
	case Weekly, Monthly, Yearly, Lifetime:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusWishlist
}

func (a AccessType) IsValid() bool {
	return a == AccessOwned || a == AccessShared
}

// Stop returns the planned stop date, or the zero Date when none is set.
func (s Subscription) Stop() Date {
	if !s.HasStopDate {
		return Date{}
	}
	return s.StopDate
}

// CountsTowardSpend reports whether the subscription can contribute to
// recurring totals at all: lifetime purchases and items paid by someone else
// never do, and wishlist items only when explicitly requested.
func (s Subscription) CountsTowardSpend(includeWishlist bool) bool {
	if !s.UserPaying {
		return false
	}
	if s.BillingType == Lifetime {
		return false
	}
	if s.Status != StatusActive && !includeWishlist {
		return false
	}
	return true
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (s Subscription) Validate() error {
	if err := validateName(s.Name); err != nil {
		return err
	}
	if _, err := ParseCategory(string(s.Category)); err != nil {
		return err
	}
	if !s.BillingType.IsValid() {
		return ErrInvalidBillingType
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if s.HasStopDate {
		if err := s.StopDate.Validate(); err != nil {
			return fmt.Errorf("invalid stop date: %w", err)
		}
		if !s.StopDate.After(s.StartDate.Time) {
			return ErrStopBeforeStart
		}
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !s.AccessType.IsValid() {
		return ErrInvalidAccessType
	}
	return nil
}

func (o OneTimeItem) Validate() error {
	if err := validateName(o.Name); err != nil {
		return err
	}
	if _, err := ParseCategory(string(o.Category)); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if err := o.Date.Validate(); err != nil {
		return err
	}
	return nil
}
