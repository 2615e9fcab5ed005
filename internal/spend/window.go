package spend

import (
	"errors"
	"fmt"
	"strings"
)

// View selects which reporting window a breakdown covers.
type View string

const (
	// ViewOverall projects every cadence plus one-time purchases over a year.
	ViewOverall View = "overall"
	// ViewMonthly covers one calendar month: weekly and monthly items only.
	ViewMonthly View = "monthly"
	// ViewYearly covers one calendar year of yearly-billed items only.
	ViewYearly View = "yearly"
)

var (
	ErrInvalidView   = errors.New("invalid view")
	ErrInvalidWindow = errors.New("invalid reporting window")
)

// ParseView accepts a view name case-insensitively. Blank means overall.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewOverall:
		return ViewOverall, nil
	case ViewMonthly:
		return ViewMonthly, nil
	case ViewYearly:
		return ViewYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
}

// Window is a reporting window: a year, or a (year, month) pair when Month
// is non-zero.
type Window struct {
	Year  int
	Month int
}

// Options are the explicit selector inputs of one aggregation call.
type Options struct {
	View            View
	Window          Window
	IncludeWishlist bool
}

// Validate rejects selectors the engine cannot evaluate. The engine itself
// never validates; boundaries call this first.
func (o Options) Validate() error {
	switch o.View {
	case ViewOverall, ViewYearly, ViewMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidView, o.View)
	}
	if o.Window.Year < 1 || o.Window.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidWindow, o.Window.Year)
	}
	if o.Window.Month < 0 || o.Window.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidWindow, o.Window.Month)
	}
	if o.View == ViewMonthly && o.Window.Month == 0 {
		return fmt.Errorf("%w: monthly view needs a month", ErrInvalidWindow)
	}
	return nil
}

// Key identifies the options for caching results outside the engine.
func (o Options) Key() string {
	month := o.Window.Month
	if o.View != ViewMonthly {
		month = 0
	}
	return fmt.Sprintf("%s:%04d-%02d:%t", o.View, o.Window.Year, month, o.IncludeWishlist)
}

func (w Window) String() string {
	if w.Month == 0 {
		return fmt.Sprintf("%04d", w.Year)
	}
	return fmt.Sprintf("%04d-%02d", w.Year, w.Month)
}
