package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tally/internal/core"
)

// Amount is a money value as written by people: "9.99", 9.99 or 10.
// It decodes from JSON, TOML and YAML and encodes as a decimal string.
type Amount struct {
	core.Money
}

func (a *Amount) set(text string) error {
	cents, err := core.ParseDecimalToCents(text)
	if err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidAmount, text)
	}
	a.Money = core.Money{Cents: cents}
	return nil
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.Money.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	return a.set(string(text))
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Money.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	return a.set(s)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (a *Amount) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case string:
		return a.set(x)
	case int64:
		return a.set(strconv.FormatInt(x, 10))
	case float64:
		return a.set(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return fmt.Errorf("%w: unsupported TOML value %T", core.ErrInvalidAmount, v)
	}
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a number", core.ErrInvalidAmount, node.Line)
	}
	return a.set(node.Value)
}

// Day is a calendar date written as YYYY-MM-DD. TOML local dates and YAML
// timestamps are accepted too. The zero Day encodes as an empty string.
type Day struct {
	core.Date
}

func (d *Day) set(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		d.Date = core.Date{}
		return nil
	}
	parsed, err := core.ParseDate(text)
	if err != nil {
		return fmt.Errorf("%w: %q (want YYYY-MM-DD)", core.ErrInvalidDate, text)
	}
	d.Date = parsed
	return nil
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.Date.String()), nil
}

// UnmarshalText accepts YYYY-MM-DD; empty text clears the date.
func (d *Day) UnmarshalText(text []byte) error {
	return d.set(string(text))
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Date.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidDate, data)
	}
	return d.set(s)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (d *Day) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case string:
		return d.set(x)
	case time.Time:
		d.Date = core.NewDate(x.Year(), int(x.Month()), x.Day())
		return nil
	default:
		return fmt.Errorf("%w: unsupported TOML value %T", core.ErrInvalidDate, v)
	}
}

func (d *Day) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a date", core.ErrInvalidDate, node.Line)
	}
	// Timestamps carry a time part in YAML; only the date is kept.
	value, _, _ := strings.Cut(node.Value, "T")
	return d.set(value)
}

// SubscriptionRecord is the wire shape of a subscription in API bodies and
// import files. Blank status, access type and user_paying default to an
// active, owned subscription paid by the user.
type SubscriptionRecord struct {
	ID          string `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" toml:"name" yaml:"name"`
	Category    string `json:"category" toml:"category" yaml:"category"`
	BillingType string `json:"billing_type" toml:"billing_type" yaml:"billing_type"`
	Amount      Amount `json:"amount" toml:"amount" yaml:"amount"`
	StartDate   Day    `json:"start_date" toml:"start_date" yaml:"start_date"`
	StopDate    Day    `json:"stop_date,omitzero" toml:"stop_date,omitempty" yaml:"stop_date,omitempty"`
	Status      string `json:"status" toml:"status" yaml:"status"`
	AccessType  string `json:"access_type" toml:"access_type" yaml:"access_type"`
	UserPaying  *bool  `json:"user_paying" toml:"user_paying" yaml:"user_paying"`
	Notes       string `json:"notes,omitempty" toml:"notes,omitempty" yaml:"notes,omitempty"`
}

// OneTimeItemRecord is the wire shape of a one-time purchase.
type OneTimeItemRecord struct {
	ID       string `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" toml:"name" yaml:"name"`
	Category string `json:"category" toml:"category" yaml:"category"`
	Amount   Amount `json:"amount" toml:"amount" yaml:"amount"`
	Date     Day    `json:"date" toml:"date" yaml:"date"`
	Notes    string `json:"notes,omitempty" toml:"notes,omitempty" yaml:"notes,omitempty"`
}

// ToCore converts and validates the record.
func (r SubscriptionRecord) ToCore() (core.Subscription, error) {
	category, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("%w: %q", err, r.Category)
	}

	status := core.Status(strings.ToLower(strings.TrimSpace(r.Status)))
	if status == "" {
		status = core.StatusActive
	}
	access := core.AccessType(strings.ToLower(strings.TrimSpace(r.AccessType)))
	if access == "" {
		access = core.AccessOwned
	}
	paying := true
	if r.UserPaying != nil {
		paying = *r.UserPaying
	}

	sub := core.Subscription{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Category:    category,
		BillingType: core.BillingType(strings.ToLower(strings.TrimSpace(r.BillingType))),
		Amount:      r.Amount.Money,
		StartDate:   r.StartDate.Date,
		HasStopDate: !r.StopDate.IsZero(),
		StopDate:    r.StopDate.Date,
		Status:      status,
		AccessType:  access,
		UserPaying:  paying,
		Notes:       strings.TrimSpace(r.Notes),
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	return sub, nil
}

// ToCore converts and validates the record.
func (r OneTimeItemRecord) ToCore() (core.OneTimeItem, error) {
	category, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("%w: %q", err, r.Category)
	}
	item := core.OneTimeItem{
		ID:       strings.TrimSpace(r.ID),
		Name:     strings.TrimSpace(r.Name),
		Category: category,
		Amount:   r.Amount.Money,
		Date:     r.Date.Date,
		Notes:    strings.TrimSpace(r.Notes),
	}
	if err := item.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	return item, nil
}

func SubscriptionRecordFrom(s core.Subscription) SubscriptionRecord {
	paying := s.UserPaying
	rec := SubscriptionRecord{
		ID:          s.ID,
		Name:        s.Name,
		Category:    string(s.Category.Normalize()),
		BillingType: string(s.BillingType),
		Amount:      Amount{s.Amount},
		StartDate:   Day{s.StartDate},
		Status:      string(s.Status),
		AccessType:  string(s.AccessType),
		UserPaying:  &paying,
		Notes:       s.Notes,
	}
	if s.HasStopDate {
		rec.StopDate = Day{s.StopDate}
	}
	return rec
}

func OneTimeItemRecordFrom(o core.OneTimeItem) OneTimeItemRecord {
	return OneTimeItemRecord{
		ID:       o.ID,
		Name:     o.Name,
		Category: string(o.Category.Normalize()),
		Amount:   Amount{o.Amount},
		Date:     Day{o.Date},
		Notes:    o.Notes,
	}
}
