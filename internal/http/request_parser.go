// Package http serves the JSON API over the record store and the spend engine.
//
// This file parses and validates query parameters and request bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/spend"
)

// maxBodyBytes caps record bodies; a record is a few hundred bytes.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed input, as opposed to well-formed input that
// fails validation.
var errBadRequest = errors.New("bad request")

// ParseSpendOptions reads view, year, month and wishlist from query. Year
// defaults to the current year and, for the monthly view only, month defaults
// to the current month. The result is validated.
func ParseSpendOptions(query url.Values, now time.Time) (spend.Options, error) {
	view, err := spend.ParseView(query.Get("view"))
	if err != nil {
		return spend.Options{}, err
	}

	opts := spend.Options{View: view}
	if opts.Window.Year, err = intParam(query, "year", now.Year()); err != nil {
		return spend.Options{}, err
	}
	defMonth := 0
	if view == spend.ViewMonthly {
		defMonth = int(now.Month())
	}
	if opts.Window.Month, err = intParam(query, "month", defMonth); err != nil {
		return spend.Options{}, err
	}
	if opts.IncludeWishlist, err = boolParam(query, "wishlist", false); err != nil {
		return spend.Options{}, err
	}

	if err := opts.Validate(); err != nil {
		return spend.Options{}, err
	}
	return opts, nil
}

// UpcomingParams are the inputs of the upcoming charges endpoint.
type UpcomingParams struct {
	From            core.Date
	Days            int
	IncludeWishlist bool
}

// ParseUpcomingParams reads from (default today), days (default 30) and
// wishlist from query.
func ParseUpcomingParams(query url.Values, now time.Time) (UpcomingParams, error) {
	p := UpcomingParams{From: core.DateOf(now)}

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return UpcomingParams{}, fmt.Errorf("%w: from must be YYYY-MM-DD", errBadRequest)
		}
		p.From = d
	}

	var err error
	if p.Days, err = intParam(query, "days", 30); err != nil {
		return UpcomingParams{}, err
	}
	if p.Days < 1 || p.Days > services.MaxUpcomingDays {
		return UpcomingParams{}, fmt.Errorf("%w: days must be between 1 and %d", spend.ErrInvalidWindow, services.MaxUpcomingDays)
	}
	if p.IncludeWishlist, err = boolParam(query, "wishlist", false); err != nil {
		return UpcomingParams{}, err
	}
	return p, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return n, nil
}

func boolParam(query url.Values, key string, def bool) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", errBadRequest, key)
	}
	return b, nil
}

// decodeJSONBody decodes a single JSON value into dst, rejecting unknown
// fields and trailing data. Field-level decode errors that carry a
// validation sentinel keep it so they map to 422.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}
