// This file implements utilities for parsing and validating request data:
// pagination, payment filters and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"paytrack/internal/core"
)

const (
	// DefaultPageSize is used when the size parameter is absent.
	DefaultPageSize = 20
	// MaxPageSize bounds a single listing.
	MaxPageSize = 100
	// MaxPage keeps page*MaxPageSize within an int.
	MaxPage = math.MaxInt / MaxPageSize
	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 1 << 20
)

// PageParams holds a 0-based page and its size.
type PageParams struct {
	Page int
	Size int
}

// ParsePageParams reads page and size. Missing values take defaults;
// malformed or out-of-range values are errors.
func ParsePageParams(query url.Values) (PageParams, error) {
	params := PageParams{Page: 0, Size: DefaultPageSize}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 {
			return PageParams{}, fmt.Errorf("page must be a non-negative integer")
		}
		if p > MaxPage {
			return PageParams{}, fmt.Errorf("page must be at most %d", MaxPage)
		}
		params.Page = p
	}
	if v := strings.TrimSpace(query.Get("size")); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 1 || s > MaxPageSize {
			return PageParams{}, fmt.Errorf("size must be between 1 and %d", MaxPageSize)
		}
		params.Size = s
	}
	return params, nil
}

// ParseDateRange reads and validates dateFrom/dateTo.
func ParseDateRange(query url.Values) (from, to string, err error) {
	from = strings.TrimSpace(query.Get("dateFrom"))
	to = strings.TrimSpace(query.Get("dateTo"))
	for name, v := range map[string]string{"dateFrom": from, "dateTo": to} {
		if v == "" {
			continue
		}
		if _, perr := core.ParseDate(v); perr != nil {
			return "", "", fmt.Errorf("%s must be a YYYY-MM-DD date", name)
		}
	}
	return from, to, nil
}

// ParsePaymentFilters reads the listing filters from the query string.
func ParsePaymentFilters(query url.Values) (core.PaymentFilters, error) {
	from, to, err := ParseDateRange(query)
	if err != nil {
		return core.PaymentFilters{}, err
	}
	return core.PaymentFilters{
		Search:   sanitizeInput(query.Get("search")),
		Category: sanitizeInput(query.Get("category")),
		Wallet:   sanitizeInput(query.Get("wallet")),
		DateFrom: from,
		DateTo:   to,
	}, nil
}

// DecodeJSONBody decodes a bounded JSON body into v, rejecting unknown fields.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
