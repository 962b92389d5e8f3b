// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies for drafts and accounts, and query strings for
// transaction listings.

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

	"finanzas/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("%w: body larger than %d bytes", errValidation, maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseDraft reads a transaction draft from the body. A missing date means
// today. Structural validation is left to the caller.
func ParseDraft(p *RequestBodyParser, today core.Date) (core.TransactionDraft, error) {
	if err := p.Parse(); err != nil {
		return core.TransactionDraft{}, fmt.Errorf("%w: malformed body: %v", errValidation, err)
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionDraft{}, fmt.Errorf("amount %q: %w", p.Get("amount"), err)
	}
	kind, err := core.ParseMovementKind(p.Get("kind"))
	if err != nil {
		return core.TransactionDraft{}, fmt.Errorf("kind %q: %w", p.Get("kind"), err)
	}

	date := today
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.TransactionDraft{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", errValidation, v)
		}
	}

	return core.TransactionDraft{
		Amount:      amount,
		Kind:        kind,
		AccountID:   p.Get("account_id"),
		CategoryID:  p.Get("category_id"),
		Description: p.Get("description"),
		Date:        date,
	}, nil
}

// ParseAccount reads a new account from the body. The opening balance
// defaults to zero and the state to active.
func ParseAccount(p *RequestBodyParser) (core.Account, error) {
	if err := p.Parse(); err != nil {
		return core.Account{}, fmt.Errorf("%w: malformed body: %v", errValidation, err)
	}

	a := core.Account{
		Name:  p.Get("name"),
		Kind:  p.Get("kind"),
		State: core.AccountActive,
	}
	if v := p.Get("balance"); v != "" {
		balance, err := core.ParseMoney(v)
		if err != nil {
			return core.Account{}, fmt.Errorf("balance %q: %w", v, err)
		}
		a.Balance = balance
	}
	if v := p.Get("state"); v != "" {
		state, err := core.ParseAccountState(v)
		if err != nil {
			return core.Account{}, fmt.Errorf("state %q: %w", v, err)
		}
		a.State = state
	}
	return a, a.Validate()
}

// ParseAccountEdit reads an account edit. A balance in the body is ignored.
// A missing state keeps the account active.
func ParseAccountEdit(p *RequestBodyParser) (core.AccountEdit, error) {
	if err := p.Parse(); err != nil {
		return core.AccountEdit{}, fmt.Errorf("%w: malformed body: %v", errValidation, err)
	}

	e := core.AccountEdit{
		Name:  p.Get("name"),
		Kind:  p.Get("kind"),
		State: core.AccountActive,
	}
	if v := p.Get("state"); v != "" {
		state, err := core.ParseAccountState(v)
		if err != nil {
			return core.AccountEdit{}, fmt.Errorf("state %q: %w", v, err)
		}
		e.State = state
	}
	return e, e.Validate()
}

// ParseCategory reads a category from the body. An empty kind means the
// category serves both income and expense.
func ParseCategory(p *RequestBodyParser) (core.Category, error) {
	if err := p.Parse(); err != nil {
		return core.Category{}, fmt.Errorf("%w: malformed body: %v", errValidation, err)
	}

	c := core.Category{
		ID:    p.Get("id"),
		Label: p.Get("label"),
	}
	if v := p.Get("kind"); v != "" {
		kind, err := core.ParseMovementKind(v)
		if err != nil {
			return core.Category{}, fmt.Errorf("kind %q: %w", v, err)
		}
		c.Kind = kind
	}
	return c, c.Validate()
}

// ParseTransactionFilter reads a listing filter from the query string:
//
//	from, to            YYYY-MM-DD, inclusive
//	account, category   ids
//	kind                income | expense
//	min, max            amounts
//	order               date | amount, dir asc | desc (default date desc)
//	page, limit
func ParseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	var errs []error

	date := func(key string) core.Date {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return core.Date{}
		}
		d, err := core.ParseDate(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q must be YYYY-MM-DD", key, v))
		}
		return d
	}
	amount := func(key string) *core.Money {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		m, err := core.ParseMoney(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q is not an amount", key, v))
			return nil
		}
		return &m
	}
	number := func(key string) int {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%s %q must be a positive integer", key, v))
			return 0
		}
		return n
	}

	f.From = date("from")
	f.To = date("to")
	f.AccountID = sanitizeInput(q.Get("account"))
	f.CategoryID = sanitizeInput(q.Get("category"))
	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		kind, err := core.ParseMovementKind(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("kind %q must be income or expense", v))
		}
		f.Kind = kind
	}
	f.MinAmount = amount("min")
	f.MaxAmount = amount("max")

	switch order := strings.TrimSpace(q.Get("order")); order {
	case "", "date", "amount":
		f.OrderBy = order
	default:
		errs = append(errs, fmt.Errorf("order %q must be date or amount", order))
	}
	switch dir := strings.ToLower(strings.TrimSpace(q.Get("dir"))); dir {
	case "", "desc":
		f.Descending = true
	case "asc":
	default:
		errs = append(errs, fmt.Errorf("dir %q must be asc or desc", dir))
	}
	f.Page = number("page")
	f.Limit = number("limit")

	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		errs = append(errs, errors.New("to must not be before from"))
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		errs = append(errs, errors.New("max must not be below min"))
	}

	if len(errs) > 0 {
		return core.TransactionFilter{}, fmt.Errorf("%w: %w", errValidation, errors.Join(errs...))
	}
	return f.Normalize(), nil
}
