// Package http serves the ledger and the reports as a JSON API.
//
// This file holds the request parsing shared by the handlers: body decoding
// for JSON or form payloads and query parsing for search criteria and report
// ranges.
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

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

// DateLayout is the calendar-day format used in queries and bodies.
const DateLayout = "2006-01-02"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// BadRequestError marks malformed input (as opposed to invalid values).
type BadRequestError struct {
	Param string
	Err   error
}

func (e *BadRequestError) Error() string {
	if e.Param == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
}

func (e *BadRequestError) Unwrap() error { return e.Err }

func badRequest(param string, err error) error {
	return &BadRequestError{Param: param, Err: err}
}

// RequestBodyParser reads a JSON object or form-encoded body once and serves
// its fields as trimmed strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object, else as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = badRequest("body", p.err)
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = badRequest("body", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = badRequest("body", p.err)
	}
	return p.err
}

// Has reports whether key was sent, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
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

// parseDay reads YYYY-MM-DD as midnight in loc, or an RFC 3339 timestamp.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD", s)
}

// ParseTransaction builds a new transaction from the body. Missing fields
// stay zero and are rejected by validation downstream.
func ParseTransaction(p *RequestBodyParser, loc *time.Location) (core.Transaction, error) {
	var t core.Transaction
	patch, err := ParseTransactionPatch(p, loc)
	if err != nil {
		return t, err
	}
	t = patch.Apply(t)
	if t.Date.IsZero() && !p.Has("date") {
		t.Date = time.Now().In(loc)
	}
	return t, t.Validate()
}

// ParseTransactionPatch reads only the fields present in the body.
func ParseTransactionPatch(p *RequestBodyParser, loc *time.Location) (core.TransactionPatch, error) {
	var patch core.TransactionPatch
	if err := p.Parse(); err != nil {
		return patch, err
	}

	if p.Has("amount") {
		m, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return patch, core.NewValidationError("amount", err)
		}
		patch.Amount = &m
	}
	if p.Has("category") {
		c := p.Get("category")
		patch.Category = &c
	}
	if p.Has("date") {
		d, err := parseDay(p.Get("date"), loc)
		if err != nil {
			return patch, core.NewValidationError("date", core.ErrInvalidDate)
		}
		patch.Date = &d
	}
	if p.Has("description") {
		d := p.Get("description")
		patch.Description = &d
	}
	if p.Has("type") {
		typ, err := core.ParseTxType(p.Get("type"))
		if err != nil {
			return patch, core.NewValidationError("type", err)
		}
		patch.Type = &typ
	}
	return patch, nil
}

// ParseCategory builds a new category from the body.
func ParseCategory(p *RequestBodyParser) (core.Category, error) {
	if err := p.Parse(); err != nil {
		return core.Category{}, err
	}
	typ, err := core.ParseTxType(p.Get("type"))
	if err != nil {
		return core.Category{}, core.NewValidationError("type", err)
	}
	return core.Category{
		Name:  p.Get("name"),
		Color: p.Get("color"),
		Type:  typ,
	}, nil
}

// ParseCategoryPatch reads name and color; a type change is rejected.
func ParseCategoryPatch(p *RequestBodyParser) (core.CategoryPatch, error) {
	var patch core.CategoryPatch
	if err := p.Parse(); err != nil {
		return patch, err
	}
	if p.Has("type") {
		return patch, badRequest("type", errors.New("category type cannot be changed"))
	}
	if p.Has("name") {
		n := p.Get("name")
		patch.Name = &n
	}
	if p.Has("color") {
		c := p.Get("color")
		patch.Color = &c
	}
	return patch, nil
}

// RangeResolver turns a preset or calendar bounds into a range.
type RangeResolver interface {
	ResolveRange(req services.ReportRequest) (report.Range, error)
	Location() *time.Location
}

// ParseCriteria reads search parameters:
//
//	q, category, type, start, end (YYYY-MM-DD, inclusive), preset,
//	min, max (amounts), sort (date|amount|category), order (asc|desc)
//
// A preset overrides start and end.
func ParseCriteria(q url.Values, rr RangeResolver) (report.Criteria, error) {
	var c report.Criteria
	loc := rr.Location()

	c.Query = strings.TrimSpace(sanitizeInput(q.Get("q")))
	c.Category = strings.TrimSpace(sanitizeInput(q.Get("category")))
	if v := q.Get("type"); v != "" {
		typ, err := core.ParseTxType(v)
		if err != nil {
			return c, badRequest("type", err)
		}
		c.Type = typ
	}

	if preset := strings.TrimSpace(q.Get("preset")); preset != "" {
		r, err := rr.ResolveRange(services.ReportRequest{Preset: report.Preset(preset)})
		if err != nil {
			return c, badRequest("preset", err)
		}
		c.Start, c.End = r.Start, r.End
	} else {
		if v := q.Get("start"); v != "" {
			t, err := parseDay(v, loc)
			if err != nil {
				return c, badRequest("start", err)
			}
			c.Start = report.StartOfDay(t)
		}
		if v := q.Get("end"); v != "" {
			t, err := parseDay(v, loc)
			if err != nil {
				return c, badRequest("end", err)
			}
			c.End = report.EndOfDay(t)
		}
	}

	for _, bound := range []struct {
		key string
		dst **core.Money
	}{{"min", &c.MinAmount}, {"max", &c.MaxAmount}} {
		if v := q.Get(bound.key); v != "" {
			m, err := core.ParseAmount(v)
			if err != nil {
				return c, badRequest(bound.key, err)
			}
			*bound.dst = &m
		}
	}

	sortBy, err := report.ParseSortField(q.Get("sort"))
	if err != nil {
		return c, badRequest("sort", err)
	}
	c.SortBy = sortBy
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		c.SortAsc = true
	default:
		return c, badRequest("order", fmt.Errorf("%q is not asc or desc", q.Get("order")))
	}
	return c, nil
}

// ParseReportRequest reads preset, start, end, labels, limit, breakdown and
// months. Dates are calendar days; the service applies its location.
func ParseReportRequest(q url.Values) (services.ReportRequest, error) {
	var req services.ReportRequest
	req.Preset = report.Preset(strings.TrimSpace(q.Get("preset")))

	for _, d := range []struct {
		key string
		dst *time.Time
	}{{"start", &req.Start}, {"end", &req.End}} {
		if v := q.Get(d.key); v != "" {
			t, err := time.Parse(DateLayout, strings.TrimSpace(v))
			if err != nil {
				return req, badRequest(d.key, fmt.Errorf("%q is not YYYY-MM-DD", v))
			}
			*d.dst = t
		}
	}

	labels, ok := report.ParseLabelFormat(q.Get("labels"))
	if !ok {
		return req, badRequest("labels", fmt.Errorf("%q is not short or long", q.Get("labels")))
	}
	req.Labels = labels

	for _, n := range []struct {
		key string
		dst *int
	}{{"limit", &req.TopLimit}, {"breakdown", &req.BreakdownLimit}, {"months", &req.ComparisonMonths}} {
		if v := q.Get(n.key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil || i < 0 {
				return req, badRequest(n.key, fmt.Errorf("%q is not a non-negative integer", v))
			}
			*n.dst = i
		}
	}
	return req, nil
}
