package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
)

const (
	maxNameLength     = 255
	minPasswordLength = 6
	maxBodyBytes      = 1 << 20
)

// fieldErrors collects per-field validation messages for one request.
type fieldErrors map[string]string

func (e fieldErrors) add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

func (e fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, "is required")
	}
}

func (e fieldErrors) maxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		e.add(field, fmt.Sprintf("must be at most %d characters", n))
	}
}

// requiredText applies the usual rules for short required strings.
func (e fieldErrors) requiredText(field, value string) {
	e.required(field, value)
	e.maxLen(field, value, maxNameLength)
}

func (e fieldErrors) optionalText(field string, value *string) {
	if value != nil {
		e.maxLen(field, *value, maxNameLength)
	}
}

func (e fieldErrors) timestamp(field, value string) time.Time {
	if value == "" {
		e.add(field, "is required")
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		e.add(field, "must be an RFC 3339 timestamp")
	}
	return t
}

func (e fieldErrors) optionalTimestamp(field string, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	t := e.timestamp(field, *value)
	return &t
}

func (e fieldErrors) coordinate(field string, value *float64, limit float64) float64 {
	if value == nil {
		e.add(field, "is required")
		return 0
	}
	if *value < -limit || *value > limit {
		e.add(field, fmt.Sprintf("must be between %g and %g", -limit, limit))
	}
	return *value
}

func (e fieldErrors) email(field, value string) {
	e.required(field, value)
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		e.add(field, "must be a valid e-mail address")
	}
	e.maxLen(field, value, maxNameLength)
}

func (e fieldErrors) password(field, value string) {
	if utf8.RuneCountInString(value) < minPasswordLength {
		e.add(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
}

// respond writes the collected errors and reports whether there were any.
func (e fieldErrors) respond(w http.ResponseWriter) bool {
	if len(e) == 0 {
		return false
	}
	common.RespondWithValidationError(w, e)
	return true
}

// decodeJSON reads a JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		common.RespondWithValidationError(w, map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// Pagination is the parsed page/pageSize pair.
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and pageSize, defaulting to the first page of
// service.DefaultPageSize. Present values must be positive integers.
func ParsePagination(q url.Values) (Pagination, fieldErrors) {
	errs := fieldErrors{}
	p := Pagination{Page: service.DefaultPage, PageSize: service.DefaultPageSize}
	if v, ok := parsePositive(errs, q, "page"); ok {
		p.Page = v
	}
	if v, ok := parsePositive(errs, q, "pageSize"); ok {
		p.PageSize = v
	}
	return p, errs
}

func parsePositive(errs fieldErrors, q url.Values, key string) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		errs.add(key, "must be a positive integer")
		return 0, false
	}
	return n, true
}
