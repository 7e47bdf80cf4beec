package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
)

// ExcludeFilter matches names against a comma separated list. An entry ending in * matches by prefix.
type ExcludeFilter struct {
	exact    map[string]bool
	prefixes []string
}

func NewExcludeFilter(list string) *ExcludeFilter {
	f := &ExcludeFilter{exact: map[string]bool{}}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case strings.HasSuffix(entry, "*"):
			f.prefixes = append(f.prefixes, strings.TrimSuffix(entry, "*"))
		default:
			f.exact[entry] = true
		}
	}
	return f
}

// ParseExcludeFilter returns nil when the parameter is absent or empty.
func ParseExcludeFilter(r *http.Request, name string) *ExcludeFilter {
	v := r.URL.Query().Get(name)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return NewExcludeFilter(v)
}

// IsMatch reports whether name is excluded. A nil filter excludes nothing.
func (f *ExcludeFilter) IsMatch(name string) bool {
	if f == nil {
		return false
	}
	if f.exact[name] {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// DateParam is a date query parameter. An empty value selects tasks or workflows without that date.
type DateParam struct {
	Set  bool
	Null bool
	At   time.Time
}

func ParseDateParam(r *http.Request, name string) (DateParam, error) {
	q := r.URL.Query()
	if !q.Has(name) {
		return DateParam{}, nil
	}
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return DateParam{Set: true, Null: true}, nil
	}
	t, err := dictionary.ParseISO8601(v)
	if err != nil {
		return DateParam{}, NewScriptError(http.StatusBadRequest, "Invalid date value %q for parameter %s", v, name)
	}
	return DateParam{Set: true, At: t}, nil
}

// Before reports whether d is strictly before the parameter. An unset parameter always matches.
func (p DateParam) Before(d *time.Time) bool {
	switch {
	case !p.Set:
		return true
	case p.Null:
		return d == nil
	}
	return d != nil && d.Before(p.At)
}

// After reports whether d is strictly after the parameter. An unset parameter always matches.
func (p DateParam) After(d *time.Time) bool {
	switch {
	case !p.Set:
		return true
	case p.Null:
		return d == nil
	}
	return d != nil && d.After(p.At)
}

// ParseIntParam returns nil when the parameter is absent or empty.
func ParseIntParam(r *http.Request, name string) (*int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, NewScriptError(http.StatusBadRequest, "Invalid number %q for parameter %s", v, name)
	}
	return &i, nil
}

// ParseBoolParam returns nil when the parameter is absent or empty.
func ParseBoolParam(r *http.Request, name string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, NewScriptError(http.StatusBadRequest, "Invalid boolean %q for parameter %s", v, name)
	}
	return &b, nil
}

// BoolParam is ParseBoolParam with false for a missing value.
func BoolParam(r *http.Request, name string) (bool, error) {
	b, err := ParseBoolParam(r, name)
	if err != nil || b == nil {
		return false, err
	}
	return *b, nil
}
