package models

import "strings"

type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusAlive   StatusFilter = "alive"
	StatusDead    StatusFilter = "dead"
	StatusUnknown StatusFilter = "unknown"
)

// StatusFilters lists the accepted filter values in display order.
var StatusFilters = []StatusFilter{StatusAll, StatusAlive, StatusDead, StatusUnknown}

// ParseStatusFilter matches s case-insensitively against the known filters.
// An empty string selects StatusAll.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusAll, true
	}
	for _, f := range StatusFilters {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Filter is the (status, name, page) tuple driving the remote query.
type Filter struct {
	Status StatusFilter `json:"status"`
	Name   string       `json:"name"`
	Page   int          `json:"page"`
}

// DefaultFilter is the state a fresh browser starts in.
func DefaultFilter() Filter {
	return Filter{Status: StatusAll, Page: 1}
}

// HasStatus reports whether the status parameter is sent upstream.
func (f Filter) HasStatus() bool {
	return f.Status != "" && f.Status != StatusAll
}

// HasName reports whether the name parameter is sent upstream.
func (f Filter) HasName() bool {
	return strings.TrimSpace(f.Name) != ""
}
