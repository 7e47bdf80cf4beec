package rest

import (
	"sort"
	"time"
)

// DueDateAscending orders by due date with undated entries last. Ties fall back to id.
func DueDateAscending(aDue *time.Time, aID string, bDue *time.Time, bID string) bool {
	switch {
	case aDue == nil && bDue == nil:
	case aDue == nil:
		return false
	case bDue == nil:
		return true
	case !aDue.Equal(*bDue):
		return aDue.Before(*bDue)
	}
	return aID < bID
}

// SortByDueDate sorts items in place with DueDateAscending.
func SortByDueDate[T any](items []T, due func(T) *time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return DueDateAscending(due(items[i]), id(items[i]), due(items[j]), id(items[j]))
	})
}
