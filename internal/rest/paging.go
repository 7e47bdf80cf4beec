package rest

import (
	"net/http"
)

const (
	ParamMaxItems  = "maxItems"
	ParamSkipCount = "skipCount"

	// AllItems is the maxItems value that disables the page size limit.
	AllItems = -1
)

// PageRequest is the requested window over a result list.
type PageRequest struct {
	MaxItems  int
	SkipCount int
}

// Paging is the paging block returned with every list.
type Paging struct {
	TotalItems int `json:"totalItems"`
	MaxItems   int `json:"maxItems"`
	SkipCount  int `json:"skipCount"`
}

// ParsePaging reads maxItems and skipCount. Missing values mean all items from the start.
func ParsePaging(r *http.Request) (PageRequest, error) {
	req := PageRequest{MaxItems: AllItems}
	maxItems, err := ParseIntParam(r, ParamMaxItems)
	if err != nil {
		return req, err
	}
	if maxItems != nil {
		if *maxItems < 0 {
			return req, NewScriptError(http.StatusBadRequest, "%s must not be negative", ParamMaxItems)
		}
		req.MaxItems = *maxItems
	}
	skip, err := ParseIntParam(r, ParamSkipCount)
	if err != nil {
		return req, err
	}
	if skip != nil {
		if *skip < 0 {
			return req, NewScriptError(http.StatusBadRequest, "%s must not be negative", ParamSkipCount)
		}
		req.SkipCount = *skip
	}
	return req, nil
}

// ApplyPaging cuts the requested window out of items.
func ApplyPaging[T any](items []T, req PageRequest) ([]T, Paging) {
	total := len(items)
	paging := Paging{TotalItems: total, MaxItems: req.MaxItems, SkipCount: req.SkipCount}
	if req.MaxItems == AllItems {
		paging.MaxItems = total
	}
	start := req.SkipCount
	if start > total {
		start = total
	}
	end := total
	if req.MaxItems != AllItems && req.MaxItems < end-start {
		end = start + req.MaxItems
	}
	return items[start:end], paging
}
