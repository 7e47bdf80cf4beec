package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// MaxBodyBytes caps the request bodies DecodeJSONBody reads.
const MaxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("empty request body")

func DecodeJSONBody[T any](r *http.Request) (T, error) {
	var zero T
	if r.Body == nil {
		return zero, ErrEmptyBody
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return zero, fmt.Errorf("read body error: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return zero, fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes)
	}
	if len(body) == 0 {
		return zero, ErrEmptyBody
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return zero, fmt.Errorf("json unmarshal error: %w", err)
	}
	return data, nil
}

func WriteJSONResponse[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
