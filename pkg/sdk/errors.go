package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from API error codes. Use errors.Is to branch.
var (
	ErrGameNotFound  = errors.New("game not found")
	ErrQueryRejected = errors.New("query rejected")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrUnavailable   = errors.New("search unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
)

// APIError carries the decoded error body of a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	RiskScore  float64 `json:"risk_score,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamedex API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps API codes onto sentinel errors.
func (e *APIError) Unwrap() error {
	if e.StatusCode == 401 {
		return ErrUnauthorized
	}
	switch e.Code {
	case "game_not_found":
		return ErrGameNotFound
	case "query_rejected":
		return ErrQueryRejected
	case "validation_failed", "bad_request":
		return ErrInvalidQuery
	case "corpus_not_loaded", "search_unavailable":
		return ErrUnavailable
	}
	return nil
}
