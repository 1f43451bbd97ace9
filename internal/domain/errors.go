package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGameNotFound signals a missing game.
	ErrGameNotFound = errors.New("game not found")
	// ErrDuplicateID signals two corpus entities sharing an id.
	ErrDuplicateID = errors.New("duplicate game id")
	// ErrDimensionMismatch signals an embedding vector of the wrong dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyCorpus signals a load with zero entities while semantic search is enabled.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrNotLoaded signals that no corpus snapshot has been loaded yet.
	ErrNotLoaded = errors.New("engine not loaded")
	// ErrUnavailable signals that both retrieval indices are unavailable.
	ErrUnavailable = errors.New("search unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrQueryRejected is the sentinel wrapped by ValidationError.
	ErrQueryRejected = errors.New("query rejected")
)

// ValidationError rejects a query before it reaches either index.
type ValidationError struct {
	Reason    string
	RiskScore float64
}

func (e *ValidationError) Error() string {
	if e.RiskScore > 0 {
		return fmt.Sprintf("%s: %s (risk %.1f)", ErrQueryRejected.Error(), e.Reason, e.RiskScore)
	}
	return ErrQueryRejected.Error() + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrQueryRejected }

// NewValidationError creates a query rejection.
func NewValidationError(reason string, riskScore float64) error {
	return &ValidationError{Reason: reason, RiskScore: riskScore}
}

// DimensionError wraps ErrDimensionMismatch with the offending game and sizes.
type DimensionError struct {
	GameID int
	Got    int
	Want   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: game %d has %d dimensions, index expects %d",
		ErrDimensionMismatch.Error(), e.GameID, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a fatal load-time dimension mismatch.
func NewDimensionError(gameID, got, want int) error {
	return &DimensionError{GameID: gameID, Got: got, Want: want}
}
