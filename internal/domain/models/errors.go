package models

import "errors"

// Domain error taxonomy. Per-instrument and per-iteration failures are
// isolated by the callers; only ErrInvalidWeightConfig is process-fatal.
var (
	// ErrInsufficientData: too few bars to score an instrument.
	ErrInsufficientData = errors.New("insufficient bar data")

	// ErrDataUnavailable: the market-data collaborator failed; the
	// instrument's cycle is skipped, not retried here.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrModelUnavailable: the language-model collaborator failed; the
	// current iteration degrades to zero new evidence.
	ErrModelUnavailable = errors.New("language model unavailable")

	// ErrMalformedModelResponse: collaborator output failed format
	// validation; the affected document is dropped.
	ErrMalformedModelResponse = errors.New("malformed model response")

	// ErrInvalidWeightConfig: aggregation weights do not sum to 1.
	ErrInvalidWeightConfig = errors.New("aggregation weights must sum to 1")
)
