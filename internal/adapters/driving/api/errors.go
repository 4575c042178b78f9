package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Error kinds reported in error bodies.
const (
	KindInvalidInput = "invalid_input"
	KindTooLarge     = "too_large"
	KindNotReady     = "not_ready"
	KindTimeout      = "timeout"
	KindCanceled     = "canceled"
	KindGeneration   = "generation"
	KindRetrieval    = "retrieval"
	KindInternal     = "internal"
)

// StatusClientClosedRequest is reported when the client went away before
// the answer was ready. net/http has no constant for it.
const StatusClientClosedRequest = 499

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an error from the query path to a status code and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, KindInvalidInput
	case errors.Is(err, domain.ErrEngineNotReady):
		return http.StatusServiceUnavailable, KindNotReady
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, KindTimeout
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, KindGeneration
	case errors.Is(err, domain.ErrRetrieval):
		return http.StatusBadGateway, KindRetrieval
	default:
		return http.StatusInternalServerError, KindInternal
	}
}
