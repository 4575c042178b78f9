package api

import (
	"errors"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("api: query service is required")

// Ports aggregates the driving ports the HTTP server needs.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Status reports on the opened index. Optional; /health reports
	// not ready without it.
	Status driving.IndexStatus
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
