package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/inbound"
	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/validate"
)

// Importer is an interface satisfied by anything that can pull identities
// from a destination and hand them upstream
type Importer interface {
	Import(ctx context.Context) (*scim.BulkRequest, error)
}

// InboundImporter pulls a document from a Source, maps every record in it
// into a bulk request and publishes the request. It knows how to convert
// records with its inbound mapping config.
type InboundImporter struct {
	config    *config.Inbound
	source    Source
	publisher Publisher

	// NewCorrelationID generates the id carried by every published request.
	NewCorrelationID func() string
}

var _ Importer = &InboundImporter{}

// NewInboundImporter returns a new instance of an inbound importer
func NewInboundImporter(cfg *config.Inbound, source Source, publisher Publisher) *InboundImporter {
	return &InboundImporter{
		config:           cfg,
		source:           source,
		publisher:        publisher,
		NewCorrelationID: uuid.NewString,
	}
}

// Import validates the mapping config, fetches and maps the source document,
// validates the result and publishes it. Nothing is published unless every
// record maps and the bulk request is valid.
func (i *InboundImporter) Import(ctx context.Context) (*scim.BulkRequest, error) {
	if res := validate.InboundConfig(i.config); !res.Valid {
		return nil, &ValidationError{Stage: "inbound config", Result: res}
	}

	doc, err := i.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching source document: %w", err)
	}

	correlationID := i.NewCorrelationID()
	bulk, err := inbound.Map(i.config, doc, correlationID)
	if err != nil {
		return nil, err
	}
	if res := validate.Bulk(bulk); !res.Valid {
		return nil, &ValidationError{Stage: "bulk payload", Result: res}
	}

	log.Info().
		Str("correlation_id", correlationID).
		Int("operations", len(bulk.Operations)).
		Msg("publishing bulk request")
	if err := i.publisher.Publish(ctx, bulk, correlationID); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", correlationID, err)
	}
	return bulk, nil
}

// ValidationError reports a failed validation pass.
type ValidationError struct {
	Stage  string
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Stage, strings.Join(e.Result.Errors, "; "))
}
