// Package provision renders canonical resources against a tenant's endpoint
// schemas and hands the result to a destination writer.
package provision

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
	"github.com/authzed/connector-scim/pkg/scim"
	"github.com/authzed/connector-scim/pkg/write"
)

// Rendered is a destination call ready to be written, plus the schema it was
// rendered from.
type Rendered struct {
	Request *write.Request
	// Command is the rendered statement for SQL destinations.
	Command string

	schema config.Schema
}

// Result reports a completed provisioning call.
type Result struct {
	Kind         config.RequestKind `json:"request_kind"`
	ResourceType string             `json:"resource_type"`
	Status       int                `json:"status"`
	// ID is the destination-side identifier, when one could be resolved.
	ID        string `json:"id,omitempty"`
	Documents []any  `json:"documents,omitempty"`
}

// Provisioner maps resources through a tenant config and writes them to the
// tenant's destination.
type Provisioner struct {
	cfg    *config.Config
	writer write.Writer
}

// NewProvisioner returns a provisioner for cfg writing through writer.
func NewProvisioner(cfg *config.Config, writer write.Writer) *Provisioner {
	return &Provisioner{cfg: cfg, writer: writer}
}

// Render builds the destination call for resource without performing it.
// REST endpoints get a JSON payload and, when their path carries "{id}", the
// identifier resolved from that payload. SQL endpoints get a parameter list
// and the rendered statement.
func (p *Provisioner) Render(kind config.RequestKind, resource scim.Resource) (*Rendered, error) {
	endpoint, ok := p.cfg.Endpoint(kind, resource.ResourceType())
	if !ok {
		return nil, fmt.Errorf("no %s endpoint configured for %s resources", kind, resource.ResourceType())
	}
	schema := endpoint.Schema.ForRequest(kind)
	req := &write.Request{Kind: kind, ResourceType: resource.ResourceType()}
	out := &Rendered{Request: req, schema: schema}

	dest := p.cfg.Destination
	switch dest.Kind {
	case config.DestinationREST:
		payload, err := mapping.BuildPayload(schema, resource)
		if err != nil {
			return nil, err
		}
		req.Path = endpoint.Path
		req.Payload = payload
		if strings.Contains(endpoint.Path, "{id}") {
			id, err := mapping.ResolveID(payload, schema, kind)
			if err != nil {
				return nil, err
			}
			req.ID = id
		}
	case config.DestinationSQL:
		params, err := mapping.CreateParameters(dest.Driver, schema, resource)
		if err != nil {
			return nil, err
		}
		cmd, err := mapping.NewCommand(dest.Driver, endpoint.Routine, kind, params)
		if err != nil {
			return nil, err
		}
		req.Routine = endpoint.Routine
		req.Params = params
		out.Command = cmd.Text
	default:
		return nil, fmt.Errorf("unsupported destination kind %q", dest.Kind)
	}
	return out, nil
}

// Provision renders and writes resource. The destination identifier is read
// back from the response for creates and lookups; a lookup that finds
// nothing, or whose result carries no identifier, is an error.
func (p *Provisioner) Provision(ctx context.Context, kind config.RequestKind, resource scim.Resource) (*Result, error) {
	rendered, err := p.Render(kind, resource)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("kind", string(kind)).
		Str("resource", resource.ResourceType()).
		Interface("payload", rendered.Request.Payload).
		Str("command", rendered.Command).
		Msg("rendered request")

	resp, err := p.writer.Write(ctx, rendered.Request)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Kind:         kind,
		ResourceType: resource.ResourceType(),
		Status:       resp.Status,
		ID:           rendered.Request.ID,
		Documents:    resp.Documents,
	}

	if kind == config.RequestGet && resp.Status == http.StatusNotFound {
		return res, &write.DestinationError{Status: http.StatusNotFound, Message: fmt.Sprintf("%s not found", resource.ResourceType())}
	}
	if len(resp.Documents) == 0 || (kind != config.RequestPost && kind != config.RequestGet) {
		return res, nil
	}

	id, err := mapping.ResolveID(resp.Documents[0], rendered.schema, kind)
	if err != nil {
		if kind == config.RequestGet {
			return res, err
		}
		log.Debug().Err(err).Msg("no identifier in destination response")
		return res, nil
	}
	res.ID = id
	log.Info().Str("kind", string(kind)).Str("resource", res.ResourceType).Str("id", id).Int("status", res.Status).Msg("provisioned")
	return res, nil
}
