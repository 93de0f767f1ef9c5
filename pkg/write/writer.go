package write

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/authzed/connector-scim/pkg/auth"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/mapping"
)

// Request is one provisioning call against a destination.
type Request struct {
	Kind         config.RequestKind
	ResourceType string
	// ID is the destination-side identifier substituted into REST paths.
	ID string

	// Path and Payload are used by REST destinations.
	Path    string
	Payload map[string]any

	// Routine and Params are used by SQL destinations.
	Routine string
	Params  []mapping.TypedParameter
}

// Response is what the destination returned. Documents holds the decoded
// response body for REST calls and one object per returned row for SQL
// calls.
type Response struct {
	Status    int
	Documents []any
}

// Writer performs provisioning calls against a destination.
type Writer interface {
	Write(context.Context, *Request) (*Response, error)
}

// NewWriter returns a writer for the destination. It will configure trace
// logging if the current log level is trace, and will dry-run if dryRun is
// set.
func NewWriter(dest config.Destination, tokens auth.TokenSource, dryRun bool) (Writer, error) {
	if dryRun {
		return NewDryRunWriter(), nil
	}

	var w Writer
	switch dest.Kind {
	case config.DestinationREST:
		w = NewRESTWriter(dest, tokens, nil)
	case config.DestinationSQL:
		sw, err := NewSQLWriter(dest)
		if err != nil {
			return nil, err
		}
		w = sw
	default:
		return nil, fmt.Errorf("unsupported destination kind %q", dest.Kind)
	}

	if zerolog.GlobalLevel() == zerolog.TraceLevel {
		return LoggingWriter{writer: w, level: zerolog.TraceLevel}, nil
	}
	return w, nil
}

// LoggingWriter will log each write before delegating to an underlying
// Writer
type LoggingWriter struct {
	writer Writer
	level  zerolog.Level
}

func (w LoggingWriter) Write(ctx context.Context, req *Request) (*Response, error) {
	e := log.WithLevel(w.level).
		Str("kind", string(req.Kind)).
		Str("resource", req.ResourceType)
	if req.ID != "" {
		e = e.Str("id", req.ID)
	}
	if req.Routine != "" {
		e = e.Str("routine", req.Routine).Int("params", len(req.Params))
	} else {
		e = e.Str("path", req.Path).Interface("payload", req.Payload)
	}
	e.Msg("provision")

	return w.writer.Write(ctx, req)
}

// NewDryRunWriter constructs a new writer that logs but doesn't write.
func NewDryRunWriter() Writer {
	return LoggingWriter{
		writer: DiscardingWriter{},
		level:  zerolog.InfoLevel,
	}
}

// DiscardingWriter does nothing but satisfy Writer
type DiscardingWriter struct{}

func (w DiscardingWriter) Write(context.Context, *Request) (*Response, error) {
	return &Response{Status: http.StatusOK}, nil
}

var (
	_ Writer = LoggingWriter{}
	_ Writer = DiscardingWriter{}
)

// DestinationError is returned when the destination rejects a call.
type DestinationError struct {
	// Status is the protocol-level failure category of the rejection.
	Status int
	// Code is the destination's own error code, when it reports one.
	Code    string
	Message string
}

func (e *DestinationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("destination rejected request (%d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("destination rejected request (%d): %s", e.Status, e.Message)
}
