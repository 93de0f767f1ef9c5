package mapping

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/authzed/connector-scim/pkg/config"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrCoercion             = errors.New("coercion failed")
	ErrUnsupportedDataType  = errors.New("unsupported data type")
	ErrUnsupportedNesting   = errors.New("unsupported nesting")
	ErrUnsupportedDriver    = errors.New("unsupported driver")
	ErrIdentifierNotFound   = errors.New("identifier not found")
	ErrSourceDataMissing    = errors.New("source data missing")
	ErrPayloadBuild         = errors.New("payload build failed")
)

// MissingRequiredFieldError is returned when a required field resolves to
// nothing and has no default value.
type MissingRequiredFieldError struct {
	Field      string
	SourcePath string
}

func (e *MissingRequiredFieldError) Error() string {
	if e.SourcePath == "" {
		return fmt.Sprintf("required field %q has no value and no default", e.Field)
	}
	return fmt.Sprintf("required field %q has no value at source path %q and no default", e.Field, e.SourcePath)
}

func (e *MissingRequiredFieldError) Is(target error) bool { return target == ErrMissingRequiredField }

// CoercionError is returned when a resolved value cannot be represented as
// the field's destination type.
type CoercionError struct {
	Field      string
	SourcePath string
	Type       string
	Err        error
}

func (e *CoercionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "field %q", e.Field)
	if e.SourcePath != "" {
		fmt.Fprintf(&b, " (source %q)", e.SourcePath)
	}
	fmt.Fprintf(&b, " cannot be coerced to %s: %v", e.Type, e.Err)
	return b.String()
}

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

func (e *CoercionError) Unwrap() error { return e.Err }

// UnsupportedDataTypeError is returned for a data type outside the supported
// set.
type UnsupportedDataTypeError struct {
	Field    string
	DataType string
}

func (e *UnsupportedDataTypeError) Error() string {
	return fmt.Sprintf("field %q has unsupported data type %q", e.Field, e.DataType)
}

func (e *UnsupportedDataTypeError) Is(target error) bool { return target == ErrUnsupportedDataType }

// UnsupportedNestingError is returned when an Object or Array node is used
// with a destination that only accepts flat parameter lists.
type UnsupportedNestingError struct {
	Field string
	Type  config.DestinationType
}

func (e *UnsupportedNestingError) Error() string {
	return fmt.Sprintf("field %q has destination type %s, which cannot be bound as a stored procedure parameter", e.Field, e.Type)
}

func (e *UnsupportedNestingError) Is(target error) bool { return target == ErrUnsupportedNesting }

// UnsupportedDriverError is returned for a driver name that does not classify
// into a supported relational backend.
type UnsupportedDriverError struct {
	Driver string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("unsupported database driver %q", e.Driver)
}

func (e *UnsupportedDriverError) Is(target error) bool { return target == ErrUnsupportedDriver }

// IdentifierNotFoundError is returned when neither the schema mapping nor the
// fallback keys yield an identifier.
type IdentifierNotFoundError struct {
	// SchemaPath is the destination path tried from the schema, empty when no
	// schema node maps the identifier.
	SchemaPath   string
	FallbackKeys []string
}

func (e *IdentifierNotFoundError) Error() string {
	schema := "no schema node maps the identifier"
	if e.SchemaPath != "" {
		schema = fmt.Sprintf("schema path %q resolved no value", e.SchemaPath)
	}
	return fmt.Sprintf("identifier not found: %s and no fallback key (%s) was found", schema, strings.Join(e.FallbackKeys, ", "))
}

func (e *IdentifierNotFoundError) Is(target error) bool { return target == ErrIdentifierNotFound }

// SourceDataMissingError is returned when an inbound document has no records
// at the configured path.
type SourceDataMissingError struct {
	Path string
}

func (e *SourceDataMissingError) Error() string {
	return fmt.Sprintf("no source records found at %q", e.Path)
}

func (e *SourceDataMissingError) Is(target error) bool { return target == ErrSourceDataMissing }

// PayloadBuildError is returned when a schema renders no populated fields.
type PayloadBuildError struct {
	Reason string
}

func (e *PayloadBuildError) Error() string {
	return "cannot build payload: " + e.Reason
}

func (e *PayloadBuildError) Is(target error) bool { return target == ErrPayloadBuild }

// StatusFor translates mapping errors into the protocol-layer failure
// category: bad request for configuration and coercion problems, not found
// for missing identifiers, internal error for everything else.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrIdentifierNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingRequiredField),
		errors.Is(err, ErrCoercion),
		errors.Is(err, ErrUnsupportedDataType),
		errors.Is(err, ErrUnsupportedNesting),
		errors.Is(err, ErrUnsupportedDriver),
		errors.Is(err, ErrSourceDataMissing),
		errors.Is(err, ErrPayloadBuild):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
