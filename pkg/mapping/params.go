package mapping

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v4"

	"github.com/authzed/connector-scim/pkg/config"
)

// TypedParameter is a named, typed value bound into a stored procedure or
// function call.
type TypedParameter struct {
	Name   string                 `json:"name"`
	Type   config.DestinationType `json:"type"`
	Length int                    `json:"length,omitempty"`
	Value  any                    `json:"value"`
}

// CreateParameters renders the ordered parameter list for a stored procedure
// destination reached through driver. It follows the same resolution and
// error rules as BuildPayload; Object and Array nodes are rejected because
// parameter lists are flat.
func CreateParameters(driver string, nodes []config.SchemaNode, resource any) ([]TypedParameter, error) {
	if _, err := ClassifyDriver(driver); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &PayloadBuildError{Reason: "schema has no nodes"}
	}
	params := make([]TypedParameter, 0, len(nodes))
	populated := 0
	for i := range nodes {
		n := &nodes[i]
		if n.DestinationType.Nested() {
			return nil, &UnsupportedNestingError{Field: n.DestinationField, Type: n.DestinationType}
		}
		res, err := resolveNode(n, resource, n.DestinationField)
		if err != nil {
			return nil, err
		}
		if res.skip {
			continue
		}
		value, err := coerceLeaf(n, res.raw, n.DestinationField)
		if err != nil {
			return nil, err
		}
		if value != nil {
			populated++
		}
		params = append(params, TypedParameter{
			Name:   n.DestinationField,
			Type:   n.DestinationType,
			Length: n.Length(),
			Value:  value,
		})
	}
	if populated == 0 {
		return nil, &PayloadBuildError{Reason: "schema resolved no values from the resource"}
	}
	return params, nil
}

// Command is a rendered stored procedure or function invocation.
type Command struct {
	Backend Backend
	Routine string
	Text    string
	Args    []any
}

var parameterName = regexp.MustCompile(`^[A-Za-z_@][A-Za-z0-9_]*$`)

// NewCommand renders the invocation of routine with params for the backend
// the driver classifies into. Postgres GET requests call a set-returning
// function (SELECT * FROM fn(...)); every other combination calls a
// procedure. Postgres and SQL Server bind parameters by name so skipped
// conditional parameters fall back to the routine's defaults; MySQL binds
// positionally.
func NewCommand(driver, routine string, kind config.RequestKind, params []TypedParameter) (*Command, error) {
	backend, err := ClassifyDriver(driver)
	if err != nil {
		return nil, err
	}
	if routine == "" {
		return nil, fmt.Errorf("no routine configured for %s requests", kind)
	}
	for _, p := range params {
		if !parameterName.MatchString(p.Name) {
			return nil, fmt.Errorf("parameter name %q is not a valid identifier", p.Name)
		}
	}

	cmd := &Command{Backend: backend, Routine: routine, Args: make([]any, 0, len(params))}
	args := make([]string, 0, len(params))
	switch backend {
	case BackendPostgres:
		for i, p := range params {
			wire, err := p.WireType(backend)
			if err != nil {
				return nil, err
			}
			args = append(args, fmt.Sprintf("%s => $%d::%s", pgx.Identifier{p.Name}.Sanitize(), i+1, wire))
			cmd.Args = append(cmd.Args, p.Value)
		}
		name := pgx.Identifier(strings.Split(routine, ".")).Sanitize()
		if kind == config.RequestGet {
			cmd.Text = fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(args, ", "))
		} else {
			cmd.Text = fmt.Sprintf("CALL %s(%s)", name, strings.Join(args, ", "))
		}
	case BackendMySQL:
		for _, p := range params {
			args = append(args, "?")
			cmd.Args = append(cmd.Args, p.Value)
		}
		cmd.Text = fmt.Sprintf("CALL %s(%s)", quoteParts(routine, "`", "`"), strings.Join(args, ", "))
	case BackendSQLServer:
		for _, p := range params {
			name := strings.TrimPrefix(p.Name, "@")
			args = append(args, fmt.Sprintf("@%s = @%s", name, name))
			cmd.Args = append(cmd.Args, sql.Named(name, p.Value))
		}
		cmd.Text = strings.TrimSpace(fmt.Sprintf("EXEC %s %s", quoteParts(routine, "[", "]"), strings.Join(args, ", ")))
	}
	return cmd, nil
}

// quoteParts quotes each "."-separated part of a routine name, escaping the
// closing quote by doubling it.
func quoteParts(routine, opening, closing string) string {
	parts := strings.Split(routine, ".")
	for i, p := range parts {
		parts[i] = opening + strings.ReplaceAll(p, closing, closing+closing) + closing
	}
	return strings.Join(parts, ".")
}
