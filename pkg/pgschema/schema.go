package pgschema

import (
	"strings"
	"unicode"

	"github.com/authzed/connector-scim/pkg/config"
)

// Routine is a postgres function or procedure and the parameters it takes.
type Routine struct {
	Schema string
	Name   string
	// Kind is FUNCTION or PROCEDURE.
	Kind   string
	Params []Param
}

// Param is one routine parameter as reported by information_schema.
type Param struct {
	Position int
	Name     string
	// DataType is the information_schema data_type, e.g. "character varying".
	DataType string
	// MaxLength is the declared character length, when postgres reports one.
	MaxLength *int
	// Mode is IN, OUT or INOUT.
	Mode string
}

// QualifiedName is the schema-qualified routine name.
func (r *Routine) QualifiedName() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// RequestKind is the provisioning operation the routine is wired to by
// default: functions return rows and serve lookups, procedures serve creates.
func (r *Routine) RequestKind() config.RequestKind {
	if strings.EqualFold(r.Kind, "FUNCTION") {
		return config.RequestGet
	}
	return config.RequestPost
}

// ToSchema generates a provisional schema from the routine's input
// parameters. Source values are guesses derived from the parameter names and
// should be reviewed before use.
func (r *Routine) ToSchema() config.Schema {
	schema := make(config.Schema, 0, len(r.Params))
	for _, p := range r.Params {
		if strings.EqualFold(p.Mode, "OUT") || p.Name == "" {
			continue
		}
		t, _ := DestinationTypeFor(p.DataType)
		node := config.SchemaNode{
			DestinationField: p.Name,
			DestinationType:  t,
			MappingType:      config.MappingDirect,
			SourceValue:      SourceValueFor(p.Name),
		}
		if p.MaxLength != nil && t.FixedWidth() {
			length := *p.MaxLength
			node.DestinationTypeLength = &length
		}
		schema = append(schema, node)
	}
	schema.Index()
	return schema
}

// ToEndpoint generates a provisional endpoint calling the routine.
func (r *Routine) ToEndpoint() config.Endpoint {
	return config.Endpoint{
		RequestKind:  r.RequestKind(),
		ResourceType: "User",
		Routine:      r.QualifiedName(),
		Schema:       r.ToSchema(),
	}
}

// ToConfig generates a provisional tenant config with one endpoint per
// routine. This can be a good starting point for developing a SQL
// destination config.
func ToConfig(appID, dsn string, routines []*Routine) *config.Config {
	c := &config.Config{
		AppID: appID,
		Destination: config.Destination{
			Kind:   config.DestinationSQL,
			Driver: "postgres",
			DSN:    dsn,
		},
		Endpoints: make([]config.Endpoint, 0, len(routines)),
	}
	for _, r := range routines {
		c.Endpoints = append(c.Endpoints, r.ToEndpoint())
	}
	c.Index()
	return c
}

var pgTypes = map[string]config.DestinationType{
	"text":                        config.TypeText,
	"character varying":           config.TypeVarChar,
	"character":                   config.TypeChar,
	"xml":                         config.TypeXML,
	"boolean":                     config.TypeBoolean,
	"smallint":                    config.TypeSmallInt,
	"integer":                     config.TypeInt,
	"bigint":                      config.TypeLong,
	"numeric":                     config.TypeNumeric,
	"money":                       config.TypeMoney,
	"double precision":            config.TypeDouble,
	"real":                        config.TypeReal,
	"date":                        config.TypeDate,
	"time without time zone":      config.TypeTime,
	"time with time zone":         config.TypeTime,
	"timestamp without time zone": config.TypeDateTime,
	"timestamp with time zone":    config.TypeDateTimeOffset,
	"uuid":                        config.TypeGuid,
	"bytea":                       config.TypeVarBinary,
}

// DestinationTypeFor maps a postgres data type onto a destination type. Types
// with no counterpart map to String and report false.
func DestinationTypeFor(pgType string) (config.DestinationType, bool) {
	t, ok := pgTypes[strings.ToLower(strings.TrimSpace(pgType))]
	if !ok {
		return config.TypeString, false
	}
	return t, true
}

// SourceValueFor guesses the canonical attribute path for a parameter name:
// a leading "p_" or "_" is dropped and snake_case becomes PascalCase, so
// "p_user_name" becomes "UserName".
func SourceValueFor(param string) string {
	name := strings.TrimPrefix(strings.ToLower(param), "p_")
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
