package coerce

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/authzed/connector-scim/pkg/config"
)

// Data converts raw into the canonical representation of an inbound data
// type: String -> string, Boolean -> bool, Number -> json.Number,
// DateTime -> RFC 3339 string in UTC. Nil stays nil.
func Data(raw any, dt config.DataType) (any, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: data type %q", ErrUnsupportedType, dt)
	}
	if raw == nil {
		return nil, nil
	}
	raw = deref(raw)
	switch dt {
	case config.DataString:
		s, ok := Text(raw)
		if !ok {
			return nil, invalid(raw, "string", "composite values cannot be written to a string field")
		}
		return s, nil
	case config.DataBoolean:
		return toBool(raw, Options{})
	case config.DataNumber:
		d, err := Decimal(raw)
		if err != nil {
			return nil, err
		}
		return json.Number(d.String()), nil
	default:
		t, err := Time(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}
}
