package mapping

import (
	"fmt"

	"github.com/authzed/connector-scim/pkg/coerce"
	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

// evaluate reports whether a Conditional node should render. An absent
// source makes IsTrue, IsFalse and Equals false and NotEquals true; a present
// source that cannot be read as the condition's data type is a
// CoercionError.
func evaluate(c *config.MappingCondition, scope any, field string) (bool, error) {
	if c == nil {
		return false, &CoercionError{Field: field, Type: "condition", Err: fmt.Errorf("conditional mapping has no condition")}
	}
	raw, ok := resolve.Path(scope, c.SourceFieldName, resolve.CaseSensitive)
	present := ok && !resolve.IsEmpty(raw)

	switch c.Kind {
	case config.ConditionIsPresent:
		return present, nil
	case config.ConditionIsAbsent:
		return !present, nil
	}
	if !present {
		return c.Kind == config.ConditionNotEquals, nil
	}

	dt := c.SourceDataType
	if dt == "" {
		dt = config.DataString
	}
	if !dt.Valid() {
		return false, &UnsupportedDataTypeError{Field: field, DataType: string(dt)}
	}
	fail := func(err error) (bool, error) {
		return false, &CoercionError{Field: field, SourcePath: c.SourceFieldName, Type: string(dt), Err: err}
	}

	switch c.Kind {
	case config.ConditionIsTrue, config.ConditionIsFalse:
		v, err := coerce.Data(raw, config.DataBoolean)
		if err != nil {
			return fail(err)
		}
		return v.(bool) == (c.Kind == config.ConditionIsTrue), nil
	case config.ConditionEquals, config.ConditionNotEquals:
		eq, err := equal(raw, c.Value, dt)
		if err != nil {
			return fail(err)
		}
		return eq == (c.Kind == config.ConditionEquals), nil
	}
	return fail(fmt.Errorf("unsupported condition kind %q", c.Kind))
}

func equal(raw any, expected string, dt config.DataType) (bool, error) {
	switch dt {
	case config.DataNumber:
		a, err := coerce.Decimal(raw)
		if err != nil {
			return false, err
		}
		b, err := coerce.Decimal(expected)
		if err != nil {
			return false, err
		}
		return a.Equal(b), nil
	case config.DataDateTime:
		a, err := coerce.Time(raw)
		if err != nil {
			return false, err
		}
		b, err := coerce.Time(expected)
		if err != nil {
			return false, err
		}
		return a.Equal(b), nil
	}
	a, err := coerce.Data(raw, dt)
	if err != nil {
		return false, err
	}
	b, err := coerce.Data(expected, dt)
	if err != nil {
		return false, err
	}
	return a == b, nil
}
