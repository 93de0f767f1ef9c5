// Package coerce converts resolved source values into native values for a
// destination type. Coercion functions are registered once in a table keyed
// by destination type; adding a type never touches call sites.
package coerce

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/authzed/connector-scim/pkg/config"
	"github.com/authzed/connector-scim/pkg/resolve"
)

var (
	// ErrInvalidValue is returned when a value cannot be represented as the
	// requested type without losing data.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnsupportedType is returned for destination or data types that have
	// no registered coercion.
	ErrUnsupportedType = errors.New("unsupported type")
)

// Options carries the per-node parameters that affect coercion.
type Options struct {
	// ArrayElementType is the element type of a bare Array destination.
	ArrayElementType config.DestinationType
	// Length is the declared width of fixed-width types; 0 or negative
	// means unbounded.
	Length int
}

// Func coerces a non-nil raw value.
type Func func(raw any, opts Options) (any, error)

var coercers map[config.DestinationType]Func

func init() {
	coercers = map[config.DestinationType]Func{
		config.TypeString:   toString,
		config.TypeText:     toString,
		config.TypeNText:    toString,
		config.TypeXML:      toString,
		config.TypeChar:     toString,
		config.TypeVarChar:  toString,
		config.TypeNChar:    toString,
		config.TypeNVarChar: toString,

		config.TypeBoolean: toBool,
		config.TypeBit:     toBool,

		config.TypeTinyInt:  integer(0, math.MaxUint8, func(i int64) any { return uint8(i) }),
		config.TypeSmallInt: integer(math.MinInt16, math.MaxInt16, func(i int64) any { return int16(i) }),
		config.TypeInt:      integer(math.MinInt32, math.MaxInt32, func(i int64) any { return int32(i) }),
		config.TypeLong:     integer(math.MinInt64, math.MaxInt64, func(i int64) any { return i }),
		config.TypeBigInt:   integer(math.MinInt64, math.MaxInt64, func(i int64) any { return i }),

		config.TypeDecimal:    toDecimal,
		config.TypeNumeric:    toDecimal,
		config.TypeMoney:      toDecimal,
		config.TypeSmallMoney: toDecimal,

		config.TypeDouble: toFloat64,
		config.TypeFloat:  toFloat64,
		config.TypeReal:   toFloat32,

		config.TypeDateTime:  temporal(func(t time.Time) any { return t.UTC() }),
		config.TypeDateTime2: temporal(func(t time.Time) any { return t.UTC() }),
		// the only temporal type that carries its offset to the destination
		config.TypeDateTimeOffset: temporal(func(t time.Time) any { return t }),
		// smalldatetime has minute precision and rounds, half up
		config.TypeSmallDateTime: temporal(func(t time.Time) any { return t.UTC().Round(time.Minute) }),
		config.TypeDate: temporal(func(t time.Time) any {
			u := t.UTC()
			return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		}),
		config.TypeTime: temporal(func(t time.Time) any { return t.UTC().Format("15:04:05.999999999") }),

		config.TypeBinary:    toBytes,
		config.TypeVarBinary: toBytes,
		config.TypeImage:     toBytes,

		config.TypeGuid:             toUUID,
		config.TypeUniqueIdentifier: toUUID,

		config.TypeObject: toObject,
		config.TypeArray:  toArray,
	}
}

// Register installs or replaces the coercion for t.
func Register(t config.DestinationType, fn Func) {
	coercers[t] = fn
}

// Coerce converts raw into the native value for t. A nil raw value, or an
// empty string for a non-string destination, coerces to nil: the
// destination-typed null.
func Coerce(raw any, t config.DestinationType, opts Options) (any, error) {
	fn, ok := coercers[t]
	if !ok {
		return nil, fmt.Errorf("%w: destination type %q", ErrUnsupportedType, t)
	}
	if resolve.IsEmpty(raw) {
		if s, isString := raw.(string); isString && t.Family() == config.FamilyString {
			return s, nil
		}
		if t == config.TypeArray && raw != nil {
			return []any{}, nil
		}
		return nil, nil
	}
	return fn(deref(raw), opts)
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func invalid(raw any, kind string, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: %v is not a valid %s", ErrInvalidValue, describe(raw), kind)
	}
	return fmt.Errorf("%w: %v is not a valid %s: %s", ErrInvalidValue, describe(raw), kind, reason)
}

func describe(raw any) string {
	if s, ok := raw.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v (%T)", raw, raw)
}

// Text renders scalar values as text. Composite values are rejected.
func Text(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	case decimal.Decimal:
		return v.String(), true
	case uuid.UUID:
		return v.String(), true
	case fmt.Stringer:
		return v.String(), true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.String:
		return rv.String(), true
	}
	return "", false
}

func toString(raw any, opts Options) (any, error) {
	s, ok := Text(raw)
	if !ok {
		return nil, invalid(raw, "string", "composite values cannot be written to a string field")
	}
	if opts.Length > 0 && utf8.RuneCountInString(s) > opts.Length {
		return nil, invalid(raw, "string", fmt.Sprintf("length %d exceeds declared length %d", utf8.RuneCountInString(s), opts.Length))
	}
	return s, nil
}

func toBool(raw any, _ Options) (any, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	s, ok := Text(raw)
	if !ok {
		return nil, invalid(raw, "boolean", "")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y":
		return true, nil
	case "false", "f", "0", "no", "n":
		return false, nil
	}
	return nil, invalid(raw, "boolean", "")
}

// Decimal parses raw as an exact decimal.
func Decimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, invalid(raw, "number", "")
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case bool:
		return decimal.Decimal{}, invalid(raw, "number", "")
	}
	s, ok := Text(raw)
	if !ok {
		return decimal.Decimal{}, invalid(raw, "number", "")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, invalid(raw, "number", "")
	}
	return d, nil
}

func integer(lo, hi int64, native func(int64) any) Func {
	return func(raw any, _ Options) (any, error) {
		d, err := Decimal(raw)
		if err != nil {
			return nil, err
		}
		if !d.IsInteger() {
			return nil, invalid(raw, "integer", "fractional part would be truncated")
		}
		bi := d.BigInt()
		if !bi.IsInt64() || bi.Cmp(big.NewInt(lo)) < 0 || bi.Cmp(big.NewInt(hi)) > 0 {
			return nil, invalid(raw, "integer", fmt.Sprintf("out of range [%d, %d]", lo, hi))
		}
		return native(bi.Int64()), nil
	}
}

func toDecimal(raw any, _ Options) (any, error) {
	d, err := Decimal(raw)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func toFloat64(raw any, _ Options) (any, error) {
	if f, ok := raw.(float64); ok {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, invalid(raw, "double", "not a finite number")
		}
		return f, nil
	}
	d, err := Decimal(raw)
	if err != nil {
		return nil, err
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return nil, invalid(raw, "double", "out of range")
	}
	if f == 0 && !d.IsZero() {
		return nil, invalid(raw, "double", "too small to represent")
	}
	return f, nil
}

func toFloat32(raw any, opts Options) (any, error) {
	v, err := toFloat64(raw, opts)
	if err != nil {
		return nil, err
	}
	f := v.(float64)
	if math.Abs(f) > math.MaxFloat32 {
		return nil, invalid(raw, "real", "out of range")
	}
	if f != 0 && float32(f) == 0 {
		return nil, invalid(raw, "real", "too small to represent")
	}
	return float32(f), nil
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999",
}

// Time parses raw as an ISO-8601 date, date-time or time of day. Values
// without a zone are read as UTC.
func Time(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, invalid(raw, "date/time", "")
}

func temporal(native func(time.Time) any) Func {
	return func(raw any, _ Options) (any, error) {
		t, err := Time(raw)
		if err != nil {
			return nil, err
		}
		return native(t), nil
	}
}

func toBytes(raw any, opts Options) (any, error) {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v))
		if err != nil {
			return nil, invalid(raw, "binary", "expected base64")
		}
		b = decoded
	default:
		return nil, invalid(raw, "binary", "")
	}
	if opts.Length > 0 && len(b) > opts.Length {
		return nil, invalid(raw, "binary", fmt.Sprintf("length %d exceeds declared length %d", len(b), opts.Length))
	}
	return b, nil
}

func toUUID(raw any, _ Options) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	}
	s, ok := Text(raw)
	if !ok {
		return nil, invalid(raw, "unique identifier", "")
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, invalid(raw, "unique identifier", "")
	}
	return id, nil
}

func toObject(raw any, _ Options) (any, error) {
	if s, ok := raw.(string); ok {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, invalid(raw, "object", "expected a JSON object")
		}
		return obj, nil
	}
	tree, err := Tree(raw)
	if err != nil {
		return nil, invalid(raw, "object", err.Error())
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, invalid(raw, "object", "")
	}
	return obj, nil
}

func toArray(raw any, opts Options) (any, error) {
	elems, ok := resolve.Elements(raw)
	if !ok {
		elems = []any{raw}
	}
	out := make([]any, 0, len(elems))
	for i, e := range elems {
		if opts.ArrayElementType == "" {
			tree, err := Tree(e)
			if err != nil {
				return nil, invalid(raw, "array", fmt.Sprintf("element %d: %s", i, err))
			}
			out = append(out, tree)
			continue
		}
		if opts.ArrayElementType == config.TypeArray {
			return nil, fmt.Errorf("%w: nested bare arrays", ErrUnsupportedType)
		}
		v, err := Coerce(e, opts.ArrayElementType, Options{Length: opts.Length})
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Tree converts an arbitrary Go value into its JSON tree form (maps, slices
// and scalars) using its JSON encoding.
func Tree(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, string, bool, float64, json.Number, nil:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// JSON returns the representation of a coerced value used in JSON payloads.
// Decimals are written as JSON numbers rather than strings.
func JSON(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return json.Number(val.String())
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = JSON(e)
		}
		return out
	}
	return v
}
