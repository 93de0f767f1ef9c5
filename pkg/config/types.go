package config

import (
	"fmt"
	"strings"
)

// DestinationType is the kind a mapped value takes in the destination system.
// It spans JSON kinds (for REST destinations) and relational column kinds
// (for stored-procedure destinations).
type DestinationType string

const (
	TypeString   DestinationType = "String"
	TypeBoolean  DestinationType = "Boolean"
	TypeInt      DestinationType = "Int"
	TypeLong     DestinationType = "Long"
	TypeDecimal  DestinationType = "Decimal"
	TypeDouble   DestinationType = "Double"
	TypeDateTime DestinationType = "DateTime"
	TypeGuid     DestinationType = "Guid"
	TypeObject   DestinationType = "Object"
	TypeArray    DestinationType = "Array"

	TypeBigInt           DestinationType = "BigInt"
	TypeSmallInt         DestinationType = "SmallInt"
	TypeTinyInt          DestinationType = "TinyInt"
	TypeBit              DestinationType = "Bit"
	TypeNumeric          DestinationType = "Numeric"
	TypeMoney            DestinationType = "Money"
	TypeSmallMoney       DestinationType = "SmallMoney"
	TypeFloat            DestinationType = "Float"
	TypeReal             DestinationType = "Real"
	TypeChar             DestinationType = "Char"
	TypeVarChar          DestinationType = "VarChar"
	TypeNChar            DestinationType = "NChar"
	TypeNVarChar         DestinationType = "NVarChar"
	TypeText             DestinationType = "Text"
	TypeNText            DestinationType = "NText"
	TypeXML              DestinationType = "Xml"
	TypeDate             DestinationType = "Date"
	TypeTime             DestinationType = "Time"
	TypeDateTime2        DestinationType = "DateTime2"
	TypeDateTimeOffset   DestinationType = "DateTimeOffset"
	TypeSmallDateTime    DestinationType = "SmallDateTime"
	TypeBinary           DestinationType = "Binary"
	TypeVarBinary        DestinationType = "VarBinary"
	TypeImage            DestinationType = "Image"
	TypeUniqueIdentifier DestinationType = "UniqueIdentifier"
)

// Family groups destination types that share a native representation.
type Family int

const (
	FamilyString Family = iota
	FamilyBoolean
	FamilyInteger
	FamilyDecimal
	FamilyFloat
	FamilyTemporal
	FamilyBinary
	FamilyGuid
	FamilyObject
	FamilyArray
)

func (f Family) String() string {
	switch f {
	case FamilyString:
		return "string"
	case FamilyBoolean:
		return "boolean"
	case FamilyInteger:
		return "integer"
	case FamilyDecimal:
		return "decimal"
	case FamilyFloat:
		return "float"
	case FamilyTemporal:
		return "temporal"
	case FamilyBinary:
		return "binary"
	case FamilyGuid:
		return "guid"
	case FamilyObject:
		return "object"
	case FamilyArray:
		return "array"
	default:
		return "unknown"
	}
}

type typeInfo struct {
	family     Family
	fixedWidth bool
}

var destinationTypes = map[DestinationType]typeInfo{
	TypeString:   {family: FamilyString},
	TypeBoolean:  {family: FamilyBoolean},
	TypeInt:      {family: FamilyInteger},
	TypeLong:     {family: FamilyInteger},
	TypeDecimal:  {family: FamilyDecimal},
	TypeDouble:   {family: FamilyFloat},
	TypeDateTime: {family: FamilyTemporal},
	TypeGuid:     {family: FamilyGuid},
	TypeObject:   {family: FamilyObject},
	TypeArray:    {family: FamilyArray},

	TypeBigInt:           {family: FamilyInteger},
	TypeSmallInt:         {family: FamilyInteger},
	TypeTinyInt:          {family: FamilyInteger},
	TypeBit:              {family: FamilyBoolean},
	TypeNumeric:          {family: FamilyDecimal},
	TypeMoney:            {family: FamilyDecimal},
	TypeSmallMoney:       {family: FamilyDecimal},
	TypeFloat:            {family: FamilyFloat},
	TypeReal:             {family: FamilyFloat},
	TypeChar:             {family: FamilyString, fixedWidth: true},
	TypeVarChar:          {family: FamilyString, fixedWidth: true},
	TypeNChar:            {family: FamilyString, fixedWidth: true},
	TypeNVarChar:         {family: FamilyString, fixedWidth: true},
	TypeText:             {family: FamilyString},
	TypeNText:            {family: FamilyString},
	TypeXML:              {family: FamilyString},
	TypeDate:             {family: FamilyTemporal},
	TypeTime:             {family: FamilyTemporal},
	TypeDateTime2:        {family: FamilyTemporal},
	TypeDateTimeOffset:   {family: FamilyTemporal},
	TypeSmallDateTime:    {family: FamilyTemporal},
	TypeBinary:           {family: FamilyBinary, fixedWidth: true},
	TypeVarBinary:        {family: FamilyBinary, fixedWidth: true},
	TypeImage:            {family: FamilyBinary},
	TypeUniqueIdentifier: {family: FamilyGuid},
}

// DestinationTypes returns every supported destination type.
func DestinationTypes() []DestinationType {
	types := make([]DestinationType, 0, len(destinationTypes))
	for t := range destinationTypes {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is a supported destination type.
func (t DestinationType) Valid() bool {
	_, ok := destinationTypes[t]
	return ok
}

// Family returns the native family for t. Unknown types report FamilyString.
func (t DestinationType) Family() Family {
	return destinationTypes[t].family
}

// FixedWidth reports whether t accepts a declared length.
func (t DestinationType) FixedWidth() bool {
	return destinationTypes[t].fixedWidth
}

// Nested reports whether t may carry child schemas.
func (t DestinationType) Nested() bool {
	return t == TypeObject || t == TypeArray
}

// UnmarshalText accepts destination types case-insensitively and rejects
// anything outside the supported set.
func (t *DestinationType) UnmarshalText(text []byte) error {
	parsed, err := ParseDestinationType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDestinationType returns the DestinationType named by s.
func ParseDestinationType(s string) (DestinationType, error) {
	if s == "" {
		return "", nil
	}
	for t := range destinationTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported destination type %q", s)
}

// MappingType is how a schema node obtains its value.
type MappingType string

const (
	MappingDirect      MappingType = "Direct"
	MappingConstant    MappingType = "Constant"
	MappingConditional MappingType = "Conditional"
)

// Valid reports whether m is one of Direct, Constant or Conditional.
func (m MappingType) Valid() bool {
	switch m {
	case MappingDirect, MappingConstant, MappingConditional:
		return true
	}
	return false
}

// UnmarshalText normalises the case of known mapping types. Unknown values are
// kept as-is so validation can report them alongside other problems.
func (m *MappingType) UnmarshalText(text []byte) error {
	*m = MappingType(text)
	for _, known := range []MappingType{MappingDirect, MappingConstant, MappingConditional} {
		if strings.EqualFold(string(known), string(text)) {
			*m = known
		}
	}
	return nil
}

// DataType is the kind of a canonical value in the inbound direction and of
// a condition's source field.
type DataType string

const (
	DataString   DataType = "String"
	DataBoolean  DataType = "Boolean"
	DataNumber   DataType = "Number"
	DataDateTime DataType = "DateTime"
)

// Valid reports whether d is one of String, Boolean, Number or DateTime.
func (d DataType) Valid() bool {
	switch d {
	case DataString, DataBoolean, DataNumber, DataDateTime:
		return true
	}
	return false
}

// UnmarshalText normalises the case of known data types. Unknown values are
// kept for validation to report.
func (d *DataType) UnmarshalText(text []byte) error {
	*d = DataType(text)
	for _, known := range []DataType{DataString, DataBoolean, DataNumber, DataDateTime} {
		if strings.EqualFold(string(known), string(text)) {
			*d = known
		}
	}
	return nil
}

// RequestKind is the provisioning operation a schema applies to.
type RequestKind string

const (
	RequestPost   RequestKind = "POST"
	RequestGet    RequestKind = "GET"
	RequestPut    RequestKind = "PUT"
	RequestPatch  RequestKind = "PATCH"
	RequestDelete RequestKind = "DELETE"
)

// UnmarshalText accepts request kinds case-insensitively.
func (k *RequestKind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = ""
		return nil
	}
	upper := RequestKind(strings.ToUpper(string(text)))
	switch upper {
	case RequestPost, RequestGet, RequestPut, RequestPatch, RequestDelete:
		*k = upper
		return nil
	}
	return fmt.Errorf("unsupported request kind %q", text)
}

// Matches reports whether a node declared for k applies to other. An empty
// kind applies to every request.
func (k RequestKind) Matches(other RequestKind) bool {
	return k == "" || other == "" || k == other
}

// ConditionKind is the comparison a Conditional mapping applies.
type ConditionKind string

const (
	ConditionIsPresent ConditionKind = "IsPresent"
	ConditionIsAbsent  ConditionKind = "IsAbsent"
	ConditionIsTrue    ConditionKind = "IsTrue"
	ConditionIsFalse   ConditionKind = "IsFalse"
	ConditionEquals    ConditionKind = "Equals"
	ConditionNotEquals ConditionKind = "NotEquals"
)

// UnmarshalText accepts condition kinds case-insensitively.
func (c *ConditionKind) UnmarshalText(text []byte) error {
	for _, known := range []ConditionKind{ConditionIsPresent, ConditionIsAbsent, ConditionIsTrue, ConditionIsFalse, ConditionEquals, ConditionNotEquals} {
		if strings.EqualFold(string(known), string(text)) {
			*c = known
			return nil
		}
	}
	return fmt.Errorf("unsupported condition kind %q", text)
}

// Valid reports whether c is a known condition kind.
func (c ConditionKind) Valid() bool {
	switch c {
	case ConditionIsPresent, ConditionIsAbsent, ConditionIsTrue, ConditionIsFalse, ConditionEquals, ConditionNotEquals:
		return true
	}
	return false
}
