// Package models defines the core data structures used throughout dbdiff
// including captured column values, table snapshots, and snapshot diffs.
package models

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnValue is a captured column value. The set of implementations is
// closed: only the types in this file satisfy it.
type ColumnValue interface {
	// Display returns the human-readable, type-aware rendering.
	Display() string
	// HashPart returns the token this value contributes to a row hash.
	HashPart() string

	rank() int
	payload() string
}

// NumberValue is a numeric column kept in its textual form.
type NumberValue string

// BitValue is a bit field rendered as binary digits.
type BitValue string

// StringValue is a character column.
type StringValue string

// DateValue is a date or time column kept in its textual form.
type DateValue string

// BinaryValue is an opaque binary column.
type BinaryValue string

// JSONValue is a JSON document kept as text.
type JSONValue string

// NullValue is SQL NULL.
type NullValue struct{}

// ParseErrorValue marks a value whose declared type could not be interpreted.
type ParseErrorValue struct{}

const (
	nullToken       = "<null>"
	parseErrorToken = "parse error"
)

func (v NumberValue) Display() string     { return string(v) }
func (v BitValue) Display() string        { return "bit(" + string(v) + ")" }
func (v StringValue) Display() string     { return `"` + string(v) + `"` }
func (v DateValue) Display() string       { return `"` + string(v) + `"` }
func (v BinaryValue) Display() string     { return "binary" }
func (v JSONValue) Display() string       { return string(v) }
func (v NullValue) Display() string       { return nullToken }
func (v ParseErrorValue) Display() string { return parseErrorToken }

func (v NumberValue) HashPart() string     { return string(v) }
func (v BitValue) HashPart() string        { return string(v) }
func (v StringValue) HashPart() string     { return string(v) }
func (v DateValue) HashPart() string       { return string(v) }
func (v BinaryValue) HashPart() string     { return md5Hex(string(v)) }
func (v JSONValue) HashPart() string       { return string(v) }
func (v NullValue) HashPart() string       { return md5Hex(nullToken) }
func (v ParseErrorValue) HashPart() string { return parseErrorToken }

func (NumberValue) rank() int     { return 0 }
func (BitValue) rank() int        { return 1 }
func (StringValue) rank() int     { return 2 }
func (DateValue) rank() int       { return 3 }
func (BinaryValue) rank() int     { return 4 }
func (JSONValue) rank() int       { return 5 }
func (NullValue) rank() int       { return 6 }
func (ParseErrorValue) rank() int { return 7 }

func (v NumberValue) payload() string   { return string(v) }
func (v BitValue) payload() string      { return string(v) }
func (v StringValue) payload() string   { return string(v) }
func (v DateValue) payload() string     { return string(v) }
func (v BinaryValue) payload() string   { return string(v) }
func (v JSONValue) payload() string     { return string(v) }
func (NullValue) payload() string       { return "" }
func (ParseErrorValue) payload() string { return "" }

// CompareValues orders values by variant first and payload second.
// It returns -1, 0 or +1.
func CompareValues(a, b ColumnValue) int {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.payload(), b.payload())
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Value kinds used in the persisted JSON form.
const (
	KindNumber     = "number"
	KindBit        = "bit"
	KindString     = "string"
	KindDate       = "date"
	KindBinary     = "binary"
	KindJSON       = "json"
	KindNull       = "null"
	KindParseError = "parse_error"
)

// Kind returns the persisted kind name of v.
func Kind(v ColumnValue) string {
	switch v.(type) {
	case NumberValue:
		return KindNumber
	case BitValue:
		return KindBit
	case StringValue:
		return KindString
	case DateValue:
		return KindDate
	case BinaryValue:
		return KindBinary
	case JSONValue:
		return KindJSON
	case NullValue:
		return KindNull
	default:
		return KindParseError
	}
}

type valueJSON struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

func encodeValue(v ColumnValue) valueJSON {
	if v == nil {
		return valueJSON{Kind: KindNull}
	}
	out := valueJSON{Kind: Kind(v), Value: v.payload()}
	if out.Kind == KindBinary {
		out.Value = base64.StdEncoding.EncodeToString([]byte(out.Value))
	}
	return out
}

func decodeValue(in valueJSON) ColumnValue {
	switch in.Kind {
	case KindNumber:
		return NumberValue(in.Value)
	case KindBit:
		return BitValue(in.Value)
	case KindString:
		return StringValue(in.Value)
	case KindDate:
		return DateValue(in.Value)
	case KindBinary:
		raw, err := base64.StdEncoding.DecodeString(in.Value)
		if err != nil {
			return ParseErrorValue{}
		}
		return BinaryValue(raw)
	case KindJSON:
		return JSONValue(in.Value)
	case KindNull:
		return NullValue{}
	default:
		return ParseErrorValue{}
	}
}

// MarshalValue encodes a single value in its persisted form.
func MarshalValue(v ColumnValue) ([]byte, error) {
	return json.Marshal(encodeValue(v))
}

// UnmarshalValue decodes a value written by MarshalValue.
func UnmarshalValue(data []byte) (ColumnValue, error) {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal column value: %w", err)
	}
	return decodeValue(in), nil
}

// Values is an ordered list of column values with a JSON encoding.
type Values []ColumnValue

// MarshalJSON implements json.Marshaler.
func (vs Values) MarshalJSON() ([]byte, error) {
	out := make([]valueJSON, len(vs))
	for i, v := range vs {
		out[i] = encodeValue(v)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (vs *Values) UnmarshalJSON(data []byte) error {
	var in []valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Values, len(in))
	for i, v := range in {
		out[i] = decodeValue(v)
	}
	*vs = out
	return nil
}
