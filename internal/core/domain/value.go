package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValueKind is the closed set of index partitions.
type ValueKind int

const (
	// KindNull holds null and absent values with no declared kind.
	KindNull ValueKind = iota

	// KindBool holds booleans.
	KindBool

	// KindInt holds signed 64-bit integers.
	KindInt

	// KindFloat holds 64-bit floats.
	KindFloat

	// KindString holds text.
	KindString

	// KindReference holds references to other documents.
	KindReference
)

var kindNames = map[ValueKind]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindReference: "reference",
}

// AllKinds lists every partition in a stable order.
func AllKinds() []ValueKind {
	return []ValueKind{KindNull, KindBool, KindInt, KindFloat, KindString, KindReference}
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseValueKind parses a kind name. The empty string parses to KindNull,
// which means "not declared" wherever a declared kind is expected.
func ParseValueKind(s string) (ValueKind, error) {
	if s == "" {
		return KindNull, nil
	}
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("%w: unknown value kind %q", ErrInvalidInput, s)
}

// Reference points at another document.
type Reference struct {
	Collection string `json:"$ref" yaml:"$ref"`
	ID         string `json:"$id" yaml:"$id"`
}

func (r Reference) String() string {
	if r.Collection == "" {
		return r.ID
	}
	return r.Collection + "/" + r.ID
}

// IndexValue is a classified scalar. Only the field matching Kind is meaningful.
type IndexValue struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Float  float64
	String string
	Ref    Reference
}

// NullValue is the null IndexValue.
var NullValue = IndexValue{Kind: KindNull}

// IsNull reports whether the value is null.
func (v IndexValue) IsNull() bool { return v.Kind == KindNull }

// Interface returns the plain Go value.
func (v IndexValue) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.String
	case KindReference:
		return v.Ref
	}
	return nil
}

// Text renders the value for display and for text-keyed storage.
func (v IndexValue) Text() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.String
	case KindReference:
		return v.Ref.String()
	}
	return "null"
}

// Equal compares values; integers and floats compare numerically and
// references compare by ID.
func (v IndexValue) Equal(o IndexValue) bool {
	c, ok := v.Compare(o)
	return ok && c == 0
}

// Compare orders two values of comparable kinds.
// The boolean is false when the kinds cannot be ordered against each other.
func (v IndexValue) Compare(o IndexValue) (int, bool) {
	if v.isNumber() && o.isNumber() {
		if v.Kind == KindInt && o.Kind == KindInt {
			return cmp.Compare(v.Int, o.Int), true
		}
		return cmp.Compare(v.number(), o.number()), true
	}
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindNull:
		return 0, true
	case KindBool:
		return cmp.Compare(boolInt(v.Bool), boolInt(o.Bool)), true
	case KindString:
		return strings.Compare(v.String, o.String), true
	case KindReference:
		return strings.Compare(v.Ref.ID, o.Ref.ID), true
	}
	return 0, false
}

// Indexed returns the form a condition searches by. References keep only the
// referenced document ID, so "ada" and {"$ref": "authors", "$id": "ada"} find
// the same rows.
func (v IndexValue) Indexed() IndexValue {
	if v.Kind == KindReference {
		v.Ref = Reference{ID: v.Ref.ID}
	}
	return v
}

func (v IndexValue) isNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }

func (v IndexValue) number() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Order is a total order over values: numbers numerically, otherwise by kind then
// value.
func (v IndexValue) Order(o IndexValue) int {
	if c, ok := v.Compare(o); ok {
		return c
	}
	return cmp.Compare(v.Kind, o.Kind)
}

// SortValues sorts values by Order.
func SortValues(values []IndexValue) {
	slices.SortStableFunc(values, IndexValue.Order)
}

// Classify maps a value to the partition able to represent its runtime type.
func Classify(value any) (IndexValue, error) {
	switch v := Normalize(value).(type) {
	case nil:
		return NullValue, nil
	case bool:
		return IndexValue{Kind: KindBool, Bool: v}, nil
	case int64:
		return IndexValue{Kind: KindInt, Int: v}, nil
	case float64:
		return IndexValue{Kind: KindFloat, Float: v}, nil
	case string:
		return IndexValue{Kind: KindString, String: v}, nil
	case Reference:
		return IndexValue{Kind: KindReference, Ref: v}, nil
	case map[string]any:
		if ref, ok := referenceFromMap(v); ok {
			return IndexValue{Kind: KindReference, Ref: ref}, nil
		}
	}
	return NullValue, fmt.Errorf("%w: %T", ErrUnclassifiableValue, value)
}

// ClassifyAs coerces value into a declared kind. Null stays null whatever the kind;
// the caller keeps the declared kind as the partition.
func ClassifyAs(value any, declared ValueKind) (IndexValue, error) {
	iv, err := Classify(value)
	if err != nil {
		return NullValue, err
	}
	if iv.IsNull() || declared == KindNull || iv.Kind == declared {
		return iv, nil
	}

	switch declared {
	case KindInt:
		if iv.Kind == KindFloat && iv.Float == math.Trunc(iv.Float) &&
			iv.Float >= math.MinInt64 && iv.Float < math.MaxInt64 {
			return IndexValue{Kind: KindInt, Int: int64(iv.Float)}, nil
		}
		if iv.Kind == KindString {
			if n, err := strconv.ParseInt(iv.String, 10, 64); err == nil {
				return IndexValue{Kind: KindInt, Int: n}, nil
			}
		}
	case KindFloat:
		if iv.Kind == KindInt {
			return IndexValue{Kind: KindFloat, Float: float64(iv.Int)}, nil
		}
		if iv.Kind == KindString {
			if f, err := strconv.ParseFloat(iv.String, 64); err == nil {
				return IndexValue{Kind: KindFloat, Float: f}, nil
			}
		}
	case KindString:
		return IndexValue{Kind: KindString, String: iv.Text()}, nil
	case KindReference:
		if iv.Kind == KindString {
			return IndexValue{Kind: KindReference, Ref: Reference{ID: iv.String}}, nil
		}
	case KindBool:
		if iv.Kind == KindString {
			if b, err := strconv.ParseBool(iv.String); err == nil {
				return IndexValue{Kind: KindBool, Bool: b}, nil
			}
		}
	}
	return NullValue, fmt.Errorf("%w: %s value cannot be stored as %s", ErrUnclassifiableValue, iv.Kind, declared)
}

// ValuesEqual compares two raw values. Scalars compare by classified value,
// so 3 and 3.0 are equal; containers compare structurally after normalisation.
func ValuesEqual(a, b any) bool {
	na, nb := Normalize(a), Normalize(b)
	ia, errA := Classify(na)
	ib, errB := Classify(nb)
	if errA == nil && errB == nil {
		return ia.Equal(ib)
	}
	if errA == nil || errB == nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func referenceFromMap(m map[string]any) (Reference, bool) {
	if len(m) != 2 {
		return Reference{}, false
	}
	coll, okColl := m["$ref"].(string)
	id, okID := m["$id"].(string)
	if !okColl || !okID {
		return Reference{}, false
	}
	return Reference{Collection: coll, ID: id}, true
}

// Normalize converts a value into the raw data vocabulary: map[string]any,
// []any, nil, bool, int64, float64, string, []byte and Reference.
// Other values (typed maps, slices, structs) are converted through JSON.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, int64, float64, Reference:
		return v
	case *Reference:
		if v == nil {
			return nil
		}
		return *v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return uintValue(v)
	case float32:
		return float64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []byte:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = Normalize(val)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, val := range v {
			s[i] = Normalize(val)
		}
		return s
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	decoded, err := DecodeJSON(data)
	if err != nil {
		return value
	}
	return decoded
}

func uintValue(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// DecodeJSON decodes JSON keeping integers as int64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return Normalize(out), nil
}

// DecodeJSONObject decodes a JSON object into raw document data.
func DecodeJSONObject(data []byte) (map[string]any, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected JSON object, got %T", ErrInvalidInput, v)
	}
	return m, nil
}
