package domain

import "fmt"

// Operator is a comparison applied to index rows.
type Operator string

const (
	OpExact  Operator = "exact"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpAbsent Operator = "absent"
)

// Condition filters documents by an index param.
type Condition struct {
	Param string
	Op    Operator
	Value any
}

// Validate checks the operator and param.
func (c Condition) Validate() error {
	if c.Param == "" {
		return fmt.Errorf("%w: condition has no param", ErrInvalidInput)
	}
	switch c.Op {
	case OpExact, OpAbsent:
		return nil
	case OpGt, OpGte, OpLt, OpLte:
		if c.Value == nil {
			return fmt.Errorf("%w: %s needs a value", ErrInvalidInput, c.Op)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operator %q", ErrInvalidInput, c.Op)
}

// ValueFor coerces the condition value into a partition.
// The boolean is false when the value cannot be represented there.
// Null is representable everywhere and numbers compare across the int and float
// partitions; non-text values are never coerced into the string partition.
func (c Condition) ValueFor(partition ValueKind) (IndexValue, bool) {
	raw, err := Classify(c.Value)
	if err != nil {
		return NullValue, false
	}
	switch {
	case raw.IsNull():
		return raw, true
	case raw.isNumber() && (partition == KindInt || partition == KindFloat):
		return raw, true
	case partition == KindString && raw.Kind != KindString:
		return NullValue, false
	}
	v, err := ClassifyAs(raw.Interface(), partition)
	if err != nil {
		return NullValue, false
	}
	return v.Indexed(), true
}

// Matches evaluates the condition against a single row.
func (c Condition) Matches(row IndexRow) bool {
	if row.Param != c.Param {
		return false
	}
	if c.Op == OpAbsent {
		return row.Absent
	}
	want, ok := c.ValueFor(row.Partition)
	if !ok {
		return false
	}
	if c.Op == OpExact {
		if want.IsNull() {
			return row.Value.IsNull()
		}
		return row.Value.Equal(want)
	}
	if row.Value.IsNull() || want.IsNull() {
		return false
	}
	cmp, ok := row.Value.Compare(want)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}
