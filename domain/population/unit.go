package population

import (
	"strconv"

	"samplekit/domain/core"
)

// ValueKind distinguishes the two covariate types plus the missing marker.
type ValueKind string

const (
	ValueNumeric     ValueKind = "numeric"
	ValueCategorical ValueKind = "categorical"
	ValueMissing     ValueKind = "missing"
)

// Value is one typed covariate observation.
type Value struct {
	Kind ValueKind `json:"kind"`
	Num  float64   `json:"num,omitempty"`
	Cat  string    `json:"cat,omitempty"`
}

// Num wraps a numeric observation.
func Num(v float64) Value {
	return Value{Kind: ValueNumeric, Num: v}
}

// Cat wraps a categorical observation.
func Cat(v string) Value {
	return Value{Kind: ValueCategorical, Cat: v}
}

// Missing marks an absent observation.
func Missing() Value {
	return Value{Kind: ValueMissing}
}

// IsMissing reports whether the observation is absent.
func (v Value) IsMissing() bool {
	return v.Kind == ValueMissing
}

// Label renders the value as a partition key component. Numeric values use
// the shortest round-trip representation so composite keys stay stable.
func (v Value) Label() string {
	switch v.Kind {
	case ValueCategorical:
		return v.Cat
	case ValueNumeric:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	default:
		return ""
	}
}

// Unit is one population member: a stable identity plus its covariate
// observations. Units are immutable once the Population is built.
type Unit struct {
	Key    core.UnitID      `json:"key"`
	Values map[string]Value `json:"values"`
}

// Value returns the observation for a covariate, or a missing marker when
// the unit does not carry it.
func (u Unit) Value(name string) Value {
	if v, ok := u.Values[name]; ok {
		return v
	}
	return Missing()
}

// Numeric returns the numeric observation for a covariate. The second
// return is false for missing or categorical observations.
func (u Unit) Numeric(name string) (float64, bool) {
	v := u.Value(name)
	if v.Kind != ValueNumeric {
		return 0, false
	}
	return v.Num, true
}

// Categorical returns the categorical observation for a covariate. The
// second return is false for missing or numeric observations.
func (u Unit) Categorical(name string) (string, bool) {
	v := u.Value(name)
	if v.Kind != ValueCategorical {
		return "", false
	}
	return v.Cat, true
}
