package query

import "strconv"

type valueKind int

const (
	kindScalar valueKind = iota
	kindFlag
	kindTuple
	kindAnd
	kindOr
)

// Value is one criterion value: a scalar, a presence flag for boolean
// criteria, a fixed-arity argument pack, or an and/or group of sub-values.
// Values are immutable once constructed.
type Value struct {
	kind   valueKind
	scalar string
	args   []string
	group  []Value
}

// Scalar is a single string argument, e.g. an address or a subject.
func Scalar(s string) Value {
	return Value{kind: kindScalar, scalar: s}
}

// Flag marks a boolean criterion as present. The criterion renders the same
// fixed token regardless; exclusion goes through the exclude_ key prefix.
func Flag() Value {
	return Value{kind: kindFlag}
}

// Tuple is an ordered argument pack for criteria that take more than one
// argument, such as near_words or the time-window criteria. Arity is checked
// against the criterion when the query is built.
func Tuple(args ...string) Value {
	return Value{kind: kindTuple, args: args}
}

// All groups sub-values so that every one must match. Groups of a single
// element render as that element with no surrounding punctuation.
func All(vs ...Value) Value {
	return Value{kind: kindAnd, group: vs}
}

// Any groups sub-values so that at least one must match.
func Any(vs ...Value) Value {
	return Value{kind: kindOr, group: vs}
}

// AllOf is All over plain strings.
func AllOf(ss ...string) Value {
	return All(scalars(ss)...)
}

// AnyOf is Any over plain strings.
func AnyOf(ss ...string) Value {
	return Any(scalars(ss)...)
}

// Period is the argument pack for older_than and newer_than. The unit should
// be "day", "month" or "year"; only its first character reaches the wire.
func Period(n int, unit string) Value {
	return Tuple(strconv.Itoa(n), unit)
}

// Near is the argument pack for near_words: two words at most distance words
// apart, in either order.
func Near(first, second string, distance int) Value {
	return Tuple(first, second, strconv.Itoa(distance))
}

// NearExact is Near with the order of the two words fixed.
func NearExact(first, second string, distance int) Value {
	return Tuple(first, second, strconv.Itoa(distance), argExact)
}

func scalars(ss []string) []Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = Scalar(s)
	}
	return vs
}
