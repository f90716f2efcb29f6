// Package query constructs Gmail search query strings from structured
// criteria.
//
// A single search request is an ordered Criteria set; every named criterion
// in the set must match, and the rendered terms appear in insertion order.
// Several sets passed to Build combine with OR: a message matches if it
// satisfies any one set.
//
// Conjunctions render as "(a b c)" and disjunctions as "{a b c}". The brace
// syntax for OR is a gmailkit convention; Gmail's own grammar spells
// disjunction with the OR keyword instead. Groups of one element render as
// the element itself.
//
// To negate a criterion, add an entry whose key carries the "exclude_"
// prefix: an "exclude_starred" entry renders "-is:starred", and an
// "exclude_labels" entry alongside a "labels" entry negates the combined
// labels term as a whole, not each label individually.
package query

import "strings"

const excludePrefix = "exclude_"

// Param is one named criterion in a search request.
type Param struct {
	Key   string
	Value Value
}

// Criteria is an ordered criterion set. Order is preserved in the rendered
// query, so identical input yields byte-identical output.
type Criteria []Param

// With appends a criterion and returns the extended set.
func (c Criteria) With(key string, value Value) Criteria {
	return append(c, Param{Key: key, Value: value})
}

func (c Criteria) has(key string) bool {
	for _, p := range c {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Build renders the given criterion sets into a single query string. With no
// sets it returns the empty string, with one set the AND-combination of its
// terms, and with several sets the OR-combination of the per-set queries in
// the given order. Build is pure: it performs no I/O and touches no shared
// mutable state.
func Build(sets ...Criteria) (string, error) {
	terms := make([]string, 0, len(sets))
	for _, set := range sets {
		term, err := buildSet(set)
		if err != nil {
			return "", err
		}
		terms = append(terms, term)
	}
	return or(terms), nil
}

func buildSet(set Criteria) (string, error) {
	terms := make([]string, 0, len(set))
	for _, p := range set {
		if name, ok := strings.CutPrefix(p.Key, excludePrefix); ok {
			if set.has(name) {
				// Marker only: the positive entry renders negated in place.
				continue
			}
			if _, known := criteria[name]; !known {
				return "", &UnknownCriterionError{Key: p.Key}
			}
			term, err := renderCriterion(name, p.Value)
			if err != nil {
				return "", err
			}
			terms = append(terms, exclude(term))
			continue
		}

		term, err := renderCriterion(p.Key, p.Value)
		if err != nil {
			return "", err
		}
		if set.has(excludePrefix + p.Key) {
			term = exclude(term)
		}
		terms = append(terms, term)
	}
	return and(terms), nil
}

func renderCriterion(name string, v Value) (string, error) {
	c, ok := criteria[name]
	if !ok {
		return "", &UnknownCriterionError{Key: name}
	}
	if name == "labels" {
		return renderLabels(v)
	}

	switch v.kind {
	case kindFlag:
		if c.maxArgs != 0 {
			return "", argErr(name, "criterion takes a value, not a flag")
		}
		return c.render(nil)

	case kindScalar:
		if c.minArgs > 1 || c.maxArgs < 1 {
			return "", argErr(name, "want %d to %d arguments, got a scalar", c.minArgs, c.maxArgs)
		}
		return c.render([]string{v.scalar})

	case kindTuple:
		if len(v.args) < c.minArgs || len(v.args) > c.maxArgs {
			return "", argErr(name, "want %d to %d arguments, got %d", c.minArgs, c.maxArgs, len(v.args))
		}
		return c.render(v.args)

	case kindAnd, kindOr:
		if len(v.group) == 0 {
			return "", argErr(name, "empty group")
		}
		terms := make([]string, 0, len(v.group))
		for _, el := range v.group {
			switch el.kind {
			case kindScalar, kindTuple:
			default:
				return "", argErr(name, "group elements must be scalars or argument tuples")
			}
			term, err := renderCriterion(name, el)
			if err != nil {
				return "", err
			}
			terms = append(terms, term)
		}
		return combine(v.kind, terms), nil
	}
	return "", argErr(name, "unsupported value")
}

// renderLabels handles the labels special case: a flat group of label names
// is always an AND of label: tokens, and a group of groups combines those
// AND-terms with the outer group's connective.
func renderLabels(v Value) (string, error) {
	switch v.kind {
	case kindScalar:
		return "label:" + v.scalar, nil

	case kindAnd, kindOr:
		if len(v.group) == 0 {
			return "", argErr("labels", "empty group")
		}
		if flat(v.group) {
			terms := make([]string, len(v.group))
			for i, el := range v.group {
				terms[i] = "label:" + el.scalar
			}
			return and(terms), nil
		}
		terms := make([]string, 0, len(v.group))
		for _, el := range v.group {
			switch el.kind {
			case kindScalar:
				terms = append(terms, "label:"+el.scalar)
			case kindAnd, kindOr:
				term, err := renderLabels(All(el.group...))
				if err != nil {
					return "", err
				}
				terms = append(terms, term)
			default:
				return "", argErr("labels", "group elements must be label names or groups of label names")
			}
		}
		return combine(v.kind, terms), nil
	}
	return "", argErr("labels", "want a label name or a group of label names")
}

func flat(group []Value) bool {
	for _, el := range group {
		if el.kind != kindScalar {
			return false
		}
	}
	return true
}

func combine(kind valueKind, terms []string) string {
	if kind == kindOr {
		return or(terms)
	}
	return and(terms)
}

// and renders the conjunction of already-rendered terms. Zero terms is the
// identity (empty string) and a single term passes through unwrapped.
func and(terms []string) string {
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	}
	return "(" + strings.Join(terms, " ") + ")"
}

// or renders the disjunction of already-rendered terms, with the same
// zero- and one-element behavior as and.
func or(terms []string) string {
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	}
	return "{" + strings.Join(terms, " ") + "}"
}

func exclude(term string) string {
	return "-" + term
}
