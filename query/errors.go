package query

import "fmt"

// UnknownCriterionError reports a criterion name outside the fixed dispatch
// table.
type UnknownCriterionError struct {
	Key string
}

func (e *UnknownCriterionError) Error() string {
	return fmt.Sprintf("query: unknown criterion %q", e.Key)
}

// InvalidArgumentError reports a value whose shape or arity does not fit the
// criterion it was supplied for.
type InvalidArgumentError struct {
	Criterion string
	Reason    string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("query: invalid argument for %q: %s", e.Criterion, e.Reason)
}

func argErr(criterion, format string, args ...any) error {
	return &InvalidArgumentError{Criterion: criterion, Reason: fmt.Sprintf(format, args...)}
}
