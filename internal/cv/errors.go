package cv

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every construction-time failure
	ErrInvalidConfig = errors.New("invalid splitter configuration")

	// ErrPrecondition is matched by every split-time failure raised before the first fold
	ErrPrecondition = errors.New("split precondition violated")

	// ErrSplitCountUnknown is returned by splitters whose fold count depends on the data
	ErrSplitCountUnknown = errors.New("split count is only known after splitting a dataset")
)

// ConfigError describes a rejected constructor argument
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s must be %s, got %v", e.Field, e.Reason, e.Value)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func configErr(field string, value interface{}, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// PreconditionError describes input data a splitter refuses to split
type PreconditionError struct {
	Check  string
	Detail string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Check, e.Detail)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

func preconditionErr(check, format string, args ...interface{}) error {
	return &PreconditionError{Check: check, Detail: fmt.Sprintf(format, args...)}
}
