package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is the cause of a ConfigurationError for an absent required property
	ErrMissing = errors.New("required property missing")

	// ErrInvalid is the cause of a ConfigurationError for an unusable value
	ErrInvalid = errors.New("invalid property value")

	// ErrUnknownFormat is the cause of a ConfigurationError for a target format
	// not in the format registry
	ErrUnknownFormat = errors.New("unknown format")
)

// ConfigurationError reports a task property that prevents the task from
// being constructed
type ConfigurationError struct {
	Task string
	Key  string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("task %s: property %s: %v", e.Task, e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(task, key string, err error) error {
	return &ConfigurationError{Task: task, Key: key, Err: err}
}
