package validator

import (
	"errors"
	"time"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// WithMaxTokenSize sets the largest token, in bytes, CanRead accepts.
func WithMaxTokenSize(size int) Option {
	return func(v *Validator) error {
		if size <= 0 {
			return errors.New("max token size must be positive")
		}
		v.maxTokenSize = size
		return nil
	}
}
