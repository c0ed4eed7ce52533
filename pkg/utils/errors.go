// Package utils provides the small shared helpers the rest of the
// module leans on: error wrapping with stage context, and namespaced
// environment lookups.
package utils

import "fmt"

// Wrap annotates err with the pipeline stage or subsystem it came
// from. It returns nil if err is nil, so call sites can wrap
// unconditionally.
func Wrap(err error, stage string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// Wrapf is Wrap with a formatted stage description.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
