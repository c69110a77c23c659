package container

import "errors"

var (
	// ErrNotFound is returned by Get for names that are neither registered
	// nor autowirable.
	ErrNotFound = errors.New("container: entry not found")

	// ErrInvalidDefinition marks definitions that cannot produce a value:
	// unknown classes, constructors needing parameters under create, values
	// that are not callable.
	ErrInvalidDefinition = errors.New("container: invalid definition")

	// ErrNotCompilable is returned by Build when compilation is enabled and a
	// definition cannot be written to the compiled artifact.
	ErrNotCompilable = errors.New("container: definition cannot be compiled")

	// ErrTypeMismatch is returned by Resolve when the entry has another type.
	ErrTypeMismatch = errors.New("container: type mismatch")
)
