package templator

import "errors"

var (
	// ErrConfig marks invalid option combinations detected before any file is touched.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound is returned for a root or input path that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnresolved is returned in strict mode when placeholders remain.
	ErrUnresolved = errors.New("unresolved variables")

	// ErrDuplicateKey is returned when a key is given twice to the same source.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrEmptyEntry is returned for an entry with an empty key or value.
	ErrEmptyEntry = errors.New("empty entry")

	// ErrUnsupportedInput is returned for input files that are not .env, .json or .yaml.
	ErrUnsupportedInput = errors.New("unsupported input file")

	// ErrInterrupted is returned when the run is cancelled between files.
	ErrInterrupted = errors.New("interrupted")
)
