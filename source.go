package templator

import (
	"fmt"
	"os"
	"strings"
)

// Source is one ordered name -> value lookup table contributed by a single
// origin: explicit key=value pairs, one input file or the environment.
// Empty keys and empty values are never stored.
type Source struct {
	// Name identifies the origin in log messages, e.g. "--set" or "vars.env".
	Name string

	keys   []string
	values map[string]string
}

// SourceList is an ordered set of sources. Index 0 has the highest precedence.
type SourceList []*Source

// NewSource returns an empty source.
func NewSource(name string) *Source {
	return &Source{
		Name:   name,
		values: make(map[string]string),
	}
}

// Add stores key=value and fails if key is already present.
func (s *Source) Add(key, value string) error {
	if _, exists := s.values[key]; exists {
		return fmt.Errorf("%w: %q in %s", ErrDuplicateKey, key, s.Name)
	}

	return s.Set(key, value)
}

// Set stores key=value, replacing any previous value while keeping the
// original insertion position.
func (s *Source) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key in %s", ErrEmptyEntry, s.Name)
	}
	if value == "" {
		return fmt.Errorf("%w: empty value for %q in %s", ErrEmptyEntry, key, s.Name)
	}

	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value

	return nil
}

// Lookup returns the value stored for key.
func (s *Source) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}

	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (s *Source) Keys() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.keys...)
}

// Len returns the number of stored entries.
func (s *Source) Len() int {
	if s == nil {
		return 0
	}

	return len(s.keys)
}

// EnvProvider gives access to process environment variables in the
// "KEY=VALUE" form returned by os.Environ.
type EnvProvider interface {
	Environ() []string
}

// OSEnv reads the real process environment.
type OSEnv struct{}

// Environ implements EnvProvider.
func (OSEnv) Environ() []string {
	return os.Environ()
}

// MapEnv is a fixed environment, mostly useful in tests.
type MapEnv map[string]string

// Environ implements EnvProvider.
func (m MapEnv) Environ() []string {
	env := make([]string, 0, len(m))
	for k, v := range m {
		env = append(env, k+"="+v)
	}

	return env
}

// EnvSource builds a source from the environment exposed by p.
// Variables with an empty value are not stored.
func EnvSource(p EnvProvider) *Source {
	src := NewSource("environment")

	for _, kv := range p.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" || value == "" {
			continue
		}

		// Set never fails here, both parts are non-empty
		_ = src.Set(key, value)
	}

	return src
}
