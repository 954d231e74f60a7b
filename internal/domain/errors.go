package domain

import "fmt"

// ValidationError reports a field value that violates a length, range or
// pattern constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s: %s", e.Field, e.Reason)
}

// UnknownVariantError is returned when a string does not name a member of a
// closed enumeration.
type UnknownVariantError struct {
	Type  string
	Value string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("domain: unknown %s variant %q", e.Type, e.Value)
}

// DuplicateKeyError is returned by AddEntry when the key is already present.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("domain: duplicate key %q", e.Key)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AddEntry inserts key into m, allocating m when nil. It refuses to overwrite
// an existing key.
func AddEntry(m map[string]string, key, value string) (map[string]string, error) {
	if m == nil {
		m = make(map[string]string)
	}
	if _, exists := m[key]; exists {
		return m, &DuplicateKeyError{Key: key}
	}
	m[key] = value
	return m, nil
}
