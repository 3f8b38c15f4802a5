// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrInvalidBinding is the sentinel error wrapped by InvalidBindingError.
var ErrInvalidBinding = errors.New("invalid binding")

// InvalidBindingError is returned when a value cannot be bound to a shell variable.
type InvalidBindingError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("cannot bind %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidBinding so callers can use errors.Is for programmatic detection.
func (e *InvalidBindingError) Unwrap() error { return ErrInvalidBinding }

// identifier maps name onto a valid shell identifier. It returns "" for an
// empty name.
func identifier(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name) + 1)
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// declaration renders the shell source that binds value to name.
func declaration(name string, value any) (string, error) {
	ident := identifier(name)
	if ident == "" {
		return "", &InvalidBindingError{Name: name, Reason: "name must not be empty"}
	}

	if value == nil {
		return ident + "=", nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		elems := make([]string, 0, v.Len())
		for i := range v.Len() {
			q, err := quote(scalar(v.Index(i).Interface()))
			if err != nil {
				return "", &InvalidBindingError{Name: name, Reason: err.Error()}
			}
			elems = append(elems, q)
		}
		return ident + "=(" + strings.Join(elems, " ") + ")", nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return "", &InvalidBindingError{Name: name, Reason: "map keys must be strings"}
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)

		elems := make([]string, 0, len(keys))
		for _, k := range keys {
			q, err := quote(scalar(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())).Interface()))
			if err != nil {
				return "", &InvalidBindingError{Name: name, Reason: err.Error()}
			}
			elems = append(elems, "["+singleQuote(k)+"]="+q)
		}
		return "declare -A " + ident + "=(" + strings.Join(elems, " ") + ")", nil
	}

	q, err := quote(scalar(value))
	if err != nil {
		return "", &InvalidBindingError{Name: name, Reason: err.Error()}
	}
	return ident + "=" + q, nil
}

// scalar renders a value as a single shell word. Nested slices are joined
// with spaces so they split naturally when expanded unquoted.
func scalar(value any) string {
	if value == nil {
		return ""
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if b, ok := value.([]byte); ok {
			return string(b)
		}
		parts := make([]string, v.Len())
		for i := range v.Len() {
			parts[i] = scalar(v.Index(i).Interface())
		}
		return strings.Join(parts, " ")
	case reflect.Pointer:
		if v.IsNil() {
			return ""
		}
	}
	return fmt.Sprint(value)
}

func quote(s string) (string, error) {
	return syntax.Quote(s, syntax.LangBash)
}

// singleQuote wraps s in single quotes, escaping embedded ones.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
