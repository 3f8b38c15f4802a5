// SPDX-License-Identifier: MPL-2.0

package classpath

import (
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"strings"
)

const (
	callableConstructor callableKind = iota
	callableMethod
)

//nolint:gochecknoglobals // reflect.Type of the error interface, computed once.
var errorType = reflect.TypeFor[error]()

type (
	callableKind int

	// Callable is a resolved constructor or method, ready to be invoked.
	Callable struct {
		class  *Class
		name   string
		kind   callableKind
		fn     reflect.Value
		params []reflect.Type
	}
)

// TypeOf returns the reflect.Type of T. It is a shorthand for building
// parameter signatures, e.g. classpath.TypeOf[io.Writer]().
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Constructor resolves the constructor whose parameter types exactly match
// params. Pass no params to resolve the zero-argument constructor.
func (c *Class) Constructor(params ...reflect.Type) (*Callable, error) {
	for _, ctor := range c.ctors {
		if signatureMatches(ctor.Type(), 0, params) {
			return &Callable{
				class:  c,
				name:   "<init>",
				kind:   callableConstructor,
				fn:     ctor,
				params: params,
			}, nil
		}
	}
	return nil, &InstantiationError{
		Class:  c.name,
		Reason: fmt.Sprintf("no constructor with signature (%s)", formatParams(params)),
	}
}

// Method resolves an exported method by name and exact parameter types.
// The receiver is not part of params.
func (c *Class) Method(name string, params ...reflect.Type) (*Callable, error) {
	member := name + "(" + formatParams(params) + ")"
	if !token.IsExported(name) {
		return nil, &AccessError{Class: c.name, Member: member, Reason: "method is not exported"}
	}

	m, ok := c.typ.MethodByName(name)
	if !ok {
		return nil, &AccessError{Class: c.name, Member: member, Reason: "no such method"}
	}
	// m.Type includes the receiver as its first input.
	if !signatureMatches(m.Type, 1, params) {
		return nil, &AccessError{
			Class:  c.name,
			Member: member,
			Reason: fmt.Sprintf("signature mismatch, found %s", m.Type),
		}
	}

	return &Callable{
		class:  c,
		name:   name,
		kind:   callableMethod,
		fn:     m.Func,
		params: params,
	}, nil
}

// Name returns the member name, "<init>" for constructors.
func (cl *Callable) Name() string { return cl.name }

// Class returns the declaring class.
func (cl *Callable) Class() *Class { return cl.class }

// String returns the member in Class.name(params) form.
func (cl *Callable) String() string {
	return cl.class.name + "." + cl.name + "(" + formatParams(cl.params) + ")"
}

// Invoke calls the callable. target is the receiver for methods and must be
// nil for constructors. The callee's results are returned without a trailing
// error result; a non-nil trailing error is reported as an
// InvocationTargetError, as is a panic raised by the callee.
func Invoke(cl *Callable, target any, args ...any) (results []any, err error) {
	if cl == nil {
		return nil, errors.New("classpath: Invoke called with nil callable")
	}

	in, err := cl.buildArgs(target, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &InvocationTargetError{
				Class:  cl.class.name,
				Member: cl.name,
				Cause:  panicError(r),
			}
		}
	}()

	out := cl.fn.Call(in)

	if n := len(out); n > 0 && cl.fn.Type().Out(n-1) == errorType {
		if errVal := out[n-1]; !errVal.IsNil() {
			return nil, &InvocationTargetError{
				Class:  cl.class.name,
				Member: cl.name,
				Cause:  errVal.Interface().(error),
			}
		}
		out = out[:n-1]
	}

	results = make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}

	if cl.kind == callableConstructor && (len(out) == 0 || isNilValue(out[0])) {
		return nil, &InstantiationError{Class: cl.class.name, Reason: "constructor returned no instance"}
	}

	return results, nil
}

// New is a convenience for invoking a constructor and returning the single
// instance it produced.
func New(cl *Callable, args ...any) (any, error) {
	results, err := Invoke(cl, nil, args...)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (cl *Callable) buildArgs(target any, args []any) ([]reflect.Value, error) {
	member := cl.name + "(" + formatParams(cl.params) + ")"

	if len(args) != len(cl.params) {
		return nil, &AccessError{
			Class:  cl.class.name,
			Member: member,
			Reason: fmt.Sprintf("expected %d argument(s), got %d", len(cl.params), len(args)),
		}
	}

	in := make([]reflect.Value, 0, len(args)+1)

	if cl.kind == callableMethod {
		if target == nil {
			return nil, &AccessError{Class: cl.class.name, Member: member, Reason: "nil receiver"}
		}
		recv := reflect.ValueOf(target)
		if recv.Type() != cl.class.typ {
			return nil, &AccessError{
				Class:  cl.class.name,
				Member: member,
				Reason: fmt.Sprintf("receiver has type %s, want %s", recv.Type(), cl.class.typ),
			}
		}
		in = append(in, recv)
	}

	for i, arg := range args {
		want := cl.params[i]
		if arg == nil {
			if !nillable(want) {
				return nil, &AccessError{
					Class:  cl.class.name,
					Member: member,
					Reason: fmt.Sprintf("argument %d: nil is not assignable to %s", i+1, want),
				}
			}
			in = append(in, reflect.Zero(want))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, &AccessError{
				Class:  cl.class.name,
				Member: member,
				Reason: fmt.Sprintf("argument %d: %s is not assignable to %s", i+1, v.Type(), want),
			}
		}
		in = append(in, v)
	}

	return in, nil
}

func signatureMatches(ft reflect.Type, skip int, params []reflect.Type) bool {
	if ft.IsVariadic() || ft.NumIn()-skip != len(params) {
		return false
	}
	for i, p := range params {
		if ft.In(i+skip) != p {
			return false
		}
	}
	return true
}

func formatParams(params []reflect.Type) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}

func isNilValue(v reflect.Value) bool {
	return nillable(v.Type()) && v.IsNil()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
