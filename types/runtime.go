// Copyright 2026 The CUE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// A Ref is passed for by-reference parameters. It reads and writes the
// storage location bound to the parameter.
type Ref interface {
	Load() any
	Store(v any)
}

// A Callable is the runtime value of a func type.
type Callable interface {
	Call(args []any) (any, error)
}

// CallableFunc adapts a Go function to a Callable.
type CallableFunc func(args []any) (any, error)

func (f CallableFunc) Call(args []any) (any, error) { return f(args) }

// Zero returns the default value of t.
func Zero(t *Type) any {
	switch t.kind {
	case BoolKind:
		return false
	case IntKind:
		return 0
	case FloatKind:
		return 0.0
	case DecimalKind:
		return new(apd.Decimal)
	case CharKind:
		return rune(0)
	case StructKind:
		return NewInstance(t)
	}
	return nil
}

// An Instance is the runtime value of a class or struct type.
type Instance struct {
	typ    *Type
	fields map[*Field]any
}

// NewInstance returns an instance of t with all fields set to their zero
// values.
func NewInstance(t *Type) *Instance {
	return &Instance{typ: t, fields: map[*Field]any{}}
}

// Type returns the dynamic type of x.
func (x *Instance) Type() *Type { return x.typ }

// Load returns the value of field f.
func (x *Instance) Load(f *Field) any {
	if v, ok := x.fields[f]; ok {
		return v
	}
	return Zero(f.typ)
}

// Store sets the value of field f.
func (x *Instance) Store(f *Field, v any) {
	x.fields[f] = v
}

// Clone returns a shallow copy of x. It implements copy semantics for
// struct values.
func (x *Instance) Clone() *Instance {
	c := NewInstance(x.typ)
	for f, v := range x.fields {
		c.fields[f] = v
	}
	return c
}

func (x *Instance) String() string {
	return x.typ.Name()
}

// An Array is the runtime value of an array type. Elements are stored in
// row-major order.
type Array struct {
	typ     *Type
	lengths []int
	strides []int
	data    []any
}

// NewArray allocates an array of elem with the given dimension lengths. All
// elements are set to the zero value of elem.
func NewArray(elem *Type, lengths ...int) (*Array, error) {
	n := 1
	for _, l := range lengths {
		if l < 0 {
			return nil, Throwf(OverflowException, "array dimension %d is negative", l)
		}
		n *= l
	}
	a := &Array{
		typ:     ArrayOf(elem, len(lengths)),
		lengths: append([]int(nil), lengths...),
		strides: Strides(lengths),
		data:    make([]any, n),
	}
	for i := range a.data {
		a.data[i] = Zero(elem)
	}
	return a, nil
}

// Strides returns the row-major strides for the given dimension lengths: the
// number of elements between consecutive indices of each dimension.
func Strides(lengths []int) []int {
	s := make([]int, len(lengths))
	step := 1
	for i := len(lengths) - 1; i >= 0; i-- {
		s[i] = step
		step *= lengths[i]
	}
	return s
}

// Type returns the array type of a.
func (a *Array) Type() *Type { return a.typ }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.data) }

// Lengths returns the length of each dimension.
func (a *Array) Lengths() []int { return a.lengths }

// Offset returns the position in row-major storage of the element at the
// given indices.
func (a *Array) Offset(idx ...int) (int, error) {
	if len(idx) != len(a.lengths) {
		return 0, Throwf(IndexOutOfRangeException, "array of rank %d indexed with %d indices", len(a.lengths), len(idx))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.lengths[i] {
			return 0, Throwf(IndexOutOfRangeException, "index %d out of range [0:%d]", x, a.lengths[i])
		}
		off += x * a.strides[i]
	}
	return off, nil
}

// Load returns the element at the given indices.
func (a *Array) Load(idx ...int) (any, error) {
	off, err := a.Offset(idx...)
	if err != nil {
		return nil, err
	}
	return a.data[off], nil
}

// Store sets the element at the given indices.
func (a *Array) Store(v any, idx ...int) error {
	off, err := a.Offset(idx...)
	if err != nil {
		return err
	}
	a.data[off] = v
	return nil
}

// At returns the element at position i of the row-major storage.
func (a *Array) At(i int) any { return a.data[i] }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, v := range a.data {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprint(&b, v)
	}
	b.WriteString("]")
	return b.String()
}

// An Exception is the runtime value of an exception class. Exceptions are
// reported as Go errors by the evaluator and by member implementations.
type Exception struct {
	Type    *Type
	Message string

	// Err is the Go error that caused this exception, if any.
	Err error
}

// Throwf returns an exception of type t with a formatted message.
func Throwf(t *Type, format string, args ...interface{}) *Exception {
	return &Exception{Type: t, Message: fmt.Sprintf(format, args...)}
}

// AsException converts err to an exception. Errors that are not already
// exceptions are wrapped in an Exception of type Exception.
func AsException(err error) *Exception {
	if x, ok := err.(*Exception); ok {
		return x
	}
	return &Exception{Type: ExceptionType, Err: err}
}

func (e *Exception) Error() string {
	switch {
	case e.Message != "":
		return e.Type.Name() + ": " + e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Type.Name()
}

func (e *Exception) Unwrap() error { return e.Err }
