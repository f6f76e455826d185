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

// Package errors defines the error values reported by node factories, the
// reducer and the decoders of expression trees.
//
// Every error carries a [Kind]. Use the standard errors.Is with a Kind to test
// for a class of failure:
//
//	if errors.Is(err, errors.Argument) { ... }
package errors // import "github.com/cue-exp/exprtree/errors"

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// New is a convenience wrapper for errors.New in the core library.
// It does not return an Error.
func New(msg string) error {
	return errors.New(msg)
}

// Unwrap returns the result of calling the Unwrap method on err, if err
// implements Unwrap. Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches the type to which
// target points, and if so, sets the target to its value and returns true.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// A Kind classifies an error.
//
// A Kind is itself an error so that it can be used as the target of Is.
type Kind int8

const (
	// ArgumentNull reports a missing required construction input.
	ArgumentNull Kind = iota + 1

	// Argument reports an input that is present but invalid: a wrong arity,
	// a type mismatch, a duplicate binding, an unsuitable member, a
	// non-rectangular initializer or a duplicate case value.
	Argument

	// InvalidOperation reports a tree that cannot be processed as a whole,
	// such as an unresolvable goto case target found during reduction.
	InvalidOperation
)

func (k Kind) String() string {
	switch k {
	case ArgumentNull:
		return "argument null"
	case Argument:
		return "invalid argument"
	case InvalidOperation:
		return "invalid operation"
	}
	return "unknown error"
}

func (k Kind) Error() string { return k.String() }

// Pos is a position in an input file. The zero value is not valid.
type Pos struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based
}

// IsValid reports whether the position holds line information.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	s := p.Filename
	if p.IsValid() {
		if s != "" {
			s += ":"
		}
		s += fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	if s == "" {
		s = "-"
	}
	return s
}

// Error is the common error interface of this module.
type Error interface {
	// Position returns the primary position of an error. If multiple
	// positions contribute equally, this reflects one of them.
	Position() Pos

	// Kind classifies the error.
	Kind() Kind

	// Param reports the name of the offending construction input, if any.
	Param() string

	// Error reports the error message without position information.
	Error() string

	// Msg returns the unformatted error message and its arguments for
	// human-readable error messages.
	Msg() (format string, args []interface{})
}

type posError struct {
	pos    Pos
	kind   Kind
	param  string
	format string
	args   []interface{}

	// The underlying error that triggered this one, if any.
	err error
}

func (e *posError) Position() Pos { return e.pos }
func (e *posError) Kind() Kind    { return e.kind }
func (e *posError) Param() string { return e.param }
func (e *posError) Unwrap() error { return e.err }
func (e *posError) Is(t error) bool {
	k, ok := t.(Kind)
	return ok && k == e.kind
}

func (e *posError) Msg() (string, []interface{}) {
	return e.format, e.args
}

func (e *posError) Error() string {
	msg := fmt.Sprintf(e.format, e.args...)
	if e.err != nil {
		if msg == "" {
			return e.err.Error()
		}
		return msg + ": " + e.err.Error()
	}
	return msg
}

// ArgNull reports that the construction input named param was nil.
func ArgNull(param string) Error {
	return &posError{
		kind:   ArgumentNull,
		param:  param,
		format: "%s must not be nil",
		args:   []interface{}{param},
	}
}

// Argf reports an invalid construction input named param.
func Argf(param, format string, args ...interface{}) Error {
	return &posError{
		kind:   Argument,
		param:  param,
		format: format,
		args:   args,
	}
}

// InvalidOpf reports an operation that cannot be carried out on a tree.
func InvalidOpf(format string, args ...interface{}) Error {
	return &posError{
		kind:   InvalidOperation,
		format: format,
		args:   args,
	}
}

// Newf creates an Error of the given kind with the given position and
// message.
func Newf(k Kind, p Pos, format string, args ...interface{}) Error {
	return &posError{
		pos:    p,
		kind:   k,
		format: format,
		args:   args,
	}
}

// Wrapf creates an Error with the associated position and message. The
// provided error is added for inspection context and determines the kind
// if it is an Error.
func Wrapf(err error, p Pos, format string, args ...interface{}) Error {
	e := &posError{
		pos:    p,
		kind:   InvalidOperation,
		format: format,
		args:   args,
		err:    err,
	}
	var x Error
	if errors.As(err, &x) {
		e.kind = x.Kind()
		e.param = x.Param()
	}
	return e
}

// WithPos returns err with its position set to p, unless err already has a
// valid position.
func WithPos(err error, p Pos) Error {
	var x *posError
	if errors.As(err, &x) {
		if x.pos.IsValid() {
			return x
		}
		c := *x
		c.pos = p
		return &c
	}
	return Wrapf(err, p, "")
}

// Promote converts a regular Go error to an Error if it isn't already one.
func Promote(err error, msg string) Error {
	switch x := err.(type) {
	case Error:
		return x
	default:
		return Wrapf(err, Pos{}, "%s", msg)
	}
}

// List is a list of Errors.
// The zero value for a List is an empty List ready to use.
type List []Error

// Append combines two errors, flattening Lists as necessary.
func Append(a, b Error) Error {
	switch x := a.(type) {
	case nil:
		return b
	case List:
		return appendToList(x, b)
	}
	// Preserve order of errors.
	list := appendToList(nil, a)
	list = appendToList(list, b)
	return list
}

func appendToList(a List, err Error) List {
	switch x := err.(type) {
	case nil:
		return a
	case List:
		if a == nil {
			return x
		}
		return append(a, x...)
	default:
		return append(a, err)
	}
}

// Errors reports the individual errors associated with an error, which is
// the error itself if there is only one or, if the underlying type is List,
// its individual elements. If the given error is not an Error, it will be
// promoted to one.
func Errors(err error) []Error {
	if err == nil {
		return nil
	}
	var listErr List
	var errorErr Error
	switch {
	case errors.As(err, &listErr):
		return listErr
	case errors.As(err, &errorErr):
		return []Error{errorErr}
	default:
		return []Error{Promote(err, "")}
	}
}

// Position returns the position of the first error in the list.
func (p List) Position() Pos {
	if len(p) == 0 {
		return Pos{}
	}
	return p[0].Position()
}

// Kind returns the kind of the first error in the list.
func (p List) Kind() Kind {
	if len(p) == 0 {
		return 0
	}
	return p[0].Kind()
}

// Param returns the parameter of the first error in the list.
func (p List) Param() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Param()
}

// Msg reports the unformatted error message for the first error, if any.
func (p List) Msg() (format string, args []interface{}) {
	if len(p) == 0 {
		return "no errors", nil
	}
	return p[0].Msg()
}

// Is reports whether any error in the list matches target.
func (p List) Is(target error) bool {
	for _, e := range p {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

// Sort sorts a List. Errors are sorted by position, errors without
// position come first.
func (p List) Sort() {
	sort.SliceStable(p, func(i, j int) bool {
		e := p[i].Position()
		f := p[j].Position()
		if e.Filename != f.Filename {
			return e.Filename < f.Filename
		}
		if e.Line != f.Line {
			return e.Line < f.Line
		}
		if e.Column != f.Column {
			return e.Column < f.Column
		}
		return p[i].Error() < p[j].Error()
	})
}

// A List implements the error interface.
func (p List) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", p[0], len(p)-1)
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (p List) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

// Details is a convenience wrapper for Print to return the error text as a
// string.
func Details(err error) string {
	var b strings.Builder
	Print(&b, err)
	return b.String()
}

// Print is a utility function that prints a list of errors to w, one error
// per line, with its position if it has one.
func Print(w io.Writer, err error) {
	for _, e := range Errors(err) {
		if p := e.Position(); p.IsValid() || p.Filename != "" {
			fmt.Fprintf(w, "%s: %v\n", p, e)
			continue
		}
		fmt.Fprintf(w, "%v\n", e)
	}
}
