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

package expr

import (
	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/types"
)

// A CallExpr calls a method with named, positional or by-ref arguments,
// some of which may be omitted in favor of parameter defaults. Arguments
// are evaluated in the order they are listed.
type CallExpr struct {
	x      Node
	method *types.Method
	args   []*ParameterAssignment
}

// CallArgs returns a call of m on x with the given argument bindings.
func CallArgs(x Node, m *types.Method, args ...*ParameterAssignment) (*CallExpr, error) {
	if m == nil {
		return nil, errors.ArgNull("method")
	}
	if err := checkReceiver(x, m); err != nil {
		return nil, err
	}
	if err := bindArguments(m, m.Params(), args, m.String()); err != nil {
		return nil, err
	}
	return &CallExpr{x: x, method: m, args: clone(args)}, nil
}

// CallPositional returns a call of m on x binding args by position.
// Trailing optional parameters may be omitted.
func CallPositional(x Node, m *types.Method, args ...Node) (*CallExpr, error) {
	if m == nil {
		return nil, errors.ArgNull("method")
	}
	a, err := bindPositional(m.Params(), args, m.String())
	if err != nil {
		return nil, err
	}
	return CallArgs(x, m, a...)
}

func (x *CallExpr) Kind() Kind                   { return CallExprKind }
func (x *CallExpr) Type() *types.Type            { return x.method.Result() }
func (x *CallExpr) Expr() Node                   { return x.x }
func (x *CallExpr) Method() *types.Method        { return x.method }
func (x *CallExpr) Args() []*ParameterAssignment { return x.args }
func (x *CallExpr) node()                        {}

func (x *CallExpr) Update(expr Node, args []*ParameterAssignment) (*CallExpr, error) {
	if expr == x.x && sameAssignments(args, x.args) {
		return x, nil
	}
	return CallArgs(expr, x.method, args...)
}

func (x *CallExpr) Reduce() (Node, error) {
	var s spill
	recv, err := reorderedReceiver(&s, x.x, x.args)
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(x.method.Params(), x.args, false)
	if err != nil {
		return nil, err
	}
	call, err := CallMethod(recv, x.method, args...)
	if err != nil {
		return nil, err
	}
	return s.wrap(call)
}

// reorderedReceiver evaluates recv ahead of the arguments if the arguments
// are spilled into temporaries.
func reorderedReceiver(s *spill, recv Node, args []*ParameterAssignment) (Node, error) {
	if recv == nil || !needsSpill(args) {
		return recv, nil
	}
	return s.receiver(recv)
}

// A NewExpr invokes a constructor with argument bindings.
type NewExpr struct {
	ctor *types.Constructor
	args []*ParameterAssignment
}

// NewArgs returns an invocation of constructor c with the given argument
// bindings.
func NewArgs(c *types.Constructor, args ...*ParameterAssignment) (*NewExpr, error) {
	if c == nil {
		return nil, errors.ArgNull("constructor")
	}
	if err := bindArguments(c, c.Params(), args, c.DeclaringType().Name()); err != nil {
		return nil, err
	}
	return &NewExpr{ctor: c, args: clone(args)}, nil
}

// NewPositional returns an invocation of constructor c binding args by
// position.
func NewPositional(c *types.Constructor, args ...Node) (*NewExpr, error) {
	if c == nil {
		return nil, errors.ArgNull("constructor")
	}
	a, err := bindPositional(c.Params(), args, c.DeclaringType().Name())
	if err != nil {
		return nil, err
	}
	return NewArgs(c, a...)
}

func (x *NewExpr) Kind() Kind                      { return NewExprKind }
func (x *NewExpr) Type() *types.Type               { return x.ctor.DeclaringType() }
func (x *NewExpr) Constructor() *types.Constructor { return x.ctor }
func (x *NewExpr) Args() []*ParameterAssignment    { return x.args }
func (x *NewExpr) node()                           {}

func (x *NewExpr) Update(args []*ParameterAssignment) (*NewExpr, error) {
	if sameAssignments(args, x.args) {
		return x, nil
	}
	return NewArgs(x.ctor, args...)
}

func (x *NewExpr) Reduce() (Node, error) {
	var s spill
	args, err := s.arguments(x.ctor.Params(), x.args, false)
	if err != nil {
		return nil, err
	}
	n, err := NewObject(x.ctor, args...)
	if err != nil {
		return nil, err
	}
	return s.wrap(n)
}

// An InvokeExpr invokes a func value with argument bindings to the
// parameters of its func type.
type InvokeExpr struct {
	fn   Node
	args []*ParameterAssignment
}

// InvokeArgs returns an invocation of fn with the given argument bindings.
// The bound parameters must be those of the func type of fn, see
// types.Type.Params.
func InvokeArgs(fn Node, args ...*ParameterAssignment) (*InvokeExpr, error) {
	if err := requireReadable(fn, "expression"); err != nil {
		return nil, err
	}
	t := fn.Type()
	if t.Kind() != types.FuncKind {
		return nil, errors.Argf("expression", "cannot invoke a value of type %s", t)
	}
	if err := bindArguments(t, t.Params(), args, t.String()); err != nil {
		return nil, err
	}
	return &InvokeExpr{fn: fn, args: clone(args)}, nil
}

// InvokePositional returns an invocation of fn binding args by position.
func InvokePositional(fn Node, args ...Node) (*InvokeExpr, error) {
	if err := requireReadable(fn, "expression"); err != nil {
		return nil, err
	}
	if fn.Type().Kind() != types.FuncKind {
		return nil, errors.Argf("expression", "cannot invoke a value of type %s", fn.Type())
	}
	a, err := bindPositional(fn.Type().Params(), args, fn.Type().String())
	if err != nil {
		return nil, err
	}
	return InvokeArgs(fn, a...)
}

func (x *InvokeExpr) Kind() Kind                   { return InvokeExprKind }
func (x *InvokeExpr) Type() *types.Type            { return x.fn.Type().Result() }
func (x *InvokeExpr) Expr() Node                   { return x.fn }
func (x *InvokeExpr) Args() []*ParameterAssignment { return x.args }
func (x *InvokeExpr) node()                        {}

func (x *InvokeExpr) Update(fn Node, args []*ParameterAssignment) (*InvokeExpr, error) {
	if fn == x.fn && sameAssignments(args, x.args) {
		return x, nil
	}
	return InvokeArgs(fn, args...)
}

func (x *InvokeExpr) Reduce() (Node, error) {
	var s spill
	fn, err := reorderedReceiver(&s, x.fn, x.args)
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(x.fn.Type().Params(), x.args, false)
	if err != nil {
		return nil, err
	}
	n, err := InvokeFunc(fn, args...)
	if err != nil {
		return nil, err
	}
	return s.wrap(n)
}

// An IndexExpr accesses an indexer with argument bindings. It is a storage
// location if the indexer has both a getter and a setter.
type IndexExpr struct {
	x    Node
	prop *types.Property
	args []*ParameterAssignment
}

// IndexArgs returns an access of the indexer p on x with the given
// argument bindings.
func IndexArgs(x Node, p *types.Property, args ...*ParameterAssignment) (*IndexExpr, error) {
	if p == nil {
		return nil, errors.ArgNull("indexer")
	}
	if !p.IsIndexer() {
		return nil, errors.Argf("indexer", "property %s is not an indexer", p.Name())
	}
	if err := checkReceiver(x, p); err != nil {
		return nil, err
	}
	if err := bindArguments(p, p.Params(), args, p.Name()); err != nil {
		return nil, err
	}
	return &IndexExpr{x: x, prop: p, args: clone(args)}, nil
}

// IndexPositional returns an access of the indexer p on x binding args by
// position.
func IndexPositional(x Node, p *types.Property, args ...Node) (*IndexExpr, error) {
	if p == nil {
		return nil, errors.ArgNull("indexer")
	}
	a, err := bindPositional(p.Params(), args, p.Name())
	if err != nil {
		return nil, err
	}
	return IndexArgs(x, p, a...)
}

func (x *IndexExpr) Kind() Kind                   { return IndexExprKind }
func (x *IndexExpr) Type() *types.Type            { return x.prop.Type() }
func (x *IndexExpr) Expr() Node                   { return x.x }
func (x *IndexExpr) Indexer() *types.Property     { return x.prop }
func (x *IndexExpr) Args() []*ParameterAssignment { return x.args }
func (x *IndexExpr) node()                        {}

func (x *IndexExpr) Update(expr Node, args []*ParameterAssignment) (*IndexExpr, error) {
	if expr == x.x && sameAssignments(args, x.args) {
		return x, nil
	}
	return IndexArgs(expr, x.prop, args...)
}

func (x *IndexExpr) Reduce() (Node, error) {
	var s spill
	recv, err := reorderedReceiver(&s, x.x, x.args)
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(x.prop.Params(), x.args, false)
	if err != nil {
		return nil, err
	}
	n, err := IndexProperty(recv, x.prop, args...)
	if err != nil {
		return nil, err
	}
	return s.wrap(n)
}
