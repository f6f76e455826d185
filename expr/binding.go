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
	"fmt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/types"
)

// A ParameterAssignment binds an argument expression to a parameter of a
// method, constructor, indexer or func type. It is not a node by itself.
type ParameterAssignment struct {
	param *types.Parameter
	value Node
}

// Bind returns the binding of value to p. Arguments for by-ref parameters
// must be storage locations of exactly the parameter type; other arguments
// must be readable and assignable to the parameter type.
func Bind(p *types.Parameter, value Node) (*ParameterAssignment, error) {
	if p == nil {
		return nil, errors.ArgNull("parameter")
	}
	if value == nil {
		return nil, errors.ArgNull("expression")
	}
	if p.IsByRef() {
		if !isLocation(value) && !isIndexerLocation(value) {
			return nil, errors.Argf("expression", "argument for by-reference parameter %s must be a storage location", p.Name())
		}
		if value.Type() != p.Type() {
			return nil, errors.Argf("expression", "argument for by-reference parameter %s must be of type %s, found %s", p.Name(), p.Type(), value.Type())
		}
	} else if err := requireValue(value, p.Type(), "expression"); err != nil {
		return nil, err
	}
	return &ParameterAssignment{param: p, value: value}, nil
}

func isIndexerLocation(n Node) bool {
	x, ok := n.(*IndexExpr)
	return ok && x.prop.CanRead() && x.prop.CanWrite()
}

func (a *ParameterAssignment) Parameter() *types.Parameter { return a.param }
func (a *ParameterAssignment) Value() Node                 { return a.value }

func (a *ParameterAssignment) String() string {
	return a.param.Name() + ":"
}

func (a *ParameterAssignment) Update(value Node) (*ParameterAssignment, error) {
	if value == a.value {
		return a, nil
	}
	return Bind(a.param, value)
}

// bindPositional converts positional arguments to assignments to the
// parameters with the same position.
func bindPositional(params []*types.Parameter, args []Node, what string) ([]*ParameterAssignment, error) {
	if len(args) > len(params) {
		return nil, errors.Argf("args", "too many arguments for %s: want at most %d, found %d", what, len(params), len(args))
	}
	a := make([]*ParameterAssignment, len(args))
	for i, n := range args {
		b, err := Bind(params[i], n)
		if err != nil {
			return nil, errors.Wrapf(err, errors.Pos{}, "args[%d]", i)
		}
		a[i] = b
	}
	return a, nil
}

// bindArguments checks that args is a valid binding for the parameters of
// owner: each parameter belongs to owner and is bound at most once, and
// every parameter without a default value is bound.
func bindArguments(owner any, params []*types.Parameter, args []*ParameterAssignment, what string) error {
	bound := make([]bool, len(params))
	for i, a := range args {
		if a == nil {
			return errors.ArgNull(fmt.Sprintf("args[%d]", i))
		}
		p := a.param
		if !p.BelongsTo(owner) {
			return errors.Argf("args", "parameter %s is not a parameter of %s", p.Name(), what)
		}
		if bound[p.Position()] {
			return errors.Argf("args", "parameter %s of %s is bound more than once", p.Name(), what)
		}
		bound[p.Position()] = true
	}
	for i, p := range params {
		if !bound[i] && !p.HasDefault() {
			return errors.Argf("args", "required parameter %s of %s is not bound", p.Name(), what)
		}
	}
	return nil
}

// inDeclarationOrder reports whether the assignments are listed in
// increasing parameter position.
func inDeclarationOrder(args []*ParameterAssignment) bool {
	for i := 1; i < len(args); i++ {
		if args[i-1].param.Position() > args[i].param.Position() {
			return false
		}
	}
	return true
}

// needsSpill reports whether the arguments must be evaluated into
// temporaries ahead of the call. This is the case when they are listed out
// of declaration order, or when a by-ref argument is an indexer location,
// which must be lowered to a primitive location before the call.
func needsSpill(args []*ParameterAssignment) bool {
	if !inDeclarationOrder(args) {
		return true
	}
	for _, a := range args {
		if a.param.IsByRef() && isIndexerLocation(a.value) {
			return true
		}
	}
	return false
}

func sameAssignments(a, b []*ParameterAssignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// A spill accumulates temporaries and the assignments that initialize them,
// in evaluation order.
type spill struct {
	vars  []*Var
	stmts []Node
}

// value evaluates n into a new temporary and returns the temporary.
// Constants are returned as is.
func (s *spill) value(n Node, name string) (Node, error) {
	switch n.(type) {
	case *Const, *Default:
		return n, nil
	}
	v, err := Variable(n.Type(), name)
	if err != nil {
		return nil, err
	}
	a, err := AssignTo(v, n)
	if err != nil {
		return nil, err
	}
	s.vars = append(s.vars, v)
	s.stmts = append(s.stmts, a)
	return v, nil
}

// receiver evaluates the receiver n once. Receivers of value types that
// are locations are not copied; their own receiver and indices are
// evaluated instead.
func (s *spill) receiver(n Node) (Node, error) {
	if n == nil {
		return nil, nil
	}
	if n.Type().IsValueType() && (isLocation(n) || isIndexerLocation(n)) {
		return s.location(n)
	}
	return s.value(n, "recv")
}

// location evaluates the receiver and indices of the location n and
// returns an equivalent primitive location that refers to them. The value
// stored in the location is not read.
func (s *spill) location(n Node) (Node, error) {
	switch x := n.(type) {
	case *Var:
		return x, nil

	case *Member:
		if x.x == nil {
			return x, nil
		}
		recv, err := s.receiver(x.x)
		if err != nil {
			return nil, err
		}
		return x.Update(recv)

	case *Index:
		recv, err := s.receiver(x.x)
		if err != nil {
			return nil, err
		}
		args := make([]Node, len(x.args))
		for i, a := range x.args {
			if args[i], err = s.value(a, "index"); err != nil {
				return nil, err
			}
		}
		return x.Update(recv, args)

	case *IndexExpr:
		recv, err := s.receiver(x.x)
		if err != nil {
			return nil, err
		}
		args, err := s.arguments(x.prop.Params(), x.args, true)
		if err != nil {
			return nil, err
		}
		return IndexProperty(recv, x.prop, args...)
	}
	return nil, errors.InvalidOpf("%s is not a storage location", n.Kind())
}

// arguments returns the arguments of a primitive call in declaration order.
// If force is set or needsSpill reports true, each argument is first
// evaluated into a temporary in listed order; by-ref arguments evaluate
// only the parts of their location. Omitted parameters receive their
// default values.
func (s *spill) arguments(params []*types.Parameter, args []*ParameterAssignment, force bool) ([]Node, error) {
	force = force || needsSpill(args)
	out := make([]Node, len(params))
	for _, a := range args {
		p, v := a.param, a.value
		var err error
		switch {
		case !force:
		case p.IsByRef():
			v, err = s.location(v)
		default:
			v, err = s.value(v, p.Name())
		}
		if err != nil {
			return nil, err
		}
		out[p.Position()] = v
	}
	for i, p := range params {
		if out[i] != nil {
			continue
		}
		c, err := Constant(p.Default(), p.Type())
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// wrap returns result preceded by the accumulated assignments.
func (s *spill) wrap(result Node) (Node, error) {
	if len(s.stmts) == 0 {
		return result, nil
	}
	exprs := append(clone(s.stmts), result)
	return MakeBlock(result.Type(), s.vars, exprs)
}
