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

// A Const is a literal value.
type Const struct {
	value any
	typ   *types.Type
}

// Constant returns a constant of type t. The value must be a valid runtime
// value of t; nil is allowed for nullable types.
func Constant(v any, t *types.Type) (*Const, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	if t == types.Void {
		return nil, errors.Argf("type", "constant cannot be of type void")
	}
	if !t.Accepts(v) {
		return nil, errors.Argf("value", "%v (%T) is not a valid value of type %s", v, v, t)
	}
	return &Const{value: v, typ: t}, nil
}

// ConstOf returns a constant whose type is inferred from v.
func ConstOf(v any) (*Const, error) {
	t := types.TypeOf(v)
	if t == nil {
		return nil, errors.Argf("value", "cannot infer the type of %v (%T)", v, v)
	}
	return Constant(v, t)
}

// Null returns the null constant of type t. Value types are not lifted:
// t must already be nullable, as in types.NullableOf(types.Int).
func Null(t *types.Type) (*Const, error) {
	return Constant(nil, t)
}

func (x *Const) Kind() Kind        { return ConstKind }
func (x *Const) Type() *types.Type { return x.typ }
func (x *Const) Value() any        { return x.value }
func (x *Const) node()             {}

// A Default evaluates to the zero value of its type. A Default of type Void
// is the empty expression.
type Default struct {
	typ *types.Type
}

// DefaultOf returns the zero value expression for t.
func DefaultOf(t *types.Type) (*Default, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	return &Default{typ: t}, nil
}

var empty = &Default{typ: types.Void}

// Empty returns an expression of type Void that does nothing.
func Empty() *Default { return empty }

func (x *Default) Kind() Kind        { return DefaultKind }
func (x *Default) Type() *types.Type { return x.typ }
func (x *Default) node()             {}

// A Var is a parameter or local variable. Variables are declared by the
// Block, Lambda or CatchBlock that owns them and referenced by identity.
type Var struct {
	name string
	typ  *types.Type
}

// Variable returns a new variable of type t. The name is informational.
func Variable(t *types.Type, name string) (*Var, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	if t == types.Void {
		return nil, errors.Argf("type", "variable %s cannot be of type void", name)
	}
	return &Var{name: name, typ: t}, nil
}

func (x *Var) Kind() Kind        { return VarKind }
func (x *Var) Type() *types.Type { return x.typ }
func (x *Var) Name() string      { return x.name }
func (x *Var) node()             {}

func (x *Var) String() string {
	if x.name == "" {
		return "<var>"
	}
	return x.name
}

// A Block evaluates its expressions in order within a scope declaring vars.
// Its value is the value of the last expression, unless the block is of type
// Void.
type Block struct {
	vars  []*Var
	exprs []Node
	typ   *types.Type
}

// NewBlock returns a block of exprs without variables.
func NewBlock(exprs ...Node) (*Block, error) {
	return MakeBlock(nil, nil, exprs)
}

// BlockVars returns a block of exprs declaring vars.
func BlockVars(vars []*Var, exprs ...Node) (*Block, error) {
	return MakeBlock(nil, vars, exprs)
}

// MakeBlock returns a block of type t. If t is nil, the type is that of
// the last expression, or Void for an empty block. A block of type Void
// discards the value of its last expression.
func MakeBlock(t *types.Type, vars []*Var, exprs []Node) (*Block, error) {
	if err := checkVars(vars, "vars"); err != nil {
		return nil, err
	}
	if err := checkNodes(exprs, "exprs"); err != nil {
		return nil, err
	}
	switch {
	case t == nil && len(exprs) == 0:
		t = types.Void
	case t == nil:
		t = exprs[len(exprs)-1].Type()
	case t != types.Void:
		if len(exprs) == 0 {
			return nil, errors.Argf("exprs", "empty block cannot produce a value of type %s", t)
		}
		if err := requireValue(exprs[len(exprs)-1], t, "exprs"); err != nil {
			return nil, err
		}
	}
	return &Block{vars: clone(vars), exprs: clone(exprs), typ: t}, nil
}

func (x *Block) Kind() Kind        { return BlockKind }
func (x *Block) Type() *types.Type { return x.typ }
func (x *Block) Vars() []*Var      { return x.vars }
func (x *Block) Exprs() []Node     { return x.exprs }
func (x *Block) node()             {}

// Result returns the last expression of the block, or nil if it is empty.
func (x *Block) Result() Node {
	if len(x.exprs) == 0 {
		return nil
	}
	return x.exprs[len(x.exprs)-1]
}

func (x *Block) Update(vars []*Var, exprs []Node) (*Block, error) {
	if sameVars(vars, x.vars) && sameNodes(exprs, x.exprs) {
		return x, nil
	}
	return MakeBlock(x.typ, vars, exprs)
}

// A Cond evaluates Then or Else depending on the boolean Test.
type Cond struct {
	test, then, els Node
	typ             *types.Type
}

// Condition returns a conditional of type t. If t is nil, both branches must
// have the same type, which becomes the type of the conditional. If t is
// Void, the branch values are discarded. A nil els is allowed only for
// conditionals of type Void.
func Condition(test, then, els Node, t *types.Type) (*Cond, error) {
	if err := requireBool(test, "test"); err != nil {
		return nil, err
	}
	if then == nil {
		return nil, errors.ArgNull("then")
	}
	if els == nil {
		if t != types.Void {
			return nil, errors.ArgNull("else")
		}
		els = empty
	}
	switch {
	case t == nil:
		if then.Type() != els.Type() {
			return nil, errors.Argf("else", "branches have different types %s and %s", then.Type(), els.Type())
		}
		t = then.Type()
	case t != types.Void:
		if err := requireValue(then, t, "then"); err != nil {
			return nil, err
		}
		if err := requireValue(els, t, "else"); err != nil {
			return nil, err
		}
	}
	return &Cond{test: test, then: then, els: els, typ: t}, nil
}

// IfThen returns a statement evaluating then when test holds.
func IfThen(test, then Node) (*Cond, error) {
	return Condition(test, then, nil, types.Void)
}

// IfThenElse returns a statement evaluating one of two branches.
func IfThenElse(test, then, els Node) (*Cond, error) {
	return Condition(test, then, els, types.Void)
}

// Conditional returns a conditional expression whose branches have the
// same type.
func Conditional(test, then, els Node) (*Cond, error) {
	return Condition(test, then, els, nil)
}

func (x *Cond) Kind() Kind        { return CondKind }
func (x *Cond) Type() *types.Type { return x.typ }
func (x *Cond) Test() Node        { return x.test }
func (x *Cond) Then() Node        { return x.then }
func (x *Cond) Else() Node        { return x.els }
func (x *Cond) node()             {}

func (x *Cond) Update(test, then, els Node) (*Cond, error) {
	if test == x.test && then == x.then && els == x.els {
		return x, nil
	}
	return Condition(test, then, els, x.typ)
}

// A Throw raises an exception. A Throw without a value rethrows the
// exception being handled by the innermost enclosing catch block.
type Throw struct {
	value Node
	typ   *types.Type
}

// ThrowValue returns a statement throwing v, which must be an exception.
func ThrowValue(v Node) (*Throw, error) {
	if v == nil {
		return nil, errors.ArgNull("value")
	}
	return MakeThrow(v, types.Void)
}

// Rethrow returns a statement rethrowing the exception being handled.
func Rethrow() *Throw {
	return &Throw{typ: types.Void}
}

// MakeThrow returns a throw of type t, for use in a value position.
func MakeThrow(v Node, t *types.Type) (*Throw, error) {
	if t == nil {
		t = types.Void
	}
	if v != nil {
		if err := requireReadable(v, "value"); err != nil {
			return nil, err
		}
		if !v.Type().DerivesFrom(types.ExceptionType) {
			return nil, errors.Argf("value", "cannot throw a value of type %s", v.Type())
		}
	}
	return &Throw{value: v, typ: t}, nil
}

func (x *Throw) Kind() Kind        { return ThrowKind }
func (x *Throw) Type() *types.Type { return x.typ }
func (x *Throw) Value() Node       { return x.value }
func (x *Throw) node()             {}

func (x *Throw) Update(v Node) (*Throw, error) {
	if v == x.value {
		return x, nil
	}
	return MakeThrow(v, x.typ)
}

// An Assign stores the value of Right in the location Left and evaluates
// to the stored value.
type Assign struct {
	left, right Node
}

// AssignTo returns an assignment. Left must be a variable, a writable field
// or property, or an array element or indexer with a setter.
func AssignTo(left, right Node) (*Assign, error) {
	if left == nil {
		return nil, errors.ArgNull("left")
	}
	switch left.(type) {
	case *Var, *Member, *Index:
	default:
		return nil, errors.Argf("left", "%s is not assignable", left.Kind())
	}
	if !isWritable(left) {
		return nil, errors.Argf("left", "%s is not assignable", left.Kind())
	}
	if err := requireValue(right, left.Type(), "right"); err != nil {
		return nil, err
	}
	return &Assign{left: left, right: right}, nil
}

func (x *Assign) Kind() Kind        { return AssignKind }
func (x *Assign) Type() *types.Type { return x.left.Type() }
func (x *Assign) Left() Node        { return x.left }
func (x *Assign) Right() Node       { return x.right }
func (x *Assign) node()             {}

func (x *Assign) Update(left, right Node) (*Assign, error) {
	if left == x.left && right == x.right {
		return x, nil
	}
	return AssignTo(left, right)
}

// A Convert converts the value of an expression to another type.
// Conversions to Void discard the value.
type Convert struct {
	x   Node
	typ *types.Type
}

// ConvertTo returns a conversion of x to t.
func ConvertTo(x Node, t *types.Type) (*Convert, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	if err := requireReadable(x, "expression"); err != nil {
		return nil, err
	}
	if !x.Type().ConvertibleTo(t) {
		return nil, errors.Argf("type", "cannot convert %s to %s", x.Type(), t)
	}
	return &Convert{x: x, typ: t}, nil
}

func (x *Convert) Kind() Kind        { return ConvertKind }
func (x *Convert) Type() *types.Type { return x.typ }
func (x *Convert) Operand() Node     { return x.x }
func (x *Convert) node()             {}

func (x *Convert) Update(operand Node) (*Convert, error) {
	if operand == x.x {
		return x, nil
	}
	return ConvertTo(operand, x.typ)
}

// convertIfNeeded converts n to t unless it already has type t.
func convertIfNeeded(n Node, t *types.Type) (Node, error) {
	if n.Type() == t {
		return n, nil
	}
	return ConvertTo(n, t)
}

// A Lambda is a function literal. Its parameters are variables; the body
// may reference variables of enclosing scopes.
type Lambda struct {
	name   string
	params []*Var
	body   Node
	typ    *types.Type
}

// NewLambda returns a lambda whose type is inferred from its body and
// parameters.
func NewLambda(body Node, params ...*Var) (*Lambda, error) {
	return MakeLambda(nil, "", body, params)
}

// MakeLambda returns a lambda of type t. If t is nil, the type is a func
// type with the parameter types and the type of the body as result. If the
// result type is Void, the value of the body is discarded.
func MakeLambda(t *types.Type, name string, body Node, params []*Var) (*Lambda, error) {
	if body == nil {
		return nil, errors.ArgNull("body")
	}
	if err := checkVars(params, "params"); err != nil {
		return nil, err
	}
	if t == nil {
		t = types.FuncOf(body.Type(), lambdaParams(params)...)
	} else if err := checkFuncType(t, body, params); err != nil {
		return nil, err
	}
	return &Lambda{name: name, params: clone(params), body: body, typ: t}, nil
}

func lambdaParams(vars []*Var) []*types.Parameter {
	ps := make([]*types.Parameter, len(vars))
	for i, v := range vars {
		name := v.name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		ps[i] = types.Param(name, v.typ)
	}
	return ps
}

func checkFuncType(t *types.Type, body Node, params []*Var) error {
	if t.Kind() != types.FuncKind {
		return errors.Argf("type", "lambda type must be a func type, found %s", t)
	}
	ps := t.Params()
	if len(ps) != len(params) {
		return errors.Argf("params", "lambda of type %s requires %d parameters, found %d", t, len(ps), len(params))
	}
	for i, p := range ps {
		if p.Type() != params[i].typ {
			return errors.Argf("params", "parameter %d of lambda of type %s must be of type %s, found %s", i, t, p.Type(), params[i].typ)
		}
	}
	if r := t.Result(); r != types.Void {
		return requireValue(body, r, "body")
	}
	return nil
}

func (x *Lambda) Kind() Kind        { return LambdaKind }
func (x *Lambda) Type() *types.Type { return x.typ }
func (x *Lambda) Name() string      { return x.name }
func (x *Lambda) Params() []*Var    { return x.params }
func (x *Lambda) Body() Node        { return x.body }
func (x *Lambda) node()             {}

func (x *Lambda) Update(body Node, params []*Var) (*Lambda, error) {
	if body == x.body && sameVars(params, x.params) {
		return x, nil
	}
	return MakeLambda(x.typ, x.name, body, params)
}
