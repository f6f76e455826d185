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

// Package interp evaluates reduced expression trees.
//
// The evaluator walks the tree directly. It accepts only primitive nodes;
// extension nodes must be lowered with expr.Reduce first. Runtime failures
// are reported as *types.Exception values, which can be caught by Try
// nodes.
package interp

import (
	"context"
	"fmt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/task"
	"github.com/cue-exp/exprtree/types"
)

// A Func is a compiled lambda.
type Func struct {
	c *closure
}

// Compile prepares l for evaluation. l must not contain extension nodes
// and must not reference variables other than its own.
func Compile(l *expr.Lambda) (*Func, error) {
	if l == nil {
		return nil, errors.ArgNull("lambda")
	}
	if err := expr.CheckReduced(l); err != nil {
		return nil, err
	}
	return &Func{c: &closure{l: l}}, nil
}

// Call calls f with the given arguments.
func (f *Func) Call(args ...any) (any, error) {
	return f.c.Call(args)
}

// Callable returns f as a runtime func value.
func (f *Func) Callable() types.Callable { return f.c }

// Eval evaluates the closed expression n.
func Eval(n expr.Node) (any, error) {
	if n == nil {
		return nil, errors.ArgNull("node")
	}
	if err := expr.CheckReduced(n); err != nil {
		return nil, err
	}
	v, err := eval(nil, n)
	return v, escaped(err)
}

// Run evaluates the closed expression n like Eval. If n is a lambda without
// parameters, Run calls it. If the resulting value is a task, Run waits for
// its outcome.
func Run(ctx context.Context, n expr.Node) (any, error) {
	v, err := Eval(n)
	if err != nil {
		return nil, err
	}
	if l, ok := n.(*expr.Lambda); ok && len(l.Params()) == 0 {
		if v, err = v.(types.Callable).Call(nil); err != nil {
			return nil, err
		}
	}
	if t, ok := v.(*task.Task); ok {
		return t.Wait(ctx)
	}
	return v, nil
}

// escaped reports a jump that left the construct declaring its label.
func escaped(err error) error {
	if j, ok := err.(*jump); ok {
		return errors.InvalidOpf("jump to label %s outside of its scope", j.target)
	}
	return err
}

// A jump carries a goto to its target label. It travels up the evaluation
// as an error until a block declaring the label catches it.
type jump struct {
	target *expr.LabelTarget
	value  any
}

func (j *jump) Error() string {
	return fmt.Sprintf("jump to %s", j.target)
}

// An env holds the variables of a scope.
type env struct {
	parent *env
	cells  map[*expr.Var]*cell

	// caught is the exception handled by the enclosing catch block, if any.
	caught *types.Exception
}

type cell struct {
	v   any
	ref types.Ref
}

func (c *cell) load() any {
	if c.ref != nil {
		return c.ref.Load()
	}
	return c.v
}

func (c *cell) store(v any) {
	if c.ref != nil {
		c.ref.Store(v)
		return
	}
	c.v = v
}

// extend returns a new scope declaring vars with their default values.
func (e *env) extend(vars []*expr.Var) *env {
	if len(vars) == 0 {
		return e
	}
	x := &env{parent: e, cells: make(map[*expr.Var]*cell, len(vars))}
	for _, v := range vars {
		x.cells[v] = &cell{v: types.Zero(v.Type())}
	}
	return x
}

func (e *env) lookup(v *expr.Var) (*cell, error) {
	for x := e; x != nil; x = x.parent {
		if c, ok := x.cells[v]; ok {
			return c, nil
		}
	}
	return nil, errors.InvalidOpf("variable %s is not in scope", v)
}

func (e *env) exception() *types.Exception {
	for x := e; x != nil; x = x.parent {
		if x.caught != nil {
			return x.caught
		}
	}
	return nil
}

// A closure is the runtime value of a Lambda.
type closure struct {
	l   *expr.Lambda
	env *env
}

func (c *closure) Call(args []any) (any, error) {
	params := c.l.Params()
	if len(args) != len(params) {
		return nil, types.Throwf(types.InvalidOperationException,
			"%s called with %d arguments, want %d", c, len(args), len(params))
	}
	sig := c.l.Type().Params()
	x := &env{parent: c.env, cells: make(map[*expr.Var]*cell, len(params))}
	for i, p := range params {
		cl := &cell{}
		if r, ok := args[i].(types.Ref); ok && sig[i].IsByRef() {
			cl.ref = r
		} else {
			cl.v = copyValue(args[i])
		}
		x.cells[p] = cl
	}
	v, err := eval(x, c.l.Body())
	if err != nil {
		return nil, escaped(err)
	}
	if c.l.Type().Result() == types.Void {
		return nil, nil
	}
	return v, nil
}

func (c *closure) String() string {
	if name := c.l.Name(); name != "" {
		return name
	}
	return "lambda"
}

// copyValue returns a copy of struct values and v itself otherwise.
func copyValue(v any) any {
	if x, ok := v.(*types.Instance); ok && x.Type().Kind() == types.StructKind {
		return x.Clone()
	}
	return v
}
