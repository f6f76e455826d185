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

package interp

import (
	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

func eval(e *env, n expr.Node) (any, error) {
	switch x := n.(type) {
	case *expr.Const:
		return x.Value(), nil

	case *expr.Default:
		return types.Zero(x.Type()), nil

	case *expr.Var:
		c, err := e.lookup(x)
		if err != nil {
			return nil, err
		}
		return c.load(), nil

	case *expr.Block:
		return run(e.extend(x.Vars()), x, 0, nil)

	case *expr.Label:
		if d := x.DefaultValue(); d != nil {
			return eval(e, d)
		}
		return types.Zero(x.Type()), nil

	case *expr.Goto:
		var v any
		if x.Value() != nil {
			var err error
			if v, err = eval(e, x.Value()); err != nil {
				return nil, err
			}
		}
		return nil, &jump{target: x.Target(), value: v}

	case *expr.Cond:
		ok, err := evalBool(e, x.Test())
		if err != nil {
			return nil, err
		}
		branch := x.Else()
		if ok {
			branch = x.Then()
		}
		v, err := eval(e, branch)
		if err != nil || x.Type() == types.Void {
			return nil, err
		}
		return v, nil

	case *expr.Try:
		return evalTry(e, x)

	case *expr.Throw:
		return nil, evalThrow(e, x)

	case *expr.Assign:
		loc, err := locate(e, x.Left())
		if err != nil {
			return nil, err
		}
		v, err := eval(e, x.Right())
		if err != nil {
			return nil, err
		}
		v = copyValue(v)
		if err := loc.store(v); err != nil {
			return nil, err
		}
		return v, nil

	case *expr.Member:
		loc, err := locate(e, x)
		if err != nil {
			return nil, err
		}
		return loc.load()

	case *expr.Index:
		loc, err := locate(e, x)
		if err != nil {
			return nil, err
		}
		return loc.load()

	case *expr.Call:
		m := x.Method()
		var recv any
		if x.Expr() != nil {
			var err error
			if recv, err = receiver(e, x.Expr()); err != nil {
				return nil, err
			}
		}
		args, err := arguments(e, m.Params(), x.Args())
		if err != nil {
			return nil, err
		}
		return m.Func()(recv, args)

	case *expr.New:
		c := x.Constructor()
		if c == nil {
			return types.NewInstance(x.Type()), nil
		}
		args, err := arguments(e, c.Params(), x.Args())
		if err != nil {
			return nil, err
		}
		return c.Func()(args)

	case *expr.Invoke:
		fn, err := eval(e, x.Expr())
		if err != nil {
			return nil, err
		}
		c, ok := fn.(types.Callable)
		if !ok {
			return nil, types.Throwf(types.NullReferenceException, "invoked func is null")
		}
		args, err := arguments(e, x.Expr().Type().Params(), x.Args())
		if err != nil {
			return nil, err
		}
		return c.Call(args)

	case *expr.NewArray:
		return evalNewArray(e, x)

	case *expr.Unary:
		v, err := eval(e, x.Operand())
		if err != nil {
			return nil, err
		}
		return unary(x.Op(), v)

	case *expr.Binary:
		return evalBinary(e, x)

	case *expr.Convert:
		v, err := eval(e, x.Operand())
		if err != nil {
			return nil, err
		}
		return convert(v, x.Type())

	case *expr.Lambda:
		return &closure{l: x, env: e}, nil
	}
	return nil, errors.InvalidOpf("cannot evaluate %s node", n.Kind())
}

func evalBool(e *env, n expr.Node) (bool, error) {
	v, err := eval(e, n)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// run evaluates the expressions of b from position i on. If j is not nil,
// the expression at i is entered at the label targeted by j.
func run(e *env, b *expr.Block, i int, j *jump) (any, error) {
	exprs := b.Exprs()
	var v any
	for i < len(exprs) {
		var err error
		if j != nil {
			v, err = seek(e, exprs[i], j)
			j = nil
		} else {
			v, err = eval(e, exprs[i])
		}
		if err != nil {
			jj, ok := err.(*jump)
			if !ok {
				return nil, err
			}
			k := declaring(exprs, jj.target)
			if k < 0 {
				return nil, err
			}
			i, j = k, jj
			continue
		}
		i++
	}
	if b.Type() == types.Void {
		return nil, nil
	}
	return v, nil
}

// seek enters n at the label targeted by j, skipping everything before it.
func seek(e *env, n expr.Node, j *jump) (any, error) {
	switch x := n.(type) {
	case *expr.Label:
		if j.value == nil && x.Type() != types.Void {
			return types.Zero(x.Type()), nil
		}
		return j.value, nil

	case *expr.Block:
		return run(e.extend(x.Vars()), x, declaring(x.Exprs(), j.target), j)

	case *expr.Cond:
		branch := x.Else()
		if declares(x.Then(), j.target) {
			branch = x.Then()
		}
		v, err := seek(e, branch, j)
		if err != nil || x.Type() == types.Void {
			return nil, err
		}
		return v, nil
	}
	return nil, errors.InvalidOpf("cannot jump into %s node", n.Kind())
}

// declaring returns the position of the expression in exprs that declares
// l at statement level, or -1 if there is none.
func declaring(exprs []expr.Node, l *expr.LabelTarget) int {
	for i, x := range exprs {
		if declares(x, l) {
			return i
		}
	}
	return -1
}

func declares(n expr.Node, l *expr.LabelTarget) bool {
	switch x := n.(type) {
	case *expr.Label:
		return x.Target() == l
	case *expr.Block:
		return declaring(x.Exprs(), l) >= 0
	case *expr.Cond:
		return declares(x.Then(), l) || declares(x.Else(), l)
	}
	return false
}

func evalTry(e *env, x *expr.Try) (v any, err error) {
	v, err = eval(e, x.Body())
	if _, ok := err.(*jump); err != nil && !ok && len(x.Handlers()) > 0 {
		v, err = handle(e, x, types.AsException(err))
	}
	if f := x.Finally(); f != nil {
		if _, ferr := eval(e, f); ferr != nil {
			return nil, ferr
		}
	}
	if err != nil || x.Type() == types.Void {
		return nil, err
	}
	return v, nil
}

// handle runs the first handler of x that accepts ex. If there is none, ex
// is returned as the error.
func handle(e *env, x *expr.Try, ex *types.Exception) (any, error) {
	for _, h := range x.Handlers() {
		if !ex.Type.DerivesFrom(h.Test()) {
			continue
		}
		he := &env{parent: e, cells: map[*expr.Var]*cell{}, caught: ex}
		if v := h.Variable(); v != nil {
			he.cells[v] = &cell{v: ex}
		}
		if f := h.Filter(); f != nil {
			// An exception raised by a filter rejects the handler.
			if ok, err := evalBool(he, f); err != nil || !ok {
				continue
			}
		}
		return eval(he, h.Body())
	}
	return nil, ex
}

func evalThrow(e *env, x *expr.Throw) error {
	if x.Value() == nil {
		if ex := e.exception(); ex != nil {
			return ex
		}
		return errors.InvalidOpf("rethrow outside of a catch block")
	}
	v, err := eval(e, x.Value())
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		return types.Throwf(types.NullReferenceException, "thrown exception is null")
	case *types.Exception:
		return v
	}
	return &types.Exception{Type: types.TypeOf(v)}
}

// receiver evaluates the receiver of a member access. Struct receivers are
// not copied, so that methods can modify them.
func receiver(e *env, n expr.Node) (any, error) {
	v, err := eval(e, n)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, types.Throwf(types.NullReferenceException, "receiver of type %s is null", n.Type())
	}
	return v, nil
}

// arguments evaluates args in order. By-ref parameters receive a types.Ref
// to their location.
func arguments(e *env, params []*types.Parameter, args []expr.Node) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		if i < len(params) && params[i].IsByRef() {
			loc, err := locate(e, a)
			if err != nil {
				return nil, err
			}
			out[i] = ref{loc}
			continue
		}
		v, err := eval(e, a)
		if err != nil {
			return nil, err
		}
		out[i] = copyValue(v)
	}
	return out, nil
}

func evalNewArray(e *env, x *expr.NewArray) (any, error) {
	elem := x.Type().Elem()
	vals := make([]any, len(x.Exprs()))
	for i, n := range x.Exprs() {
		v, err := eval(e, n)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	if !x.IsInit() {
		lengths := make([]int, len(vals))
		for i, v := range vals {
			lengths[i] = v.(int)
		}
		return types.NewArray(elem, lengths...)
	}
	a, err := types.NewArray(elem, len(vals))
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if err := a.Store(copyValue(v), i); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func evalBinary(e *env, x *expr.Binary) (any, error) {
	l, err := eval(e, x.Left())
	if err != nil {
		return nil, err
	}
	switch x.Op() {
	case expr.AndAlsoOp:
		if l != true {
			return false, nil
		}
		return eval(e, x.Right())
	case expr.OrElseOp:
		if l == true {
			return true, nil
		}
		return eval(e, x.Right())
	}
	r, err := eval(e, x.Right())
	if err != nil {
		return nil, err
	}
	return binary(x.Op(), l, r)
}
