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

package expr_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/exprtest"
	"github.com/cue-exp/exprtree/types"
)

func TestReducePrimitiveIdentity(t *testing.T) {
	i := variable(types.Int, "i")
	n := must(expr.BlockVars([]*expr.Var{i},
		must(expr.AssignTo(i, c(1))),
		must(expr.IfThenElse(must(expr.LessThan(i, c(2))), c(3), c(4))),
	))
	r, err := expr.Reduce(n)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(r, n))

	_, err = expr.Reduce(nil)
	qt.Assert(t, qt.ErrorIs(err, errors.ArgumentNull))
}

func TestReduceKeepsUnchangedSiblings(t *testing.T) {
	i := variable(types.Int, "i")
	keep := must(expr.AssignTo(i, c(1)))
	loop := must(expr.While(c(false), expr.Empty(), nil, nil))
	n := must(expr.BlockVars([]*expr.Var{i}, keep, loop))
	r, err := expr.Reduce(n)
	qt.Assert(t, qt.IsNil(err))
	b := r.(*expr.Block)
	qt.Assert(t, qt.Not(qt.Equals[expr.Node](b, n)))
	qt.Assert(t, qt.Equals(b.Exprs()[0], keep))
	qt.Assert(t, qt.Equals(b.Vars()[0], i))
}

func TestCheckReduced(t *testing.T) {
	loop := must(expr.While(c(false), expr.Empty(), nil, nil))
	err := expr.CheckReduced(must(expr.NewBlock(loop)))
	qt.Assert(t, qt.ErrorMatches(err, `reduced tree contains While node`))
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))
}

func TestUpdate(t *testing.T) {
	i := variable(types.Int, "i")
	add := expr.Must(expr.Add(i, c(1)))

	same, err := add.Update(add.Left(), add.Right())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(same, add))

	changed, err := add.Update(i, c(2))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.Equals(changed, add)))

	// Updates are validated like construction.
	_, err = add.Update(i, c("x"))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
}

func TestRewrite(t *testing.T) {
	i := variable(types.Int, "i")
	keep := must(expr.Multiply(i, c(3)))
	n := must(expr.Add(must(expr.Add(i, c(1))), keep))
	r, err := expr.Rewrite(n, func(n expr.Node) (expr.Node, bool, error) {
		if x, ok := n.(*expr.Const); ok && x.Value() == 1 {
			return c(10), true, nil
		}
		return n, false, nil
	})
	qt.Assert(t, qt.IsNil(err))
	b := r.(*expr.Binary)
	qt.Assert(t, qt.Equals(b.Right(), keep))
	qt.Assert(t, qt.Equals(b.Left().(*expr.Binary).Right().(*expr.Const).Value(), any(10)))

	_, err = expr.Rewrite(n, func(n expr.Node) (expr.Node, bool, error) {
		if n == keep {
			return c("oops"), true, nil
		}
		return n, false, nil
	})
	qt.Assert(t, qt.IsNotNil(err))
}

// relabeler replaces every label target with a fresh one.
type relabeler struct {
	m *expr.LabelMap
}

func (r *relabeler) Visit(n expr.Node) (expr.Node, error) { return expr.Recurse(r, n) }

func (r *relabeler) VisitLabel(l *expr.LabelTarget) (*expr.LabelTarget, error) {
	return r.m.Lookup(l)
}

func TestLabelMap(t *testing.T) {
	rec := exprtest.NewRecorder()
	i := variable(types.Int, "i")
	brk, cont := label("brk"), label("cont")
	body := must(expr.NewBlock(
		must(expr.AssignTo(i, must(expr.Add(i, c(1))))),
		must(expr.IfThen(must(expr.Equal(i, c(2))), must(expr.Continue(cont)))),
		must(expr.IfThen(must(expr.Equal(i, c(4))), must(expr.Break(brk)))),
		rec.Log(i),
	))
	loop := must(expr.While(c(true), body, brk, cont))
	n := must(expr.BlockVars([]*expr.Var{i}, loop))

	calls := 0
	v := &relabeler{m: expr.NewLabelMap(func(l *expr.LabelTarget) (*expr.LabelTarget, error) {
		calls++
		return expr.NewLabel(l.Type(), l.Name()+"'"), nil
	})}
	r, err := v.Visit(n)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(calls, 2))
	qt.Assert(t, qt.Equals(v.m.Len(), 2))

	w := r.(*expr.Block).Exprs()[0].(*expr.WhileStmt)
	qt.Assert(t, qt.Equals(w.BreakLabel().Name(), "brk'"))
	qt.Assert(t, qt.Equals(w.ContinueLabel().Name(), "cont'"))
	var targets []*expr.LabelTarget
	expr.Inspect(w.Body(), func(n expr.Node) bool {
		if g, ok := n.(*expr.Goto); ok {
			targets = append(targets, g.Target())
		}
		return true
	})
	assertSame(t, targets, []*expr.LabelTarget{w.ContinueLabel(), w.BreakLabel()})

	mustEval(t, r)
	qt.Assert(t, qt.DeepEquals(rec.Entries(), []string{"1", "3"}))

	_, err = expr.NewLabelMap(func(*expr.LabelTarget) (*expr.LabelTarget, error) {
		return nil, nil
	}).Lookup(brk)
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))
}

func TestChildrenAndWalk(t *testing.T) {
	a, b := c(1), c(2)
	add := must(expr.Add(a, b))
	assertSame(t, expr.Children(add), []expr.Node{a, b})

	m := newMathType()
	call := expr.Must(expr.CallArgs(nil, m.combine,
		bind(m.combine.Params()[1], b),
		bind(m.combine.Params()[0], a),
	))
	assertSame(t, expr.Children(call), []expr.Node{b, a})

	var before, after []expr.Kind
	expr.Walk(add, func(n expr.Node) bool {
		before = append(before, n.Kind())
		return true
	}, func(n expr.Node) {
		after = append(after, n.Kind())
	})
	qt.Assert(t, qt.DeepEquals(before, []expr.Kind{expr.BinaryKind, expr.ConstKind, expr.ConstKind}))
	qt.Assert(t, qt.DeepEquals(after, []expr.Kind{expr.ConstKind, expr.ConstKind, expr.BinaryKind}))
}
