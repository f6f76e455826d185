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

func TestWhileBreakContinue(t *testing.T) {
	r := exprtest.NewRecorder()
	i := variable(types.Int, "i")
	brk, cont := label("brk"), label("cont")
	body := must(expr.NewBlock(
		must(expr.AssignTo(i, must(expr.Add(i, c(1))))),
		must(expr.IfThen(must(expr.Equal(i, c(3))), must(expr.Continue(cont)))),
		must(expr.IfThen(must(expr.Equal(i, c(6))), must(expr.Break(brk)))),
		r.Log(i),
	))
	loop := must(expr.While(must(expr.LessThan(i, c(10))), body, brk, cont))
	mustEval(t, must(expr.BlockVars([]*expr.Var{i}, loop, r.LogString("done"))))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"1", "2", "4", "5", "done"}))
}

func TestWhileSynthesizesBreakLabel(t *testing.T) {
	loop := expr.Must(expr.While(c(false), expr.Empty(), nil, nil))
	qt.Assert(t, qt.IsNotNil(loop.BreakLabel()))
	qt.Assert(t, qt.Equals(loop.BreakLabel().Type(), types.Void))
	qt.Assert(t, qt.IsNil(loop.ContinueLabel()))
	qt.Assert(t, qt.Equals(loop.Type(), types.Void))
}

func TestDo(t *testing.T) {
	r := exprtest.NewRecorder()
	i := variable(types.Int, "i")
	loop := must(expr.Do(
		must(expr.NewBlock(r.Log(i), must(expr.AssignTo(i, must(expr.Add(i, c(1))))))),
		must(expr.LessThan(i, c(3))),
		nil, nil,
	))
	mustEval(t, must(expr.BlockVars([]*expr.Var{i}, must(expr.AssignTo(i, c(5))), loop)))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"5"}))

	r.Reset()
	mustEval(t, must(expr.BlockVars([]*expr.Var{i}, loop)))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"0", "1", "2"}))
}

func TestFor(t *testing.T) {
	r := exprtest.NewRecorder()
	j := variable(types.Int, "j")
	inits := []expr.Node{must(expr.AssignTo(j, c(0)))}
	iters := []expr.Node{must(expr.AssignTo(j, must(expr.Add(j, c(1)))))}

	loop := must(expr.For([]*expr.Var{j}, inits, must(expr.LessThan(j, c(3))), iters, r.Log(j), nil, nil))
	mustEval(t, loop)
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"0", "1", "2"}))

	// Without a test, the loop runs until it is left with a jump. Continue
	// runs the iterators.
	r.Reset()
	brk, cont := label("brk"), label("cont")
	body := must(expr.NewBlock(
		must(expr.IfThen(must(expr.Equal(j, c(1))), must(expr.Continue(cont)))),
		must(expr.IfThen(must(expr.Equal(j, c(3))), must(expr.Break(brk)))),
		r.Log(j),
	))
	loop = must(expr.For([]*expr.Var{j}, inits, nil, iters, body, brk, cont))
	mustEval(t, loop)
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"0", "2"}))
}

func TestForEachArray(t *testing.T) {
	r := exprtest.NewRecorder()
	x := variable(types.Int, "x")
	arr := must(expr.NewArrayInit(types.Int, c(3), c(4), c(5)))
	brk := label("brk")
	body := must(expr.NewBlock(
		must(expr.IfThen(must(expr.Equal(x, c(5))), must(expr.Break(brk)))),
		r.Log(x),
	))
	mustEval(t, must(expr.ForEach(x, arr, body, brk, nil)))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"3", "4"}))
}

func TestForEachString(t *testing.T) {
	r := exprtest.NewRecorder()
	ch := variable(types.Char, "ch")
	loop := expr.Must(expr.ForEach(ch, c("hé"), r.Log(ch), nil, nil))
	qt.Assert(t, qt.Equals(loop.ElementType(), types.Char))
	mustEval(t, loop)
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{`'h'`, `'é'`}))
}

// counter returns a collection type following the enumerator pattern that
// yields 1 to n and counts how often its enumerators are disposed.
func counter(n int, disposed *int) *types.Type {
	enum := types.NewClass("CounterEnumerator", nil)
	pos := enum.DefineField("pos", types.Int)
	enum.DefineMethod("MoveNext", types.Bool, nil, func(recv any, _ []any) (any, error) {
		x := recv.(*types.Instance)
		p := x.Load(pos).(int) + 1
		x.Store(pos, p)
		return p <= n, nil
	})
	enum.DefineProperty("Current", types.Int, func(recv any, _ []any) (any, error) {
		return recv.(*types.Instance).Load(pos), nil
	}, nil)
	enum.DefineMethod("Dispose", types.Void, nil, func(any, []any) (any, error) {
		*disposed++
		return nil, nil
	})

	coll := types.NewClass("Counter", nil)
	coll.DefineConstructor(nil, func([]any) (any, error) {
		return types.NewInstance(coll), nil
	})
	coll.DefineMethod("GetEnumerator", enum, nil, func(any, []any) (any, error) {
		return types.NewInstance(enum), nil
	})
	return coll
}

func TestForEachEnumerator(t *testing.T) {
	r := exprtest.NewRecorder()
	var disposed int
	coll := counter(4, &disposed)
	x := variable(types.Int, "x")
	brk, cont := label("brk"), label("cont")
	body := must(expr.NewBlock(
		must(expr.IfThen(must(expr.Equal(x, c(2))), must(expr.Continue(cont)))),
		must(expr.IfThen(must(expr.Equal(x, c(4))), must(expr.Break(brk)))),
		r.Log(x),
	))
	loop := must(expr.ForEach(x, must(expr.NewObject(coll.Constructor(0))), body, brk, cont))
	mustEval(t, loop)
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"1", "3"}))
	qt.Assert(t, qt.Equals(disposed, 1))
}

func TestForEachErrors(t *testing.T) {
	x := variable(types.Int, "x")
	_, err := expr.ForEach(x, c(1), expr.Empty(), nil, nil)
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
	qt.Assert(t, qt.ErrorMatches(err, `.*cannot iterate over a value of type int`))

	grid := must(expr.NewArrayBounds(types.Int, c(2), c(2)))
	_, err = expr.ForEach(x, grid, expr.Empty(), nil, nil)
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))

	s := variable(types.String, "s")
	_, err = expr.ForEach(s, must(expr.NewArrayInit(types.Int, c(1))), expr.Empty(), nil, nil)
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
}

func TestLoopFactoryErrors(t *testing.T) {
	l := label("l")
	testCases := []struct {
		name string
		err  error
		kind error
	}{{
		name: "nilTest",
		err:  second(expr.While(nil, expr.Empty(), nil, nil)),
		kind: errors.ArgumentNull,
	}, {
		name: "nonBoolTest",
		err:  second(expr.While(c(1), expr.Empty(), nil, nil)),
		kind: errors.Argument,
	}, {
		name: "nilBody",
		err:  second(expr.Do(nil, c(true), nil, nil)),
		kind: errors.ArgumentNull,
	}, {
		name: "sameLabels",
		err:  second(expr.While(c(true), expr.Empty(), l, l)),
		kind: errors.Argument,
	}, {
		name: "valueLabel",
		err:  second(expr.While(c(true), expr.Empty(), expr.NewLabel(types.Int, "v"), nil)),
		kind: errors.Argument,
	}}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			qt.Assert(t, qt.ErrorIs(tc.err, tc.kind))
		})
	}
}

func second[T any](_ T, err error) error { return err }
