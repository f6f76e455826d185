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
	stderrors "errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/exprtest"
	"github.com/cue-exp/exprtree/internal/interp"
	"github.com/cue-exp/exprtree/task"
	"github.com/cue-exp/exprtree/types"
)

var intTask = types.TaskOf(types.Int)

// compileAsync reduces l and compiles the resulting lambda.
func compileAsync(t *testing.T, l *expr.AsyncLambda) *interp.Func {
	t.Helper()
	r, err := expr.Reduce(l)
	qt.Assert(t, qt.IsNil(err))
	lambda, ok := r.(*expr.Lambda)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(lambda.Type(), l.Type()))
	f, err := interp.Compile(lambda)
	qt.Assert(t, qt.IsNil(err))
	return f
}

// start calls f and returns the task it returns.
func start(t *testing.T, f *interp.Func, args ...any) *task.Task {
	t.Helper()
	v, err := f.Call(args...)
	qt.Assert(t, qt.IsNil(err))
	return v.(*task.Task)
}

func TestAwaitCompleted(t *testing.T) {
	tk := variable(intTask, "t")
	l := expr.Must(expr.NewAsyncLambda(must(expr.Add(must(expr.Await(tk)), c(1))), tk))
	qt.Assert(t, qt.Equals(l.ResultType(), types.Int))
	qt.Assert(t, qt.Equals(l.Type().Result(), intTask))

	res := start(t, compileAsync(t, l), task.FromResult(41))
	qt.Assert(t, qt.IsTrue(res.IsCompleted()))
	v, err := res.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(42)))
}

func TestAwaitIncomplete(t *testing.T) {
	r := exprtest.NewRecorder()
	a, b := variable(intTask, "a"), variable(intTask, "b")
	x, y := variable(types.Int, "x"), variable(types.Int, "y")
	body := must(expr.BlockVars([]*expr.Var{x, y},
		r.LogString("start"),
		must(expr.AssignTo(x, must(expr.Await(a)))),
		r.Log(x),
		must(expr.AssignTo(y, must(expr.Await(b)))),
		r.Log(y),
		must(expr.Add(x, y)),
	))
	f := compileAsync(t, expr.Must(expr.NewAsyncLambda(body, a, b)))

	sa, sb := task.NewSource(), task.NewSource()
	res := start(t, f, sa.Task(), sb.Task())
	qt.Assert(t, qt.IsFalse(res.IsCompleted()))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"start"}))

	// b completes first, but the body is still waiting for a.
	qt.Assert(t, qt.IsNil(sb.SetResult(2)))
	qt.Assert(t, qt.IsFalse(res.IsCompleted()))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"start"}))

	qt.Assert(t, qt.IsNil(sa.SetResult(1)))
	qt.Assert(t, qt.IsTrue(res.IsCompleted()))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"start", "1", "2"}))
	v, err := res.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(3)))

	// Each call has its own state.
	r.Reset()
	res = start(t, f, task.FromResult(10), task.FromResult(20))
	v, err = res.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(30)))
}

func TestAwaitFailure(t *testing.T) {
	tk := variable(intTask, "t")
	l := expr.Must(expr.NewAsyncLambda(must(expr.Await(tk)), tk))
	f := compileAsync(t, l)

	res := start(t, f, task.FromError(stderrors.New("boom")))
	_, err := res.Result()
	qt.Assert(t, qt.ErrorMatches(err, `boom`))

	src := task.NewSource()
	res = start(t, f, src.Task())
	qt.Assert(t, qt.IsNil(src.SetCanceled()))
	_, err = res.Result()
	qt.Assert(t, qt.ErrorIs(err, task.ErrCanceled))

	// Exceptions thrown by the body after resuming fail the task.
	boom := must(expr.ThrowValue(must(expr.NewObject(
		types.InvalidOperationException.Constructor(1), c("bad")))))
	l = expr.Must(expr.NewAsyncLambda(must(expr.NewBlock(must(expr.Await(tk)), boom, c(0))), tk))
	src = task.NewSource()
	res = start(t, compileAsync(t, l), src.Task())
	qt.Assert(t, qt.IsNil(src.SetResult(1)))
	_, err = res.Result()
	qt.Assert(t, qt.ErrorMatches(err, `InvalidOperationException: bad`))
}

func TestAwaitSpillsOperands(t *testing.T) {
	tr := newTracer()
	tk := variable(intTask, "t")
	body := must(expr.Subtract(tr.trace("left", 50), must(expr.Await(tk))))
	f := compileAsync(t, expr.Must(expr.NewAsyncLambda(body, tk)))

	src := task.NewSource()
	res := start(t, f, src.Task())
	qt.Assert(t, qt.DeepEquals(tr.names, []string{"left"}))
	qt.Assert(t, qt.IsNil(src.SetResult(8)))
	v, err := res.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(42)))
	qt.Assert(t, qt.DeepEquals(tr.names, []string{"left"}))
}

func TestAwaitShortCircuit(t *testing.T) {
	flag := variable(types.Bool, "flag")
	bt := variable(types.TaskOf(types.Bool), "bt")
	body := must(expr.AndAlso(flag, must(expr.Await(bt))))
	f := compileAsync(t, expr.Must(expr.NewAsyncLambda(body, flag, bt)))

	src := task.NewSource()
	res := start(t, f, false, src.Task())
	qt.Assert(t, qt.IsTrue(res.IsCompleted()))
	v, _ := res.Result()
	qt.Assert(t, qt.Equals(v, any(false)))

	res = start(t, f, true, src.Task())
	qt.Assert(t, qt.IsFalse(res.IsCompleted()))
	qt.Assert(t, qt.IsNil(src.SetResult(true)))
	v, _ = res.Result()
	qt.Assert(t, qt.Equals(v, any(true)))
}

func TestAwaitInLoop(t *testing.T) {
	tasks := variable(types.ArrayOf(intTask, 1), "tasks")
	i, sum := variable(types.Int, "i"), variable(types.Int, "sum")
	loop := must(expr.For([]*expr.Var{i},
		[]expr.Node{must(expr.AssignTo(i, c(0)))},
		must(expr.LessThan(i, must(expr.PropertyByName(tasks, "Length")))),
		[]expr.Node{must(expr.AddAssign(i, c(1)))},
		must(expr.AddAssign(sum, must(expr.Await(must(expr.ArrayAccess(tasks, i)))))),
		nil, nil,
	))
	body := must(expr.BlockVars([]*expr.Var{sum}, loop, sum))
	f := compileAsync(t, expr.Must(expr.NewAsyncLambda(body, tasks)))

	srcs := []*task.Source{task.NewSource(), task.NewSource(), task.NewSource()}
	arr, err := types.NewArray(intTask, len(srcs))
	qt.Assert(t, qt.IsNil(err))
	for k, s := range srcs {
		qt.Assert(t, qt.IsNil(arr.Store(s.Task(), k)))
	}
	res := start(t, f, arr)
	for _, k := range []int{2, 0, 1} {
		qt.Assert(t, qt.IsFalse(res.IsCompleted()))
		qt.Assert(t, qt.IsNil(srcs[k].SetResult(k+1)))
	}
	v, err := res.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(6)))
}

func TestAwaitVoid(t *testing.T) {
	r := exprtest.NewRecorder()
	vt := variable(types.TaskOf(types.Void), "vt")
	body := must(expr.NewBlock(must(expr.Await(vt)), r.LogString("after")))
	l := expr.Must(expr.NewAsyncLambda(body, vt))
	qt.Assert(t, qt.Equals(l.ResultType(), types.Void))

	src := task.NewSource()
	res := start(t, compileAsync(t, l), src.Task())
	qt.Assert(t, qt.HasLen(r.Entries(), 0))
	qt.Assert(t, qt.IsNil(src.SetResult(nil)))
	qt.Assert(t, qt.IsTrue(res.IsCompleted()))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"after"}))
}

func TestAwaitErrors(t *testing.T) {
	tk := variable(intTask, "t")
	aw := must(expr.Await(tk))

	_, err := expr.Reduce(aw)
	qt.Assert(t, qt.ErrorMatches(err, `await outside of an async lambda`))
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))

	_, err = expr.Reduce(must(expr.NewLambda(aw, tk)))
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))

	// A nested lambda is not async even inside an async lambda.
	inner := must(expr.NewLambda(aw))
	_, err = expr.Reduce(must(expr.NewAsyncLambda(must(expr.NewBlock(inner, c(0))), tk)))
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))

	try := must(expr.TryCatch(aw, expr.Must(expr.CatchType(types.ExceptionType, c(0)))))
	_, err = expr.Reduce(must(expr.NewAsyncLambda(try, tk)))
	qt.Assert(t, qt.ErrorMatches(err, `await cannot be used inside try, catch or finally blocks`))

	_, err = expr.Await(c(1))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
	_, err = expr.Await(nil)
	qt.Assert(t, qt.ErrorIs(err, errors.ArgumentNull))
	_, err = expr.NewAsyncLambda(nil)
	qt.Assert(t, qt.ErrorIs(err, errors.ArgumentNull))
}
