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

package interp_test

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/exprtest"
	"github.com/cue-exp/exprtree/internal/interp"
	"github.com/cue-exp/exprtree/types"
)

var must = expr.Must[expr.Node]

func c(v any) expr.Node { return must(expr.ConstOf(v)) }

func v(t *types.Type, name string) *expr.Var { return expr.Must(expr.Variable(t, name)) }

func TestArithmetic(t *testing.T) {
	testCases := []struct {
		name string
		n    expr.Node
		want any
	}{{
		name: "int",
		n:    must(expr.Add(c(40), c(2))),
		want: 42,
	}, {
		name: "modulo",
		n:    must(expr.MakeBinary(expr.ModuloOp, c(17), c(5))),
		want: 2,
	}, {
		name: "float",
		n:    must(expr.Multiply(c(1.5), c(2.0))),
		want: 3.0,
	}, {
		name: "concat",
		n:    must(expr.Add(c("foo"), c("bar"))),
		want: "foobar",
	}, {
		name: "compareChars",
		n:    must(expr.LessThan(c('a'), c('b'))),
		want: true,
	}, {
		name: "not",
		n:    must(expr.Not(c(true))),
		want: false,
	}, {
		name: "xor",
		n:    must(expr.MakeBinary(expr.XorOp, c(6), c(3))),
		want: 5,
	}, {
		name: "liftedNull",
		n:    must(expr.Add(must(expr.Null(types.NullableOf(types.Int))), must(expr.ConvertTo(c(1), types.NullableOf(types.Int))))),
		want: nil,
	}, {
		name: "liftedCompare",
		n:    must(expr.LessThan(must(expr.Null(types.NullableOf(types.Int))), must(expr.Null(types.NullableOf(types.Int))))),
		want: false,
	}, {
		name: "nullEquality",
		n:    must(expr.Equal(must(expr.Null(types.String)), must(expr.Null(types.String)))),
		want: true,
	}, {
		name: "floatToInt",
		n:    must(expr.ConvertTo(c(2.9), types.Int)),
		want: 2,
	}, {
		name: "intToChar",
		n:    must(expr.ConvertTo(c(65), types.Char)),
		want: 'A',
	}, {
		name: "shortCircuit",
		n: must(expr.OrElse(c(true),
			must(expr.Equal(must(expr.MakeBinary(expr.DivideOp, c(1), c(0))), c(0))))),
		want: true,
	}}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := interp.Eval(tc.n)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(got, tc.want))
		})
	}
}

func TestDecimal(t *testing.T) {
	x := must(expr.Constant(apd.New(15, -1), types.Decimal))
	y := must(expr.Constant(apd.New(25, -1), types.Decimal))
	got, err := interp.Eval(must(expr.Add(x, y)))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(exprtest.Format(got), "4.0"))

	got, err = interp.Eval(must(expr.ConvertTo(y, types.Int)))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(2)))

	_, err = interp.Eval(must(expr.MakeBinary(expr.DivideOp, x, must(expr.DefaultOf(types.Decimal)))))
	qt.Assert(t, qt.ErrorMatches(err, `DivideByZeroException: .*`))
}

func TestLambda(t *testing.T) {
	x := v(types.Int, "x")
	y := v(types.Int, "y")
	l := expr.Must(expr.NewLambda(must(expr.Subtract(x, y)), x, y))
	f, err := interp.Compile(l)
	qt.Assert(t, qt.IsNil(err))

	got, err := f.Call(10, 3)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(7)))

	_, err = f.Call(1)
	qt.Assert(t, qt.ErrorMatches(err, `InvalidOperationException: lambda called with 1 arguments, want 2`))
}

func TestClosure(t *testing.T) {
	// counter := 0; inc := () => counter = counter + 1; inc(); inc(); counter
	counter := v(types.Int, "counter")
	inc := v(types.FuncOf(types.Int), "inc")
	body := must(expr.BlockVars([]*expr.Var{counter, inc},
		must(expr.AssignTo(inc, expr.Must(expr.NewLambda(
			must(expr.AssignTo(counter, must(expr.Add(counter, c(1)))))))),
		),
		must(expr.InvokeFunc(inc)),
		must(expr.InvokeFunc(inc)),
		counter,
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(2)))
}

func TestGoto(t *testing.T) {
	// i := 0; sum := 0; top: if i < 5 { sum += i; i++; goto top }; sum
	i := v(types.Int, "i")
	sum := v(types.Int, "sum")
	top := expr.NewLabel(types.Void, "top")
	body := must(expr.BlockVars([]*expr.Var{i, sum},
		must(expr.MarkLabel(top, nil)),
		must(expr.IfThen(must(expr.LessThan(i, c(5))), must(expr.NewBlock(
			must(expr.AssignTo(sum, must(expr.Add(sum, i)))),
			must(expr.AssignTo(i, must(expr.Add(i, c(1))))),
			must(expr.GotoLabel(top)),
		)))),
		sum,
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(10)))
}

func TestJumpIntoNestedBlock(t *testing.T) {
	r := exprtest.NewRecorder()
	inner := expr.NewLabel(types.Void, "inner")
	body := must(expr.NewBlock(
		must(expr.GotoLabel(inner)),
		r.LogString("skipped"),
		must(expr.IfThenElse(c(false),
			must(expr.NewBlock(
				r.LogString("skipped too"),
				must(expr.MarkLabel(inner, nil)),
				r.LogString("inner"),
			)),
			r.LogString("else"),
		)),
		r.LogString("after"),
	))
	_, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"inner", "after"}))
}

func TestReturnValue(t *testing.T) {
	ret := expr.NewLabel(types.Int, "return")
	body := must(expr.NewBlock(
		must(expr.Return(ret, c(1))),
		must(expr.MarkLabel(ret, c(2))),
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(1)))
}

func TestEscapedJump(t *testing.T) {
	_, err := interp.Eval(must(expr.GotoLabel(expr.NewLabel(types.Void, "nowhere"))))
	qt.Assert(t, qt.ErrorMatches(err, `jump to label nowhere outside of its scope`))
}

func TestTryCatchFinally(t *testing.T) {
	r := exprtest.NewRecorder()
	ex := v(types.DivideByZeroException, "ex")
	div := must(expr.MakeBinary(expr.DivideOp, c(1), c(0)))
	body := must(expr.MakeTry(types.Int,
		must(expr.NewBlock(r.LogString("try"), div)),
		r.LogString("finally"),
		expr.Must(expr.MakeCatch(types.DivideByZeroException, ex,
			must(expr.NewBlock(r.Log(must(expr.PropertyByName(ex, "Message"))), c(-1))), nil)),
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(-1)))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{
		"try",
		"DivideByZeroException: integer division by zero",
		"finally",
	}))
}

func TestCatchFilterAndRethrow(t *testing.T) {
	r := exprtest.NewRecorder()
	thrown := must(expr.ThrowValue(must(expr.NewObject(
		types.InvalidOperationException.Constructor(1), c("boom")))))
	inner := must(expr.TryCatch(thrown,
		expr.Must(expr.MakeCatch(types.ExceptionType, nil, r.LogString("filtered"), c(false))),
		expr.Must(expr.CatchType(types.InvalidOperationException,
			must(expr.NewBlock(r.LogString("caught"), expr.Rethrow())))),
	))
	ex := v(types.ExceptionType, "ex")
	outer := must(expr.TryCatch(inner,
		expr.Must(expr.Catch(ex, r.Log(ex))),
	))
	_, err := interp.Eval(outer)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{
		"caught",
		"InvalidOperationException: boom",
	}))
}

func TestInvalidCast(t *testing.T) {
	o := must(expr.ConvertTo(c("s"), types.Object))
	_, err := interp.Eval(must(expr.ConvertTo(o, types.Int)))
	qt.Assert(t, qt.ErrorMatches(err, `InvalidCastException: cannot cast string to int`))

	_, err = interp.Eval(must(expr.ConvertTo(must(expr.Null(types.NullableOf(types.Int))), types.Int)))
	qt.Assert(t, qt.ErrorMatches(err, `InvalidOperationException: null value cannot be converted to int`))
}

func TestByRef(t *testing.T) {
	cls := types.NewClass("Util", nil)
	incr := cls.DefineMethod("Incr", types.Void,
		[]*types.Parameter{types.RefParam("x", types.Int)},
		func(_ any, args []any) (any, error) {
			r := args[0].(types.Ref)
			r.Store(r.Load().(int) + 1)
			return nil, nil
		}, types.Static())

	i := v(types.Int, "i")
	arr := v(types.ArrayOf(types.Int, 1), "arr")
	body := must(expr.BlockVars([]*expr.Var{i, arr},
		must(expr.AssignTo(arr, must(expr.NewArrayInit(types.Int, c(10), c(20))))),
		must(expr.CallMethod(nil, incr, i)),
		must(expr.CallMethod(nil, incr, i)),
		must(expr.CallMethod(nil, incr, must(expr.ArrayAccess(arr, c(1))))),
		must(expr.Add(must(expr.Multiply(i, c(100))), must(expr.ArrayAccess(arr, c(1))))),
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(221)))
}

func TestStructCopy(t *testing.T) {
	point := types.NewStruct("Point")
	px := point.DefineField("X", types.Int)
	a := v(point, "a")
	b := v(point, "b")
	body := must(expr.BlockVars([]*expr.Var{a, b},
		must(expr.AssignTo(must(expr.Field(a, px)), c(1))),
		must(expr.AssignTo(b, a)),
		must(expr.AssignTo(must(expr.Field(b, px)), c(2))),
		must(expr.Field(a, px)),
	))
	got, err := interp.Eval(body)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(got, any(1)))
}

func TestArrayBounds(t *testing.T) {
	arr := must(expr.NewArrayBounds(types.Int, c(2), c(3)))
	_, err := interp.Eval(must(expr.ArrayAccess(arr, c(2), c(0))))
	qt.Assert(t, qt.ErrorMatches(err, `IndexOutOfRangeException: index 2 out of range \[0:2\]`))
}

func TestRejectsExtensionNodes(t *testing.T) {
	i := v(types.Int, "i")
	loop := expr.Must(expr.While(must(expr.LessThan(i, c(3))), must(expr.AssignTo(i, must(expr.Add(i, c(1))))), nil, nil))
	_, err := interp.Eval(must(expr.BlockVars([]*expr.Var{i}, loop)))
	qt.Assert(t, qt.ErrorMatches(err, `reduced tree contains While node`))
}
