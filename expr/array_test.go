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
	"github.com/cue-exp/exprtree/types"
)

func TestArrayInitializer(t *testing.T) {
	tr := newTracer()
	e := func(name string, v int) expr.Initializer {
		return expr.InitElem(tr.trace(name, v))
	}
	init := expr.Must(expr.NewArrayInitializer(types.Int, expr.InitList(
		expr.InitList(e("a", 2), e("b", 3)),
		expr.InitList(e("c", 5), e("d", 7)),
	)))
	qt.Assert(t, qt.Equals(init.Type(), types.ArrayOf(types.Int, 2)))
	qt.Assert(t, qt.DeepEquals(init.Bounds(), []int{2, 2}))

	arr := mustEval(t, init).(*types.Array)
	qt.Assert(t, qt.DeepEquals(arr.Lengths(), []int{2, 2}))
	v, err := arr.Load(1, 0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(5)))
	qt.Assert(t, qt.DeepEquals(tr.names, []string{"a", "b", "c", "d"}))
}

func TestMultidimensionalArrayInit(t *testing.T) {
	exprs := make([]expr.Node, 6)
	for i := range exprs {
		exprs[i] = c(i * i)
	}
	init := expr.Must(expr.NewMultidimensionalArrayInit(types.Int, []int{2, 3}, exprs...))
	arr := mustEval(t, init).(*types.Array)
	for i, want := range []int{0, 1, 4, 9, 16, 25} {
		v, err := arr.Load(i/3, i%3)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(v, any(want)))
	}

	empty := expr.Must(expr.NewArrayInitializer(types.String, expr.InitList()))
	qt.Assert(t, qt.Equals(mustEval(t, empty).(*types.Array).Len(), 0))
}

func TestArrayInitErrors(t *testing.T) {
	one := expr.InitElem(c(1))
	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{{
		name: "short row",
		err: second(expr.NewArrayInitializer(types.Int, expr.InitList(
			expr.InitList(one, one),
			expr.InitList(one),
		))),
		kind: errors.Argument,
	}, {
		name: "element instead of row",
		err: second(expr.NewArrayInitializer(types.Int, expr.InitList(
			expr.InitList(one),
			one,
		))),
		kind: errors.Argument,
	}, {
		name: "row instead of element",
		err: second(expr.NewArrayInitializer(types.Int, expr.InitList(
			one,
			expr.InitList(one),
		))),
		kind: errors.Argument,
	}, {
		name: "not a list",
		err:  second(expr.NewArrayInitializer(types.Int, one)),
		kind: errors.Argument,
	}, {
		name: "element count",
		err:  second(expr.NewMultidimensionalArrayInit(types.Int, []int{2, 2}, c(1), c(2), c(3))),
		kind: errors.Argument,
	}, {
		name: "negative bound",
		err:  second(expr.NewMultidimensionalArrayInit(types.Int, []int{-1})),
		kind: errors.Argument,
	}, {
		name: "no bounds",
		err:  second(expr.NewMultidimensionalArrayInit(types.Int, nil)),
		kind: errors.Argument,
	}, {
		name: "void elements",
		err:  second(expr.NewMultidimensionalArrayInit(types.Void, []int{0})),
		kind: errors.Argument,
	}, {
		name: "nil type",
		err:  second(expr.NewMultidimensionalArrayInit(nil, []int{0})),
		kind: errors.ArgumentNull,
	}, {
		name: "element type",
		err:  second(expr.NewMultidimensionalArrayInit(types.Int, []int{1}, c("x"))),
		kind: errors.Argument,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			qt.Assert(t, qt.ErrorIs(tc.err, tc.kind))
		})
	}
}
