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
	"fmt"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

func TestCompoundAssignEvaluatesIndexOnce(t *testing.T) {
	tr := newTracer()
	arr := variable(types.ArrayOf(types.Int, 1), "arr")
	elem := must(expr.ArrayAccess(arr, tr.trace("index", 1)))
	add := expr.Must(expr.AddAssign(elem, tr.trace("value", 5)))
	op, compound := add.Op()
	qt.Assert(t, qt.IsTrue(compound))
	qt.Assert(t, qt.Equals(op, expr.AddOp))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{arr},
		must(expr.AssignTo(arr, must(expr.NewArrayInit(types.Int, c(10), c(20))))),
		add,
		arr,
	)))
	qt.Assert(t, qt.Equals(fmt.Sprint(v), "[10 25]"))
	qt.Assert(t, qt.DeepEquals(tr.names, []string{"index", "value"}))
}

func TestCompoundAssignValue(t *testing.T) {
	i := variable(types.Int, "i")
	v := mustEval(t, must(expr.BlockVars([]*expr.Var{i},
		must(expr.AssignTo(i, c(7))),
		must(expr.SubtractAssign(i, c(2))),
	)))
	qt.Assert(t, qt.Equals(v, any(5)))

	s := variable(types.String, "s")
	v = mustEval(t, must(expr.BlockVars([]*expr.Var{s},
		must(expr.AssignTo(s, c("a"))),
		must(expr.AddAssign(s, c("b"))),
		must(expr.AddAssign(s, c("c"))),
	)))
	qt.Assert(t, qt.Equals(v, any("abc")))
}

func TestCompoundAssignProperty(t *testing.T) {
	tr := newTracer()
	box := types.NewClass("Box", nil)
	value := box.DefineField("value", types.Int)
	count := box.DefineProperty("Count", types.Int,
		func(recv any, _ []any) (any, error) {
			tr.names = append(tr.names, "get")
			return recv.(*types.Instance).Load(value), nil
		},
		func(recv any, _ []any, v any) error {
			tr.names = append(tr.names, "set")
			recv.(*types.Instance).Store(value, v)
			return nil
		})
	ctor := box.DefineConstructor(nil, func([]any) (any, error) {
		return types.NewInstance(box), nil
	})
	b := variable(box, "b")
	recv := must(expr.NewBlock(tr.trace("recv", 0), b))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{b},
		must(expr.AssignTo(b, must(expr.NewObject(ctor)))),
		must(expr.AssignTo(must(expr.Field(b, value)), c(40))),
		must(expr.AddAssign(must(expr.Property(recv, count)), c(2))),
	)))
	qt.Assert(t, qt.Equals(v, any(42)))
	qt.Assert(t, qt.DeepEquals(tr.names, []string{"recv", "get", "set"}))
}

func TestAssignBinaryErrors(t *testing.T) {
	i := variable(types.Int, "i")
	_, err := expr.MakeAssignBinary(expr.AndAlsoOp, i, c(1))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
	_, err = expr.AddAssign(c(1), c(1))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
	_, err = expr.AddAssign(i, c("x"))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
	_, err = expr.AddAssign(nil, c(1))
	qt.Assert(t, qt.ErrorIs(err, errors.ArgumentNull))

	ro := types.NewClass("RO", nil)
	p := ro.DefineProperty("P", types.Int, func(any, []any) (any, error) { return 0, nil }, nil)
	_, err = expr.AddAssign(must(expr.Property(variable(ro, "x"), p)), c(1))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
}
