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

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/interp"
	"github.com/cue-exp/exprtree/types"
)

var must = expr.Must[expr.Node]

func c(v any) expr.Node { return must(expr.ConstOf(v)) }

func variable(t *types.Type, name string) *expr.Var {
	return expr.Must(expr.Variable(t, name))
}

func label(name string) *expr.LabelTarget {
	return expr.NewLabel(types.Void, name)
}

// eval reduces n, checks that the result is primitive and evaluates it.
func eval(t *testing.T, n expr.Node) (any, error) {
	t.Helper()
	r, err := expr.Reduce(n)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(expr.CheckReduced(r)))
	qt.Assert(t, qt.Equals(r.Type(), n.Type()))
	return interp.Eval(r)
}

// mustEval is like eval but requires evaluation to succeed.
func mustEval(t *testing.T, n expr.Node) any {
	t.Helper()
	v, err := eval(t, n)
	qt.Assert(t, qt.IsNil(err))
	return v
}

// assertSame checks that got holds exactly the elements of want, compared
// by identity.
func assertSame[T comparable](t *testing.T, got, want []T) {
	t.Helper()
	qt.Assert(t, qt.HasLen(got, len(want)))
	for i := range want {
		qt.Assert(t, qt.Equals(got[i], want[i]), qt.Commentf("element %d", i))
	}
}

// A tracer provides a static method Trace(name string, value int) int that
// records name and returns value, to observe evaluation order.
type tracer struct {
	method *types.Method
	names  []string
}

func newTracer() *tracer {
	tr := &tracer{}
	cls := types.NewClass("Tracer", nil)
	tr.method = cls.DefineMethod("Trace", types.Int,
		[]*types.Parameter{types.Param("name", types.String), types.Param("value", types.Int)},
		func(_ any, args []any) (any, error) {
			tr.names = append(tr.names, args[0].(string))
			return args[1], nil
		}, types.Static())
	return tr
}

func (tr *tracer) trace(name string, v int) expr.Node {
	return must(expr.CallMethod(nil, tr.method, c(name), c(v)))
}
