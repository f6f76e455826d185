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
	"strconv"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/exprtest"
	"github.com/cue-exp/exprtree/types"
)

type personType struct {
	typ    *types.Type
	age    *types.Field
	friend *types.Field
	name   *types.Property
	greet  *types.Method
}

func newPersonType() *personType {
	p := &personType{typ: types.NewClass("Person", nil)}
	p.age = p.typ.DefineField("age", types.Int)
	p.friend = p.typ.DefineField("friend", p.typ)
	p.name = p.typ.DefineProperty("Name", types.String, func(recv any, _ []any) (any, error) {
		return "p" + strconv.Itoa(recv.(*types.Instance).Load(p.age).(int)), nil
	}, nil)
	p.greet = p.typ.DefineMethod("Greet", types.String,
		[]*types.Parameter{types.Param("greeting", types.String)},
		func(recv any, args []any) (any, error) {
			age := recv.(*types.Instance).Load(p.age).(int)
			return args[0].(string) + " " + strconv.Itoa(age), nil
		})
	p.typ.DefineConstructor(nil, func([]any) (any, error) {
		return types.NewInstance(p.typ), nil
	})
	return p
}

func (p *personType) new(age int) expr.Node {
	obj := variable(p.typ, "obj")
	return must(expr.BlockVars([]*expr.Var{obj},
		must(expr.AssignTo(obj, must(expr.NewObject(p.typ.Constructors()[0])))),
		must(expr.AssignTo(must(expr.Field(obj, p.age)), c(age))),
		obj,
	))
}

func TestConditionalMember(t *testing.T) {
	pt := newPersonType()
	r := exprtest.NewRecorder()
	p := variable(pt.typ, "p")
	recv := must(expr.NewBlock(r.LogString("recv"), p))

	access := expr.Must(expr.ConditionalField(recv, pt.age))
	qt.Assert(t, qt.Equals(access.Type(), types.NullableOf(types.Int)))
	qt.Assert(t, qt.Equals(access.Receiver(), recv))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{p}, access)))
	qt.Assert(t, qt.IsNil(v))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"recv"}))

	r.Reset()
	v = mustEval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(42))),
		access,
	)))
	qt.Assert(t, qt.Equals(v, any(42)))
	qt.Assert(t, qt.DeepEquals(r.Entries(), []string{"recv"}))

	name := expr.Must(expr.ConditionalPropertyByName(p, "Name"))
	qt.Assert(t, qt.Equals(name.Type(), types.String))
	v = mustEval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(7))),
		name,
	)))
	qt.Assert(t, qt.Equals(v, any("p7")))
}

func TestConditionalNullableStruct(t *testing.T) {
	point := types.NewStruct("Point")
	x := point.DefineField("X", types.Int)
	pt := variable(types.NullableOf(point), "pt")
	access := expr.Must(expr.ConditionalFieldByName(pt, "X"))
	qt.Assert(t, qt.Equals(access.Member(), types.Member(x)))
	qt.Assert(t, qt.Equals(access.Type(), types.NullableOf(types.Int)))

	qt.Assert(t, qt.IsNil(mustEval(t, must(expr.BlockVars([]*expr.Var{pt}, access)))))

	tmp := variable(point, "tmp")
	v := mustEval(t, must(expr.BlockVars([]*expr.Var{pt, tmp},
		must(expr.AssignTo(must(expr.Field(tmp, x)), c(3))),
		must(expr.AssignTo(pt, must(expr.ConvertTo(tmp, types.NullableOf(point))))),
		access,
	)))
	qt.Assert(t, qt.Equals(v, any(3)))
}

func TestConditionalCall(t *testing.T) {
	pt := newPersonType()
	p := variable(pt.typ, "p")
	call := expr.Must(expr.ConditionalCallPositional(p, pt.greet, c("hi")))
	qt.Assert(t, qt.Equals(call.Method(), pt.greet))
	qt.Assert(t, qt.IsNil(mustEval(t, must(expr.BlockVars([]*expr.Var{p}, call)))))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(5))),
		call,
	)))
	qt.Assert(t, qt.Equals(v, any("hi 5")))
}

func TestConditionalVoidCall(t *testing.T) {
	touched := 0
	cls := types.NewClass("Sink", nil)
	m := cls.DefineMethod("Touch", types.Void, nil, func(any, []any) (any, error) {
		touched++
		return nil, nil
	})
	ctor := cls.DefineConstructor(nil, func([]any) (any, error) {
		return types.NewInstance(cls), nil
	})
	s := variable(cls, "s")
	call := expr.Must(expr.ConditionalCallPositional(s, m))
	qt.Assert(t, qt.Equals(call.Type(), types.Void))
	mustEval(t, must(expr.BlockVars([]*expr.Var{s}, call)))
	qt.Assert(t, qt.Equals(touched, 0))

	mustEval(t, must(expr.BlockVars([]*expr.Var{s},
		must(expr.AssignTo(s, must(expr.NewObject(ctor)))),
		call,
	)))
	qt.Assert(t, qt.Equals(touched, 1))
}

func TestConditionalArrayIndex(t *testing.T) {
	arr := variable(types.ArrayOf(types.Int, 1), "arr")
	access := expr.Must(expr.ConditionalArrayIndex(arr, c(1)))
	qt.Assert(t, qt.Equals(access.Type(), types.NullableOf(types.Int)))
	qt.Assert(t, qt.IsNil(mustEval(t, must(expr.BlockVars([]*expr.Var{arr}, access)))))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{arr},
		must(expr.AssignTo(arr, must(expr.NewArrayInit(types.Int, c(10), c(20))))),
		access,
	)))
	qt.Assert(t, qt.Equals(v, any(20)))
}

func TestConditionalInvoke(t *testing.T) {
	x := variable(types.Int, "x")
	fnType := types.FuncOf(types.Int, types.Param("x", types.Int))
	f := variable(fnType, "f")
	invoke := expr.Must(expr.ConditionalInvokePositional(f, c(4)))
	qt.Assert(t, qt.Equals(invoke.Type(), types.NullableOf(types.Int)))

	double := must(expr.NewLambda(must(expr.Multiply(x, c(2))), x))
	v := mustEval(t, must(expr.BlockVars([]*expr.Var{f},
		must(expr.AssignTo(f, double)),
		invoke,
	)))
	qt.Assert(t, qt.Equals(v, any(8)))
	qt.Assert(t, qt.IsNil(mustEval(t, must(expr.BlockVars([]*expr.Var{f}, invoke)))))
}

func TestConditionalChain(t *testing.T) {
	pt := newPersonType()
	p := variable(pt.typ, "p")
	chain := expr.NewConditionalChain(p).Field(pt.friend).Property(pt.name)
	access := expr.Must(chain.Build())
	qt.Assert(t, qt.Equals(access.Type(), types.String))
	qt.Assert(t, qt.Equals(access.Placeholder(), chain.Placeholder()))

	qt.Assert(t, qt.IsNil(mustEval(t, must(expr.BlockVars([]*expr.Var{p}, access)))))

	v := mustEval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(1))),
		must(expr.AssignTo(must(expr.Field(p, pt.friend)), pt.new(9))),
		access,
	)))
	qt.Assert(t, qt.Equals(v, any("p9")))

	// Only the receiver is tested for null; a null link fails.
	_, err := eval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(1))),
		access,
	)))
	qt.Assert(t, qt.IsNotNil(types.AsException(err)))
	qt.Assert(t, qt.Equals(types.AsException(err).Type, types.NullReferenceException))

	greet := expr.Must(expr.NewConditionalChain(p).CallPositional(pt.greet, c("yo")).Build())
	v = mustEval(t, must(expr.BlockVars([]*expr.Var{p},
		must(expr.AssignTo(p, pt.new(3))),
		greet,
	)))
	qt.Assert(t, qt.Equals(v, any("yo 3")))
}

func TestConditionalErrors(t *testing.T) {
	pt := newPersonType()
	p := variable(pt.typ, "p")
	static := pt.typ.DefineField("count", types.Int, types.Static())
	secret := pt.typ.DefineProperty("Secret", types.String, nil, func(any, []any, any) error { return nil })
	item := pt.typ.DefineIndexer("Item", types.Int, types.Params(types.Int), func(any, []any) (any, error) { return 0, nil }, nil)
	point := types.NewStruct("Point")
	x := point.DefineField("X", types.Int)

	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{{
		name: "nil receiver",
		err:  second(expr.ConditionalField(nil, pt.age)),
		kind: errors.ArgumentNull,
	}, {
		name: "nil field",
		err:  second(expr.ConditionalField(p, nil)),
		kind: errors.ArgumentNull,
	}, {
		name: "static field",
		err:  second(expr.ConditionalField(p, static)),
		kind: errors.Argument,
	}, {
		name: "write-only property",
		err:  second(expr.ConditionalProperty(p, secret)),
		kind: errors.Argument,
	}, {
		name: "indexer as member",
		err:  second(expr.ConditionalProperty(p, item)),
		kind: errors.Argument,
	}, {
		name: "method as member",
		err:  second(expr.MakeConditionalMemberAccess(p, pt.greet)),
		kind: errors.Argument,
	}, {
		name: "non-nullable receiver",
		err:  second(expr.ConditionalField(variable(point, "pt"), x)),
		kind: errors.Argument,
	}, {
		name: "unknown field",
		err:  second(expr.ConditionalFieldByName(p, "height")),
		kind: errors.Argument,
	}, {
		name: "foreign member",
		err:  second(expr.ConditionalField(p, x)),
		kind: errors.Argument,
	}, {
		name: "empty chain",
		err:  second(expr.NewConditionalChain(p).Build()),
		kind: errors.Argument,
	}, {
		name: "chain error",
		err:  second(expr.NewConditionalChain(p).FieldByName("height").Property(pt.name).Build()),
		kind: errors.Argument,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			qt.Assert(t, qt.ErrorIs(tc.err, tc.kind))
		})
	}
}

func TestConditionalReceiverOutsideAccess(t *testing.T) {
	pt := newPersonType()
	r := expr.Must(expr.ConditionalReceiverOf(pt.typ))
	_, err := expr.Reduce(must(expr.Field(r, pt.age)))
	qt.Assert(t, qt.ErrorIs(err, errors.InvalidOperation))

	_, err = expr.ConditionalReceiverOf(types.NullableOf(types.Int))
	qt.Assert(t, qt.ErrorIs(err, errors.Argument))
}
