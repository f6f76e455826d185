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

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"
	"github.com/kr/pretty"
)

func TestString(t *testing.T) {
	point := NewStruct("Point")
	testCases := []struct {
		typ  *Type
		want string
	}{
		{Int, "int"},
		{NullableOf(Int), "int?"},
		{NullableOf(point), "Point?"},
		{ArrayOf(String, 1), "string[]"},
		{ArrayOf(Int, 3), "int[,,]"},
		{ArrayOf(NullableOf(Char), 1), "char?[]"},
		{FuncOf(Void), "func()"},
		{FuncOf(Int, Param("x", Int), RefParam("y", String)), "func(int, ref string) int"},
		{TaskOf(Void), "task"},
		{TaskOf(Int), "task<int>"},
		{TaskSourceOf(Bool), "tasksource<bool>"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			qt.Assert(t, qt.Equals(tc.typ.String(), tc.want))
		})
	}
}

func TestCanonical(t *testing.T) {
	qt.Assert(t, qt.Equals(NullableOf(Int), NullableOf(Int)))
	qt.Assert(t, qt.Equals(ArrayOf(Int, 2), ArrayOf(Int, 2)))
	qt.Assert(t, qt.Not(qt.Equals(ArrayOf(Int, 2), ArrayOf(Int, 1))))
	qt.Assert(t, qt.Equals(TaskOf(String), TaskOf(String)))

	f := FuncOf(Int, Param("x", Int))
	qt.Assert(t, qt.Equals(FuncOf(Int, Param("x", Int)), f))
	qt.Assert(t, qt.Not(qt.Equals(FuncOf(Int, Param("y", Int)), f)))
	qt.Assert(t, qt.IsTrue(f.Params()[0].BelongsTo(f)))
}

func TestNullable(t *testing.T) {
	qt.Assert(t, qt.Equals(Int.Nullable(), NullableOf(Int)))
	qt.Assert(t, qt.Equals(String.Nullable(), String))
	qt.Assert(t, qt.Equals(NullableOf(Int).NonNullable(), Int))
	qt.Assert(t, qt.Equals(String.NonNullable(), String))
	qt.Assert(t, qt.IsFalse(Int.IsNullable()))
	qt.Assert(t, qt.IsTrue(NullableOf(Int).IsNullable()))
	qt.Assert(t, qt.IsFalse(Void.IsNullable()))
	qt.Assert(t, qt.PanicMatches(func() { NullableOf(String) }, `types: string is not a value type`))
}

func TestRelations(t *testing.T) {
	animal := NewClass("Animal", nil)
	dog := NewClass("Dog", animal)
	testCases := []struct {
		name        string
		from, to    *Type
		assignable  bool
		convertible bool
	}{
		{"Identity", Int, Int, true, true},
		{"Boxing", Int, Object, true, true},
		{"Lift", Int, NullableOf(Int), true, true},
		{"Unlift", NullableOf(Int), Int, false, true},
		{"Numeric", Int, Float, false, true},
		{"CharToInt", Char, Int, false, true},
		{"Upcast", dog, animal, true, true},
		{"Downcast", animal, dog, false, true},
		{"Unrelated", String, Int, false, false},
		{"Discard", Int, Void, false, true},
		{"FromVoid", Void, Object, false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			qt.Check(t, qt.Equals(tc.from.AssignableTo(tc.to), tc.assignable))
			qt.Check(t, qt.Equals(tc.from.ConvertibleTo(tc.to), tc.convertible))
		})
	}
	qt.Assert(t, qt.IsTrue(IsReferenceAssignable(animal, dog)))
	qt.Assert(t, qt.IsTrue(IsReferenceAssignable(Object, String)))
	qt.Assert(t, qt.IsFalse(IsReferenceAssignable(Object, Int)))
}

func TestMembers(t *testing.T) {
	base := NewClass("Base", nil)
	id := base.DefineField("ID", Int)
	derived := NewClass("Derived", base)
	item := derived.DefineIndexer("Item", String, Params(Int, Int), nil, nil)
	m := derived.DefineMethod("Add", Int, []*Parameter{
		Param("x", Int),
		OptParam("y", Int, 1),
		RefParam("out", Int),
	}, nil)
	derived.DefineConstructor(Params(Int), nil)

	qt.Assert(t, qt.Equals(derived.Field("ID"), id))
	qt.Assert(t, qt.Equals(derived.Indexer(), item))
	qt.Assert(t, qt.IsNil(base.Indexer()))
	qt.Assert(t, qt.Equals(derived.Method("Add"), m))
	qt.Assert(t, qt.Equals(m.String(), "Derived.Add"))
	qt.Assert(t, qt.IsNil(derived.Constructor(2)))
	qt.Assert(t, qt.Equals(derived.Constructor(1).DeclaringType(), derived))

	var got []string
	for _, p := range m.Params() {
		got = append(got, fmt.Sprintf("%s@%d ref=%v default=%v", p.Name(), p.Position(), p.IsByRef(), p.Default()))
	}
	want := []string{
		"x@0 ref=false default=<nil>",
		"y@1 ref=false default=1",
		"out@2 ref=true default=<nil>",
	}
	if desc := pretty.Diff(got, want); len(desc) > 0 {
		t.Errorf("parameters differ:\n%s", desc)
	}
	qt.Assert(t, qt.IsTrue(m.Params()[1].HasDefault()))
	qt.Assert(t, qt.IsTrue(m.Params()[0].BelongsTo(m)))
	qt.Assert(t, qt.IsFalse(m.Params()[0].BelongsTo(derived.Constructor(1))))

	qt.Assert(t, qt.PanicMatches(func() { Int.DefineField("x", Int) }, `types: cannot define members on int`))
}

func TestBuiltinMembers(t *testing.T) {
	n, err := String.Property("Length").Getter()("héllo", nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n, any(5)))

	_, err = String.Indexer().Getter()("ab", []any{2})
	x := AsException(err)
	qt.Assert(t, qt.Equals(x.Type, IndexOutOfRangeException))

	a, err := NewArray(Int, 2, 3)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(a.Type(), ArrayOf(Int, 2)))
	qt.Assert(t, qt.IsNotNil(a.Type().Property("Length")))
	qt.Assert(t, qt.IsNotNil(TaskOf(Int).Property("IsCompleted")))
	qt.Assert(t, qt.IsNotNil(TaskSourceOf(Int).Method("SetResult")))
}

func TestArray(t *testing.T) {
	a, err := NewArray(Int, 2, 3)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(Strides(a.Lengths()), []int{3, 1}))
	qt.Assert(t, qt.IsNil(a.Store(7, 1, 2)))
	v, err := a.Load(1, 2)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, any(7)))
	qt.Assert(t, qt.Equals(a.At(5), any(7)))
	qt.Assert(t, qt.Equals(a.String(), "[0 0 0 0 0 7]"))

	_, err = a.Load(2, 0)
	qt.Assert(t, qt.ErrorMatches(err, `IndexOutOfRangeException: index 2 out of range \[0:2\]`))
	_, err = a.Load(0)
	qt.Assert(t, qt.ErrorMatches(err, `IndexOutOfRangeException: array of rank 2 indexed with 1 indices`))
	_, err = NewArray(Int, -1)
	qt.Assert(t, qt.ErrorMatches(err, `OverflowException: array dimension -1 is negative`))
}

func TestAccepts(t *testing.T) {
	point := NewStruct("Point")
	qt.Assert(t, qt.IsTrue(Int.Accepts(3)))
	qt.Assert(t, qt.IsFalse(Int.Accepts(nil)))
	qt.Assert(t, qt.IsTrue(NullableOf(Int).Accepts(nil)))
	qt.Assert(t, qt.IsTrue(Decimal.Accepts(apd.New(15, -1))))
	qt.Assert(t, qt.IsTrue(Char.Accepts('x')))
	qt.Assert(t, qt.IsTrue(point.Accepts(NewInstance(point))))
	qt.Assert(t, qt.IsTrue(Object.Accepts("s")))
	qt.Assert(t, qt.Equals(TypeOf(Zero(point)), point))
	qt.Assert(t, qt.IsNil(Zero(String)))
}

func TestException(t *testing.T) {
	x := Throwf(DivideByZeroException, "integer division by zero")
	qt.Assert(t, qt.Equals(x.Error(), "DivideByZeroException: integer division by zero"))
	qt.Assert(t, qt.IsTrue(x.Type.DerivesFrom(ExceptionType)))

	msg, err := ExceptionType.Property("Message").Getter()(x, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(msg, any("DivideByZeroException: integer division by zero")))

	cause := errors.New("io failure")
	w := AsException(cause)
	qt.Assert(t, qt.Equals(w.Type, ExceptionType))
	qt.Assert(t, qt.ErrorIs(w, cause))
	qt.Assert(t, qt.Equals(AsException(x), x))
}
