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
	"github.com/cockroachdb/apd/v3"

	"github.com/cue-exp/exprtree/task"
)

// AssignableTo reports whether a value of type t can be stored in a location
// of type u without an explicit conversion.
func (t *Type) AssignableTo(u *Type) bool {
	switch {
	case t == u:
		return true
	case t == Void || u == Void:
		return false
	case u == Object:
		return true
	case u.kind == NullableKind:
		return t == u.elem
	case t.kind == ClassKind && u.kind == ClassKind:
		return t.DerivesFrom(u)
	}
	return false
}

// IsReferenceAssignable reports whether a reference of type src may be used
// where dst is expected, without boxing or conversion. It is used to check
// that a member is defined on the type of a receiver.
func IsReferenceAssignable(dst, src *Type) bool {
	if dst == src {
		return true
	}
	if src.kind == ClassKind {
		return src.DerivesFrom(dst)
	}
	return dst == Object && !src.IsValueType() && src != Void
}

// ConvertibleTo reports whether a value of type t can be explicitly
// converted to type u. Conversions to Void discard the value.
func (t *Type) ConvertibleTo(u *Type) bool {
	switch {
	case t.AssignableTo(u), u == Void:
		return true
	case t == Void:
		return false
	case isNumericLike(t) && isNumericLike(u):
		return true
	case t == Object:
		return true
	case u.kind == NullableKind:
		return t.ConvertibleTo(u.elem)
	case t.kind == NullableKind:
		return t.elem.ConvertibleTo(u)
	case t.kind == ClassKind && u.kind == ClassKind:
		return u.DerivesFrom(t)
	}
	return false
}

func isNumericLike(t *Type) bool {
	return t.IsNumeric() || t.kind == CharKind
}

// Accepts reports whether the Go value v is a valid runtime value of t.
func (t *Type) Accepts(v any) bool {
	if v == nil {
		return t.IsNullable()
	}
	switch t.kind {
	case VoidKind:
		return false
	case BoolKind:
		_, ok := v.(bool)
		return ok
	case IntKind:
		_, ok := v.(int)
		return ok
	case FloatKind:
		_, ok := v.(float64)
		return ok
	case DecimalKind:
		_, ok := v.(*apd.Decimal)
		return ok
	case CharKind:
		_, ok := v.(rune)
		return ok
	case StringKind:
		_, ok := v.(string)
		return ok
	case ObjectKind:
		return true
	case NullableKind:
		return t.elem.Accepts(v)
	case ClassKind, StructKind:
		return TypeOf(v) != nil && TypeOf(v).AssignableTo(t)
	case ArrayKind:
		a, ok := v.(*Array)
		return ok && a.Type() == t
	case FuncKind:
		_, ok := v.(Callable)
		return ok
	case TaskKind:
		_, ok := v.(*task.Task)
		return ok
	case TaskSourceKind:
		_, ok := v.(*task.Source)
		return ok
	}
	return false
}

// TypeOf returns the dynamic type of a runtime value, or nil if it cannot be
// determined. Task values report nil as their result type is not recorded.
func TypeOf(v any) *Type {
	switch x := v.(type) {
	case bool:
		return Bool
	case int:
		return Int
	case float64:
		return Float
	case *apd.Decimal:
		return Decimal
	case rune:
		return Char
	case string:
		return String
	case *Instance:
		return x.typ
	case *Exception:
		return x.Type
	case *Array:
		return x.Type()
	}
	return nil
}
