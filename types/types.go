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

// Package types defines the static type model of expression trees.
//
// Types are compared by identity: composite types returned by NullableOf,
// ArrayOf, FuncOf, TaskOf and TaskSourceOf are canonical, so two calls with
// the same arguments return the same *Type. Class and struct types are
// created with NewClass and NewStruct; their members must be defined before
// the type is used to build nodes.
package types

import (
	"fmt"
	"strings"
	"sync"
)

// A Kind is the broad category of a Type.
type Kind uint8

const (
	VoidKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	DecimalKind
	CharKind
	StringKind
	ObjectKind
	ClassKind
	StructKind
	NullableKind
	ArrayKind
	FuncKind
	TaskKind
	TaskSourceKind
)

var kindNames = [...]string{
	VoidKind:       "void",
	BoolKind:       "bool",
	IntKind:        "int",
	FloatKind:      "float",
	DecimalKind:    "decimal",
	CharKind:       "char",
	StringKind:     "string",
	ObjectKind:     "object",
	ClassKind:      "class",
	StructKind:     "struct",
	NullableKind:   "nullable",
	ArrayKind:      "array",
	FuncKind:       "func",
	TaskKind:       "task",
	TaskSourceKind: "tasksource",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// A Type describes the static type of a node.
type Type struct {
	kind Kind
	name string

	// elem is the underlying type of a nullable type, the element type of an
	// array, the result type of a func and the result type of a task or
	// task source.
	elem   *Type
	rank   int
	params []*Parameter
	base   *Type

	fields  []*Field
	props   []*Property
	methods []*Method
	ctors   []*Constructor
}

// Predeclared types.
var (
	Void    = &Type{kind: VoidKind, name: "void"}
	Bool    = &Type{kind: BoolKind, name: "bool"}
	Int     = &Type{kind: IntKind, name: "int"}
	Float   = &Type{kind: FloatKind, name: "float"}
	Decimal = &Type{kind: DecimalKind, name: "decimal"}
	Char    = &Type{kind: CharKind, name: "char"}
	String  = &Type{kind: StringKind, name: "string"}
	Object  = &Type{kind: ObjectKind, name: "object"}
)

// NewClass returns a new reference type with the given name. If base is nil,
// the class derives from Object.
func NewClass(name string, base *Type) *Type {
	if base != nil && base.kind != ClassKind {
		panic(fmt.Sprintf("types: base of class %s must be a class, found %s", name, base))
	}
	return &Type{kind: ClassKind, name: name, base: base}
}

// NewStruct returns a new value type with the given name.
func NewStruct(name string) *Type {
	return &Type{kind: StructKind, name: name}
}

// Kind reports the kind of t.
func (t *Type) Kind() Kind { return t.kind }

// Name reports the declared name of a class or struct, or the printed form
// of any other type.
func (t *Type) Name() string {
	if t.name != "" {
		return t.name
	}
	return t.String()
}

// Elem returns the element type of an array, the underlying type of a
// nullable type, or the result type of a func, task or task source type.
// It returns nil for all other types.
func (t *Type) Elem() *Type { return t.elem }

// Result returns the result type of a func type.
func (t *Type) Result() *Type {
	if t.kind != FuncKind {
		return nil
	}
	return t.elem
}

// Rank returns the number of dimensions of an array type.
func (t *Type) Rank() int { return t.rank }

// Params returns the parameters of a func type.
func (t *Type) Params() []*Parameter { return t.params }

// Base returns the base class of a class type. Classes without an explicit
// base report nil.
func (t *Type) Base() *Type { return t.base }

func (t *Type) String() string {
	switch t.kind {
	case ClassKind, StructKind:
		return t.name
	case NullableKind:
		return t.elem.String() + "?"
	case ArrayKind:
		return t.elem.String() + "[" + strings.Repeat(",", t.rank-1) + "]"
	case FuncKind:
		var b strings.Builder
		b.WriteString("func(")
		for i, p := range t.params {
			if i > 0 {
				b.WriteString(", ")
			}
			if p.byRef {
				b.WriteString("ref ")
			}
			b.WriteString(p.typ.String())
		}
		b.WriteString(")")
		if t.elem != Void {
			b.WriteString(" ")
			b.WriteString(t.elem.String())
		}
		return b.String()
	case TaskKind, TaskSourceKind:
		if t.elem == Void {
			return t.kind.String()
		}
		return t.kind.String() + "<" + t.elem.String() + ">"
	}
	return t.name
}

// IsValueType reports whether values of t are copied on assignment and can
// not be null.
func (t *Type) IsValueType() bool {
	switch t.kind {
	case BoolKind, IntKind, FloatKind, DecimalKind, CharKind, StructKind:
		return true
	}
	return false
}

// IsNullable reports whether null is a valid value of t.
func (t *Type) IsNullable() bool {
	return t.kind != VoidKind && !t.IsValueType()
}

// IsNumeric reports whether t supports arithmetic.
func (t *Type) IsNumeric() bool {
	switch t.kind {
	case IntKind, FloatKind, DecimalKind:
		return true
	}
	return false
}

// IsIntegral reports whether t has a dense, ordered set of values suitable
// for integral switch dispatch.
func (t *Type) IsIntegral() bool {
	return t.kind == IntKind || t.kind == CharKind
}

// Nullable returns the nullable form of t. Value types are lifted to their
// nullable form; all other types are returned unchanged.
func (t *Type) Nullable() *Type {
	if t.IsValueType() {
		return NullableOf(t)
	}
	return t
}

// NonNullable returns the underlying type of a nullable type and t
// otherwise. It is the type of a receiver known not to be null.
func (t *Type) NonNullable() *Type {
	if t.kind == NullableKind {
		return t.elem
	}
	return t
}

// DerivesFrom reports whether t is base or a class deriving from base.
func (t *Type) DerivesFrom(base *Type) bool {
	for x := t; x != nil; x = x.base {
		if x == base {
			return true
		}
	}
	return base == Object && t.kind == ClassKind
}

type typeKey struct {
	kind Kind
	elem *Type
	rank int
	sig  string
}

var cache struct {
	sync.Mutex
	m map[typeKey]*Type
}

// canonical returns the cached type for k or stores the type returned by
// mk. mk is called with the cache lock held and must not call canonical.
func canonical(k typeKey, mk func() *Type) *Type {
	cache.Lock()
	defer cache.Unlock()
	if t, ok := cache.m[k]; ok {
		return t
	}
	if cache.m == nil {
		cache.m = map[typeKey]*Type{}
	}
	t := mk()
	cache.m[k] = t
	return t
}

// NullableOf returns the nullable form of the value type t.
func NullableOf(t *Type) *Type {
	if !t.IsValueType() {
		panic(fmt.Sprintf("types: %s is not a value type", t))
	}
	return canonical(typeKey{kind: NullableKind, elem: t}, func() *Type {
		return &Type{kind: NullableKind, elem: t}
	})
}

// ArrayOf returns the array type with the given element type and number of
// dimensions.
func ArrayOf(elem *Type, rank int) *Type {
	if rank < 1 {
		panic("types: array rank must be positive")
	}
	if elem == Void {
		panic("types: array of void")
	}
	return canonicalDefine(typeKey{kind: ArrayKind, elem: elem, rank: rank}, func() *Type {
		return &Type{kind: ArrayKind, elem: elem, rank: rank}
	}, defineArrayMembers)
}

// FuncOf returns the func type with the given result and parameters.
// The canonical type holds copies of the parameters of the first call for a
// given signature; use Params to obtain them for argument binding.
func FuncOf(result *Type, params ...*Parameter) *Type {
	var sig strings.Builder
	for _, p := range params {
		fmt.Fprintf(&sig, "%s:%p:%v;", p.name, p.typ, p.byRef)
	}
	return canonical(typeKey{kind: FuncKind, elem: result, sig: sig.String()}, func() *Type {
		t := &Type{kind: FuncKind, elem: result}
		ps := make([]*Parameter, len(params))
		for i, p := range params {
			c := *p
			c.owner = nil
			ps[i] = &c
		}
		t.params = adopt(t, ps)
		return t
	})
}

// TaskOf returns the type of an awaitable operation producing a value of
// type result, or no value if result is Void.
func TaskOf(result *Type) *Type {
	return canonicalDefine(typeKey{kind: TaskKind, elem: result}, func() *Type {
		return &Type{kind: TaskKind, elem: result}
	}, defineTaskMembers)
}

// TaskSourceOf returns the type of the producer side of TaskOf(result).
func TaskSourceOf(result *Type) *Type {
	task := TaskOf(result)
	return canonicalDefine(typeKey{kind: TaskSourceKind, elem: result}, func() *Type {
		return &Type{kind: TaskSourceKind, elem: result}
	}, func(t *Type) { defineTaskSourceMembers(t, task) })
}

var defining sync.Mutex

// canonicalDefine is like canonical but also calls define for a newly
// created type before any other goroutine can observe it. define must not
// call canonicalDefine.
func canonicalDefine(k typeKey, mk func() *Type, define func(*Type)) *Type {
	defining.Lock()
	defer defining.Unlock()
	fresh := false
	t := canonical(k, func() *Type {
		fresh = true
		return mk()
	})
	if fresh {
		define(t)
	}
	return t
}
