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
	"fmt"
	"sync"
)

// A Member is a field, property, method or constructor of a type.
type Member interface {
	Name() string
	DeclaringType() *Type
	IsStatic() bool
	member()
}

// A MethodFunc implements a method. recv is nil for static methods. Values
// passed for by-reference parameters implement Ref.
type MethodFunc func(recv any, args []any) (any, error)

// A GetFunc implements the getter of a property or indexer.
type GetFunc func(recv any, index []any) (any, error)

// A SetFunc implements the setter of a property or indexer.
type SetFunc func(recv any, index []any, v any) error

// A CtorFunc implements a constructor.
type CtorFunc func(args []any) (any, error)

// A Parameter is a formal parameter of a method, constructor, indexer or
// func type. Parameters are compared by identity.
type Parameter struct {
	name       string
	typ        *Type
	byRef      bool
	hasDefault bool
	def        any

	pos   int
	owner any
}

// Param returns a new by-value parameter.
func Param(name string, t *Type) *Parameter {
	return &Parameter{name: name, typ: t}
}

// RefParam returns a new by-reference parameter. Arguments bound to it must
// be storage locations.
func RefParam(name string, t *Type) *Parameter {
	return &Parameter{name: name, typ: t, byRef: true}
}

// OptParam returns a new optional parameter with the given default value.
func OptParam(name string, t *Type, def any) *Parameter {
	if !t.Accepts(def) {
		panic(fmt.Sprintf("types: default %v of parameter %s is not a %s", def, name, t))
	}
	return &Parameter{name: name, typ: t, hasDefault: true, def: def}
}

// Params returns positional parameters named arg0, arg1, ... of the given
// types.
func Params(ts ...*Type) []*Parameter {
	a := make([]*Parameter, len(ts))
	for i, t := range ts {
		a[i] = Param(fmt.Sprintf("arg%d", i), t)
	}
	return a
}

func (p *Parameter) Name() string     { return p.name }
func (p *Parameter) Type() *Type      { return p.typ }
func (p *Parameter) IsByRef() bool    { return p.byRef }
func (p *Parameter) HasDefault() bool { return p.hasDefault }
func (p *Parameter) Default() any     { return p.def }
func (p *Parameter) Position() int    { return p.pos }
func (p *Parameter) String() string   { return p.name }
func (p *Parameter) owned() bool      { return p.owner != nil }
func (p *Parameter) BelongsTo(owner any) bool {
	return p.owner == owner
}

// adopt assigns positions and the owner to params.
func adopt(owner any, params []*Parameter) []*Parameter {
	a := make([]*Parameter, len(params))
	for i, p := range params {
		if p.owned() {
			panic(fmt.Sprintf("types: parameter %s already belongs to another member", p.name))
		}
		p.pos = i
		p.owner = owner
		a[i] = p
	}
	return a
}

// A MemberOption configures a field, property or method definition.
type MemberOption func(*memberFlags)

type memberFlags struct {
	static   bool
	readOnly bool
}

// Static marks a member as static.
func Static() MemberOption { return func(f *memberFlags) { f.static = true } }

// ReadOnly marks a field as not assignable.
func ReadOnly() MemberOption { return func(f *memberFlags) { f.readOnly = true } }

func flagsOf(opts []MemberOption) memberFlags {
	var f memberFlags
	for _, o := range opts {
		o(&f)
	}
	return f
}

// A Field is a storage member.
type Field struct {
	name     string
	typ      *Type
	decl     *Type
	static   bool
	readOnly bool

	mu    sync.Mutex
	value any // static fields only
}

func (f *Field) Name() string         { return f.name }
func (f *Field) Type() *Type          { return f.typ }
func (f *Field) DeclaringType() *Type { return f.decl }
func (f *Field) IsStatic() bool       { return f.static }
func (f *Field) IsReadOnly() bool     { return f.readOnly }
func (f *Field) member()              {}

// LoadStatic returns the value of a static field.
func (f *Field) LoadStatic() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value == nil {
		return Zero(f.typ)
	}
	return f.value
}

// StoreStatic sets the value of a static field.
func (f *Field) StoreStatic(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

// A Property is a member accessed through a getter and setter. A property
// with parameters is an indexer.
type Property struct {
	name   string
	typ    *Type
	decl   *Type
	static bool
	params []*Parameter
	get    GetFunc
	set    SetFunc
}

func (p *Property) Name() string         { return p.name }
func (p *Property) Type() *Type          { return p.typ }
func (p *Property) DeclaringType() *Type { return p.decl }
func (p *Property) IsStatic() bool       { return p.static }
func (p *Property) Params() []*Parameter { return p.params }
func (p *Property) IsIndexer() bool      { return len(p.params) > 0 }
func (p *Property) CanRead() bool        { return p.get != nil }
func (p *Property) CanWrite() bool       { return p.set != nil }
func (p *Property) Getter() GetFunc      { return p.get }
func (p *Property) Setter() SetFunc      { return p.set }
func (p *Property) member()              {}

// A Method is a callable member.
type Method struct {
	name   string
	decl   *Type
	static bool
	params []*Parameter
	result *Type
	fn     MethodFunc
}

func (m *Method) Name() string         { return m.name }
func (m *Method) DeclaringType() *Type { return m.decl }
func (m *Method) IsStatic() bool       { return m.static }
func (m *Method) Params() []*Parameter { return m.params }
func (m *Method) Result() *Type        { return m.result }
func (m *Method) Func() MethodFunc     { return m.fn }
func (m *Method) member()              {}

func (m *Method) String() string { return m.decl.Name() + "." + m.name }

// A Constructor creates instances of its declaring type.
type Constructor struct {
	decl   *Type
	params []*Parameter
	fn     CtorFunc
}

func (c *Constructor) Name() string         { return ".ctor" }
func (c *Constructor) DeclaringType() *Type { return c.decl }
func (c *Constructor) IsStatic() bool       { return false }
func (c *Constructor) Params() []*Parameter { return c.params }
func (c *Constructor) Func() CtorFunc       { return c.fn }
func (c *Constructor) member()              {}

func (t *Type) checkDefinable() {
	switch t.kind {
	case ClassKind, StructKind:
	default:
		panic(fmt.Sprintf("types: cannot define members on %s", t))
	}
}

// DefineField adds a field to a class or struct type.
func (t *Type) DefineField(name string, typ *Type, opts ...MemberOption) *Field {
	t.checkDefinable()
	fl := flagsOf(opts)
	f := &Field{name: name, typ: typ, decl: t, static: fl.static, readOnly: fl.readOnly}
	t.fields = append(t.fields, f)
	return f
}

// DefineProperty adds a property to a class or struct type. Either get or
// set may be nil to define a write-only or read-only property.
func (t *Type) DefineProperty(name string, typ *Type, get GetFunc, set SetFunc, opts ...MemberOption) *Property {
	t.checkDefinable()
	return t.defineProperty(name, typ, nil, get, set, flagsOf(opts).static)
}

// DefineIndexer adds an indexer, a property with parameters, to a class or
// struct type.
func (t *Type) DefineIndexer(name string, typ *Type, params []*Parameter, get GetFunc, set SetFunc) *Property {
	t.checkDefinable()
	if len(params) == 0 {
		panic("types: indexer requires parameters")
	}
	return t.defineProperty(name, typ, params, get, set, false)
}

func (t *Type) defineProperty(name string, typ *Type, params []*Parameter, get GetFunc, set SetFunc, static bool) *Property {
	p := &Property{name: name, typ: typ, decl: t, static: static, get: get, set: set}
	p.params = adopt(p, params)
	t.props = append(t.props, p)
	return p
}

// DefineMethod adds a method to a class or struct type.
func (t *Type) DefineMethod(name string, result *Type, params []*Parameter, fn MethodFunc, opts ...MemberOption) *Method {
	t.checkDefinable()
	return t.defineMethod(name, result, params, fn, flagsOf(opts).static)
}

func (t *Type) defineMethod(name string, result *Type, params []*Parameter, fn MethodFunc, static bool) *Method {
	m := &Method{name: name, decl: t, static: static, result: result, fn: fn}
	m.params = adopt(m, params)
	t.methods = append(t.methods, m)
	return m
}

// DefineConstructor adds a constructor to a class or struct type.
func (t *Type) DefineConstructor(params []*Parameter, fn CtorFunc) *Constructor {
	t.checkDefinable()
	return t.defineConstructor(params, fn)
}

func (t *Type) defineConstructor(params []*Parameter, fn CtorFunc) *Constructor {
	c := &Constructor{decl: t, fn: fn}
	c.params = adopt(c, params)
	t.ctors = append(t.ctors, c)
	return c
}

// Field looks up a field by name in t and its base classes.
func (t *Type) Field(name string) *Field {
	for x := t; x != nil; x = x.base {
		for _, f := range x.fields {
			if f.name == name {
				return f
			}
		}
	}
	return nil
}

// Property looks up a property or indexer by name in t and its base classes.
func (t *Type) Property(name string) *Property {
	for x := t; x != nil; x = x.base {
		for _, p := range x.props {
			if p.name == name {
				return p
			}
		}
	}
	return nil
}

// Method looks up the first method with the given name in t and its base
// classes.
func (t *Type) Method(name string) *Method {
	for x := t; x != nil; x = x.base {
		for _, m := range x.methods {
			if m.name == name {
				return m
			}
		}
	}
	return nil
}

// Indexer returns the first indexer of t or its base classes.
func (t *Type) Indexer() *Property {
	for x := t; x != nil; x = x.base {
		for _, p := range x.props {
			if p.IsIndexer() {
				return p
			}
		}
	}
	return nil
}

// Constructors returns the constructors declared by t.
func (t *Type) Constructors() []*Constructor { return t.ctors }

// Constructor returns the constructor of t with n parameters, if any.
func (t *Type) Constructor(n int) *Constructor {
	for _, c := range t.ctors {
		if len(c.params) == n {
			return c
		}
	}
	return nil
}

// Fields returns the fields declared by t.
func (t *Type) Fields() []*Field { return t.fields }
