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

package expr

import (
	"fmt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/types"
)

// checkReceiver validates the receiver x of a member of type decl.
func checkReceiver(x Node, m types.Member) error {
	if m.IsStatic() {
		if x != nil {
			return errors.Argf("expression", "static member %s cannot be accessed with a receiver", m.Name())
		}
		return nil
	}
	if x == nil {
		return errors.ArgNull("expression")
	}
	if err := requireReadable(x, "expression"); err != nil {
		return err
	}
	if !types.IsReferenceAssignable(m.DeclaringType(), x.Type()) {
		return errors.Argf("expression", "member %s is not defined on type %s", m.Name(), x.Type())
	}
	return nil
}

// checkArgs validates positional arguments against params.
func checkArgs(params []*types.Parameter, args []Node, what string) error {
	if len(args) != len(params) {
		return errors.Argf("args", "incorrect number of arguments for %s: want %d, found %d", what, len(params), len(args))
	}
	for i, a := range args {
		p := params[i]
		param := fmt.Sprintf("args[%d]", i)
		if a == nil {
			return errors.ArgNull(param)
		}
		if p.IsByRef() {
			if !isLocation(a) {
				return errors.Argf(param, "argument for by-reference parameter %s must be a storage location", p.Name())
			}
			if a.Type() != p.Type() {
				return errors.Argf(param, "argument for by-reference parameter %s must be of type %s, found %s", p.Name(), p.Type(), a.Type())
			}
			continue
		}
		if err := requireValue(a, p.Type(), param); err != nil {
			return err
		}
	}
	return nil
}

// A Member reads a field or a non-indexed property.
type Member struct {
	x      Node // nil for static members
	member types.Member
}

// Field returns an access of field f on x, which must be nil for static
// fields.
func Field(x Node, f *types.Field) (*Member, error) {
	if f == nil {
		return nil, errors.ArgNull("field")
	}
	if err := checkReceiver(x, f); err != nil {
		return nil, err
	}
	return &Member{x: x, member: f}, nil
}

// FieldByName returns an access of the field with the given name on x.
func FieldByName(x Node, name string) (*Member, error) {
	if x == nil {
		return nil, errors.ArgNull("expression")
	}
	f := x.Type().Field(name)
	if f == nil {
		return nil, errors.Argf("name", "%s is not a field of %s", name, x.Type())
	}
	return Field(x, f)
}

// Property returns an access of the non-indexed property p on x.
func Property(x Node, p *types.Property) (*Member, error) {
	if p == nil {
		return nil, errors.ArgNull("property")
	}
	if p.IsIndexer() {
		return nil, errors.Argf("property", "indexer %s requires arguments", p.Name())
	}
	if err := checkReceiver(x, p); err != nil {
		return nil, err
	}
	return &Member{x: x, member: p}, nil
}

// PropertyByName returns an access of the property with the given name on x.
func PropertyByName(x Node, name string) (*Member, error) {
	if x == nil {
		return nil, errors.ArgNull("expression")
	}
	p := x.Type().Property(name)
	if p == nil {
		return nil, errors.Argf("name", "%s is not a property of %s", name, x.Type())
	}
	return Property(x, p)
}

// MakeMemberAccess returns an access of m, which must be a field or a
// property.
func MakeMemberAccess(x Node, m types.Member) (*Member, error) {
	switch m := m.(type) {
	case nil:
		return nil, errors.ArgNull("member")
	case *types.Field:
		return Field(x, m)
	case *types.Property:
		return Property(x, m)
	}
	return nil, errors.Argf("member", "%s is not a field or property", m.Name())
}

func (x *Member) Kind() Kind           { return MemberKind }
func (x *Member) Type() *types.Type    { return memberType(x.member) }
func (x *Member) Expr() Node           { return x.x }
func (x *Member) Member() types.Member { return x.member }
func (x *Member) node()                {}

func memberType(m types.Member) *types.Type {
	switch m := m.(type) {
	case *types.Field:
		return m.Type()
	case *types.Property:
		return m.Type()
	}
	panic(fmt.Sprintf("unexpected member %T", m))
}

func (x *Member) Update(expr Node) (*Member, error) {
	if expr == x.x {
		return x, nil
	}
	return MakeMemberAccess(expr, x.member)
}

// A Call invokes a method with positional arguments.
type Call struct {
	x      Node // nil for static methods
	method *types.Method
	args   []Node
}

// CallMethod returns a call of m on x with positional arguments. The number
// of arguments must match the number of parameters; arguments for by-ref
// parameters must be storage locations of the parameter type.
func CallMethod(x Node, m *types.Method, args ...Node) (*Call, error) {
	if m == nil {
		return nil, errors.ArgNull("method")
	}
	if err := checkReceiver(x, m); err != nil {
		return nil, err
	}
	if err := checkArgs(m.Params(), args, m.String()); err != nil {
		return nil, err
	}
	return &Call{x: x, method: m, args: clone(args)}, nil
}

// CallByName looks up the method name on the type of x and calls it.
func CallByName(x Node, name string, args ...Node) (*Call, error) {
	if x == nil {
		return nil, errors.ArgNull("expression")
	}
	m := x.Type().Method(name)
	if m == nil {
		return nil, errors.Argf("name", "%s is not a method of %s", name, x.Type())
	}
	return CallMethod(x, m, args...)
}

func (x *Call) Kind() Kind            { return CallKind }
func (x *Call) Type() *types.Type     { return x.method.Result() }
func (x *Call) Expr() Node            { return x.x }
func (x *Call) Method() *types.Method { return x.method }
func (x *Call) Args() []Node          { return x.args }
func (x *Call) node()                 {}

func (x *Call) Update(expr Node, args []Node) (*Call, error) {
	if expr == x.x && sameNodes(args, x.args) {
		return x, nil
	}
	return CallMethod(expr, x.method, args...)
}

// A New creates an instance of a class or struct, either by invoking a
// constructor or, for structs without a constructor, by allocating a zero
// value.
type New struct {
	ctor *types.Constructor
	args []Node
	typ  *types.Type
}

// NewObject returns an invocation of constructor c.
func NewObject(c *types.Constructor, args ...Node) (*New, error) {
	if c == nil {
		return nil, errors.ArgNull("constructor")
	}
	if err := checkArgs(c.Params(), args, c.DeclaringType().Name()); err != nil {
		return nil, err
	}
	return &New{ctor: c, args: clone(args), typ: c.DeclaringType()}, nil
}

// NewInstanceOf returns the allocation of a zero-valued struct of type t.
func NewInstanceOf(t *types.Type) (*New, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	if t.Kind() != types.StructKind {
		return nil, errors.Argf("type", "%s requires a constructor", t)
	}
	return &New{typ: t}, nil
}

func (x *New) Kind() Kind                      { return NewKind }
func (x *New) Type() *types.Type               { return x.typ }
func (x *New) Constructor() *types.Constructor { return x.ctor }
func (x *New) Args() []Node                    { return x.args }
func (x *New) node()                           {}

func (x *New) Update(args []Node) (*New, error) {
	if sameNodes(args, x.args) {
		return x, nil
	}
	if x.ctor == nil {
		return nil, errors.Argf("args", "zero value allocation of %s takes no arguments", x.typ)
	}
	return NewObject(x.ctor, args...)
}

// An Invoke calls a value of a func type.
type Invoke struct {
	fn   Node
	args []Node
}

// InvokeFunc returns an invocation of fn with positional arguments.
func InvokeFunc(fn Node, args ...Node) (*Invoke, error) {
	if err := requireReadable(fn, "expression"); err != nil {
		return nil, err
	}
	t := fn.Type()
	if t.Kind() != types.FuncKind {
		return nil, errors.Argf("expression", "cannot invoke a value of type %s", t)
	}
	if err := checkArgs(t.Params(), args, t.String()); err != nil {
		return nil, err
	}
	return &Invoke{fn: fn, args: clone(args)}, nil
}

func (x *Invoke) Kind() Kind        { return InvokeKind }
func (x *Invoke) Type() *types.Type { return x.fn.Type().Result() }
func (x *Invoke) Expr() Node        { return x.fn }
func (x *Invoke) Args() []Node      { return x.args }
func (x *Invoke) node()             {}

func (x *Invoke) Update(fn Node, args []Node) (*Invoke, error) {
	if fn == x.fn && sameNodes(args, x.args) {
		return x, nil
	}
	return InvokeFunc(fn, args...)
}

// An Index accesses an array element or an indexer.
type Index struct {
	x    Node
	prop *types.Property // nil for array elements
	args []Node
}

// ArrayAccess returns an access of an element of arr. The number of indices
// must equal the rank of the array and each must be of type Int.
func ArrayAccess(arr Node, indices ...Node) (*Index, error) {
	if err := requireReadable(arr, "array"); err != nil {
		return nil, err
	}
	t := arr.Type()
	if t.Kind() != types.ArrayKind {
		return nil, errors.Argf("array", "cannot index a value of type %s", t)
	}
	if len(indices) != t.Rank() {
		return nil, errors.Argf("indices", "incorrect number of indices for %s: want %d, found %d", t, t.Rank(), len(indices))
	}
	for i, n := range indices {
		if err := requireValue(n, types.Int, fmt.Sprintf("indices[%d]", i)); err != nil {
			return nil, err
		}
	}
	return &Index{x: arr, args: clone(indices)}, nil
}

// IndexProperty returns an access of the indexer p on x.
func IndexProperty(x Node, p *types.Property, args ...Node) (*Index, error) {
	if p == nil {
		return nil, errors.ArgNull("indexer")
	}
	if !p.IsIndexer() {
		return nil, errors.Argf("indexer", "property %s is not an indexer", p.Name())
	}
	if err := checkReceiver(x, p); err != nil {
		return nil, err
	}
	if err := checkArgs(p.Params(), args, p.Name()); err != nil {
		return nil, err
	}
	return &Index{x: x, prop: p, args: clone(args)}, nil
}

func (x *Index) Kind() Kind               { return IndexKind }
func (x *Index) Expr() Node               { return x.x }
func (x *Index) Indexer() *types.Property { return x.prop }
func (x *Index) Args() []Node             { return x.args }
func (x *Index) node()                    {}

func (x *Index) Type() *types.Type {
	if x.prop != nil {
		return x.prop.Type()
	}
	return x.x.Type().Elem()
}

func (x *Index) Update(expr Node, args []Node) (*Index, error) {
	if expr == x.x && sameNodes(args, x.args) {
		return x, nil
	}
	if x.prop == nil {
		return ArrayAccess(expr, args...)
	}
	return IndexProperty(expr, x.prop, args...)
}

// A NewArray allocates an array, either with the given lengths and zeroed
// elements or, for one-dimensional arrays, initialized with the values of
// the given expressions.
type NewArray struct {
	exprs []Node
	init  bool
	typ   *types.Type
}

// NewArrayBounds returns the allocation of an array of elem with one length
// per dimension.
func NewArrayBounds(elem *types.Type, bounds ...Node) (*NewArray, error) {
	if elem == nil {
		return nil, errors.ArgNull("type")
	}
	if elem == types.Void {
		return nil, errors.Argf("type", "array element type cannot be void")
	}
	if len(bounds) == 0 {
		return nil, errors.Argf("bounds", "array allocation requires at least one bound")
	}
	for i, n := range bounds {
		param := fmt.Sprintf("bounds[%d]", i)
		if err := requireReadable(n, param); err != nil {
			return nil, err
		}
		if n.Type() != types.Int {
			return nil, errors.Argf(param, "array bound must be of type int, found %s", n.Type())
		}
	}
	return &NewArray{exprs: clone(bounds), typ: types.ArrayOf(elem, len(bounds))}, nil
}

// NewArrayInit returns a one-dimensional array holding the values of exprs.
func NewArrayInit(elem *types.Type, exprs ...Node) (*NewArray, error) {
	if elem == nil {
		return nil, errors.ArgNull("type")
	}
	if elem == types.Void {
		return nil, errors.Argf("type", "array element type cannot be void")
	}
	for i, n := range exprs {
		if err := requireValue(n, elem, fmt.Sprintf("exprs[%d]", i)); err != nil {
			return nil, err
		}
	}
	return &NewArray{exprs: clone(exprs), init: true, typ: types.ArrayOf(elem, 1)}, nil
}

func (x *NewArray) Kind() Kind        { return NewArrayKind }
func (x *NewArray) Type() *types.Type { return x.typ }
func (x *NewArray) node()             {}

// IsInit reports whether Exprs holds element values rather than bounds.
func (x *NewArray) IsInit() bool { return x.init }

// Exprs returns the bounds or the element values.
func (x *NewArray) Exprs() []Node { return x.exprs }

func (x *NewArray) Update(exprs []Node) (*NewArray, error) {
	if sameNodes(exprs, x.exprs) {
		return x, nil
	}
	if x.init {
		return NewArrayInit(x.typ.Elem(), exprs...)
	}
	return NewArrayBounds(x.typ.Elem(), exprs...)
}
