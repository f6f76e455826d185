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
	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/types"
)

// A ConditionalReceiver is the placeholder for the non-null value of the
// receiver within the WhenNotNull part of a conditional access. It is only
// meaningful inside the access that created it.
type ConditionalReceiver struct {
	typ *types.Type
}

// ConditionalReceiverOf returns a new placeholder of type t, which must not
// be a nullable value type.
func ConditionalReceiverOf(t *types.Type) (*ConditionalReceiver, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	if t == types.Void || t.Kind() == types.NullableKind {
		return nil, errors.Argf("type", "conditional receiver cannot be of type %s", t)
	}
	return &ConditionalReceiver{typ: t}, nil
}

func (x *ConditionalReceiver) Kind() Kind        { return ConditionalReceiverKind }
func (x *ConditionalReceiver) Type() *types.Type { return x.typ }
func (x *ConditionalReceiver) node()             {}

func (x *ConditionalReceiver) Reduce() (Node, error) {
	return nil, errors.InvalidOpf("conditional receiver used outside of its conditional access")
}

// conditional holds the parts common to all conditional access kinds.
type conditional struct {
	receiver    Node
	placeholder *ConditionalReceiver
	whenNotNull Node
	typ         *types.Type
}

// Receiver returns the expression that is tested for null.
func (c *conditional) Receiver() Node { return c.receiver }

// Placeholder returns the node standing for the non-null receiver in
// WhenNotNull.
func (c *conditional) Placeholder() *ConditionalReceiver { return c.placeholder }

// WhenNotNull returns the access evaluated when the receiver is not null.
func (c *conditional) WhenNotNull() Node { return c.whenNotNull }

func (c *conditional) Type() *types.Type { return c.typ }

// nonNullReceiver validates the receiver of a conditional access and
// returns a placeholder for its non-null value.
func nonNullReceiver(x Node) (*ConditionalReceiver, error) {
	if err := requireReadable(x, "expression"); err != nil {
		return nil, err
	}
	t := x.Type()
	if !t.IsNullable() {
		return nil, errors.Argf("expression", "conditional access requires a receiver of nullable or reference type, found %s", t)
	}
	return ConditionalReceiverOf(t.NonNullable())
}

func newConditional(receiver Node, placeholder *ConditionalReceiver, whenNotNull Node) conditional {
	t := whenNotNull.Type()
	if t != types.Void {
		t = t.Nullable()
	}
	return conditional{
		receiver:    receiver,
		placeholder: placeholder,
		whenNotNull: whenNotNull,
		typ:         t,
	}
}

// reduce lowers the access to a single evaluation of the receiver into a
// temporary, a null test and the access applied to the non-null value.
func (c *conditional) reduce() (Node, error) {
	rt := c.receiver.Type()
	tmp, err := Variable(rt, "recv")
	if err != nil {
		return nil, err
	}
	vars := []*Var{tmp}
	var stmts []Node
	var subst Node = tmp
	if rt.Kind() == types.NullableKind {
		val, err := Variable(rt.Elem(), "value")
		if err != nil {
			return nil, err
		}
		unwrap, err := ConvertTo(tmp, rt.Elem())
		if err != nil {
			return nil, err
		}
		a, err := AssignTo(val, unwrap)
		if err != nil {
			return nil, err
		}
		vars = append(vars, val)
		stmts = append(stmts, a)
		subst = val
	}
	body, err := Rewrite(c.whenNotNull, func(n Node) (Node, bool, error) {
		if n == c.placeholder {
			return subst, true, nil
		}
		return n, false, nil
	})
	if err != nil {
		return nil, err
	}
	null, err := Null(rt)
	if err != nil {
		return nil, err
	}
	test, err := NotEqual(tmp, null)
	if err != nil {
		return nil, err
	}
	var result Node
	if c.typ == types.Void {
		then, err := MakeBlock(types.Void, nil, append(stmts, body))
		if err != nil {
			return nil, err
		}
		result, err = IfThen(test, then)
		if err != nil {
			return nil, err
		}
	} else {
		lifted, err := convertIfNeeded(body, c.typ)
		if err != nil {
			return nil, err
		}
		then, err := MakeBlock(c.typ, nil, append(stmts, lifted))
		if err != nil {
			return nil, err
		}
		def, err := DefaultOf(c.typ)
		if err != nil {
			return nil, err
		}
		result, err = Condition(test, then, def, c.typ)
		if err != nil {
			return nil, err
		}
	}
	assign, err := AssignTo(tmp, c.receiver)
	if err != nil {
		return nil, err
	}
	return MakeBlock(c.typ, vars, []Node{assign, result})
}

// A ConditionalAccess evaluates WhenNotNull with the placeholder bound to
// the receiver if the receiver is not null, and yields null otherwise.
type ConditionalAccess struct {
	conditional
}

// MakeConditionalAccess returns a general conditional access. The
// placeholder must have the non-null type of the receiver and must occur
// in whenNotNull.
func MakeConditionalAccess(receiver Node, placeholder *ConditionalReceiver, whenNotNull Node) (*ConditionalAccess, error) {
	if err := requireReadable(receiver, "expression"); err != nil {
		return nil, err
	}
	if placeholder == nil {
		return nil, errors.ArgNull("receiver")
	}
	if whenNotNull == nil {
		return nil, errors.ArgNull("whenNotNull")
	}
	rt := receiver.Type()
	if !rt.IsNullable() {
		return nil, errors.Argf("expression", "conditional access requires a receiver of nullable or reference type, found %s", rt)
	}
	if placeholder.typ != rt.NonNullable() {
		return nil, errors.Argf("receiver", "placeholder of type %s does not match receiver of type %s", placeholder.typ, rt)
	}
	found := false
	Inspect(whenNotNull, func(n Node) bool {
		if n == placeholder {
			found = true
		}
		return !found
	})
	if !found {
		return nil, errors.Argf("whenNotNull", "placeholder does not occur in the access")
	}
	return &ConditionalAccess{newConditional(receiver, placeholder, whenNotNull)}, nil
}

func (x *ConditionalAccess) Kind() Kind { return ConditionalAccessKind }
func (x *ConditionalAccess) node()      {}

func (x *ConditionalAccess) Update(receiver, whenNotNull Node) (*ConditionalAccess, error) {
	if receiver == x.receiver && whenNotNull == x.whenNotNull {
		return x, nil
	}
	return MakeConditionalAccess(receiver, x.placeholder, whenNotNull)
}

func (x *ConditionalAccess) Reduce() (Node, error) { return x.reduce() }

// A ConditionalMember is a field or property access guarded by a null test
// of the receiver.
type ConditionalMember struct {
	conditional
	member types.Member
}

// ConditionalField returns x?.f.
func ConditionalField(x Node, f *types.Field) (*ConditionalMember, error) {
	if f == nil {
		return nil, errors.ArgNull("field")
	}
	return makeConditionalMember(x, f)
}

// ConditionalFieldByName returns x?.name for a field name.
func ConditionalFieldByName(x Node, name string) (*ConditionalMember, error) {
	if err := requireReadable(x, "expression"); err != nil {
		return nil, err
	}
	f := x.Type().NonNullable().Field(name)
	if f == nil {
		return nil, errors.Argf("name", "%s is not a field of %s", name, x.Type())
	}
	return ConditionalField(x, f)
}

// ConditionalProperty returns x?.p.
func ConditionalProperty(x Node, p *types.Property) (*ConditionalMember, error) {
	if p == nil {
		return nil, errors.ArgNull("property")
	}
	return makeConditionalMember(x, p)
}

// ConditionalPropertyByName returns x?.name for a property name.
func ConditionalPropertyByName(x Node, name string) (*ConditionalMember, error) {
	if err := requireReadable(x, "expression"); err != nil {
		return nil, err
	}
	p := x.Type().NonNullable().Property(name)
	if p == nil {
		return nil, errors.Argf("name", "%s is not a property of %s", name, x.Type())
	}
	return ConditionalProperty(x, p)
}

// MakeConditionalMemberAccess returns x?.m for a field or property m.
func MakeConditionalMemberAccess(x Node, m types.Member) (*ConditionalMember, error) {
	switch m := m.(type) {
	case nil:
		return nil, errors.ArgNull("member")
	case *types.Field:
		return ConditionalField(x, m)
	case *types.Property:
		return ConditionalProperty(x, m)
	}
	return nil, errors.Argf("member", "%s is not a field or property", m.Name())
}

func makeConditionalMember(x Node, m types.Member) (*ConditionalMember, error) {
	if m.IsStatic() {
		return nil, errors.Argf("member", "conditional access requires a non-static member, %s is static", m.Name())
	}
	if p, ok := m.(*types.Property); ok {
		if p.IsIndexer() {
			return nil, errors.Argf("property", "conditional member access cannot use indexer %s", p.Name())
		}
		if !p.CanRead() {
			return nil, errors.Argf("property", "conditional access requires a readable property, %s is write-only", p.Name())
		}
	}
	r, err := nonNullReceiver(x)
	if err != nil {
		return nil, err
	}
	if !types.IsReferenceAssignable(m.DeclaringType(), r.typ) {
		return nil, errors.Argf("member", "member %s is not defined on type %s", m.Name(), r.typ)
	}
	access, err := MakeMemberAccess(r, m)
	if err != nil {
		return nil, err
	}
	return &ConditionalMember{newConditional(x, r, access), m}, nil
}

func (x *ConditionalMember) Kind() Kind           { return ConditionalMemberKind }
func (x *ConditionalMember) Member() types.Member { return x.member }
func (x *ConditionalMember) node()                {}

func (x *ConditionalMember) Update(receiver Node) (*ConditionalMember, error) {
	if receiver == x.receiver {
		return x, nil
	}
	return MakeConditionalMemberAccess(receiver, x.member)
}

func (x *ConditionalMember) Reduce() (Node, error) { return x.reduce() }

// A ConditionalCall is a method call guarded by a null test of the
// receiver.
type ConditionalCall struct {
	conditional
	method *types.Method
	args   []*ParameterAssignment
}

// ConditionalCallArgs returns x?.m(args).
func ConditionalCallArgs(x Node, m *types.Method, args ...*ParameterAssignment) (*ConditionalCall, error) {
	if m == nil {
		return nil, errors.ArgNull("method")
	}
	if m.IsStatic() {
		return nil, errors.Argf("method", "conditional access requires a non-static member, %s is static", m.Name())
	}
	r, err := nonNullReceiver(x)
	if err != nil {
		return nil, err
	}
	call, err := CallArgs(r, m, args...)
	if err != nil {
		return nil, err
	}
	return &ConditionalCall{newConditional(x, r, call), m, clone(args)}, nil
}

// ConditionalCallPositional returns x?.m(args) binding args by position.
func ConditionalCallPositional(x Node, m *types.Method, args ...Node) (*ConditionalCall, error) {
	if m == nil {
		return nil, errors.ArgNull("method")
	}
	a, err := bindPositional(m.Params(), args, m.String())
	if err != nil {
		return nil, err
	}
	return ConditionalCallArgs(x, m, a...)
}

func (x *ConditionalCall) Kind() Kind                   { return ConditionalCallKind }
func (x *ConditionalCall) Method() *types.Method        { return x.method }
func (x *ConditionalCall) Args() []*ParameterAssignment { return x.args }
func (x *ConditionalCall) node()                        {}

func (x *ConditionalCall) Update(receiver Node, args []*ParameterAssignment) (*ConditionalCall, error) {
	if receiver == x.receiver && sameAssignments(args, x.args) {
		return x, nil
	}
	return ConditionalCallArgs(receiver, x.method, args...)
}

func (x *ConditionalCall) Reduce() (Node, error) { return x.reduce() }

// A ConditionalIndex is an indexer access guarded by a null test of the
// receiver.
type ConditionalIndex struct {
	conditional
	prop *types.Property
	args []*ParameterAssignment
}

// ConditionalIndexArgs returns x?[args] for the indexer p.
func ConditionalIndexArgs(x Node, p *types.Property, args ...*ParameterAssignment) (*ConditionalIndex, error) {
	if p == nil {
		return nil, errors.ArgNull("indexer")
	}
	if p.IsStatic() {
		return nil, errors.Argf("indexer", "conditional access requires a non-static member, %s is static", p.Name())
	}
	if !p.CanRead() {
		return nil, errors.Argf("indexer", "conditional access requires a readable indexer, %s is write-only", p.Name())
	}
	r, err := nonNullReceiver(x)
	if err != nil {
		return nil, err
	}
	index, err := IndexArgs(r, p, args...)
	if err != nil {
		return nil, err
	}
	return &ConditionalIndex{newConditional(x, r, index), p, clone(args)}, nil
}

// ConditionalIndexPositional returns x?[args] binding args by position.
func ConditionalIndexPositional(x Node, p *types.Property, args ...Node) (*ConditionalIndex, error) {
	if p == nil {
		return nil, errors.ArgNull("indexer")
	}
	a, err := bindPositional(p.Params(), args, p.Name())
	if err != nil {
		return nil, err
	}
	return ConditionalIndexArgs(x, p, a...)
}

// ConditionalArrayIndex returns arr?[indices] for an array receiver.
func ConditionalArrayIndex(arr Node, indices ...Node) (*ConditionalAccess, error) {
	return NewConditionalChain(arr).ArrayIndex(indices...).Build()
}

func (x *ConditionalIndex) Kind() Kind                   { return ConditionalIndexKind }
func (x *ConditionalIndex) Indexer() *types.Property     { return x.prop }
func (x *ConditionalIndex) Args() []*ParameterAssignment { return x.args }
func (x *ConditionalIndex) node()                        {}

func (x *ConditionalIndex) Update(receiver Node, args []*ParameterAssignment) (*ConditionalIndex, error) {
	if receiver == x.receiver && sameAssignments(args, x.args) {
		return x, nil
	}
	return ConditionalIndexArgs(receiver, x.prop, args...)
}

func (x *ConditionalIndex) Reduce() (Node, error) { return x.reduce() }

// A ConditionalInvoke is an invocation of a func value guarded by a null
// test.
type ConditionalInvoke struct {
	conditional
	args []*ParameterAssignment
}

// ConditionalInvokeArgs returns fn?.Invoke(args).
func ConditionalInvokeArgs(fn Node, args ...*ParameterAssignment) (*ConditionalInvoke, error) {
	r, err := nonNullReceiver(fn)
	if err != nil {
		return nil, err
	}
	if r.typ.Kind() != types.FuncKind {
		return nil, errors.Argf("expression", "cannot invoke a value of type %s", fn.Type())
	}
	inv, err := InvokeArgs(r, args...)
	if err != nil {
		return nil, err
	}
	return &ConditionalInvoke{newConditional(fn, r, inv), clone(args)}, nil
}

// ConditionalInvokePositional returns fn?.Invoke(args) binding args by
// position.
func ConditionalInvokePositional(fn Node, args ...Node) (*ConditionalInvoke, error) {
	if err := requireReadable(fn, "expression"); err != nil {
		return nil, err
	}
	if fn.Type().Kind() != types.FuncKind {
		return nil, errors.Argf("expression", "cannot invoke a value of type %s", fn.Type())
	}
	a, err := bindPositional(fn.Type().Params(), args, fn.Type().String())
	if err != nil {
		return nil, err
	}
	return ConditionalInvokeArgs(fn, a...)
}

func (x *ConditionalInvoke) Kind() Kind                   { return ConditionalInvokeKind }
func (x *ConditionalInvoke) Args() []*ParameterAssignment { return x.args }
func (x *ConditionalInvoke) node()                        {}

func (x *ConditionalInvoke) Update(fn Node, args []*ParameterAssignment) (*ConditionalInvoke, error) {
	if fn == x.receiver && sameAssignments(args, x.args) {
		return x, nil
	}
	return ConditionalInvokeArgs(fn, args...)
}

func (x *ConditionalInvoke) Reduce() (Node, error) { return x.reduce() }

// A ConditionalChain builds a conditional access whose WhenNotNull part is
// a chain of member accesses, calls, index operations and invocations
// applied to the non-null receiver, as in x?.a.b(c)[d]. The first error
// encountered is reported by Build.
type ConditionalChain struct {
	receiver    Node
	placeholder *ConditionalReceiver
	current     Node
	err         error
}

// NewConditionalChain starts a chain on receiver.
func NewConditionalChain(receiver Node) *ConditionalChain {
	c := &ConditionalChain{receiver: receiver}
	c.placeholder, c.err = nonNullReceiver(receiver)
	if c.err == nil {
		c.current = c.placeholder
	}
	return c
}

// Placeholder returns the node standing for the non-null receiver.
func (c *ConditionalChain) Placeholder() *ConditionalReceiver { return c.placeholder }

// Type returns the type of the last link of the chain, or nil if the chain
// is in error.
func (c *ConditionalChain) Type() *types.Type {
	if c.err != nil {
		return nil
	}
	return c.current.Type()
}

func (c *ConditionalChain) link(f func(x Node) (Node, error)) *ConditionalChain {
	if c.err != nil {
		return c
	}
	n, err := f(c.current)
	if err != nil {
		c.err = err
		return c
	}
	c.current = n
	return c
}

// Field appends access of field f.
func (c *ConditionalChain) Field(f *types.Field) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return Field(x, f) })
}

// FieldByName appends access of the named field.
func (c *ConditionalChain) FieldByName(name string) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return FieldByName(x, name) })
}

// Property appends access of property p.
func (c *ConditionalChain) Property(p *types.Property) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return Property(x, p) })
}

// PropertyByName appends access of the named property.
func (c *ConditionalChain) PropertyByName(name string) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return PropertyByName(x, name) })
}

// Call appends a call of m with argument bindings.
func (c *ConditionalChain) Call(m *types.Method, args ...*ParameterAssignment) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return CallArgs(x, m, args...) })
}

// CallPositional appends a call of m binding args by position.
func (c *ConditionalChain) CallPositional(m *types.Method, args ...Node) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return CallPositional(x, m, args...) })
}

// Index appends an access of the indexer p.
func (c *ConditionalChain) Index(p *types.Property, args ...*ParameterAssignment) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return IndexArgs(x, p, args...) })
}

// ArrayIndex appends an array element access.
func (c *ConditionalChain) ArrayIndex(indices ...Node) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return ArrayAccess(x, indices...) })
}

// Invoke appends an invocation of the current func value.
func (c *ConditionalChain) Invoke(args ...*ParameterAssignment) *ConditionalChain {
	return c.link(func(x Node) (Node, error) { return InvokeArgs(x, args...) })
}

// Build returns the conditional access for the chain. At least one link is
// required.
func (c *ConditionalChain) Build() (*ConditionalAccess, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.current == Node(c.placeholder) {
		return nil, errors.Argf("whenNotNull", "conditional access chain has no links")
	}
	return MakeConditionalAccess(c.receiver, c.placeholder, c.current)
}
