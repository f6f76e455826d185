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

// loop holds the parts shared by all loop kinds. The loop owns its break
// and continue targets; Goto nodes in the body only refer to them.
type loop struct {
	test Node
	body Node
	brk  *LabelTarget
	cont *LabelTarget
}

// Test returns the loop condition. It is nil for a for loop without a
// condition and for foreach loops.
func (l *loop) Test() Node               { return l.test }
func (l *loop) Body() Node               { return l.body }
func (l *loop) BreakLabel() *LabelTarget { return l.brk }

// ContinueLabel returns the continue target, or nil if none was given.
func (l *loop) ContinueLabel() *LabelTarget { return l.cont }

func (l *loop) Type() *types.Type { return types.Void }

// newLoop validates the common parts of a loop and synthesizes a break
// label if brk is nil.
func newLoop(test, body Node, brk, cont *LabelTarget, needTest bool) (loop, error) {
	if test != nil || needTest {
		if err := requireBool(test, "test"); err != nil {
			return loop{}, err
		}
	}
	if body == nil {
		return loop{}, errors.ArgNull("body")
	}
	if err := checkControlLabel(brk, "break"); err != nil {
		return loop{}, err
	}
	if err := checkControlLabel(cont, "continue"); err != nil {
		return loop{}, err
	}
	if brk != nil && brk == cont {
		return loop{}, errors.Argf("continue", "break and continue labels must be distinct")
	}
	if brk == nil {
		brk = NewLabel(types.Void, "break")
	}
	return loop{test: test, body: body, brk: brk, cont: cont}, nil
}

// lowering accumulates the statements of a lowered construct.
type lowering struct {
	stmts []Node
	err   error
}

func (b *lowering) add(n Node, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.stmts = append(b.stmts, n)
}

func (b *lowering) label(l *LabelTarget) {
	b.add(MarkLabel(l, nil))
}

func (b *lowering) jump(l *LabelTarget) {
	b.add(GotoLabel(l))
}

// unless adds a jump to l taken when test does not hold.
func (b *lowering) unless(test Node, l *LabelTarget) {
	if b.err != nil {
		return
	}
	not, err := Not(test)
	if err != nil {
		b.err = err
		return
	}
	jump, err := GotoLabel(l)
	if err != nil {
		b.err = err
		return
	}
	b.add(IfThen(not, jump))
}

func (b *lowering) block(vars []*Var) (Node, error) {
	if b.err != nil {
		return nil, b.err
	}
	return MakeBlock(types.Void, vars, b.stmts)
}

func (l *loop) continueTarget() *LabelTarget {
	if l.cont != nil {
		return l.cont
	}
	return NewLabel(types.Void, "continue")
}

// A WhileStmt evaluates its body as long as its test holds, testing before
// each iteration.
type WhileStmt struct {
	loop
}

// While returns a while loop. A break label is created if brk is nil; cont
// may be nil.
func While(test, body Node, brk, cont *LabelTarget) (*WhileStmt, error) {
	l, err := newLoop(test, body, brk, cont, true)
	if err != nil {
		return nil, err
	}
	return &WhileStmt{l}, nil
}

func (x *WhileStmt) Kind() Kind { return WhileKind }
func (x *WhileStmt) node()      {}

func (x *WhileStmt) Update(brk, cont *LabelTarget, test, body Node) (*WhileStmt, error) {
	if brk == x.brk && cont == x.cont && test == x.test && body == x.body {
		return x, nil
	}
	return While(test, body, brk, cont)
}

func (x *WhileStmt) Reduce() (Node, error) {
	var b lowering
	begin := NewLabel(types.Void, "begin")
	b.label(begin)
	b.unless(x.test, x.brk)
	b.add(x.body, nil)
	b.label(x.continueTarget())
	b.jump(begin)
	b.label(x.brk)
	return b.block(nil)
}

// A DoStmt evaluates its body, then repeats as long as its test holds.
type DoStmt struct {
	loop
}

// Do returns a do-while loop.
func Do(body, test Node, brk, cont *LabelTarget) (*DoStmt, error) {
	l, err := newLoop(test, body, brk, cont, true)
	if err != nil {
		return nil, err
	}
	return &DoStmt{l}, nil
}

func (x *DoStmt) Kind() Kind { return DoKind }
func (x *DoStmt) node()      {}

func (x *DoStmt) Update(brk, cont *LabelTarget, body, test Node) (*DoStmt, error) {
	if brk == x.brk && cont == x.cont && test == x.test && body == x.body {
		return x, nil
	}
	return Do(body, test, brk, cont)
}

func (x *DoStmt) Reduce() (Node, error) {
	var b lowering
	begin := NewLabel(types.Void, "begin")
	b.label(begin)
	b.add(x.body, nil)
	b.label(x.continueTarget())
	if b.err == nil {
		jump, err := GotoLabel(begin)
		if err != nil {
			return nil, err
		}
		b.add(IfThen(x.test, jump))
	}
	b.label(x.brk)
	return b.block(nil)
}

// A ForStmt declares variables, evaluates initializers and then loops like
// a while loop, evaluating the iterators at the continue point.
type ForStmt struct {
	loop
	vars  []*Var
	inits []Node
	iters []Node
}

// For returns a for loop. The variables are scoped to the loop. A nil test
// loops until a jump leaves the loop.
func For(vars []*Var, inits []Node, test Node, iters []Node, body Node, brk, cont *LabelTarget) (*ForStmt, error) {
	if err := checkVars(vars, "vars"); err != nil {
		return nil, err
	}
	if err := checkNodes(inits, "inits"); err != nil {
		return nil, err
	}
	if err := checkNodes(iters, "iterators"); err != nil {
		return nil, err
	}
	l, err := newLoop(test, body, brk, cont, false)
	if err != nil {
		return nil, err
	}
	return &ForStmt{l, clone(vars), clone(inits), clone(iters)}, nil
}

func (x *ForStmt) Kind() Kind        { return ForKind }
func (x *ForStmt) Vars() []*Var      { return x.vars }
func (x *ForStmt) Inits() []Node     { return x.inits }
func (x *ForStmt) Iterators() []Node { return x.iters }
func (x *ForStmt) node()             {}

func (x *ForStmt) Update(brk, cont *LabelTarget, vars []*Var, inits []Node, test Node, iters []Node, body Node) (*ForStmt, error) {
	if brk == x.brk && cont == x.cont && sameVars(vars, x.vars) && sameNodes(inits, x.inits) &&
		test == x.test && sameNodes(iters, x.iters) && body == x.body {
		return x, nil
	}
	return For(vars, inits, test, iters, body, brk, cont)
}

func (x *ForStmt) Reduce() (Node, error) {
	var b lowering
	for _, n := range x.inits {
		b.add(n, nil)
	}
	begin := NewLabel(types.Void, "begin")
	b.label(begin)
	if x.test != nil {
		b.unless(x.test, x.brk)
	}
	b.add(x.body, nil)
	b.label(x.continueTarget())
	for _, n := range x.iters {
		b.add(n, nil)
	}
	b.jump(begin)
	b.label(x.brk)
	return b.block(x.vars)
}

// A ForEachStmt evaluates its body once for each element of a collection,
// with the element bound to a fresh variable per iteration. Collections
// are one-dimensional arrays, strings and values whose type follows the
// enumerator pattern: a GetEnumerator method returning a type with a
// MoveNext method and a Current property. Enumerators that have a Dispose
// method are disposed when the loop exits.
type ForEachStmt struct {
	loop
	v          *Var
	collection Node
	elem       *types.Type
}

// ForEach returns a foreach loop binding each element to v.
func ForEach(v *Var, collection, body Node, brk, cont *LabelTarget) (*ForEachStmt, error) {
	if v == nil {
		return nil, errors.ArgNull("variable")
	}
	if err := requireReadable(collection, "collection"); err != nil {
		return nil, err
	}
	elem, err := elementType(collection.Type())
	if err != nil {
		return nil, err
	}
	if !elem.ConvertibleTo(v.typ) {
		return nil, errors.Argf("variable", "cannot convert element of type %s to %s", elem, v.typ)
	}
	l, err := newLoop(nil, body, brk, cont, false)
	if err != nil {
		return nil, err
	}
	return &ForEachStmt{l, v, collection, elem}, nil
}

// enumerator describes the members used to iterate a collection following
// the enumerator pattern.
type enumerator struct {
	getEnumerator *types.Method
	moveNext      *types.Method
	current       *types.Property
	dispose       *types.Method
}

func enumeratorOf(t *types.Type) (*enumerator, error) {
	e := &enumerator{}
	e.getEnumerator = t.NonNullable().Method("GetEnumerator")
	if e.getEnumerator == nil || len(e.getEnumerator.Params()) > 0 || e.getEnumerator.IsStatic() {
		return nil, errors.Argf("collection", "cannot iterate over a value of type %s", t)
	}
	et := e.getEnumerator.Result()
	e.moveNext = et.Method("MoveNext")
	if e.moveNext == nil || len(e.moveNext.Params()) > 0 || e.moveNext.Result() != types.Bool {
		return nil, errors.Argf("collection", "enumerator type %s has no method MoveNext() bool", et)
	}
	e.current = et.Property("Current")
	if e.current == nil || e.current.IsIndexer() || !e.current.CanRead() {
		return nil, errors.Argf("collection", "enumerator type %s has no readable property Current", et)
	}
	if m := et.Method("Dispose"); m != nil && len(m.Params()) == 0 && !m.IsStatic() {
		e.dispose = m
	}
	return e, nil
}

func elementType(t *types.Type) (*types.Type, error) {
	switch {
	case t.Kind() == types.ArrayKind:
		if t.Rank() != 1 {
			return nil, errors.Argf("collection", "cannot iterate over multidimensional array of type %s", t)
		}
		return t.Elem(), nil
	case t == types.String:
		return types.Char, nil
	}
	e, err := enumeratorOf(t)
	if err != nil {
		return nil, err
	}
	return e.current.Type(), nil
}

func (x *ForEachStmt) Kind() Kind               { return ForEachKind }
func (x *ForEachStmt) Variable() *Var           { return x.v }
func (x *ForEachStmt) Collection() Node         { return x.collection }
func (x *ForEachStmt) ElementType() *types.Type { return x.elem }
func (x *ForEachStmt) node()                    {}

func (x *ForEachStmt) Update(brk, cont *LabelTarget, v *Var, collection, body Node) (*ForEachStmt, error) {
	if brk == x.brk && cont == x.cont && v == x.v && collection == x.collection && body == x.body {
		return x, nil
	}
	return ForEach(v, collection, body, brk, cont)
}

// iteration returns a block binding v to elem and evaluating the body.
func (x *ForEachStmt) iteration(elem Node) (Node, error) {
	conv, err := convertIfNeeded(elem, x.v.typ)
	if err != nil {
		return nil, err
	}
	bind, err := AssignTo(x.v, conv)
	if err != nil {
		return nil, err
	}
	return MakeBlock(types.Void, []*Var{x.v}, []Node{bind, x.body})
}

func (x *ForEachStmt) Reduce() (Node, error) {
	t := x.collection.Type()
	if t.Kind() == types.ArrayKind || t == types.String {
		return x.reduceIndexed(t)
	}
	return x.reduceEnumerator(t)
}

// reduceIndexed lowers iteration over arrays and strings to a counting
// loop over the collection held in a temporary.
func (x *ForEachStmt) reduceIndexed(t *types.Type) (Node, error) {
	coll, err := Variable(t, "collection")
	if err != nil {
		return nil, err
	}
	i, err := Variable(types.Int, "i")
	if err != nil {
		return nil, err
	}
	length, err := PropertyByName(coll, "Length")
	if err != nil {
		return nil, err
	}
	var elem Node
	if t == types.String {
		elem, err = IndexProperty(coll, types.String.Property("Chars"), i)
	} else {
		elem, err = ArrayAccess(coll, i)
	}
	if err != nil {
		return nil, err
	}
	iter, err := x.iteration(elem)
	if err != nil {
		return nil, err
	}
	inBounds, err := LessThan(i, length)
	if err != nil {
		return nil, err
	}
	one, err := Constant(1, types.Int)
	if err != nil {
		return nil, err
	}
	next, err := Add(i, one)
	if err != nil {
		return nil, err
	}

	var b lowering
	begin := NewLabel(types.Void, "begin")
	b.add(AssignTo(coll, x.collection))
	b.add(AssignTo(i, Must(Constant(0, types.Int))))
	b.label(begin)
	b.unless(inBounds, x.brk)
	b.add(iter, nil)
	b.label(x.continueTarget())
	b.add(AssignTo(i, next))
	b.jump(begin)
	b.label(x.brk)
	return b.block([]*Var{coll, i})
}

// reduceEnumerator lowers iteration following the enumerator pattern.
func (x *ForEachStmt) reduceEnumerator(t *types.Type) (Node, error) {
	e, err := enumeratorOf(t)
	if err != nil {
		return nil, err
	}
	getEnum, err := CallMethod(x.collection, e.getEnumerator)
	if err != nil {
		return nil, err
	}
	en, err := Variable(getEnum.Type(), "enumerator")
	if err != nil {
		return nil, err
	}
	moveNext, err := CallMethod(en, e.moveNext)
	if err != nil {
		return nil, err
	}
	current, err := Property(en, e.current)
	if err != nil {
		return nil, err
	}
	iter, err := x.iteration(current)
	if err != nil {
		return nil, err
	}

	var inner lowering
	cont := x.continueTarget()
	inner.label(cont)
	inner.unless(moveNext, x.brk)
	inner.add(iter, nil)
	inner.jump(cont)
	inner.label(x.brk)
	body, err := inner.block(nil)
	if err != nil {
		return nil, err
	}
	if e.dispose != nil {
		dispose, err := disposal(en, e.dispose)
		if err != nil {
			return nil, err
		}
		if body, err = TryFinally(body, dispose); err != nil {
			return nil, err
		}
	}
	var b lowering
	b.add(AssignTo(en, getEnum))
	b.add(body, nil)
	return b.block([]*Var{en})
}

// disposal returns a call of dispose on v, guarded by a null test if v
// may be null.
func disposal(v *Var, dispose *types.Method) (Node, error) {
	call, err := CallMethod(v, dispose)
	if err != nil {
		return nil, err
	}
	if !v.typ.IsNullable() {
		return call, nil
	}
	null, err := Null(v.typ)
	if err != nil {
		return nil, err
	}
	test, err := NotEqual(v, null)
	if err != nil {
		return nil, err
	}
	return IfThen(test, call)
}
