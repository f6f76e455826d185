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
)

// A Visitor rewrites nodes. Visit returns the replacement for n, which is n
// itself to keep it. Implementations that only handle some kinds call
// Recurse for the others.
type Visitor interface {
	Visit(n Node) (Node, error)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) (Node, error)

func (f VisitorFunc) Visit(n Node) (Node, error) { return f(n) }

// A LabelVisitor is a Visitor that also rewrites label targets. Recurse
// calls VisitLabel for the targets owned by loops and switches before
// visiting their children, and for every Label and Goto reference. Use a
// LabelMap to make sure all references to a target are rewritten to the
// same new target.
type LabelVisitor interface {
	Visitor
	VisitLabel(l *LabelTarget) (*LabelTarget, error)
}

// A LabelMap memoizes the rewriting of label targets: the rewrite function
// is called once per distinct target, and the result is reused for every
// later reference.
type LabelMap struct {
	m map[*LabelTarget]*LabelTarget
	f func(*LabelTarget) (*LabelTarget, error)
}

// NewLabelMap returns a LabelMap rewriting targets with f.
func NewLabelMap(f func(*LabelTarget) (*LabelTarget, error)) *LabelMap {
	return &LabelMap{m: map[*LabelTarget]*LabelTarget{}, f: f}
}

// Lookup returns the rewritten target for l.
func (m *LabelMap) Lookup(l *LabelTarget) (*LabelTarget, error) {
	if r, ok := m.m[l]; ok {
		return r, nil
	}
	r, err := m.f(l)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.InvalidOpf("label %s rewritten to nil", l)
	}
	m.m[l] = r
	return r, nil
}

// Len reports the number of distinct targets rewritten so far.
func (m *LabelMap) Len() int { return len(m.m) }

// Rewrite calls f for n and, unless f reports that it is done with a node,
// for the children of the node, rebuilding only the nodes whose children
// changed.
func Rewrite(n Node, f func(n Node) (Node, bool, error)) (Node, error) {
	return rewriter(f).Visit(n)
}

type rewriter func(n Node) (Node, bool, error)

func (f rewriter) Visit(n Node) (Node, error) {
	m, done, err := f(n)
	if err != nil {
		return nil, err
	}
	if done {
		return m, nil
	}
	return Recurse(f, n)
}

// recurser visits the children of a node, recording the first error. After
// an error the unchanged children are returned.
type recurser struct {
	v   Visitor
	lv  LabelVisitor
	err error
}

func (r *recurser) node(n Node) Node {
	if r.err != nil || n == nil {
		return n
	}
	m, err := r.v.Visit(n)
	if err != nil {
		r.err = err
		return n
	}
	if m == nil {
		r.err = errors.InvalidOpf("%s rewritten to nil", n.Kind())
		return n
	}
	return m
}

func (r *recurser) nodes(a []Node) []Node {
	var b []Node
	for i, n := range a {
		m := r.node(n)
		if m != n && b == nil {
			b = clone(a)
		}
		if b != nil {
			b[i] = m
		}
	}
	if b == nil {
		return a
	}
	return b
}

func (r *recurser) variable(x *Var) *Var {
	if x == nil {
		return nil
	}
	m := r.node(x)
	v, ok := m.(*Var)
	if !ok {
		if r.err == nil {
			r.err = errors.InvalidOpf("variable %s rewritten to %s", x, m.Kind())
		}
		return x
	}
	return v
}

func (r *recurser) vars(a []*Var) []*Var {
	var b []*Var
	for i, x := range a {
		v := r.variable(x)
		if v != x && b == nil {
			b = clone(a)
		}
		if b != nil {
			b[i] = v
		}
	}
	if b == nil {
		return a
	}
	return b
}

func (r *recurser) label(l *LabelTarget) *LabelTarget {
	if r.err != nil || l == nil || r.lv == nil {
		return l
	}
	m, err := r.lv.VisitLabel(l)
	if err != nil {
		r.err = err
		return l
	}
	return m
}

func (r *recurser) args(a []*ParameterAssignment) []*ParameterAssignment {
	var b []*ParameterAssignment
	for i, x := range a {
		y, err := x.Update(r.node(x.value))
		if err != nil && r.err == nil {
			r.err = err
		}
		if r.err != nil {
			return a
		}
		if y != x && b == nil {
			b = clone(a)
		}
		if b != nil {
			b[i] = y
		}
	}
	if b == nil {
		return a
	}
	return b
}

func (r *recurser) handlers(a []*CatchBlock) []*CatchBlock {
	var b []*CatchBlock
	for i, c := range a {
		v := r.variable(c.v)
		filter := r.node(c.filter)
		body := r.node(c.body)
		if r.err != nil {
			return a
		}
		d, err := c.Update(v, filter, body)
		if err != nil {
			r.err = err
			return a
		}
		if d != c && b == nil {
			b = clone(a)
		}
		if b != nil {
			b[i] = d
		}
	}
	if b == nil {
		return a
	}
	return b
}

func (r *recurser) cases(a []*SwitchCase) []*SwitchCase {
	var b []*SwitchCase
	for i, c := range a {
		body := r.nodes(c.body)
		if r.err != nil {
			return a
		}
		d, err := c.Update(body)
		if err != nil {
			r.err = err
			return a
		}
		if d != c && b == nil {
			b = clone(a)
		}
		if b != nil {
			b[i] = d
		}
	}
	if b == nil {
		return a
	}
	return b
}

// result returns n unless an error occurred while visiting the children or
// rebuilding the node.
func (r *recurser) result(n Node, err error) (Node, error) {
	if r.err != nil {
		return nil, r.err
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Recurse visits the children of n with v and rebuilds n with the results
// using its Update method. If no child changed, n itself is returned.
func Recurse(v Visitor, n Node) (Node, error) {
	r := &recurser{v: v}
	r.lv, _ = v.(LabelVisitor)

	switch x := n.(type) {
	case *Const, *Default, *Var, *ConditionalReceiver, *GotoCaseStmt, *GotoDefaultStmt:
		return n, nil

	case *Block:
		return r.result(x.Update(r.vars(x.vars), r.nodes(x.exprs)))

	case *Label:
		return r.result(x.Update(r.label(x.target), r.node(x.def)))

	case *Goto:
		return r.result(x.Update(r.label(x.target), r.node(x.value)))

	case *Cond:
		return r.result(x.Update(r.node(x.test), r.node(x.then), r.node(x.els)))

	case *Try:
		return r.result(x.Update(r.node(x.body), r.handlers(x.handlers), r.node(x.finally)))

	case *Throw:
		return r.result(x.Update(r.node(x.value)))

	case *Assign:
		return r.result(x.Update(r.node(x.left), r.node(x.right)))

	case *Member:
		return r.result(x.Update(r.node(x.x)))

	case *Call:
		return r.result(x.Update(r.node(x.x), r.nodes(x.args)))

	case *New:
		return r.result(x.Update(r.nodes(x.args)))

	case *Invoke:
		return r.result(x.Update(r.node(x.fn), r.nodes(x.args)))

	case *Index:
		return r.result(x.Update(r.node(x.x), r.nodes(x.args)))

	case *NewArray:
		return r.result(x.Update(r.nodes(x.exprs)))

	case *Unary:
		return r.result(x.Update(r.node(x.x)))

	case *Binary:
		return r.result(x.Update(r.node(x.x), r.node(x.y)))

	case *Convert:
		return r.result(x.Update(r.node(x.x)))

	case *Lambda:
		return r.result(x.Update(r.node(x.body), r.vars(x.params)))

	case *CallExpr:
		return r.result(x.Update(r.node(x.x), r.args(x.args)))

	case *NewExpr:
		return r.result(x.Update(r.args(x.args)))

	case *InvokeExpr:
		return r.result(x.Update(r.node(x.fn), r.args(x.args)))

	case *IndexExpr:
		return r.result(x.Update(r.node(x.x), r.args(x.args)))

	case *ArrayInitExpr:
		return r.result(x.Update(r.nodes(x.exprs)))

	case *AwaitExpr:
		return r.result(x.Update(r.node(x.x)))

	case *AsyncLambda:
		return r.result(x.Update(r.node(x.body), r.vars(x.params)))

	case *ConditionalMember:
		return r.result(x.Update(r.node(x.receiver)))

	case *ConditionalCall:
		return r.result(x.Update(r.node(x.receiver), r.args(x.args)))

	case *ConditionalIndex:
		return r.result(x.Update(r.node(x.receiver), r.args(x.args)))

	case *ConditionalInvoke:
		return r.result(x.Update(r.node(x.receiver), r.args(x.args)))

	case *ConditionalAccess:
		return r.result(x.Update(r.node(x.receiver), r.node(x.whenNotNull)))

	case *WhileStmt:
		brk, cont := r.label(x.brk), r.label(x.cont)
		return r.result(x.Update(brk, cont, r.node(x.test), r.node(x.body)))

	case *DoStmt:
		brk, cont := r.label(x.brk), r.label(x.cont)
		return r.result(x.Update(brk, cont, r.node(x.body), r.node(x.test)))

	case *ForStmt:
		brk, cont := r.label(x.brk), r.label(x.cont)
		vars := r.vars(x.vars)
		inits := r.nodes(x.inits)
		test := r.node(x.test)
		iters := r.nodes(x.iters)
		return r.result(x.Update(brk, cont, vars, inits, test, iters, r.node(x.body)))

	case *ForEachStmt:
		brk, cont := r.label(x.brk), r.label(x.cont)
		v := r.variable(x.v)
		return r.result(x.Update(brk, cont, v, r.node(x.collection), r.node(x.body)))

	case *SwitchStmt:
		brk := r.label(x.brk)
		vars := r.vars(x.vars)
		value := r.node(x.value)
		return r.result(x.Update(brk, vars, value, r.cases(x.cases)))

	case *UsingStmt:
		v := r.variable(x.v)
		return r.result(x.Update(v, r.node(x.resource), r.node(x.body)))

	case *AssignBinary:
		return r.result(x.Update(r.node(x.left), r.node(x.right)))
	}
	panic(fmt.Sprintf("expr: unknown node type %T", n))
}

// Children returns the direct sub-expressions of n in evaluation order,
// including catch filters and bodies and the statements of switch
// sections. Declared variables are not included.
func Children(n Node) []Node {
	var a []Node
	add := func(ns ...Node) {
		for _, n := range ns {
			if n != nil {
				a = append(a, n)
			}
		}
	}
	addArgs := func(args []*ParameterAssignment) {
		for _, x := range args {
			add(x.value)
		}
	}
	switch x := n.(type) {
	case *Const, *Default, *Var, *ConditionalReceiver, *GotoCaseStmt, *GotoDefaultStmt:
	case *Block:
		add(x.exprs...)
	case *Label:
		add(x.def)
	case *Goto:
		add(x.value)
	case *Cond:
		add(x.test, x.then, x.els)
	case *Try:
		add(x.body)
		for _, h := range x.handlers {
			add(h.filter, h.body)
		}
		add(x.finally)
	case *Throw:
		add(x.value)
	case *Assign:
		add(x.left, x.right)
	case *Member:
		add(x.x)
	case *Call:
		add(x.x)
		add(x.args...)
	case *New:
		add(x.args...)
	case *Invoke:
		add(x.fn)
		add(x.args...)
	case *Index:
		add(x.x)
		add(x.args...)
	case *NewArray:
		add(x.exprs...)
	case *Unary:
		add(x.x)
	case *Binary:
		add(x.x, x.y)
	case *Convert:
		add(x.x)
	case *Lambda:
		add(x.body)
	case *CallExpr:
		add(x.x)
		addArgs(x.args)
	case *NewExpr:
		addArgs(x.args)
	case *InvokeExpr:
		add(x.fn)
		addArgs(x.args)
	case *IndexExpr:
		add(x.x)
		addArgs(x.args)
	case *ArrayInitExpr:
		add(x.exprs...)
	case *AwaitExpr:
		add(x.x)
	case *AsyncLambda:
		add(x.body)
	case *ConditionalMember:
		add(x.receiver)
	case *ConditionalCall:
		add(x.receiver)
		addArgs(x.args)
	case *ConditionalIndex:
		add(x.receiver)
		addArgs(x.args)
	case *ConditionalInvoke:
		add(x.receiver)
		addArgs(x.args)
	case *ConditionalAccess:
		add(x.receiver, x.whenNotNull)
	case *WhileStmt:
		add(x.test, x.body)
	case *DoStmt:
		add(x.body, x.test)
	case *ForStmt:
		add(x.inits...)
		add(x.test, x.body)
		add(x.iters...)
	case *ForEachStmt:
		add(x.collection, x.body)
	case *SwitchStmt:
		add(x.value)
		for _, c := range x.cases {
			add(c.body...)
		}
	case *UsingStmt:
		add(x.resource, x.body)
	case *AssignBinary:
		add(x.left, x.right)
	default:
		panic(fmt.Sprintf("expr: unknown node type %T", n))
	}
	return a
}

// Walk traverses the tree rooted at n in depth-first order. It calls
// before for each node; if before returns false, the children of the node
// are skipped. The after function, if not nil, is called once all children
// of a node have been visited.
func Walk(n Node, before func(Node) bool, after func(Node)) {
	if before != nil && !before(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, before, after)
	}
	if after != nil {
		after(n)
	}
}

// Inspect traverses the tree rooted at n, calling f for each node. If f
// returns false, the children of the node are skipped.
func Inspect(n Node, f func(Node) bool) {
	Walk(n, f, nil)
}
