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

// An AwaitExpr suspends the enclosing AsyncLambda until its operand, a
// task, has completed and yields the task's result.
type AwaitExpr struct {
	x   Node
	typ *types.Type
}

// Await returns an await of operand, which must be of a task type.
func Await(operand Node) (*AwaitExpr, error) {
	if err := requireReadable(operand, "operand"); err != nil {
		return nil, err
	}
	t := operand.Type()
	if t.Kind() != types.TaskKind {
		return nil, errors.Argf("operand", "cannot await a value of type %s", t)
	}
	return &AwaitExpr{x: operand, typ: t.Elem()}, nil
}

func (x *AwaitExpr) Kind() Kind        { return AwaitKind }
func (x *AwaitExpr) Type() *types.Type { return x.typ }
func (x *AwaitExpr) Operand() Node     { return x.x }
func (x *AwaitExpr) node()             {}

func (x *AwaitExpr) Update(operand Node) (*AwaitExpr, error) {
	if operand == x.x {
		return x, nil
	}
	return Await(operand)
}

// Reduce reports an error: an await is only lowered as part of its
// enclosing AsyncLambda.
func (x *AwaitExpr) Reduce() (Node, error) {
	return nil, errors.InvalidOpf("await outside of an async lambda")
}

// An AsyncLambda is a lambda whose body may contain AwaitExpr nodes. Calling
// it runs the body until the first await of an incomplete task and returns a
// task that completes with the value of the body.
type AsyncLambda struct {
	name   string
	params []*Var
	body   Node
	typ    *types.Type
}

// NewAsyncLambda returns an anonymous async lambda.
func NewAsyncLambda(body Node, params ...*Var) (*AsyncLambda, error) {
	return MakeAsyncLambda("", body, params)
}

// MakeAsyncLambda returns an async lambda of type
// func(params) Task<body.Type()>.
func MakeAsyncLambda(name string, body Node, params []*Var) (*AsyncLambda, error) {
	if body == nil {
		return nil, errors.ArgNull("body")
	}
	if err := checkVars(params, "params"); err != nil {
		return nil, err
	}
	t := types.FuncOf(types.TaskOf(body.Type()), lambdaParams(params)...)
	return &AsyncLambda{name: name, params: clone(params), body: body, typ: t}, nil
}

func (x *AsyncLambda) Kind() Kind        { return AsyncLambdaKind }
func (x *AsyncLambda) Type() *types.Type { return x.typ }
func (x *AsyncLambda) Name() string      { return x.name }
func (x *AsyncLambda) Params() []*Var    { return x.params }
func (x *AsyncLambda) Body() Node        { return x.body }
func (x *AsyncLambda) node()             {}

// ResultType reports the type of the value the returned task produces.
func (x *AsyncLambda) ResultType() *types.Type { return x.typ.Result().Elem() }

func (x *AsyncLambda) Update(body Node, params []*Var) (*AsyncLambda, error) {
	if body == x.body && sameVars(params, x.params) {
		return x, nil
	}
	return MakeAsyncLambda(x.name, body, params)
}

// Reduce lowers the async lambda to a lambda that creates a task source,
// runs a resumable state machine and returns the source's task.
//
// All locals of the body, the state and any temporaries are hoisted into
// the returned lambda, so that they survive suspension. The body is
// rewritten as a list of statements in which every await appears at
// statement level as a suspension point:
//
//	awaiter = operand
//	if !awaiter.IsCompleted { state = k; awaiter.OnCompleted(moveNext); goto exit }
//	resume_k:
//	state = -1
//	v = awaiter.GetResult()
//
// Values computed before an await within the same expression are spilled
// to temporaries first. moveNext dispatches on the state to the resume
// label and reports completion or failure to the task source.
func (x *AsyncLambda) Reduce() (Node, error) {
	body, err := (&reducer{keepAwait: true}).Visit(x.body)
	if err != nil {
		return nil, err
	}
	a, err := newAsyncLowering(x.ResultType())
	if err != nil {
		return nil, err
	}
	if body, err = (&devaluer{a: a, slots: map[*LabelTarget]*labelSlot{}}).Visit(body); err != nil {
		return nil, err
	}
	if body, err = (hoister{a}).Visit(body); err != nil {
		return nil, err
	}
	stmts, err := a.tail(body)
	if err != nil {
		return nil, err
	}
	return a.build(x, stmts)
}

type asyncLowering struct {
	result   *types.Type
	resultV  *Var // nil for Void results
	state    *Var
	source   *Var
	moveNext *Var
	exit     *LabelTarget
	resume   []*LabelTarget
	hoisted  []*Var
	seen     map[*Var]bool
}

func newAsyncLowering(result *types.Type) (*asyncLowering, error) {
	a := &asyncLowering{
		result: result,
		exit:   NewLabel(types.Void, "exit"),
		seen:   map[*Var]bool{},
	}
	var err error
	if a.state, err = a.temp(types.Int, "state"); err != nil {
		return nil, err
	}
	if a.source, err = a.temp(types.TaskSourceOf(result), "source"); err != nil {
		return nil, err
	}
	if a.moveNext, err = a.temp(types.FuncOf(types.Void), "moveNext"); err != nil {
		return nil, err
	}
	if result != types.Void {
		if a.resultV, err = a.temp(result, "result"); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *asyncLowering) hoist(vars ...*Var) {
	for _, v := range vars {
		if !a.seen[v] {
			a.seen[v] = true
			a.hoisted = append(a.hoisted, v)
		}
	}
}

// temp returns a new hoisted variable.
func (a *asyncLowering) temp(t *types.Type, name string) (*Var, error) {
	v, err := Variable(t, name)
	if err != nil {
		return nil, err
	}
	a.hoist(v)
	return v, nil
}

// absorb moves the temporaries and assignments of s into the hoisted
// state and pre.
func (a *asyncLowering) absorb(pre []Node, s *spill) []Node {
	a.hoist(s.vars...)
	return append(pre, s.stmts...)
}

// build assembles the outer lambda around the rewritten body statements.
func (a *asyncLowering) build(x *AsyncLambda, stmts []Node) (Node, error) {
	var l lowering
	for k, resume := range a.resume {
		test, err := Equal(a.state, Must(Constant(k, types.Int)))
		if err != nil {
			return nil, err
		}
		l.add(IfThen(test, Must(GotoLabel(resume))))
	}
	l.stmts = append(l.stmts, stmts...)
	if a.resultV != nil {
		l.add(CallByName(a.source, "SetResult", a.resultV))
	} else {
		l.add(CallByName(a.source, "SetResult"))
	}

	ex, err := Variable(types.ExceptionType, "ex")
	if err != nil {
		return nil, err
	}
	var fail lowering
	fail.add(AssignTo(a.state, Must(Constant(-2, types.Int))))
	fail.add(CallByName(a.source, "SetException", ex))

	var step lowering
	step.add(TryCatch(Must(MakeBlock(types.Void, nil, l.stmts)),
		Must(Catch(ex, Must(MakeBlock(types.Void, nil, fail.stmts))))))
	step.label(a.exit)
	if err := firstErr(l.err, fail.err, step.err); err != nil {
		return nil, err
	}
	moveNext, err := MakeLambda(types.FuncOf(types.Void), "moveNext", Must(MakeBlock(types.Void, nil, step.stmts)), nil)
	if err != nil {
		return nil, err
	}

	var outer lowering
	outer.add(AssignTo(a.source, Must(NewObject(a.source.Type().Constructor(0)))))
	outer.add(AssignTo(a.state, Must(Constant(-1, types.Int))))
	outer.add(AssignTo(a.moveNext, moveNext))
	outer.add(InvokeFunc(a.moveNext))
	outer.add(PropertyByName(a.source, "Task"))
	if outer.err != nil {
		return nil, outer.err
	}
	body, err := MakeBlock(x.typ.Result(), a.hoisted, outer.stmts)
	if err != nil {
		return nil, err
	}
	return MakeLambda(x.typ, x.name, body, x.params)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// suspend returns the statements of a suspension point awaiting op. The
// result is assigned to dst if it is not nil.
func (a *asyncLowering) suspend(op Node, dst Node) ([]Node, error) {
	k := len(a.resume)
	resume := NewLabel(types.Void, fmt.Sprintf("resume%d", k))
	a.resume = append(a.resume, resume)
	aw, err := a.temp(op.Type(), "awaiter")
	if err != nil {
		return nil, err
	}

	var park lowering
	park.add(AssignTo(a.state, Must(Constant(k, types.Int))))
	park.add(CallByName(aw, "OnCompleted", a.moveNext))
	park.jump(a.exit)

	var l lowering
	l.add(AssignTo(aw, op))
	if park.err != nil {
		return nil, park.err
	}
	done, err := PropertyByName(aw, "IsCompleted")
	if err != nil {
		return nil, err
	}
	l.add(IfThen(Must(Not(done)), Must(MakeBlock(types.Void, nil, park.stmts))))
	l.label(resume)
	l.add(AssignTo(a.state, Must(Constant(-1, types.Int))))
	get, err := CallByName(aw, "GetResult")
	if err != nil {
		return nil, err
	}
	if dst != nil {
		l.add(AssignTo(dst, get))
	} else {
		l.add(get, nil)
	}
	return l.stmts, l.err
}

// tail returns statements that evaluate n and store its value in the
// result variable.
func (a *asyncLowering) tail(n Node) ([]Node, error) {
	if a.resultV == nil || n.Type() == types.Void {
		return a.stmt(n)
	}
	switch x := n.(type) {
	case *Block:
		var out []Node
		last := len(x.exprs) - 1
		for _, e := range x.exprs[:last] {
			s, err := a.stmt(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		s, err := a.tail(x.exprs[last])
		if err != nil {
			return nil, err
		}
		return append(out, s...), nil

	case *Cond:
		pre, test, err := a.expr(x.test)
		if err != nil {
			return nil, err
		}
		then, err := a.tailBlock(x.then)
		if err != nil {
			return nil, err
		}
		els, err := a.tailBlock(x.els)
		if err != nil {
			return nil, err
		}
		c, err := IfThenElse(test, then, els)
		if err != nil {
			return nil, err
		}
		return append(pre, c), nil
	}
	pre, e, err := a.expr(n)
	if err != nil {
		return nil, err
	}
	assign, err := AssignTo(a.resultV, e)
	if err != nil {
		return nil, err
	}
	return append(pre, assign), nil
}

func (a *asyncLowering) tailBlock(n Node) (Node, error) {
	stmts, err := a.tail(n)
	if err != nil {
		return nil, err
	}
	return voidBlock(stmts)
}

func voidBlock(stmts []Node) (Node, error) {
	if len(stmts) == 1 && stmts[0].Type() == types.Void {
		return stmts[0], nil
	}
	if len(stmts) == 0 {
		return Empty(), nil
	}
	return MakeBlock(types.Void, nil, stmts)
}

// stmt rewrites n, whose value is discarded, as a list of statements.
func (a *asyncLowering) stmt(n Node) ([]Node, error) {
	if !containsAwait(n) {
		return []Node{n}, nil
	}
	switch x := n.(type) {
	case *Block:
		var out []Node
		for _, e := range x.exprs {
			s, err := a.stmt(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		b, err := voidBlock(out)
		if err != nil {
			return nil, err
		}
		return []Node{b}, nil

	case *Cond:
		pre, test, err := a.expr(x.test)
		if err != nil {
			return nil, err
		}
		then, err := a.stmtBlock(x.then)
		if err != nil {
			return nil, err
		}
		els, err := a.stmtBlock(x.els)
		if err != nil {
			return nil, err
		}
		c, err := IfThenElse(test, then, els)
		if err != nil {
			return nil, err
		}
		return append(pre, c), nil

	case *AwaitExpr:
		pre, op, err := a.expr(x.x)
		if err != nil {
			return nil, err
		}
		s, err := a.suspend(op, nil)
		if err != nil {
			return nil, err
		}
		return append(pre, s...), nil

	case *Assign:
		if aw, ok := x.right.(*AwaitExpr); ok && !containsAwait(x.left) {
			if _, ok := x.left.(*Var); ok {
				pre, op, err := a.expr(aw.x)
				if err != nil {
					return nil, err
				}
				s, err := a.suspend(op, x.left)
				if err != nil {
					return nil, err
				}
				return append(pre, s...), nil
			}
		}
	}
	pre, e, err := a.expr(n)
	if err != nil {
		return nil, err
	}
	if e != Node(empty) {
		pre = append(pre, e)
	}
	return pre, nil
}

func (a *asyncLowering) stmtBlock(n Node) (Node, error) {
	stmts, err := a.stmt(n)
	if err != nil {
		return nil, err
	}
	return voidBlock(stmts)
}

// expr rewrites n as a list of statements followed by an await-free
// expression with the same value.
func (a *asyncLowering) expr(n Node) ([]Node, Node, error) {
	if !containsAwait(n) {
		return nil, n, nil
	}
	switch x := n.(type) {
	case *AwaitExpr:
		pre, op, err := a.expr(x.x)
		if err != nil {
			return nil, nil, err
		}
		if x.typ == types.Void {
			s, err := a.suspend(op, nil)
			return append(pre, s...), empty, err
		}
		v, err := a.temp(x.typ, "awaited")
		if err != nil {
			return nil, nil, err
		}
		s, err := a.suspend(op, v)
		return append(pre, s...), v, err

	case *Block:
		if x.typ == types.Void {
			s, err := a.stmt(x)
			return s, empty, err
		}
		var pre []Node
		last := len(x.exprs) - 1
		for _, e := range x.exprs[:last] {
			s, err := a.stmt(e)
			if err != nil {
				return nil, nil, err
			}
			pre = append(pre, s...)
		}
		s, e, err := a.expr(x.exprs[last])
		if err != nil {
			return nil, nil, err
		}
		if e, err = convertIfNeeded(e, x.typ); err != nil {
			return nil, nil, err
		}
		return append(pre, s...), e, nil

	case *Cond:
		if x.typ == types.Void {
			s, err := a.stmt(x)
			return s, empty, err
		}
		pre, test, err := a.expr(x.test)
		if err != nil {
			return nil, nil, err
		}
		v, err := a.temp(x.typ, "cond")
		if err != nil {
			return nil, nil, err
		}
		then, err := a.assignBlock(v, x.then)
		if err != nil {
			return nil, nil, err
		}
		els, err := a.assignBlock(v, x.els)
		if err != nil {
			return nil, nil, err
		}
		c, err := IfThenElse(test, then, els)
		if err != nil {
			return nil, nil, err
		}
		return append(pre, c), v, nil

	case *Binary:
		if (x.op == AndAlsoOp || x.op == OrElseOp) && containsAwait(x.y) {
			return a.shortCircuit(x)
		}

	case *Assign:
		pre, left, err := a.expr(x.left)
		if err != nil {
			return nil, nil, err
		}
		right := x.right
		if containsAwait(right) {
			s := &spill{}
			if left, err = s.location(left); err != nil {
				return nil, nil, err
			}
			pre = a.absorb(pre, s)
			var p []Node
			if p, right, err = a.expr(right); err != nil {
				return nil, nil, err
			}
			pre = append(pre, p...)
		}
		assign, err := AssignTo(left, right)
		if err != nil {
			return nil, nil, err
		}
		return pre, assign, nil

	case *Try:
		return nil, nil, errors.InvalidOpf("await cannot be used inside try, catch or finally blocks")
	}
	return a.operands(n)
}

// assignBlock returns a statement that evaluates n into v.
func (a *asyncLowering) assignBlock(v *Var, n Node) (Node, error) {
	pre, e, err := a.expr(n)
	if err != nil {
		return nil, err
	}
	assign, err := AssignTo(v, e)
	if err != nil {
		return nil, err
	}
	return voidBlock(append(pre, assign))
}

// shortCircuit rewrites x && y or x || y where y contains an await.
func (a *asyncLowering) shortCircuit(x *Binary) ([]Node, Node, error) {
	pre, left, err := a.expr(x.x)
	if err != nil {
		return nil, nil, err
	}
	v, err := a.temp(types.Bool, "cond")
	if err != nil {
		return nil, nil, err
	}
	var l lowering
	l.stmts = pre
	l.add(AssignTo(v, left))
	right, err := a.assignBlock(v, x.y)
	if err != nil {
		return nil, nil, err
	}
	var test Node = v
	if x.op == OrElseOp {
		test = Must(Not(v))
	}
	l.add(IfThen(test, right))
	return l.stmts, v, l.err
}

// operands rewrites a node whose children are evaluated in order. Children
// that precede the last child containing an await are evaluated into
// temporaries first; by-ref arguments and receivers of value types only
// have their location parts evaluated.
func (a *asyncLowering) operands(n Node) ([]Node, Node, error) {
	kids := Children(n)
	last := -1
	for i, c := range kids {
		if containsAwait(c) {
			last = i
		}
	}
	refs := locationOperands(n)
	repl := map[Node]Node{}
	var pre []Node
	for i, c := range kids[:last] {
		s := &spill{}
		var r Node
		var err error
		switch {
		case refs[i]:
			r, err = s.location(c)
		case isStable(c):
			continue
		default:
			r, err = s.value(c, "spill")
		}
		if err != nil {
			return nil, nil, err
		}
		pre = a.absorb(pre, s)
		repl[c] = r
	}
	p, e, err := a.expr(kids[last])
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, p...)
	repl[kids[last]] = e
	m, err := Recurse(VisitorFunc(func(c Node) (Node, error) {
		if r, ok := repl[c]; ok {
			return r, nil
		}
		return c, nil
	}), n)
	if err != nil {
		return nil, nil, err
	}
	return pre, m, nil
}

// isStable reports whether evaluating n later yields the same value.
func isStable(n Node) bool {
	switch n.(type) {
	case *Const, *Default, *Lambda:
		return true
	}
	return false
}

// locationOperands reports the positions, as returned by Children, of
// operands of n that are passed by reference.
func locationOperands(n Node) map[int]bool {
	refs := map[int]bool{}
	recv := func(x Node) int {
		if x == nil {
			return 0
		}
		if x.Type().IsValueType() && isLocation(x) {
			refs[0] = true
		}
		return 1
	}
	params := func(offset int, ps []*types.Parameter) {
		for i, p := range ps {
			if p.IsByRef() {
				refs[offset+i] = true
			}
		}
	}
	switch x := n.(type) {
	case *Call:
		params(recv(x.x), x.method.Params())
	case *New:
		params(0, x.ctor.Params())
	case *Invoke:
		params(1, x.fn.Type().Params())
	case *Index:
		recv(x.x)
	}
	return refs
}

// containsAwait reports whether n contains an await that belongs to the
// enclosing async lambda.
func containsAwait(n Node) bool {
	found := false
	Inspect(n, func(n Node) bool {
		switch n.(type) {
		case *AwaitExpr:
			found = true
		case *Lambda, *AsyncLambda:
			return false
		}
		return !found
	})
	return found
}

// A hoister removes the variable declarations from all blocks outside
// nested lambdas and records them as hoisted. It rejects awaits in try
// regions.
type hoister struct{ a *asyncLowering }

func (h hoister) Visit(n Node) (Node, error) {
	switch x := n.(type) {
	case *Lambda:
		return x, nil
	case *Try:
		if containsAwait(x) {
			return nil, errors.InvalidOpf("await cannot be used inside try, catch or finally blocks")
		}
		return x, nil
	case *Block:
		m, err := Recurse(h, x)
		if err != nil {
			return nil, err
		}
		b := m.(*Block)
		if len(b.vars) == 0 {
			return b, nil
		}
		h.a.hoist(b.vars...)
		return MakeBlock(b.typ, nil, b.exprs)
	}
	return Recurse(h, n)
}

// A devaluer replaces labels carrying a value with void labels and a
// hoisted variable holding the value, so that labels can appear at
// statement level.
type devaluer struct {
	a     *asyncLowering
	slots map[*LabelTarget]*labelSlot
}

type labelSlot struct {
	target *LabelTarget
	v      *Var
}

func (d *devaluer) slot(l *LabelTarget) (*labelSlot, error) {
	if s, ok := d.slots[l]; ok {
		return s, nil
	}
	v, err := d.a.temp(l.Type(), l.Name())
	if err != nil {
		return nil, err
	}
	s := &labelSlot{NewLabel(types.Void, l.Name()), v}
	d.slots[l] = s
	return s, nil
}

func (d *devaluer) Visit(n Node) (Node, error) {
	switch x := n.(type) {
	case *Lambda:
		return x, nil

	case *Label:
		if x.target.Type() == types.Void {
			return Recurse(d, x)
		}
		m, err := Recurse(d, x)
		if err != nil {
			return nil, err
		}
		x = m.(*Label)
		s, err := d.slot(x.target)
		if err != nil {
			return nil, err
		}
		init := x.def
		if init == nil {
			init = Must(DefaultOf(x.target.Type()))
		}
		var l lowering
		l.add(AssignTo(s.v, init))
		l.label(s.target)
		l.stmts = append(l.stmts, s.v)
		if l.err != nil {
			return nil, l.err
		}
		return MakeBlock(x.target.Type(), nil, l.stmts)

	case *Goto:
		if x.target.Type() == types.Void {
			return x, nil
		}
		m, err := Recurse(d, x)
		if err != nil {
			return nil, err
		}
		x = m.(*Goto)
		s, err := d.slot(x.target)
		if err != nil {
			return nil, err
		}
		var l lowering
		l.add(AssignTo(s.v, x.value))
		l.add(MakeGoto(x.kind, s.target, nil, x.typ))
		if l.err != nil {
			return nil, l.err
		}
		return MakeBlock(x.typ, nil, l.stmts)
	}
	return Recurse(d, n)
}
