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

package yaml

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

var binaryOps = map[string]expr.BinaryOp{
	"add":     expr.AddOp,
	"sub":     expr.SubtractOp,
	"mul":     expr.MultiplyOp,
	"div":     expr.DivideOp,
	"mod":     expr.ModuloOp,
	"and":     expr.AndOp,
	"or":      expr.OrOp,
	"xor":     expr.XorOp,
	"andalso": expr.AndAlsoOp,
	"orelse":  expr.OrElseOp,
	"eq":      expr.EqualOp,
	"ne":      expr.NotEqualOp,
	"lt":      expr.LessOp,
	"le":      expr.LessEqualOp,
	"gt":      expr.GreaterOp,
	"ge":      expr.GreaterEqualOp,
}

// mapping decodes an operation. The first key of n names the operation and
// its value is the main operand.
func (s *state) mapping(n *yaml.Node) (expr.Node, error) {
	if len(n.Content) == 0 {
		return nil, s.errf(n, "empty mapping")
	}
	key, arg := n.Content[0], n.Content[1]
	if op, ok := binaryOps[key.Value]; ok {
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		x, y, err := s.pair(arg)
		if err != nil {
			return nil, err
		}
		return result(expr.MakeBinary(op, x, y))
	}
	switch key.Value {
	case "not", "neg":
		return s.unary(n, key.Value, arg)
	case "var":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		return s.lookup(arg, arg.Value)
	case "const":
		return s.constant(n, arg)
	case "null":
		return s.typed(n, arg, func(t *types.Type) (expr.Node, error) {
			return result(expr.Null(t))
		})
	case "default":
		return s.typed(n, arg, func(t *types.Type) (expr.Node, error) {
			return result(expr.DefaultOf(t))
		})
	case "convert":
		return s.convert(n, arg)
	case "block":
		return s.block(n, arg)
	case "assign":
		return s.assign(n, arg)
	case "if", "cond":
		return s.cond(n, key.Value, arg)
	case "while":
		return s.while(n, arg)
	case "do":
		return s.do(n, arg)
	case "for":
		return s.forLoop(n, arg)
	case "foreach":
		return s.forEach(n, arg)
	case "switch":
		return s.switchStmt(n, arg)
	case "gotocase":
		return s.gotoCase(n, arg)
	case "gotodefault":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		return expr.GotoDefault(), nil
	case "label":
		return s.label(n, arg)
	case "goto", "break", "continue", "return":
		return s.jump(n, key.Value, arg)
	case "call":
		return s.call(n, arg)
	case "new":
		return s.newObject(n, arg)
	case "invoke":
		return s.invoke(n, arg)
	case "member":
		return s.member(n, arg)
	case "index":
		return s.index(n, arg)
	case "chain":
		return s.chain(n, arg)
	case "newarray":
		return s.newArray(n, arg)
	case "arrayinit":
		return s.arrayInit(n, arg)
	case "lambda", "async":
		return s.lambda(n, key.Value == "async", arg)
	case "await":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		x, err := s.node(arg)
		if err != nil {
			return nil, err
		}
		return result(expr.Await(x))
	case "throw":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		x, err := s.node(arg)
		if err != nil {
			return nil, err
		}
		return result(expr.ThrowValue(x))
	case "rethrow":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		return expr.Rethrow(), nil
	case "try":
		return s.try(n, arg)
	case "using":
		return s.using(n, arg)
	}
	return nil, s.errf(key, "unknown operation %s", key.Value)
}

// optional decodes n, or returns an empty expression if n is nil.
func (s *state) optional(n *yaml.Node) (expr.Node, error) {
	if n == nil {
		return expr.Empty(), nil
	}
	return s.node(n)
}

func (s *state) unary(n *yaml.Node, op string, arg *yaml.Node) (expr.Node, error) {
	if _, err := s.fields(n, 2); err != nil {
		return nil, err
	}
	x, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	if op == "not" {
		return result(expr.Not(x))
	}
	return result(expr.Negate(x))
}

func (s *state) constant(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "type")
	if err != nil {
		return nil, err
	}
	if f["type"] == nil {
		v, err := s.scalar(arg)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, s.errf(arg, "null constant requires a type")
		}
		return result(expr.ConstOf(v))
	}
	t, err := s.typ(f["type"])
	if err != nil {
		return nil, err
	}
	v, err := s.value(arg, t)
	if err != nil {
		return nil, err
	}
	return result(expr.Constant(v, t))
}

func (s *state) typed(n, arg *yaml.Node, mk func(*types.Type) (expr.Node, error)) (expr.Node, error) {
	if _, err := s.fields(n, 2); err != nil {
		return nil, err
	}
	t, err := s.typ(arg)
	if err != nil {
		return nil, err
	}
	return mk(t)
}

func (s *state) convert(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "type")
	if err != nil {
		return nil, err
	}
	if f["type"] == nil {
		return nil, s.errf(n, "convert requires a type")
	}
	t, err := s.typ(f["type"])
	if err != nil {
		return nil, err
	}
	x, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	return result(expr.ConvertTo(x, t))
}

func (s *state) block(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "vars", "type")
	if err != nil {
		return nil, err
	}
	var t *types.Type
	if f["type"] != nil {
		if t, err = s.typ(f["type"]); err != nil {
			return nil, err
		}
	}
	vars, err := s.vars(f["vars"])
	if err != nil {
		return nil, err
	}
	s.push(vars...)
	defer s.pop()
	exprs, err := s.nodes(arg)
	if err != nil {
		return nil, err
	}
	return result(expr.MakeBlock(t, vars, exprs))
}

func (s *state) assign(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "op")
	if err != nil {
		return nil, err
	}
	left, right, err := s.pair(arg)
	if err != nil {
		return nil, err
	}
	if opn := f["op"]; opn != nil {
		op, ok := binaryOps[opn.Value]
		if !ok {
			return nil, s.errf(opn, "unknown operator %s", opn.Value)
		}
		return result(expr.MakeAssignBinary(op, left, right))
	}
	if _, ok := left.(*expr.IndexExpr); ok {
		return result(expr.AssignLocation(left, right))
	}
	return result(expr.AssignTo(left, right))
}

func (s *state) cond(n *yaml.Node, op string, arg *yaml.Node) (expr.Node, error) {
	allowed := []string{"then", "else"}
	if op == "cond" {
		allowed = append(allowed, "type")
	}
	f, err := s.fields(n, 2, allowed...)
	if err != nil {
		return nil, err
	}
	test, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	if f["then"] == nil {
		return nil, s.errf(n, "%s requires then", op)
	}
	then, err := s.node(f["then"])
	if err != nil {
		return nil, err
	}
	var els expr.Node
	if f["else"] != nil {
		if els, err = s.node(f["else"]); err != nil {
			return nil, err
		}
	}
	switch {
	case op == "if" && els == nil:
		return result(expr.IfThen(test, then))
	case op == "if":
		return result(expr.IfThenElse(test, then, els))
	case f["type"] != nil:
		t, err := s.typ(f["type"])
		if err != nil {
			return nil, err
		}
		return result(expr.Condition(test, then, els, t))
	}
	return result(expr.Conditional(test, then, els))
}

// loopLabels returns the break and continue targets named in f.
func (s *state) loopLabels(f map[string]*yaml.Node) (brk, cont *expr.LabelTarget, err error) {
	if brk, err = s.target(f["break"], nil); err != nil {
		return nil, nil, err
	}
	if cont, err = s.target(f["continue"], nil); err != nil {
		return nil, nil, err
	}
	return brk, cont, nil
}

func (s *state) while(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "body", "break", "continue")
	if err != nil {
		return nil, err
	}
	brk, cont, err := s.loopLabels(f)
	if err != nil {
		return nil, err
	}
	test, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	body, err := s.optional(f["body"])
	if err != nil {
		return nil, err
	}
	return result(expr.While(test, body, brk, cont))
}

func (s *state) do(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "while", "break", "continue")
	if err != nil {
		return nil, err
	}
	if f["while"] == nil {
		return nil, s.errf(n, "do requires while")
	}
	brk, cont, err := s.loopLabels(f)
	if err != nil {
		return nil, err
	}
	body, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	test, err := s.node(f["while"])
	if err != nil {
		return nil, err
	}
	return result(expr.Do(body, test, brk, cont))
}

func (s *state) forLoop(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "vars", "body", "break", "continue")
	if err != nil {
		return nil, err
	}
	header, err := s.fields(arg, 0, "init", "test", "step")
	if err != nil {
		return nil, err
	}
	brk, cont, err := s.loopLabels(f)
	if err != nil {
		return nil, err
	}
	vars, err := s.vars(f["vars"])
	if err != nil {
		return nil, err
	}
	s.push(vars...)
	defer s.pop()
	inits, err := s.nodes(header["init"])
	if err != nil {
		return nil, err
	}
	var test expr.Node
	if header["test"] != nil {
		if test, err = s.node(header["test"]); err != nil {
			return nil, err
		}
	}
	iters, err := s.nodes(header["step"])
	if err != nil {
		return nil, err
	}
	body, err := s.optional(f["body"])
	if err != nil {
		return nil, err
	}
	return result(expr.For(vars, inits, test, iters, body, brk, cont))
}

func (s *state) forEach(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "type", "in", "body", "break", "continue")
	if err != nil {
		return nil, err
	}
	if f["in"] == nil {
		return nil, s.errf(n, "foreach requires in")
	}
	brk, cont, err := s.loopLabels(f)
	if err != nil {
		return nil, err
	}
	coll, err := s.node(f["in"])
	if err != nil {
		return nil, err
	}
	var t *types.Type
	switch ct := coll.Type(); {
	case f["type"] != nil:
		if t, err = s.typ(f["type"]); err != nil {
			return nil, err
		}
	case ct.Kind() == types.ArrayKind:
		t = ct.Elem()
	case ct == types.String:
		t = types.Char
	default:
		return nil, s.errf(n, "foreach over %s requires a type", ct)
	}
	v, err := expr.Variable(t, arg.Value)
	if err != nil {
		return nil, err
	}
	s.push(v)
	defer s.pop()
	body, err := s.optional(f["body"])
	if err != nil {
		return nil, err
	}
	return result(expr.ForEach(v, coll, body, brk, cont))
}

func (s *state) switchStmt(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "cases", "break")
	if err != nil {
		return nil, err
	}
	brk, err := s.target(f["break"], nil)
	if err != nil {
		return nil, err
	}
	value, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	var cases []*expr.SwitchCase
	if cn := f["cases"]; cn != nil {
		if cn.Kind != yaml.SequenceNode {
			return nil, s.errf(cn, "cases must be a sequence")
		}
		for _, c := range cn.Content {
			sc, err := s.switchCase(c, value.Type())
			if err != nil {
				return nil, err
			}
			cases = append(cases, sc)
		}
	}
	return result(expr.MakeSwitch(value, brk, nil, cases))
}

func (s *state) switchCase(n *yaml.Node, t *types.Type) (*expr.SwitchCase, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		return nil, s.errf(n, "a case must be a mapping")
	}
	key, arg := n.Content[0], n.Content[1]
	switch key.Value {
	case "default":
		if _, err := s.fields(n, 2); err != nil {
			return nil, err
		}
		body, err := s.nodes(arg)
		if err != nil {
			return nil, err
		}
		c, err := expr.DefaultCase(body...)
		if err != nil {
			return nil, errors.WithPos(err, s.pos(n))
		}
		return c, nil

	case "case":
		f, err := s.fields(n, 2, "body")
		if err != nil {
			return nil, err
		}
		elems := []*yaml.Node{arg}
		if arg.Kind == yaml.SequenceNode {
			elems = arg.Content
		}
		values := make([]any, len(elems))
		for i, e := range elems {
			if values[i], err = s.value(e, t); err != nil {
				return nil, err
			}
		}
		body, err := s.nodes(f["body"])
		if err != nil {
			return nil, err
		}
		c, err := expr.Case(values, body...)
		if err != nil {
			return nil, errors.WithPos(err, s.pos(n))
		}
		return c, nil
	}
	return nil, s.errf(key, "expected case or default, found %s", key.Value)
}

func (s *state) gotoCase(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "type")
	if err != nil {
		return nil, err
	}
	var v any
	if f["type"] != nil {
		t, err := s.typ(f["type"])
		if err != nil {
			return nil, err
		}
		v, err = s.value(arg, t)
		if err != nil {
			return nil, err
		}
	} else if v, err = s.scalar(arg); err != nil {
		return nil, err
	}
	return expr.GotoCase(v), nil
}

func (s *state) label(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "type", "default")
	if err != nil {
		return nil, err
	}
	var t *types.Type
	if f["type"] != nil {
		if t, err = s.typ(f["type"]); err != nil {
			return nil, err
		}
	}
	l, err := s.target(arg, t)
	if err != nil {
		return nil, err
	}
	var def expr.Node
	if f["default"] != nil {
		if def, err = s.node(f["default"]); err != nil {
			return nil, err
		}
	}
	return result(expr.MarkLabel(l, def))
}

func (s *state) jump(n *yaml.Node, op string, arg *yaml.Node) (expr.Node, error) {
	var allowed []string
	if op == "return" {
		allowed = append(allowed, "value")
	}
	f, err := s.fields(n, 2, allowed...)
	if err != nil {
		return nil, err
	}
	var value expr.Node
	var t *types.Type
	if f["value"] != nil {
		if value, err = s.node(f["value"]); err != nil {
			return nil, err
		}
		t = value.Type()
	}
	l, err := s.target(arg, t)
	if err != nil {
		return nil, err
	}
	switch op {
	case "goto":
		return result(expr.GotoLabel(l))
	case "break":
		return result(expr.Break(l))
	case "continue":
		return result(expr.Continue(l))
	}
	return result(expr.Return(l, value))
}

// arguments holds call arguments bound either by position or by name.
type arguments struct {
	positional []expr.Node
	named      []*expr.ParameterAssignment
	isNamed    bool
}

// args decodes the arguments n for params. A sequence binds by position
// and a mapping by parameter name, in the order listed.
func (s *state) args(n *yaml.Node, params []*types.Parameter) (arguments, error) {
	var a arguments
	if n == nil || n.Kind != yaml.MappingNode {
		var err error
		a.positional, err = s.nodes(n)
		return a, err
	}
	a.isNamed = true
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		var p *types.Parameter
		for _, q := range params {
			if q.Name() == k.Value {
				p = q
			}
		}
		if p == nil {
			return a, s.errf(k, "unknown parameter %s", k.Value)
		}
		v, err := s.node(n.Content[i+1])
		if err != nil {
			return a, err
		}
		b, err := expr.Bind(p, v)
		if err != nil {
			return a, errors.WithPos(err, s.pos(k))
		}
		a.named = append(a.named, b)
	}
	return a, nil
}

// static resolves a name of the form Type.member.
func (s *state) static(n *yaml.Node) (*types.Type, string, error) {
	i := strings.LastIndexByte(n.Value, '.')
	if i < 0 {
		return nil, "", s.errf(n, "static member %s must be qualified by a type", n.Value)
	}
	t, ok := s.parseType(n.Value[:i])
	if !ok {
		return nil, "", s.errf(n, "unknown type %s", n.Value[:i])
	}
	return t, n.Value[i+1:], nil
}

// receiver decodes the optional receiver "on" of a member operation. It
// returns the type to look up members on and the member name.
func (s *state) receiver(name, on *yaml.Node) (x expr.Node, t *types.Type, member string, err error) {
	if on == nil {
		t, member, err = s.static(name)
		return nil, t, member, err
	}
	if x, err = s.node(on); err != nil {
		return nil, nil, "", err
	}
	return x, x.Type().NonNullable(), name.Value, nil
}

func (s *state) call(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "on", "args", "conditional")
	if err != nil {
		return nil, err
	}
	cond, err := s.flag(f["conditional"])
	if err != nil {
		return nil, err
	}
	x, t, name, err := s.receiver(arg, f["on"])
	if err != nil {
		return nil, err
	}
	m := t.Method(name)
	if m == nil {
		return nil, s.errf(arg, "%s is not a method of %s", name, t)
	}
	a, err := s.args(f["args"], m.Params())
	if err != nil {
		return nil, err
	}
	switch {
	case cond && a.isNamed:
		return result(expr.ConditionalCallArgs(x, m, a.named...))
	case cond:
		return result(expr.ConditionalCallPositional(x, m, a.positional...))
	case a.isNamed:
		return result(expr.CallArgs(x, m, a.named...))
	case len(a.positional) == len(m.Params()):
		return result(expr.CallMethod(x, m, a.positional...))
	}
	return result(expr.CallPositional(x, m, a.positional...))
}

func (s *state) newObject(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "args")
	if err != nil {
		return nil, err
	}
	t, err := s.typ(arg)
	if err != nil {
		return nil, err
	}
	if f["args"] == nil && len(t.Constructors()) == 0 {
		return result(expr.NewInstanceOf(t))
	}
	var c *types.Constructor
	if an := f["args"]; an != nil && an.Kind == yaml.MappingNode {
		c = constructorFor(t, an)
	} else if an != nil {
		c = t.Constructor(len(an.Content))
		if c == nil {
			c = constructorFor(t, nil)
		}
	} else {
		c = t.Constructor(0)
	}
	if c == nil {
		return nil, s.errf(arg, "no matching constructor for %s", t)
	}
	a, err := s.args(f["args"], c.Params())
	if err != nil {
		return nil, err
	}
	switch {
	case a.isNamed:
		return result(expr.NewArgs(c, a.named...))
	case len(a.positional) == len(c.Params()):
		return result(expr.NewObject(c, a.positional...))
	}
	return result(expr.NewPositional(c, a.positional...))
}

// constructorFor returns the first constructor of t declaring all
// parameters named in the mapping args, or that has more parameters than
// the sequence args has elements.
func constructorFor(t *types.Type, args *yaml.Node) *types.Constructor {
outer:
	for _, c := range t.Constructors() {
		if args == nil || args.Kind != yaml.MappingNode {
			if args == nil || len(c.Params()) > len(args.Content) {
				return c
			}
			continue
		}
		for i := 0; i < len(args.Content); i += 2 {
			found := false
			for _, p := range c.Params() {
				found = found || p.Name() == args.Content[i].Value
			}
			if !found {
				continue outer
			}
		}
		return c
	}
	return nil
}

func (s *state) invoke(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "args", "conditional")
	if err != nil {
		return nil, err
	}
	cond, err := s.flag(f["conditional"])
	if err != nil {
		return nil, err
	}
	fn, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	t := fn.Type()
	if t.Kind() != types.FuncKind {
		return nil, s.errf(arg, "cannot invoke a value of type %s", t)
	}
	a, err := s.args(f["args"], t.Params())
	if err != nil {
		return nil, err
	}
	switch {
	case cond && a.isNamed:
		return result(expr.ConditionalInvokeArgs(fn, a.named...))
	case cond:
		return result(expr.ConditionalInvokePositional(fn, a.positional...))
	case a.isNamed:
		return result(expr.InvokeArgs(fn, a.named...))
	case len(a.positional) == len(t.Params()):
		return result(expr.InvokeFunc(fn, a.positional...))
	}
	return result(expr.InvokePositional(fn, a.positional...))
}

// lookupMember returns the field or property name of t.
func lookupMember(t *types.Type, name string) types.Member {
	if f := t.Field(name); f != nil {
		return f
	}
	if p := t.Property(name); p != nil {
		return p
	}
	return nil
}

func (s *state) member(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "on", "conditional")
	if err != nil {
		return nil, err
	}
	cond, err := s.flag(f["conditional"])
	if err != nil {
		return nil, err
	}
	x, t, name, err := s.receiver(arg, f["on"])
	if err != nil {
		return nil, err
	}
	m := lookupMember(t, name)
	if m == nil {
		return nil, s.errf(arg, "%s is not a field or property of %s", name, t)
	}
	if cond {
		return result(expr.MakeConditionalMemberAccess(x, m))
	}
	return result(expr.MakeMemberAccess(x, m))
}

// indexer returns the indexer of t, or the indexed property named by n.
func (s *state) indexer(t *types.Type, n *yaml.Node) (*types.Property, error) {
	if n == nil {
		if p := t.Indexer(); p != nil {
			return p, nil
		}
		return nil, errors.Argf("expression", "type %s has no indexer", t)
	}
	p := t.Property(n.Value)
	if p == nil {
		return nil, s.errf(n, "%s is not a property of %s", n.Value, t)
	}
	return p, nil
}

func (s *state) index(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "args", "name", "conditional")
	if err != nil {
		return nil, err
	}
	cond, err := s.flag(f["conditional"])
	if err != nil {
		return nil, err
	}
	x, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	t := x.Type().NonNullable()
	if t.Kind() == types.ArrayKind && f["name"] == nil {
		indices, err := s.nodes(f["args"])
		if err != nil {
			return nil, err
		}
		if cond {
			return result(expr.ConditionalArrayIndex(x, indices...))
		}
		return result(expr.ArrayAccess(x, indices...))
	}
	p, err := s.indexer(t, f["name"])
	if err != nil {
		return nil, errors.WithPos(err, s.pos(n))
	}
	a, err := s.args(f["args"], p.Params())
	if err != nil {
		return nil, err
	}
	switch {
	case cond && a.isNamed:
		return result(expr.ConditionalIndexArgs(x, p, a.named...))
	case cond:
		return result(expr.ConditionalIndexPositional(x, p, a.positional...))
	case a.isNamed:
		return result(expr.IndexArgs(x, p, a.named...))
	case len(a.positional) == len(p.Params()):
		return result(expr.IndexProperty(x, p, a.positional...))
	}
	return result(expr.IndexPositional(x, p, a.positional...))
}

// chain decodes a conditional access whose links are applied in order to
// the non-null receiver.
func (s *state) chain(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "links")
	if err != nil {
		return nil, err
	}
	recv, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	c := expr.NewConditionalChain(recv)
	ln := f["links"]
	if ln == nil || ln.Kind != yaml.SequenceNode {
		return nil, s.errf(n, "chain requires a sequence of links")
	}
	for _, l := range ln.Content {
		t := c.Type()
		if t == nil {
			break
		}
		if err := s.link(c, t.NonNullable(), l); err != nil {
			return nil, err
		}
	}
	return result(c.Build())
}

func (s *state) link(c *expr.ConditionalChain, t *types.Type, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		return s.errf(n, "a link must be a mapping")
	}
	key, arg := n.Content[0], n.Content[1]
	switch key.Value {
	case "member":
		if _, err := s.fields(n, 2); err != nil {
			return err
		}
		switch m := lookupMember(t, arg.Value).(type) {
		case *types.Field:
			c.Field(m)
		case *types.Property:
			c.Property(m)
		default:
			return s.errf(arg, "%s is not a field or property of %s", arg.Value, t)
		}

	case "call":
		f, err := s.fields(n, 2, "args")
		if err != nil {
			return err
		}
		m := t.Method(arg.Value)
		if m == nil {
			return s.errf(arg, "%s is not a method of %s", arg.Value, t)
		}
		a, err := s.args(f["args"], m.Params())
		if err != nil {
			return err
		}
		if a.isNamed {
			c.Call(m, a.named...)
		} else {
			c.CallPositional(m, a.positional...)
		}

	case "index":
		if _, err := s.fields(n, 2); err != nil {
			return err
		}
		if t.Kind() == types.ArrayKind {
			indices, err := s.nodes(arg)
			if err != nil {
				return err
			}
			c.ArrayIndex(indices...)
			break
		}
		p, err := s.indexer(t, nil)
		if err != nil {
			return errors.WithPos(err, s.pos(n))
		}
		a, err := s.args(arg, p.Params())
		if err != nil {
			return err
		}
		if !a.isNamed {
			return s.errf(arg, "indexer arguments in a chain must be named")
		}
		c.Index(p, a.named...)

	case "invoke":
		if _, err := s.fields(n, 2); err != nil {
			return err
		}
		a, err := s.args(arg, t.Params())
		if err != nil {
			return err
		}
		if !a.isNamed && len(a.positional) > 0 {
			return s.errf(arg, "invoke arguments in a chain must be named")
		}
		c.Invoke(a.named...)

	default:
		return s.errf(key, "unknown link %s", key.Value)
	}
	return nil
}

func (s *state) newArray(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "bounds", "init")
	if err != nil {
		return nil, err
	}
	elem, err := s.typ(arg)
	if err != nil {
		return nil, err
	}
	if (f["bounds"] == nil) == (f["init"] == nil) {
		return nil, s.errf(n, "newarray requires exactly one of bounds or init")
	}
	if f["bounds"] != nil {
		bounds, err := s.nodes(f["bounds"])
		if err != nil {
			return nil, err
		}
		return result(expr.NewArrayBounds(elem, bounds...))
	}
	exprs, err := s.nodes(f["init"])
	if err != nil {
		return nil, err
	}
	return result(expr.NewArrayInit(elem, exprs...))
}

// arrayInit decodes a multidimensional array initializer, either as nested
// sequences of values or as bounds and a flat sequence in row-major order.
func (s *state) arrayInit(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "bounds", "values")
	if err != nil {
		return nil, err
	}
	elem, err := s.typ(arg)
	if err != nil {
		return nil, err
	}
	vn := f["values"]
	if vn == nil || vn.Kind != yaml.SequenceNode {
		return nil, s.errf(n, "arrayinit requires a sequence of values")
	}
	if bn := f["bounds"]; bn != nil {
		if bn.Kind != yaml.SequenceNode {
			return nil, s.errf(bn, "bounds must be a sequence of integers")
		}
		bounds := make([]int, len(bn.Content))
		for i, b := range bn.Content {
			v, err := s.value(b, types.Int)
			if err != nil {
				return nil, err
			}
			bounds[i] = v.(int)
		}
		exprs, err := s.nodes(vn)
		if err != nil {
			return nil, err
		}
		return result(expr.NewMultidimensionalArrayInit(elem, bounds, exprs...))
	}
	init, err := s.initializer(vn)
	if err != nil {
		return nil, err
	}
	return result(expr.NewArrayInitializer(elem, init))
}

func (s *state) initializer(n *yaml.Node) (expr.Initializer, error) {
	if n.Kind != yaml.SequenceNode {
		x, err := s.node(n)
		if err != nil {
			return expr.Initializer{}, err
		}
		return expr.InitElem(x), nil
	}
	inits := make([]expr.Initializer, len(n.Content))
	for i, c := range n.Content {
		init, err := s.initializer(c)
		if err != nil {
			return expr.Initializer{}, err
		}
		inits[i] = init
	}
	return expr.InitList(inits...), nil
}

func (s *state) lambda(n *yaml.Node, async bool, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "params", "name")
	if err != nil {
		return nil, err
	}
	params, err := s.vars(f["params"])
	if err != nil {
		return nil, err
	}
	var name string
	if f["name"] != nil {
		name = f["name"].Value
	}

	// Labels do not cross lambda boundaries.
	outer := s.labels
	s.labels = map[string]*expr.LabelTarget{}
	s.push(params...)
	defer func() {
		s.pop()
		s.labels = outer
	}()

	body, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	if async {
		return result(expr.MakeAsyncLambda(name, body, params))
	}
	return result(expr.MakeLambda(nil, name, body, params))
}

func (s *state) try(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "catch", "finally", "type")
	if err != nil {
		return nil, err
	}
	var t *types.Type
	if f["type"] != nil {
		if t, err = s.typ(f["type"]); err != nil {
			return nil, err
		}
	}
	body, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	var handlers []*expr.CatchBlock
	if cn := f["catch"]; cn != nil {
		if cn.Kind != yaml.SequenceNode {
			return nil, s.errf(cn, "catch must be a sequence")
		}
		for _, c := range cn.Content {
			h, err := s.catch(c)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, h)
		}
	}
	var finally expr.Node
	if f["finally"] != nil {
		if finally, err = s.node(f["finally"]); err != nil {
			return nil, err
		}
	}
	return result(expr.MakeTry(t, body, finally, handlers...))
}

func (s *state) catch(n *yaml.Node) (*expr.CatchBlock, error) {
	f, err := s.fields(n, 0, "type", "var", "when", "body")
	if err != nil {
		return nil, err
	}
	t := types.ExceptionType
	if f["type"] != nil {
		if t, err = s.typ(f["type"]); err != nil {
			return nil, err
		}
	}
	var v *expr.Var
	if vn := f["var"]; vn != nil {
		if v, err = expr.Variable(t, vn.Value); err != nil {
			return nil, errors.WithPos(err, s.pos(vn))
		}
	}
	s.push(v)
	defer s.pop()
	var filter expr.Node
	if f["when"] != nil {
		if filter, err = s.node(f["when"]); err != nil {
			return nil, err
		}
	}
	body, err := s.optional(f["body"])
	if err != nil {
		return nil, err
	}
	h, err := expr.MakeCatch(t, v, body, filter)
	if err != nil {
		return nil, errors.WithPos(err, s.pos(n))
	}
	return h, nil
}

func (s *state) using(n, arg *yaml.Node) (expr.Node, error) {
	f, err := s.fields(n, 2, "var", "type", "body")
	if err != nil {
		return nil, err
	}
	resource, err := s.node(arg)
	if err != nil {
		return nil, err
	}
	var v *expr.Var
	if vn := f["var"]; vn != nil {
		t := resource.Type()
		if f["type"] != nil {
			if t, err = s.typ(f["type"]); err != nil {
				return nil, err
			}
		}
		if v, err = expr.Variable(t, vn.Value); err != nil {
			return nil, errors.WithPos(err, s.pos(vn))
		}
	}
	s.push(v)
	defer s.pop()
	body, err := s.optional(f["body"])
	if err != nil {
		return nil, err
	}
	return result(expr.Using(v, resource, body))
}
