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

// Package debug prints expression trees in a compact, deterministic text
// form. The output is meant for tests and diagnostics and is not parsed.
package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

// A Config configures the output.
type Config struct {
	// Indent is the string used for each level of indentation. It defaults
	// to a tab.
	Indent string

	// Types prints the type of every variable declaration and lambda.
	Types bool
}

// Print writes a representation of n to w.
func Print(w io.Writer, n expr.Node, cfg *Config) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Indent == "" {
		c.Indent = "\t"
	}
	p := &printer{
		cfg:    &c,
		vars:   map[*expr.Var]string{},
		labels: map[*expr.LabelTarget]string{},
		used:   map[string]int{},
	}
	p.node(n)
	p.b.WriteByte('\n')
	io.WriteString(w, p.b.String())
}

// NodeString returns the representation of n.
func NodeString(n expr.Node) string {
	var b strings.Builder
	Print(&b, n, nil)
	return strings.TrimSuffix(b.String(), "\n")
}

type printer struct {
	cfg    *Config
	b      strings.Builder
	indent int

	vars   map[*expr.Var]string
	labels map[*expr.LabelTarget]string
	used   map[string]int
}

func (p *printer) string(s string) { p.b.WriteString(s) }

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(&p.b, format, args...)
}

func (p *printer) newline() {
	p.b.WriteByte('\n')
	p.b.WriteString(strings.Repeat(p.cfg.Indent, p.indent))
}

// unique returns name, or a variant of it if it was returned before.
func (p *printer) unique(name string) string {
	if name == "" {
		name = "_"
	}
	n := p.used[name]
	p.used[name] = n + 1
	if n == 0 && name != "_" {
		return name
	}
	return name + strconv.Itoa(n)
}

func (p *printer) varName(v *expr.Var) string {
	s, ok := p.vars[v]
	if !ok {
		s = p.unique(v.Name())
		p.vars[v] = s
	}
	return s
}

func (p *printer) labelName(l *expr.LabelTarget) string {
	s, ok := p.labels[l]
	if !ok {
		s = p.unique(l.Name())
		p.labels[l] = s
	}
	return s
}

func (p *printer) decl(v *expr.Var) {
	p.string(p.varName(v))
	if p.cfg.Types {
		p.printf(" %s", v.Type())
	}
}

func (p *printer) list(a []expr.Node) {
	for i, n := range a {
		if i > 0 {
			p.string(", ")
		}
		p.node(n)
	}
}

// body prints n as a braced block.
func (p *printer) body(n expr.Node) {
	if b, ok := n.(*expr.Block); ok {
		p.block(b)
		return
	}
	p.string("{")
	p.indent++
	p.newline()
	p.node(n)
	p.indent--
	p.newline()
	p.string("}")
}

func (p *printer) block(b *expr.Block) {
	p.string("{")
	p.indent++
	for _, v := range b.Vars() {
		p.newline()
		p.string("var ")
		p.decl(v)
	}
	for _, n := range b.Exprs() {
		p.newline()
		p.node(n)
	}
	p.indent--
	p.newline()
	p.string("}")
}

func (p *printer) node(n expr.Node) {
	switch x := n.(type) {
	case *expr.Const:
		p.string(Value(x.Value()))

	case *expr.Default:
		p.printf("default(%s)", x.Type())

	case *expr.Var:
		p.string(p.varName(x))

	case *expr.Block:
		p.block(x)

	case *expr.Label:
		p.printf("%s:", p.labelName(x.Target()))
		if d := x.DefaultValue(); d != nil {
			p.string(" ")
			p.node(d)
		}

	case *expr.Goto:
		p.printf("%s %s", x.JumpKind(), p.labelName(x.Target()))
		if v := x.Value(); v != nil {
			p.string(" ")
			p.node(v)
		}

	case *expr.Cond:
		p.string("if ")
		p.node(x.Test())
		p.string(" ")
		p.body(x.Then())
		if e, ok := x.Else().(*expr.Default); !ok || e.Type() != types.Void {
			p.string(" else ")
			p.body(x.Else())
		}

	case *expr.Try:
		p.string("try ")
		p.body(x.Body())
		for _, h := range x.Handlers() {
			p.printf(" catch %s", h.Test())
			if v := h.Variable(); v != nil {
				p.string(" ")
				p.string(p.varName(v))
			}
			if f := h.Filter(); f != nil {
				p.string(" when ")
				p.node(f)
			}
			p.string(" ")
			p.body(h.Body())
		}
		if f := x.Finally(); f != nil {
			p.string(" finally ")
			p.body(f)
		}

	case *expr.Throw:
		p.string("throw")
		if v := x.Value(); v != nil {
			p.string(" ")
			p.node(v)
		}

	case *expr.Assign:
		p.node(x.Left())
		p.string(" = ")
		p.node(x.Right())

	case *expr.Member:
		p.receiver(x.Expr(), x.Member().DeclaringType())
		p.printf(".%s", x.Member().Name())

	case *expr.Call:
		p.receiver(x.Expr(), x.Method().DeclaringType())
		p.printf(".%s(", x.Method().Name())
		p.list(x.Args())
		p.string(")")

	case *expr.New:
		p.printf("new %s(", x.Type())
		p.list(x.Args())
		p.string(")")

	case *expr.Invoke:
		p.node(x.Expr())
		p.string("(")
		p.list(x.Args())
		p.string(")")

	case *expr.Index:
		p.node(x.Expr())
		p.string("[")
		p.list(x.Args())
		p.string("]")

	case *expr.NewArray:
		elem := x.Type().Elem()
		if x.IsInit() {
			p.printf("new %s[] {", elem)
			p.list(x.Exprs())
			p.string("}")
			break
		}
		p.printf("new %s[", elem)
		p.list(x.Exprs())
		p.string("]")

	case *expr.Unary:
		p.string(x.Op().String())
		p.node(x.Operand())

	case *expr.Binary:
		p.string("(")
		p.node(x.Left())
		p.printf(" %s ", x.Op())
		p.node(x.Right())
		p.string(")")

	case *expr.Convert:
		p.printf("(%s)", x.Type())
		p.node(x.Operand())

	case *expr.Lambda:
		p.string("func")
		if x.Name() != "" {
			p.printf(" %s", x.Name())
		}
		p.string("(")
		for i, v := range x.Params() {
			if i > 0 {
				p.string(", ")
			}
			p.decl(v)
		}
		p.string(")")
		if r := x.Type().Result(); r != types.Void {
			p.printf(" %s", r)
		}
		p.string(" ")
		p.body(x.Body())

	default:
		// Extension nodes are printed by kind with their children.
		p.string(n.Kind().String())
		p.string("(")
		p.list(expr.Children(n))
		p.string(")")
	}
}

func (p *printer) receiver(x expr.Node, decl *types.Type) {
	if x == nil {
		p.string(decl.String())
		return
	}
	p.node(x)
}

// Value returns the text of a constant value.
func Value(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case rune:
		return strconv.QuoteRune(v)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case *apd.Decimal:
		return v.Text('f') + "m"
	}
	return fmt.Sprint(v)
}
