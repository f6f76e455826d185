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
	"cmp"
	"fmt"
	"slices"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/internal/exprdebug"
	"github.com/cue-exp/exprtree/types"
)

// A SwitchCase is a section of a switch: a list of case values, possibly
// including the default label, and the statements of the section. A nil
// case value stands for case null. It is not a node by itself.
type SwitchCase struct {
	values    []any
	isDefault bool
	body      []Node
}

// MakeSwitchCase returns a switch section. At least one case value or the
// default label is required.
func MakeSwitchCase(values []any, isDefault bool, body []Node) (*SwitchCase, error) {
	if len(values) == 0 && !isDefault {
		return nil, errors.Argf("values", "switch section requires at least one case label")
	}
	if err := checkNodes(body, "body"); err != nil {
		return nil, err
	}
	return &SwitchCase{values: clone(values), isDefault: isDefault, body: clone(body)}, nil
}

// Case returns a section for the given case values.
func Case(values []any, body ...Node) (*SwitchCase, error) {
	return MakeSwitchCase(values, false, body)
}

// DefaultCase returns the default section.
func DefaultCase(body ...Node) (*SwitchCase, error) {
	return MakeSwitchCase(nil, true, body)
}

func (c *SwitchCase) Values() []any   { return c.values }
func (c *SwitchCase) IsDefault() bool { return c.isDefault }
func (c *SwitchCase) Body() []Node    { return c.body }

func (c *SwitchCase) Update(body []Node) (*SwitchCase, error) {
	if sameNodes(body, c.body) {
		return c, nil
	}
	return MakeSwitchCase(c.values, c.isDefault, body)
}

// A SwitchStmt transfers control to the section whose case value equals the
// governing value, to the default section if there is no such section, or
// past the switch otherwise. Sections do not fall through: control leaves
// the switch at the end of each section. A null governing value selects
// case null if present and the default section otherwise.
type SwitchStmt struct {
	value Node
	brk   *LabelTarget
	vars  []*Var
	cases []*SwitchCase
}

// Switch returns a switch on value. A break label is created if brk is
// nil.
func Switch(value Node, brk *LabelTarget, cases ...*SwitchCase) (*SwitchStmt, error) {
	return MakeSwitch(value, brk, nil, cases)
}

// MakeSwitch returns a switch whose sections share the scope of vars.
func MakeSwitch(value Node, brk *LabelTarget, vars []*Var, cases []*SwitchCase) (*SwitchStmt, error) {
	if err := requireReadable(value, "value"); err != nil {
		return nil, err
	}
	gov := value.Type()
	switch gov.NonNullable() {
	case types.Int, types.Char, types.Bool, types.String:
	default:
		return nil, errors.Argf("value", "switch on a value of type %s is not supported", gov)
	}
	if err := checkControlLabel(brk, "break"); err != nil {
		return nil, err
	}
	if err := checkVars(vars, "vars"); err != nil {
		return nil, err
	}
	seen := map[any]bool{}
	hasDefault := false
	for i, c := range cases {
		if c == nil {
			return nil, errors.ArgNull(fmt.Sprintf("cases[%d]", i))
		}
		if c.isDefault {
			if hasDefault {
				return nil, errors.Argf("cases", "switch has more than one default section")
			}
			hasDefault = true
		}
		for _, v := range c.values {
			if v == nil && !gov.IsNullable() {
				return nil, errors.Argf("cases", "case null is not valid for a switch on %s", gov)
			}
			if v != nil && !gov.NonNullable().Accepts(v) {
				return nil, errors.Argf("cases", "case value %v (%T) is not a %s", v, v, gov.NonNullable())
			}
			if seen[v] {
				return nil, errors.Argf("cases", "duplicate case value %s", caseString(v))
			}
			seen[v] = true
		}
	}
	if brk == nil {
		brk = NewLabel(types.Void, "break")
	}
	return &SwitchStmt{value: value, brk: brk, vars: clone(vars), cases: clone(cases)}, nil
}

func caseString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case rune:
		return fmt.Sprintf("%q", v)
	}
	return fmt.Sprint(v)
}

func (x *SwitchStmt) Kind() Kind               { return SwitchKind }
func (x *SwitchStmt) Type() *types.Type        { return types.Void }
func (x *SwitchStmt) Value() Node              { return x.value }
func (x *SwitchStmt) BreakLabel() *LabelTarget { return x.brk }
func (x *SwitchStmt) Vars() []*Var             { return x.vars }
func (x *SwitchStmt) Cases() []*SwitchCase     { return x.cases }
func (x *SwitchStmt) node()                    {}

func (x *SwitchStmt) Update(brk *LabelTarget, vars []*Var, value Node, cases []*SwitchCase) (*SwitchStmt, error) {
	if brk == x.brk && sameVars(vars, x.vars) && value == x.value && sameCases(cases, x.cases) {
		return x, nil
	}
	return MakeSwitch(value, brk, vars, cases)
}

func sameCases(a, b []*SwitchCase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// A GotoCaseStmt transfers control to the section of the innermost
// enclosing switch with the given case value. A nil value denotes case
// null. The target is resolved when the switch is reduced.
type GotoCaseStmt struct {
	value any
}

// GotoCase returns goto case value.
func GotoCase(value any) *GotoCaseStmt {
	return &GotoCaseStmt{value: value}
}

func (x *GotoCaseStmt) Kind() Kind        { return GotoCaseKind }
func (x *GotoCaseStmt) Type() *types.Type { return types.Void }
func (x *GotoCaseStmt) Value() any        { return x.value }
func (x *GotoCaseStmt) node()             {}

func (x *GotoCaseStmt) Reduce() (Node, error) {
	return nil, errors.InvalidOpf("goto case %s outside of a switch", caseString(x.value))
}

// A GotoDefaultStmt transfers control to the default section of the
// innermost enclosing switch.
type GotoDefaultStmt struct{}

// GotoDefault returns goto default.
func GotoDefault() *GotoDefaultStmt {
	return &GotoDefaultStmt{}
}

func (x *GotoDefaultStmt) Kind() Kind        { return GotoDefaultKind }
func (x *GotoDefaultStmt) Type() *types.Type { return types.Void }
func (x *GotoDefaultStmt) node()             {}

func (x *GotoDefaultStmt) Reduce() (Node, error) {
	return nil, errors.InvalidOpf("goto default outside of a switch")
}

type caseLabel struct {
	value any
	label *LabelTarget
}

// switchLowering holds the targets of the sections of a switch.
type switchLowering struct {
	x        *SwitchStmt
	sections []*LabelTarget
	values   []caseLabel // non-null case values in section order
	byValue  map[any]*LabelTarget
	null     *LabelTarget
	def      *LabelTarget
}

func (x *SwitchStmt) Reduce() (Node, error) {
	s := &switchLowering{x: x, byValue: map[any]*LabelTarget{}}
	for i, c := range x.cases {
		l := NewLabel(types.Void, fmt.Sprintf("case%d", i))
		s.sections = append(s.sections, l)
		if c.isDefault {
			s.def = l
		}
		for _, v := range c.values {
			s.byValue[v] = l
			if v == nil {
				s.null = l
				continue
			}
			s.values = append(s.values, caseLabel{v, l})
		}
	}

	gov := x.value.Type()
	tmp, err := Variable(gov, "value")
	if err != nil {
		return nil, err
	}
	vars := append(clone(x.vars), tmp)
	var b lowering
	b.add(AssignTo(tmp, x.value))
	if len(x.cases) == 0 {
		b.label(x.brk)
		return b.block(vars)
	}

	// Dispatch null first: case null takes precedence over default.
	var v Node = tmp
	if gov.IsNullable() {
		null, err := Null(gov)
		if err != nil {
			return nil, err
		}
		isNull, err := Equal(tmp, null)
		if err != nil {
			return nil, err
		}
		target := s.null
		if target == nil {
			target = s.otherwise()
		}
		jump, err := GotoLabel(target)
		if err != nil {
			return nil, err
		}
		b.add(IfThen(isNull, jump))
		if gov.Kind() == types.NullableKind {
			val, err := Variable(gov.Elem(), "v")
			if err != nil {
				return nil, err
			}
			vars = append(vars, val)
			unwrap, err := ConvertTo(tmp, gov.Elem())
			if err != nil {
				return nil, err
			}
			b.add(AssignTo(val, unwrap))
			v = val
		}
	}

	if err := exprdebug.Init(); err != nil {
		return nil, err
	}
	t := v.Type()
	if t.IsIntegral() && len(s.values) >= max(exprdebug.Flags.JumpTable, 1) {
		b.add(s.decisionTree(v))
	} else {
		for _, c := range s.values {
			b.add(s.test(v, c))
		}
	}
	b.jump(s.otherwise())

	for i, c := range x.cases {
		b.label(s.sections[i])
		for _, n := range c.body {
			b.add(s.resolve(n))
		}
		b.jump(x.brk)
	}
	b.label(x.brk)
	return b.block(vars)
}

// otherwise returns the target for values without a matching case.
func (s *switchLowering) otherwise() *LabelTarget {
	if s.def != nil {
		return s.def
	}
	return s.x.brk
}

// test returns a jump to the section of c taken if v equals its value.
func (s *switchLowering) test(v Node, c caseLabel) (Node, error) {
	val, err := Constant(c.value, v.Type())
	if err != nil {
		return nil, err
	}
	eq, err := Equal(v, val)
	if err != nil {
		return nil, err
	}
	jump, err := GotoLabel(c.label)
	if err != nil {
		return nil, err
	}
	return IfThen(eq, jump)
}

// decisionTree returns a binary search over the sorted case values that
// jumps to the matching section, or falls through if none matches.
func (s *switchLowering) decisionTree(v Node) (Node, error) {
	sorted := slices.Clone(s.values)
	slices.SortFunc(sorted, func(a, b caseLabel) int {
		return cmp.Compare(integral(a.value), integral(b.value))
	})
	return s.search(v, sorted)
}

func integral(v any) int {
	if r, ok := v.(rune); ok {
		return int(r)
	}
	return v.(int)
}

func (s *switchLowering) search(v Node, cases []caseLabel) (Node, error) {
	if len(cases) <= 3 {
		var b lowering
		for _, c := range cases {
			b.add(s.test(v, c))
		}
		return b.block(nil)
	}
	mid := len(cases) / 2
	pivot, err := Constant(cases[mid].value, v.Type())
	if err != nil {
		return nil, err
	}
	less, err := LessThan(v, pivot)
	if err != nil {
		return nil, err
	}
	lo, err := s.search(v, cases[:mid])
	if err != nil {
		return nil, err
	}
	hi, err := s.search(v, cases[mid:])
	if err != nil {
		return nil, err
	}
	return IfThenElse(less, lo, hi)
}

// resolve replaces goto case and goto default statements that refer to
// this switch by jumps to the corresponding sections. Nested switches and
// lambdas are not entered.
func (s *switchLowering) resolve(n Node) (Node, error) {
	return Rewrite(n, func(n Node) (Node, bool, error) {
		switch x := n.(type) {
		case *GotoCaseStmt:
			l, ok := s.byValue[s.normalize(x.value)]
			if !ok {
				return nil, true, errors.InvalidOpf("goto case %s: no such case in switch", caseString(x.value))
			}
			g, err := GotoLabel(l)
			return g, true, err
		case *GotoDefaultStmt:
			if s.def == nil {
				return nil, true, errors.InvalidOpf("goto default: switch has no default section")
			}
			g, err := GotoLabel(s.def)
			return g, true, err
		case *SwitchStmt, *Lambda, *AsyncLambda:
			return n, true, nil
		}
		return n, false, nil
	})
}

// normalize converts an integer goto case value to a char for switches on
// chars.
func (s *switchLowering) normalize(v any) any {
	if i, ok := v.(int); ok && s.x.value.Type().NonNullable() == types.Char {
		return rune(i)
	}
	return v
}
