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

// A LabelTarget identifies the destination of a jump. Targets have identity:
// two targets with the same name and type are distinct. A target carries the
// type of the value delivered by jumps to it, Void if none.
type LabelTarget struct {
	name string
	typ  *types.Type
}

// NewLabel returns a new target for values of type t. A nil t means Void.
func NewLabel(t *types.Type, name string) *LabelTarget {
	if t == nil {
		t = types.Void
	}
	return &LabelTarget{name: name, typ: t}
}

func (l *LabelTarget) Name() string      { return l.name }
func (l *LabelTarget) Type() *types.Type { return l.typ }

func (l *LabelTarget) String() string {
	if l.name == "" {
		return "<label>"
	}
	return l.name
}

// checkControlLabel validates a break or continue target supplied to a
// loop or switch.
func checkControlLabel(l *LabelTarget, param string) error {
	if l != nil && l.typ != types.Void {
		return errors.Argf(param, "%s label must be of type void, found %s", param, l.typ)
	}
	return nil
}

// A Label marks the position of a target within a block. When control
// reaches a Label by falling through, it evaluates to its default value;
// when reached by a jump, it evaluates to the jump value.
type Label struct {
	target *LabelTarget
	def    Node
}

// MarkLabel returns a Label node for target. The default value def must be
// nil for void targets and defaults to the zero value otherwise.
func MarkLabel(target *LabelTarget, def Node) (*Label, error) {
	if target == nil {
		return nil, errors.ArgNull("target")
	}
	if target.typ == types.Void {
		if def != nil {
			return nil, errors.Argf("default", "label %s of type void cannot have a default value", target)
		}
	} else if def != nil {
		if err := requireValue(def, target.typ, "default"); err != nil {
			return nil, err
		}
	}
	return &Label{target: target, def: def}, nil
}

func (x *Label) Kind() Kind           { return LabelKind }
func (x *Label) Type() *types.Type    { return x.target.typ }
func (x *Label) Target() *LabelTarget { return x.target }
func (x *Label) DefaultValue() Node   { return x.def }
func (x *Label) node()                {}

func (x *Label) Update(target *LabelTarget, def Node) (*Label, error) {
	if target == x.target && def == x.def {
		return x, nil
	}
	return MarkLabel(target, def)
}

// A JumpKind records the source-level flavor of a Goto. All flavors have
// the same semantics.
type JumpKind uint8

const (
	GotoJump JumpKind = iota
	BreakJump
	ContinueJump
	ReturnJump
)

func (k JumpKind) String() string {
	switch k {
	case BreakJump:
		return "break"
	case ContinueJump:
		return "continue"
	case ReturnJump:
		return "return"
	}
	return "goto"
}

// A Goto transfers control to a target, optionally delivering a value.
type Goto struct {
	kind   JumpKind
	target *LabelTarget
	value  Node
	typ    *types.Type
}

// MakeGoto returns a jump to target. A value must be given exactly when the
// target is not of type Void. The type t of the Goto node itself, which
// matters only when it is used in a value position, defaults to Void.
func MakeGoto(kind JumpKind, target *LabelTarget, value Node, t *types.Type) (*Goto, error) {
	if target == nil {
		return nil, errors.ArgNull("target")
	}
	if t == nil {
		t = types.Void
	}
	if target.typ == types.Void {
		if value != nil {
			return nil, errors.Argf("value", "jump to label %s of type void cannot carry a value", target)
		}
	} else {
		if value == nil {
			return nil, errors.Argf("value", "jump to label %s requires a value of type %s", target, target.typ)
		}
		if err := requireValue(value, target.typ, "value"); err != nil {
			return nil, err
		}
	}
	return &Goto{kind: kind, target: target, value: value, typ: t}, nil
}

// GotoLabel returns an unconditional jump to a void target.
func GotoLabel(target *LabelTarget) (*Goto, error) {
	return MakeGoto(GotoJump, target, nil, nil)
}

// Break returns a break jump to target.
func Break(target *LabelTarget) (*Goto, error) {
	return MakeGoto(BreakJump, target, nil, nil)
}

// Continue returns a continue jump to target.
func Continue(target *LabelTarget) (*Goto, error) {
	return MakeGoto(ContinueJump, target, nil, nil)
}

// Return returns a return jump to target carrying value, which may be nil
// for void targets.
func Return(target *LabelTarget, value Node) (*Goto, error) {
	return MakeGoto(ReturnJump, target, value, nil)
}

func (x *Goto) Kind() Kind           { return GotoKind }
func (x *Goto) Type() *types.Type    { return x.typ }
func (x *Goto) JumpKind() JumpKind   { return x.kind }
func (x *Goto) Target() *LabelTarget { return x.target }
func (x *Goto) Value() Node          { return x.value }
func (x *Goto) node()                {}

func (x *Goto) Update(target *LabelTarget, value Node) (*Goto, error) {
	if target == x.target && value == x.value {
		return x, nil
	}
	return MakeGoto(x.kind, target, value, x.typ)
}
