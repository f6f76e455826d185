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

// An AssignBinary assigns to a location, possibly combining the current
// value of the location with the right operand, as in a += b. The receiver
// and indices of the location are evaluated once, before the right operand.
type AssignBinary struct {
	op          BinaryOp
	compound    bool
	left, right Node
}

// MakeAssignBinary returns left op= right. Left must be a writable and, for
// compound assignments, readable location: a variable, field, property,
// array element or indexer access, including indexer accesses with named
// arguments.
func MakeAssignBinary(op BinaryOp, left, right Node) (*AssignBinary, error) {
	return makeAssignBinary(op, true, left, right)
}

// AssignLocation returns left = right where left may be any location
// accepted by MakeAssignBinary.
func AssignLocation(left, right Node) (*AssignBinary, error) {
	return makeAssignBinary(0, false, left, right)
}

func makeAssignBinary(op BinaryOp, compound bool, left, right Node) (*AssignBinary, error) {
	if left == nil {
		return nil, errors.ArgNull("left")
	}
	if !isWritable(left) {
		return nil, errors.Argf("left", "%s is not assignable", left.Kind())
	}
	if !compound {
		if err := requireValue(right, left.Type(), "right"); err != nil {
			return nil, err
		}
		return &AssignBinary{left: left, right: right}, nil
	}
	switch op {
	case AddOp, SubtractOp, MultiplyOp, DivideOp, ModuloOp, AndOp, OrOp, XorOp:
	default:
		return nil, errors.Argf("op", "operator %s has no compound assignment form", op)
	}
	if err := requireReadable(left, "left"); err != nil {
		return nil, err
	}
	if err := requireReadable(right, "right"); err != nil {
		return nil, err
	}
	t, err := binaryType(op, left.Type(), right.Type())
	if err != nil {
		return nil, err
	}
	if !t.AssignableTo(left.Type()) {
		return nil, errors.Argf("right", "result of %s %s %s cannot be assigned to %s", left.Type(), op, right.Type(), left.Type())
	}
	return &AssignBinary{op: op, compound: true, left: left, right: right}, nil
}

// AddAssign returns left += right.
func AddAssign(left, right Node) (*AssignBinary, error) {
	return MakeAssignBinary(AddOp, left, right)
}

// SubtractAssign returns left -= right.
func SubtractAssign(left, right Node) (*AssignBinary, error) {
	return MakeAssignBinary(SubtractOp, left, right)
}

func (x *AssignBinary) Kind() Kind        { return AssignBinaryKind }
func (x *AssignBinary) Type() *types.Type { return x.left.Type() }
func (x *AssignBinary) Left() Node        { return x.left }
func (x *AssignBinary) Right() Node       { return x.right }
func (x *AssignBinary) node()             {}

// Op returns the operator of a compound assignment. It reports false for
// simple assignments.
func (x *AssignBinary) Op() (BinaryOp, bool) { return x.op, x.compound }

func (x *AssignBinary) Update(left, right Node) (*AssignBinary, error) {
	if left == x.left && right == x.right {
		return x, nil
	}
	return makeAssignBinary(x.op, x.compound, left, right)
}

func (x *AssignBinary) Reduce() (Node, error) {
	var s spill
	loc, err := s.location(x.left)
	if err != nil {
		return nil, err
	}
	value := x.right
	if x.compound {
		if value, err = MakeBinary(x.op, loc, x.right); err != nil {
			return nil, err
		}
	}
	assign, err := AssignTo(loc, value)
	if err != nil {
		return nil, err
	}
	return s.wrap(assign)
}
