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

// A UnaryOp is the operator of a Unary node.
type UnaryOp uint8

const (
	// NotOp is logical negation for booleans and bitwise complement for
	// integers.
	NotOp UnaryOp = iota
	// NegateOp is arithmetic negation.
	NegateOp
)

func (op UnaryOp) String() string {
	if op == NegateOp {
		return "-"
	}
	return "!"
}

// A Unary applies an operator to a single operand.
type Unary struct {
	op  UnaryOp
	x   Node
	typ *types.Type
}

// MakeUnary returns op applied to x. Operators are lifted over nullable
// operands.
func MakeUnary(op UnaryOp, x Node) (*Unary, error) {
	if err := requireReadable(x, "operand"); err != nil {
		return nil, err
	}
	t := x.Type().NonNullable()
	ok := false
	switch op {
	case NotOp:
		ok = t == types.Bool || t == types.Int
	case NegateOp:
		ok = t.IsNumeric()
	default:
		return nil, errors.Argf("op", "unknown unary operator %d", op)
	}
	if !ok {
		return nil, errors.Argf("operand", "operator %s is not defined for %s", op, x.Type())
	}
	return &Unary{op: op, x: x, typ: x.Type()}, nil
}

// Not returns the logical negation of x.
func Not(x Node) (*Unary, error) { return MakeUnary(NotOp, x) }

// Negate returns the arithmetic negation of x.
func Negate(x Node) (*Unary, error) { return MakeUnary(NegateOp, x) }

func (x *Unary) Kind() Kind        { return UnaryKind }
func (x *Unary) Type() *types.Type { return x.typ }
func (x *Unary) Op() UnaryOp       { return x.op }
func (x *Unary) Operand() Node     { return x.x }
func (x *Unary) node()             {}

func (x *Unary) Update(operand Node) (*Unary, error) {
	if operand == x.x {
		return x, nil
	}
	return MakeUnary(x.op, operand)
}

// A BinaryOp is the operator of a Binary node.
type BinaryOp uint8

const (
	AddOp BinaryOp = iota
	SubtractOp
	MultiplyOp
	DivideOp
	ModuloOp
	AndOp
	OrOp
	XorOp
	AndAlsoOp
	OrElseOp
	EqualOp
	NotEqualOp
	LessOp
	LessEqualOp
	GreaterOp
	GreaterEqualOp
)

var binaryOpNames = [...]string{
	AddOp:          "+",
	SubtractOp:     "-",
	MultiplyOp:     "*",
	DivideOp:       "/",
	ModuloOp:       "%",
	AndOp:          "&",
	OrOp:           "|",
	XorOp:          "^",
	AndAlsoOp:      "&&",
	OrElseOp:       "||",
	EqualOp:        "==",
	NotEqualOp:     "!=",
	LessOp:         "<",
	LessEqualOp:    "<=",
	GreaterOp:      ">",
	GreaterEqualOp: ">=",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool { return op <= ModuloOp }

// IsComparison reports whether op yields a boolean from two operands of
// the same type.
func (op BinaryOp) IsComparison() bool { return op >= EqualOp }

// A Binary applies an operator to two operands. AndAlso and OrElse
// evaluate their right operand only when needed; all other operators
// evaluate both operands from left to right.
type Binary struct {
	op   BinaryOp
	x, y Node
	typ  *types.Type
}

// MakeBinary returns op applied to x and y.
func MakeBinary(op BinaryOp, x, y Node) (*Binary, error) {
	if err := requireReadable(x, "left"); err != nil {
		return nil, err
	}
	if err := requireReadable(y, "right"); err != nil {
		return nil, err
	}
	t, err := binaryType(op, x.Type(), y.Type())
	if err != nil {
		return nil, err
	}
	return &Binary{op: op, x: x, y: y, typ: t}, nil
}

func binaryType(op BinaryOp, x, y *types.Type) (*types.Type, error) {
	undefined := func() (*types.Type, error) {
		return nil, errors.Argf("right", "operator %s is not defined for %s and %s", op, x, y)
	}
	switch op {
	case AddOp, SubtractOp, MultiplyOp, DivideOp, ModuloOp:
		if op == AddOp && x == types.String && y == types.String {
			return types.String, nil
		}
		if !sameLifted(x, y) || !x.NonNullable().IsNumeric() {
			return undefined()
		}
		return liftedResult(x, y, x.NonNullable()), nil

	case AndOp, OrOp, XorOp:
		if !sameLifted(x, y) {
			return undefined()
		}
		if t := x.NonNullable(); t != types.Bool && t != types.Int {
			return undefined()
		}
		return liftedResult(x, y, x.NonNullable()), nil

	case AndAlsoOp, OrElseOp:
		if x != types.Bool || y != types.Bool {
			return undefined()
		}
		return types.Bool, nil

	case EqualOp, NotEqualOp:
		if !equatable(x, y) {
			return undefined()
		}
		return types.Bool, nil

	case LessOp, LessEqualOp, GreaterOp, GreaterEqualOp:
		if x != y {
			return undefined()
		}
		if b := x.NonNullable(); !b.IsNumeric() && b != types.Char && b != types.String {
			return undefined()
		}
		return types.Bool, nil
	}
	return nil, errors.Argf("op", "unknown binary operator %d", op)
}

func sameLifted(x, y *types.Type) bool {
	return x.NonNullable() == y.NonNullable()
}

func liftedResult(x, y, t *types.Type) *types.Type {
	if x.Kind() == types.NullableKind || y.Kind() == types.NullableKind {
		return t.Nullable()
	}
	return t
}

func equatable(x, y *types.Type) bool {
	switch {
	case x == y, sameLifted(x, y):
		return true
	case x.IsValueType() || y.IsValueType():
		return false
	}
	return types.IsReferenceAssignable(x, y) || types.IsReferenceAssignable(y, x)
}

func (x *Binary) Kind() Kind        { return BinaryKind }
func (x *Binary) Type() *types.Type { return x.typ }
func (x *Binary) Op() BinaryOp      { return x.op }
func (x *Binary) Left() Node        { return x.x }
func (x *Binary) Right() Node       { return x.y }
func (x *Binary) node()             {}

func (x *Binary) Update(left, right Node) (*Binary, error) {
	if left == x.x && right == x.y {
		return x, nil
	}
	return MakeBinary(x.op, left, right)
}

// Add returns x + y.
func Add(x, y Node) (*Binary, error) { return MakeBinary(AddOp, x, y) }

// Subtract returns x - y.
func Subtract(x, y Node) (*Binary, error) { return MakeBinary(SubtractOp, x, y) }

// Multiply returns x * y.
func Multiply(x, y Node) (*Binary, error) { return MakeBinary(MultiplyOp, x, y) }

// Equal returns x == y.
func Equal(x, y Node) (*Binary, error) { return MakeBinary(EqualOp, x, y) }

// NotEqual returns x != y.
func NotEqual(x, y Node) (*Binary, error) { return MakeBinary(NotEqualOp, x, y) }

// LessThan returns x < y.
func LessThan(x, y Node) (*Binary, error) { return MakeBinary(LessOp, x, y) }

// GreaterThan returns x > y.
func GreaterThan(x, y Node) (*Binary, error) { return MakeBinary(GreaterOp, x, y) }

// AndAlso returns x && y.
func AndAlso(x, y Node) (*Binary, error) { return MakeBinary(AndAlsoOp, x, y) }

// OrElse returns x || y.
func OrElse(x, y Node) (*Binary, error) { return MakeBinary(OrElseOp, x, y) }
