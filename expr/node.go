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

// Package expr defines an intermediate representation for high-level
// language constructs and the reduction of those constructs to a small set
// of primitive nodes.
//
// All nodes are immutable and are created by factory functions that
// validate their inputs eagerly: a factory either returns a valid node or
// an error, see package errors for the error kinds.
//
// Primitive kinds are understood directly by an evaluator: constants,
// variables, blocks, labels and jumps, conditionals, exception regions,
// assignments, member access, calls, object and array construction,
// operators, conversions and lambdas. Extension kinds, the kinds whose Go
// types end in Expr or Stmt together with the conditional access kinds,
// AsyncLambda and AssignBinary, implement Reducible and are lowered to
// primitives by Reduce.
package expr // import "github.com/cue-exp/exprtree/expr"

import (
	"fmt"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/types"
)

// A Node is an immutable element of an expression tree.
type Node interface {
	// Kind reports the node kind.
	Kind() Kind

	// Type reports the static type of the node. It is fixed at construction.
	Type() *types.Type

	node() // enforce internal.
}

// A Reducible node can be rewritten into an equivalent tree of simpler
// nodes. Reduce performs a single lowering step; the result may contain
// further reducible nodes.
type Reducible interface {
	Node
	Reduce() (Node, error)
}

// Must returns n if err is nil and panics otherwise. It is intended for
// building nodes and catch blocks whose validity is known statically.
func Must[T any](n T, err error) T {
	if err != nil {
		panic(err)
	}
	return n
}

// A Kind identifies the kind of a node.
type Kind uint8

const (
	ConstKind Kind = iota
	DefaultKind
	VarKind
	BlockKind
	LabelKind
	GotoKind
	CondKind
	TryKind
	ThrowKind
	AssignKind
	MemberKind
	CallKind
	NewKind
	InvokeKind
	IndexKind
	NewArrayKind
	UnaryKind
	BinaryKind
	ConvertKind
	LambdaKind

	// Extension kinds.

	CallExprKind
	NewExprKind
	InvokeExprKind
	IndexExprKind
	ArrayInitKind
	AwaitKind
	AsyncLambdaKind
	ConditionalMemberKind
	ConditionalIndexKind
	ConditionalCallKind
	ConditionalInvokeKind
	ConditionalAccessKind
	ConditionalReceiverKind
	WhileKind
	DoKind
	ForKind
	ForEachKind
	SwitchKind
	GotoCaseKind
	GotoDefaultKind
	UsingKind
	AssignBinaryKind

	numKinds
)

var kindNames = [numKinds]string{
	ConstKind:               "Const",
	DefaultKind:             "Default",
	VarKind:                 "Var",
	BlockKind:               "Block",
	LabelKind:               "Label",
	GotoKind:                "Goto",
	CondKind:                "Cond",
	TryKind:                 "Try",
	ThrowKind:               "Throw",
	AssignKind:              "Assign",
	MemberKind:              "Member",
	CallKind:                "Call",
	NewKind:                 "New",
	InvokeKind:              "Invoke",
	IndexKind:               "Index",
	NewArrayKind:            "NewArray",
	UnaryKind:               "Unary",
	BinaryKind:              "Binary",
	ConvertKind:             "Convert",
	LambdaKind:              "Lambda",
	CallExprKind:            "CallExpr",
	NewExprKind:             "NewExpr",
	InvokeExprKind:          "InvokeExpr",
	IndexExprKind:           "IndexExpr",
	ArrayInitKind:           "NewMultidimensionalArrayInit",
	AwaitKind:               "Await",
	AsyncLambdaKind:         "AsyncLambda",
	ConditionalMemberKind:   "ConditionalMember",
	ConditionalIndexKind:    "ConditionalIndex",
	ConditionalCallKind:     "ConditionalCall",
	ConditionalInvokeKind:   "ConditionalInvoke",
	ConditionalAccessKind:   "ConditionalAccess",
	ConditionalReceiverKind: "ConditionalReceiver",
	WhileKind:               "While",
	DoKind:                  "Do",
	ForKind:                 "For",
	ForEachKind:             "ForEach",
	SwitchKind:              "Switch",
	GotoCaseKind:            "GotoCase",
	GotoDefaultKind:         "GotoDefault",
	UsingKind:               "Using",
	AssignBinaryKind:        "AssignBinary",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsPrimitive reports whether nodes of kind k are part of the primitive set
// produced by Reduce.
func (k Kind) IsPrimitive() bool {
	return k <= LambdaKind
}

// requireReadable checks that n can be used as a value.
func requireReadable(n Node, param string) error {
	if n == nil {
		return errors.ArgNull(param)
	}
	if n.Type() == types.Void {
		return errors.Argf(param, "expression of type void cannot be used as a value")
	}
	switch x := n.(type) {
	case *Member:
		if p, ok := x.member.(*types.Property); ok && !p.CanRead() {
			return errors.Argf(param, "property %s is write-only", p.Name())
		}
	case *Index:
		if x.prop != nil && !x.prop.CanRead() {
			return errors.Argf(param, "indexer %s is write-only", x.prop.Name())
		}
	case *IndexExpr:
		if !x.prop.CanRead() {
			return errors.Argf(param, "indexer %s is write-only", x.prop.Name())
		}
	}
	return nil
}

// requireValue checks that n is readable and assignable to t.
func requireValue(n Node, t *types.Type, param string) error {
	if err := requireReadable(n, param); err != nil {
		return err
	}
	if !n.Type().AssignableTo(t) {
		return errors.Argf(param, "expression of type %s cannot be used as %s", n.Type(), t)
	}
	return nil
}

// requireBool checks that n is a readable boolean.
func requireBool(n Node, param string) error {
	if err := requireReadable(n, param); err != nil {
		return err
	}
	if n.Type() != types.Bool {
		return errors.Argf(param, "%s must be of type bool, found %s", param, n.Type())
	}
	return nil
}

// isWritable reports whether n denotes a location that can be assigned to.
func isWritable(n Node) bool {
	switch x := n.(type) {
	case *Var:
		return true
	case *Member:
		switch m := x.member.(type) {
		case *types.Field:
			return !m.IsReadOnly()
		case *types.Property:
			return m.CanWrite()
		}
	case *Index:
		return x.prop == nil || x.prop.CanWrite()
	case *IndexExpr:
		return x.prop.CanWrite()
	}
	return false
}

// isLocation reports whether n is a storage location that can be passed by
// reference: a variable, a writable field, an array element or an indexer
// with both a getter and a setter.
func isLocation(n Node) bool {
	switch x := n.(type) {
	case *Var:
		return true
	case *Member:
		f, ok := x.member.(*types.Field)
		return ok && !f.IsReadOnly()
	case *Index:
		return x.prop == nil || (x.prop.CanRead() && x.prop.CanWrite())
	case *IndexExpr:
		return x.prop.CanRead() && x.prop.CanWrite()
	}
	return false
}

func checkNodes(a []Node, param string) error {
	for i, n := range a {
		if n == nil {
			return errors.ArgNull(fmt.Sprintf("%s[%d]", param, i))
		}
	}
	return nil
}

func checkVars(vars []*Var, param string) error {
	seen := map[*Var]bool{}
	for i, v := range vars {
		if v == nil {
			return errors.ArgNull(fmt.Sprintf("%s[%d]", param, i))
		}
		if seen[v] {
			return errors.Argf(param, "variable %s is declared more than once", v.Name())
		}
		seen[v] = true
	}
	return nil
}

func sameNodes(a, b []Node) bool {
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

func sameVars(a, b []*Var) bool {
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

func clone[T any](a []T) []T {
	if len(a) == 0 {
		return nil
	}
	return append([]T(nil), a...)
}
