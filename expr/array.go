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

// An Initializer is a nested array initializer: either a single element
// expression or a list of initializers, as in {{2, 3}, {5, 7}}.
type Initializer struct {
	elem Node
	list []Initializer
}

// InitElem returns an element initializer.
func InitElem(n Node) Initializer { return Initializer{elem: n} }

// InitList returns a list initializer.
func InitList(inits ...Initializer) Initializer {
	return Initializer{list: inits}
}

// IsList reports whether i is a list initializer.
func (i Initializer) IsList() bool { return i.elem == nil }

// An ArrayInitExpr creates a multidimensional array whose elements are
// given in row-major order. Element expressions are evaluated in order.
type ArrayInitExpr struct {
	bounds []int
	exprs  []Node
	typ    *types.Type
}

// NewMultidimensionalArrayInit returns the creation of an array of elem
// with the given bounds, initialized with exprs in row-major order. The
// number of expressions must equal the product of the bounds.
func NewMultidimensionalArrayInit(elem *types.Type, bounds []int, exprs ...Node) (*ArrayInitExpr, error) {
	if elem == nil {
		return nil, errors.ArgNull("type")
	}
	if elem == types.Void {
		return nil, errors.Argf("type", "array element type cannot be void")
	}
	if len(bounds) == 0 {
		return nil, errors.Argf("bounds", "array initializer requires at least one bound")
	}
	n := 1
	for i, b := range bounds {
		if b < 0 {
			return nil, errors.Argf("bounds", "bound %d of dimension %d is negative", b, i)
		}
		n *= b
	}
	if len(exprs) != n {
		return nil, errors.Argf("exprs", "array initializer with bounds %v requires %d elements, found %d", bounds, n, len(exprs))
	}
	for i, e := range exprs {
		if err := requireValue(e, elem, fmt.Sprintf("exprs[%d]", i)); err != nil {
			return nil, err
		}
	}
	return &ArrayInitExpr{
		bounds: clone(bounds),
		exprs:  clone(exprs),
		typ:    types.ArrayOf(elem, len(bounds)),
	}, nil
}

// NewArrayInitializer returns the creation of an array of elem from a
// nested initializer. The rank is the nesting depth of the first element;
// every list at the same depth must have the same length.
func NewArrayInitializer(elem *types.Type, init Initializer) (*ArrayInitExpr, error) {
	if !init.IsList() {
		return nil, errors.Argf("initializer", "array initializer must be a list")
	}
	var bounds []int
	for i := init; i.IsList(); {
		bounds = append(bounds, len(i.list))
		if len(i.list) == 0 {
			break
		}
		i = i.list[0]
	}
	var exprs []Node
	var flatten func(i Initializer, dim int) error
	flatten = func(i Initializer, dim int) error {
		if dim == len(bounds) {
			if i.IsList() {
				return errors.Argf("initializer", "non-rectangular array initializer: expected an element at depth %d, found a list", dim)
			}
			exprs = append(exprs, i.elem)
			return nil
		}
		if !i.IsList() {
			return errors.Argf("initializer", "non-rectangular array initializer: expected a list at depth %d, found an element", dim)
		}
		if len(i.list) != bounds[dim] {
			return errors.Argf("initializer", "non-rectangular array initializer: dimension %d has %d elements, want %d", dim, len(i.list), bounds[dim])
		}
		for _, x := range i.list {
			if err := flatten(x, dim+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := flatten(init, 0); err != nil {
		return nil, err
	}
	return NewMultidimensionalArrayInit(elem, bounds, exprs...)
}

func (x *ArrayInitExpr) Kind() Kind        { return ArrayInitKind }
func (x *ArrayInitExpr) Type() *types.Type { return x.typ }
func (x *ArrayInitExpr) Bounds() []int     { return x.bounds }
func (x *ArrayInitExpr) Exprs() []Node     { return x.exprs }
func (x *ArrayInitExpr) node()             {}

func (x *ArrayInitExpr) Update(exprs []Node) (*ArrayInitExpr, error) {
	if sameNodes(exprs, x.exprs) {
		return x, nil
	}
	return NewMultidimensionalArrayInit(x.typ.Elem(), x.bounds, exprs...)
}

// Reduce lowers the initializer to the allocation of the array followed by
// a store of each element, in the order the elements were written.
func (x *ArrayInitExpr) Reduce() (Node, error) {
	arr, err := Variable(x.typ, "array")
	if err != nil {
		return nil, err
	}
	bounds := make([]Node, len(x.bounds))
	for i, b := range x.bounds {
		if bounds[i], err = Constant(b, types.Int); err != nil {
			return nil, err
		}
	}
	alloc, err := NewArrayBounds(x.typ.Elem(), bounds...)
	if err != nil {
		return nil, err
	}
	var b lowering
	b.add(AssignTo(arr, alloc))
	strides := types.Strides(x.bounds)
	for k, e := range x.exprs {
		idx := make([]Node, len(strides))
		rem := k
		for d, s := range strides {
			if idx[d], err = Constant(rem/s, types.Int); err != nil {
				return nil, err
			}
			rem %= s
		}
		elem, err := ArrayAccess(arr, idx...)
		if err != nil {
			return nil, err
		}
		b.add(AssignTo(elem, e))
	}
	b.add(arr, nil)
	if b.err != nil {
		return nil, b.err
	}
	return MakeBlock(x.typ, []*Var{arr}, b.stmts)
}
