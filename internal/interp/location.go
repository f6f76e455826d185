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

package interp

import (
	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

// A location is an evaluated storage location: its receiver and indices
// have been computed, but its value has not been read.
type location interface {
	load() (any, error)
	store(v any) error
}

// locate evaluates the receiver and indices of n.
func locate(e *env, n expr.Node) (location, error) {
	switch x := n.(type) {
	case *expr.Var:
		c, err := e.lookup(x)
		if err != nil {
			return nil, err
		}
		return varLoc{c}, nil

	case *expr.Member:
		var recv any
		if x.Expr() != nil {
			var err error
			if recv, err = receiver(e, x.Expr()); err != nil {
				return nil, err
			}
		}
		switch m := x.Member().(type) {
		case *types.Field:
			if m.IsStatic() {
				return staticLoc{m}, nil
			}
			inst, ok := recv.(*types.Instance)
			if !ok {
				return nil, errors.InvalidOpf("field %s of non-instance %T", m.Name(), recv)
			}
			return fieldLoc{inst, m}, nil
		case *types.Property:
			return propLoc{recv: recv, p: m}, nil
		}
		return nil, errors.InvalidOpf("cannot access member %s", x.Member().Name())

	case *expr.Index:
		recv, err := receiver(e, x.Expr())
		if err != nil {
			return nil, err
		}
		p := x.Indexer()
		var params []*types.Parameter
		if p != nil {
			params = p.Params()
		}
		args, err := arguments(e, params, x.Args())
		if err != nil {
			return nil, err
		}
		if p != nil {
			return propLoc{recv: recv, p: p, index: args}, nil
		}
		a := recv.(*types.Array)
		idx := make([]int, len(args))
		for i, v := range args {
			idx[i] = v.(int)
		}
		if _, err := a.Offset(idx...); err != nil {
			return nil, err
		}
		return elemLoc{a, idx}, nil
	}
	return nil, errors.InvalidOpf("%s is not a storage location", n.Kind())
}

type varLoc struct{ c *cell }

func (l varLoc) load() (any, error) { return l.c.load(), nil }
func (l varLoc) store(v any) error  { l.c.store(v); return nil }

type staticLoc struct{ f *types.Field }

func (l staticLoc) load() (any, error) { return l.f.LoadStatic(), nil }
func (l staticLoc) store(v any) error  { l.f.StoreStatic(v); return nil }

type fieldLoc struct {
	x *types.Instance
	f *types.Field
}

func (l fieldLoc) load() (any, error) { return l.x.Load(l.f), nil }
func (l fieldLoc) store(v any) error  { l.x.Store(l.f, v); return nil }

type elemLoc struct {
	a   *types.Array
	idx []int
}

func (l elemLoc) load() (any, error) { return l.a.Load(l.idx...) }
func (l elemLoc) store(v any) error  { return l.a.Store(v, l.idx...) }

// propLoc is a property or indexer.
type propLoc struct {
	recv  any
	p     *types.Property
	index []any
}

func (l propLoc) load() (any, error) {
	get := l.p.Getter()
	if get == nil {
		return nil, types.Throwf(types.InvalidOperationException, "property %s has no getter", l.p.Name())
	}
	return get(l.recv, l.index)
}

func (l propLoc) store(v any) error {
	set := l.p.Setter()
	if set == nil {
		return types.Throwf(types.InvalidOperationException, "property %s has no setter", l.p.Name())
	}
	return set(l.recv, l.index, v)
}

// ref passes a location to a by-ref parameter.
type ref struct{ loc location }

func (r ref) Load() any {
	v, err := r.loc.load()
	if err != nil {
		return nil
	}
	return v
}

func (r ref) Store(v any) {
	_ = r.loc.store(v)
}
