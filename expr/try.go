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

// A CatchBlock handles exceptions of a given type raised in the body of a
// Try. It is not a node by itself.
type CatchBlock struct {
	test   *types.Type
	v      *Var
	filter Node
	body   Node
}

// MakeCatch returns a handler for exceptions of type t. If v is not nil, it
// is bound to the exception and its type must be t; t defaults to the type
// of v, or to the root exception type. The optional filter is evaluated
// with v in scope and must be of type Bool.
func MakeCatch(t *types.Type, v *Var, body, filter Node) (*CatchBlock, error) {
	if body == nil {
		return nil, errors.ArgNull("body")
	}
	if t == nil {
		t = types.ExceptionType
		if v != nil {
			t = v.typ
		}
	}
	if !t.DerivesFrom(types.ExceptionType) {
		return nil, errors.Argf("type", "cannot catch values of type %s", t)
	}
	if v != nil && v.typ != t {
		return nil, errors.Argf("variable", "catch variable of type %s does not match %s", v.typ, t)
	}
	if filter != nil {
		if err := requireBool(filter, "filter"); err != nil {
			return nil, err
		}
	}
	return &CatchBlock{test: t, v: v, filter: filter, body: body}, nil
}

// Catch returns a handler binding the exception to v.
func Catch(v *Var, body Node) (*CatchBlock, error) {
	if v == nil {
		return nil, errors.ArgNull("variable")
	}
	return MakeCatch(nil, v, body, nil)
}

// CatchType returns a handler for exceptions of type t without a variable.
func CatchType(t *types.Type, body Node) (*CatchBlock, error) {
	if t == nil {
		return nil, errors.ArgNull("type")
	}
	return MakeCatch(t, nil, body, nil)
}

func (c *CatchBlock) Test() *types.Type { return c.test }
func (c *CatchBlock) Variable() *Var    { return c.v }
func (c *CatchBlock) Filter() Node      { return c.filter }
func (c *CatchBlock) Body() Node        { return c.body }

func (c *CatchBlock) Update(v *Var, filter, body Node) (*CatchBlock, error) {
	if v == c.v && filter == c.filter && body == c.body {
		return c, nil
	}
	return MakeCatch(c.test, v, body, filter)
}

// A Try evaluates its body and transfers control to the first matching
// handler if the body raises an exception. The finally block, if any, runs
// whenever control leaves the Try, including by jumps.
type Try struct {
	body     Node
	handlers []*CatchBlock
	finally  Node
	typ      *types.Type
}

// MakeTry returns a Try of type t. If t is nil, it is the type of body.
// Handler bodies must produce values assignable to t unless t is Void. At
// least one handler or a finally block is required.
func MakeTry(t *types.Type, body, finally Node, handlers ...*CatchBlock) (*Try, error) {
	if body == nil {
		return nil, errors.ArgNull("body")
	}
	for i, h := range handlers {
		if h == nil {
			return nil, errors.ArgNull(fmt.Sprintf("handlers[%d]", i))
		}
	}
	if len(handlers) == 0 && finally == nil {
		return nil, errors.Argf("handlers", "try requires at least one handler or a finally block")
	}
	if t == nil {
		t = body.Type()
	}
	if t != types.Void {
		if err := requireValue(body, t, "body"); err != nil {
			return nil, err
		}
		for _, h := range handlers {
			if err := requireValue(h.body, t, "handlers"); err != nil {
				return nil, err
			}
		}
	}
	return &Try{body: body, handlers: clone(handlers), finally: finally, typ: t}, nil
}

// TryCatch returns a Try with handlers.
func TryCatch(body Node, handlers ...*CatchBlock) (*Try, error) {
	return MakeTry(nil, body, nil, handlers...)
}

// TryFinally returns a Try with a finally block.
func TryFinally(body, finally Node) (*Try, error) {
	if finally == nil {
		return nil, errors.ArgNull("finally")
	}
	return MakeTry(nil, body, finally)
}

// TryCatchFinally returns a Try with handlers and a finally block.
func TryCatchFinally(body, finally Node, handlers ...*CatchBlock) (*Try, error) {
	return MakeTry(nil, body, finally, handlers...)
}

func (x *Try) Kind() Kind              { return TryKind }
func (x *Try) Type() *types.Type       { return x.typ }
func (x *Try) Body() Node              { return x.body }
func (x *Try) Handlers() []*CatchBlock { return x.handlers }
func (x *Try) Finally() Node           { return x.finally }
func (x *Try) node()                   {}

func (x *Try) Update(body Node, handlers []*CatchBlock, finally Node) (*Try, error) {
	if body == x.body && finally == x.finally && sameHandlers(handlers, x.handlers) {
		return x, nil
	}
	return MakeTry(x.typ, body, finally, handlers...)
}

func sameHandlers(a, b []*CatchBlock) bool {
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
