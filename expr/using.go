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

// A UsingStmt evaluates a resource, evaluates its body and disposes of the
// resource when control leaves the body, including by exceptions and jumps.
// Null resources are not disposed.
type UsingStmt struct {
	v        *Var
	resource Node
	body     Node
	dispose  *types.Method
}

// Using returns a using statement. If v is not nil, the resource is bound
// to it within the body. The type of the resource, or of v if given, must
// have a Dispose method without parameters.
func Using(v *Var, resource, body Node) (*UsingStmt, error) {
	if err := requireReadable(resource, "resource"); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.ArgNull("body")
	}
	t := resource.Type()
	if v != nil {
		if err := requireValue(resource, v.typ, "resource"); err != nil {
			return nil, err
		}
		t = v.typ
	}
	m := t.NonNullable().Method("Dispose")
	if m == nil || m.IsStatic() || len(m.Params()) > 0 {
		return nil, errors.Argf("resource", "type %s has no method Dispose()", t)
	}
	return &UsingStmt{v: v, resource: resource, body: body, dispose: m}, nil
}

func (x *UsingStmt) Kind() Kind        { return UsingKind }
func (x *UsingStmt) Type() *types.Type { return x.body.Type() }
func (x *UsingStmt) Variable() *Var    { return x.v }
func (x *UsingStmt) Resource() Node    { return x.resource }
func (x *UsingStmt) Body() Node        { return x.body }
func (x *UsingStmt) node()             {}

func (x *UsingStmt) Update(v *Var, resource, body Node) (*UsingStmt, error) {
	if v == x.v && resource == x.resource && body == x.body {
		return x, nil
	}
	return Using(v, resource, body)
}

func (x *UsingStmt) Reduce() (Node, error) {
	r := x.v
	if r == nil {
		var err error
		if r, err = Variable(x.resource.Type(), "resource"); err != nil {
			return nil, err
		}
	}
	init, err := AssignTo(r, x.resource)
	if err != nil {
		return nil, err
	}
	dispose, err := disposal(r, x.dispose)
	if err != nil {
		return nil, err
	}
	try, err := TryFinally(x.body, dispose)
	if err != nil {
		return nil, err
	}
	return MakeBlock(x.Type(), []*Var{r}, []Node{init, try})
}
