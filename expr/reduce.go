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
	"log/slog"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/internal/exprdebug"
)

// Reduce lowers all extension nodes in the tree rooted at n and returns a
// tree of primitive nodes with the same type and observable behavior.
// Subtrees without extension nodes are shared with the input; in
// particular, a primitive tree is returned as is.
//
// Errors that depend on the shape of a whole construct, such as a goto case
// without a matching case, are reported here as InvalidOperation errors.
func Reduce(n Node) (Node, error) {
	if n == nil {
		return nil, errors.ArgNull("node")
	}
	if err := exprdebug.Init(); err != nil {
		return nil, err
	}
	m, err := (&reducer{}).Visit(n)
	if err != nil {
		return nil, err
	}
	if exprdebug.Flags.Strict {
		if err := CheckReduced(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CheckReduced reports an InvalidOperation error if the tree rooted at n
// contains a node that is not primitive.
func CheckReduced(n Node) error {
	var err error
	Inspect(n, func(n Node) bool {
		if err == nil && !n.Kind().IsPrimitive() {
			err = errors.InvalidOpf("reduced tree contains %s node", n.Kind())
		}
		return err == nil
	})
	return err
}

// A reducer lowers nodes top-down: a reducible node is reduced before its
// children, and the result of a step is reduced again until it is
// primitive.
type reducer struct {
	// keepAwait retains await nodes, reducing only their operands. Lambdas
	// are reduced without it, as an await in a nested lambda does not
	// belong to the enclosing async lambda.
	keepAwait bool
}

func (r *reducer) Visit(n Node) (Node, error) {
	if r.keepAwait {
		switch x := n.(type) {
		case *AwaitExpr:
			return Recurse(r, x)
		case *Lambda:
			return Recurse(&reducer{}, x)
		}
	}
	red, ok := n.(Reducible)
	if !ok {
		return Recurse(r, n)
	}
	m, err := red.Reduce()
	if err != nil {
		return nil, err
	}
	if m.Type() != n.Type() {
		return nil, errors.InvalidOpf("reduction of %s changed its type from %s to %s", n.Kind(), n.Type(), m.Type())
	}
	if exprdebug.Flags.LogReduce {
		slog.Info("reduced", "kind", n.Kind(), "into", m.Kind(), "type", n.Type())
	}
	return r.Visit(m)
}
