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

package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cue-exp/exprtree/encoding/yaml"
	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/debug"
	"github.com/cue-exp/exprtree/task"
	"github.com/cue-exp/exprtree/types"
)

// syncWriter serializes writes from continuations running on other
// goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(b)
}

// newConsole returns the Console class available to all trees. Its Log
// method writes to w.
func newConsole(w io.Writer) *types.Type {
	sw := &syncWriter{w: w}
	t := types.NewClass("Console", nil)
	t.DefineMethod("Log", types.Void,
		[]*types.Parameter{types.Param("value", types.Object)},
		func(_ any, args []any) (any, error) {
			_, err := fmt.Fprintln(sw, format(args[0]))
			return nil, err
		}, types.Static())
	t.DefineMethod("Delay", types.TaskOf(types.Int),
		[]*types.Parameter{types.Param("value", types.Int)},
		func(_ any, args []any) (any, error) {
			return task.Go(func() (any, error) { return args[0], nil }), nil
		}, types.Static())
	return t
}

// format returns the text written for a logged value.
func format(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return debug.Value(v)
}

// decodeFile calls f for each tree in the named file, stopping at the
// first error.
func decodeFile(cmd *Command, filename string, f func(n expr.Node) error) error {
	r, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer r.Close()

	d := yaml.NewDecoder(filename, r, &yaml.Config{
		Types: []*types.Type{newConsole(cmd.OutOrStdout())},
	})
	for {
		n, err := d.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := f(n); err != nil {
			return err
		}
	}
}

// exitOnErr prints err with its position and terminates the command.
func exitOnErr(cmd *Command, err error) error {
	if err == nil {
		return nil
	}
	errors.Print(cmd.Stderr(), err)
	return ErrPrintedError
}
