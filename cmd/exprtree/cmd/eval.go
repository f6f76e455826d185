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

	"github.com/spf13/cobra"

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/debug"
	"github.com/cue-exp/exprtree/internal/interp"
	"github.com/cue-exp/exprtree/types"
)

func newEvalCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval file.yaml",
		Short: "evaluate expression trees",
		Long: `eval reduces each tree in the given file and evaluates it.

Values passed to Console.Log are printed as they are logged. The value of a
tree that is not of type void is printed last. A tree that is a lambda
without parameters is called, and a resulting task is awaited.
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, runEval),
	}
	return cmd
}

func runEval(cmd *Command, args []string) error {
	w := cmd.OutOrStdout()
	err := decodeFile(cmd, args[0], func(n expr.Node) error {
		r, err := expr.Reduce(n)
		if err != nil {
			return err
		}
		v, err := interp.Run(cmd.Context(), r)
		if err != nil {
			return err
		}
		if n.Type() != types.Void && !isVoidLambda(n) {
			fmt.Fprintln(w, debug.Value(v))
		}
		return nil
	})
	return exitOnErr(cmd, err)
}

// isVoidLambda reports whether calling n yields no value.
func isVoidLambda(n expr.Node) bool {
	switch x := n.(type) {
	case *expr.Lambda:
		return len(x.Params()) == 0 && x.Type().Result() == types.Void
	case *expr.AsyncLambda:
		return len(x.Params()) == 0 && x.ResultType() == types.Void
	}
	return false
}
