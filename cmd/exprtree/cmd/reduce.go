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
	"github.com/spf13/cobra"

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/internal/debug"
)

func newReduceCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce file.yaml",
		Short: "print the primitive form of expression trees",
		Long: `reduce lowers each tree in the given file to primitive nodes and
prints the result.
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, runReduce),
	}
	cmd.Flags().Bool(string(flagTypes), false, "print the types of variables")
	return cmd
}

func runReduce(cmd *Command, args []string) error {
	cfg := &debug.Config{Types: flagTypes.Bool(cmd)}
	err := decodeFile(cmd, args[0], func(n expr.Node) error {
		r, err := expr.Reduce(n)
		if err != nil {
			return err
		}
		debug.Print(cmd.OutOrStdout(), r, cfg)
		return nil
	})
	return exitOnErr(cmd, err)
}
