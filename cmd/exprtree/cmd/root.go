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

// Package cmd implements the exprtree command line tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cue-exp/exprtree/internal/exprdebug"
)

type runFunction func(cmd *Command, args []string) error

func mkRunE(c *Command, f runFunction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c.Command = cmd
		if err := exprdebug.Init(); err != nil {
			return err
		}
		if flagVerbose.Bool(c) {
			exprdebug.Flags.LogReduce = true
			slog.SetDefault(slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{
				ReplaceAttr: dropTime,
			})))
		}
		return f(c, args)
	}
}

// dropTime removes the time from log records so that output is stable.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{}
	}
	return a
}

func newRootCmd() *Command {
	cmd := &cobra.Command{
		Use:   "exprtree",
		Short: "exprtree reduces and evaluates expression trees.",
		Long: `exprtree reads expression trees from YAML files, lowers them to
primitive nodes and evaluates them.

A tree is written as nested operations, each a mapping whose first key
names the operation:

	block:
	  - call: Console.Log
	    args: [{add: [$x, 1]}]
	vars: {x: int}

The class Console with the static methods Log(value object) and
Delay(value int) task<int> is available to all trees.

The EXPRTREE_DEBUG environment variable holds comma-separated debug
settings:

	strict       verify that reduced trees are primitive
	logreduce    log each lowering step
	jumptable=N  minimum number of integral case values for which a
	             switch is lowered to a binary decision tree (default 8)
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &Command{Command: cmd, root: cmd}

	subCommands := []*cobra.Command{
		newEvalCmd(c),
		newReduceCmd(c),
		newVersionCmd(c),
	}

	addGlobalFlags(cmd.PersistentFlags())

	for _, sub := range subCommands {
		cmd.AddCommand(sub)
	}

	return c
}

// Main runs the exprtree tool and returns the code for passing to os.Exit.
func Main() int {
	err := mainErr(context.Background(), os.Args[1:])
	if err != nil {
		if err != ErrPrintedError {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func mainErr(ctx context.Context, args []string) error {
	cmd := New(args)
	return cmd.Run(ctx)
}

// A Command is a cobra command with the error state of a run.
type Command struct {
	// The currently active command.
	*cobra.Command

	root *cobra.Command

	// hasErr indicates that an error was written to Stderr.
	hasErr bool
}

type errWriter Command

func (w *errWriter) Write(b []byte) (int, error) {
	c := (*Command)(w)
	c.hasErr = true
	return c.Command.OutOrStderr().Write(b)
}

// Stderr returns a writer that should be used for error messages. Writing
// to it causes the command to fail with ErrPrintedError.
func (c *Command) Stderr() io.Writer {
	return (*errWriter)(c)
}

// SetOutput sets the default writer for the output of the command.
func (c *Command) SetOutput(w io.Writer) {
	c.root.SetOut(w)
	c.root.SetErr(w)
}

// ErrPrintedError indicates error messages have been printed to stderr.
var ErrPrintedError = errors.New("terminating because of errors")

// Run executes the command with the arguments passed to New.
func (c *Command) Run(ctx context.Context) error {
	if err := c.root.ExecuteContext(ctx); err != nil {
		return err
	}
	if c.hasErr {
		return ErrPrintedError
	}
	return nil
}

// New creates the top-level command for the given arguments.
func New(args []string) *Command {
	cmd := newRootCmd()
	cmd.root.SetArgs(args)
	return cmd
}
