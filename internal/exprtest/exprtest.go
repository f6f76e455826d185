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

// Package exprtest is a helper package for test packages in this module.
// As such it should only be imported in _test.go files.
package exprtest

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"

	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

// UpdateGoldenFiles determines whether tests should update txtar archives
// and testscript scripts in the event of cmp failures. It corresponds to
// testscript.Params.UpdateGoldenFiles.
var UpdateGoldenFiles = os.Getenv("EXPRTREE_UPDATE") != ""

// A Recorder provides a static Log method for use in trees under test and
// records the values passed to it.
type Recorder struct {
	// Type is the class declaring Log.
	Type *types.Type

	// Method is the static method Log(value object).
	Method *types.Method

	mu      sync.Mutex
	entries []string
}

// NewRecorder returns a Recorder with a fresh Console class.
func NewRecorder() *Recorder {
	r := &Recorder{Type: types.NewClass("Console", nil)}
	r.Method = r.Type.DefineMethod("Log", types.Void,
		[]*types.Parameter{types.Param("value", types.Object)},
		func(_ any, args []any) (any, error) {
			r.Record(Format(args[0]))
			return nil, nil
		}, types.Static())
	return r
}

// Record appends s to the recorded values. It may be called from member
// implementations to interleave their effects with logged values.
func (r *Recorder) Record(s string) {
	r.mu.Lock()
	r.entries = append(r.entries, s)
	r.mu.Unlock()
}

// Log returns a call of the Log method with x.
func (r *Recorder) Log(x expr.Node) expr.Node {
	return expr.Must(expr.CallMethod(nil, r.Method, x))
}

// LogString returns a call of the Log method with a string constant.
func (r *Recorder) LogString(s string) expr.Node {
	return r.Log(expr.Must(expr.ConstOf(s)))
}

// Entries returns the recorded values in order.
func (r *Recorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

// String returns the recorded values, one per line.
func (r *Recorder) String() string {
	return strings.Join(r.Entries(), "\n")
}

// Reset discards all recorded values.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Format returns a stable textual form of a runtime value.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case rune:
		return fmt.Sprintf("%q", v)
	case string:
		return v
	case *apd.Decimal:
		return v.Text('f')
	case error:
		return v.Error()
	}
	return fmt.Sprint(v)
}
