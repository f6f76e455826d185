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

// Package exprdebug holds the settings of the EXPRTREE_DEBUG environment
// variable.
package exprdebug

import (
	"sync"

	"github.com/cue-exp/exprtree/internal/envflag"
)

// Flags holds the set of global EXPRTREE_DEBUG flags. It is initialized by
// Init.
var Flags Config

// Config holds the known EXPRTREE_DEBUG flags.
//
// When adding, deleting, or modifying entries below, update the help text
// of the exprtree command as well.
type Config struct {
	// Strict verifies that reduced trees consist of primitive nodes only.
	Strict bool

	// LogReduce logs each lowering step.
	LogReduce bool

	// JumpTable is the minimum number of distinct integral case values for
	// which a switch dispatches with a binary decision tree instead of a
	// chain of equality tests.
	JumpTable int `envflag:"default:8"`
}

// Init initializes Flags. It is not an init function so that a malformed
// setting is reported as an error to the caller.
func Init() error {
	return initOnce()
}

var initOnce = sync.OnceValue(func() error {
	return envflag.Init(&Flags, "EXPRTREE_DEBUG")
})
