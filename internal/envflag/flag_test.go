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

package envflag

import (
	"testing"

	"github.com/go-quicktest/qt"
)

type testFlags struct {
	Foo    bool
	BarBaz bool

	DefaultFalse bool `envflag:"default:false"`
	DefaultTrue  bool `envflag:"default:true"`
}

type testTypes struct {
	Name      string `envflag:"default:foo"`
	Threshold int    `envflag:"default:5"`
}

func success[T comparable](want T) func(t *testing.T) {
	return func(t *testing.T) {
		var x T
		err := Init(&x, "TEST_VAR")
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(x, want))
	}
}

func failure[T comparable](want T, wantError string) func(t *testing.T) {
	return func(t *testing.T) {
		var x T
		err := Init(&x, "TEST_VAR")
		qt.Assert(t, qt.ErrorMatches(err, wantError))
		qt.Assert(t, qt.Equals(x, want))
	}
}

func invalid[T comparable](want T) func(t *testing.T) {
	return func(t *testing.T) {
		var x T
		err := Init(&x, "TEST_VAR")
		qt.Assert(t, qt.ErrorIs(err, ErrInvalid))
		qt.Assert(t, qt.Equals(x, want))
	}
}

var tests = []struct {
	testName string
	envVal   string
	test     func(t *testing.T)
}{{
	testName: "Empty",
	envVal:   "",
	test:     success(testFlags{DefaultTrue: true}),
}, {
	testName: "JustCommas",
	envVal:   ",,",
	test:     success(testFlags{DefaultTrue: true}),
}, {
	testName: "Unknown",
	envVal:   "ratchet",
	test: failure(testFlags{DefaultTrue: true},
		`cannot parse TEST_VAR: unknown flag "ratchet" \(known flags: barbaz, defaultfalse, defaulttrue, foo\)`),
}, {
	testName: "Set",
	envVal:   ",foo,",
	test:     success(testFlags{Foo: true, DefaultTrue: true}),
}, {
	testName: "CaseInsensitive",
	envVal:   "BarBaz",
	test:     success(testFlags{BarBaz: true, DefaultTrue: true}),
}, {
	testName: "SetWithUnknown",
	envVal:   "foo,other",
	test: failure(testFlags{Foo: true, DefaultTrue: true},
		`cannot parse TEST_VAR: unknown flag "other" .*`),
}, {
	testName: "ToggleDefaults",
	envVal:   "defaulttrue=0,defaultfalse=true",
	test:     success(testFlags{DefaultFalse: true}),
}, {
	testName: "InvalidBool",
	envVal:   "foo=maybe",
	test:     invalid(testFlags{DefaultTrue: true}),
}, {
	testName: "Types",
	envVal:   "name=bar,threshold=3",
	test:     success(testTypes{Name: "bar", Threshold: 3}),
}, {
	testName: "TypeDefaults",
	envVal:   "",
	test:     success(testTypes{Name: "foo", Threshold: 5}),
}, {
	testName: "IntWithoutValue",
	envVal:   "threshold",
	test: failure(testTypes{Name: "foo", Threshold: 5},
		`cannot parse TEST_VAR: value needed for int flag "threshold"`),
}, {
	testName: "InvalidInt",
	envVal:   "threshold=many",
	test:     invalid(testTypes{Name: "foo", Threshold: 5}),
}}

func TestInit(t *testing.T) {
	for _, test := range tests {
		t.Run(test.testName, func(t *testing.T) {
			t.Setenv("TEST_VAR", test.envVal)
			test.test(t)
		})
	}
}

func TestNames(t *testing.T) {
	qt.Assert(t, qt.DeepEquals(Names(&testTypes{}), []string{"name", "threshold"}))
}
