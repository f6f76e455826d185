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

package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestKinds(t *testing.T) {
	err := Argf("x", "bad %s", "input")
	qt.Assert(t, qt.ErrorIs(err, Argument))
	qt.Assert(t, qt.IsFalse(Is(err, ArgumentNull)))
	qt.Assert(t, qt.Equals(err.Param(), "x"))
	qt.Assert(t, qt.Equals(err.Error(), "bad input"))

	err = ArgNull("body")
	qt.Assert(t, qt.ErrorIs(err, ArgumentNull))
	qt.Assert(t, qt.Equals(err.Error(), "body must not be nil"))

	qt.Assert(t, qt.ErrorIs(InvalidOpf("no"), InvalidOperation))
	qt.Assert(t, qt.Equals(Kind(0).String(), "unknown error"))
}

func TestWrapf(t *testing.T) {
	p := Pos{Filename: "a.yaml", Line: 3, Column: 4}

	err := Wrapf(Argf("y", "too short"), p, "decoding")
	qt.Assert(t, qt.ErrorIs(err, Argument))
	qt.Assert(t, qt.Equals(err.Param(), "y"))
	qt.Assert(t, qt.Equals(err.Error(), "decoding: too short"))
	qt.Assert(t, qt.Equals(err.Position(), p))

	err = Wrapf(io.EOF, p, "")
	qt.Assert(t, qt.ErrorIs(err, InvalidOperation))
	qt.Assert(t, qt.ErrorIs(err, io.EOF))
	qt.Assert(t, qt.Equals(err.Error(), "EOF"))
}

func TestWithPos(t *testing.T) {
	p := Pos{Filename: "a.yaml", Line: 3, Column: 4}
	q := Pos{Filename: "a.yaml", Line: 7, Column: 1}

	orig := Argf("x", "bad")
	err := WithPos(orig, p)
	qt.Assert(t, qt.Equals(err.Position(), p))
	qt.Assert(t, qt.Equals(orig.Position(), Pos{}))

	// An existing position is kept.
	qt.Assert(t, qt.Equals(WithPos(err, q).Position(), p))

	err = WithPos(fmt.Errorf("plain"), q)
	qt.Assert(t, qt.Equals(err.Position(), q))
	qt.Assert(t, qt.Equals(err.Error(), "plain"))
}

func TestPosString(t *testing.T) {
	qt.Assert(t, qt.Equals(Pos{}.String(), "-"))
	qt.Assert(t, qt.Equals(Pos{Filename: "f"}.String(), "f"))
	qt.Assert(t, qt.Equals(Pos{Line: 1, Column: 2}.String(), "1:2"))
	qt.Assert(t, qt.Equals(Pos{Filename: "f", Line: 1, Column: 2}.String(), "f:1:2"))
}

func TestList(t *testing.T) {
	a := Newf(Argument, Pos{Filename: "b", Line: 2, Column: 1}, "second")
	b := Newf(InvalidOperation, Pos{Filename: "a", Line: 9, Column: 1}, "first")
	c := Newf(Argument, Pos{}, "no position")

	var err Error
	err = Append(err, a)
	qt.Assert(t, qt.Equals(err, a))
	err = Append(err, b)
	err = Append(err, c)

	list := err.(List)
	qt.Assert(t, qt.HasLen(list, 3))
	qt.Assert(t, qt.Equals(list.Error(), "second (and 2 more errors)"))
	qt.Assert(t, qt.ErrorIs(list, InvalidOperation))
	qt.Assert(t, qt.Equals(list.Kind(), Argument))

	list.Sort()
	qt.Assert(t, qt.Equals(Details(list), "no position\na:9:1: first\nb:2:1: second\n"))
	qt.Assert(t, qt.HasLen(Errors(list), 3))
	qt.Assert(t, qt.IsNil(List(nil).Err()))
	qt.Assert(t, qt.Equals(List(nil).Error(), "no errors"))
}

func TestErrorsPromote(t *testing.T) {
	errs := Errors(fmt.Errorf("plain"))
	qt.Assert(t, qt.HasLen(errs, 1))
	qt.Assert(t, qt.Equals(errs[0].Error(), "plain"))
	qt.Assert(t, qt.IsNil(Errors(nil)))
}
