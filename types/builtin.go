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

package types

import (
	"log/slog"
	"unicode/utf8"

	"github.com/cue-exp/exprtree/task"
)

// Predeclared exception types. All derive from ExceptionType.
var (
	ExceptionType               = NewClass("Exception", nil)
	NullReferenceException      = NewClass("NullReferenceException", ExceptionType)
	IndexOutOfRangeException    = NewClass("IndexOutOfRangeException", ExceptionType)
	ArgumentOutOfRangeException = NewClass("ArgumentOutOfRangeException", ExceptionType)
	InvalidCastException        = NewClass("InvalidCastException", ExceptionType)
	DivideByZeroException       = NewClass("DivideByZeroException", ExceptionType)
	InvalidOperationException   = NewClass("InvalidOperationException", ExceptionType)
	OverflowException           = NewClass("OverflowException", ExceptionType)
)

func init() {
	for _, t := range []*Type{
		ExceptionType,
		NullReferenceException,
		IndexOutOfRangeException,
		ArgumentOutOfRangeException,
		InvalidCastException,
		DivideByZeroException,
		InvalidOperationException,
		OverflowException,
	} {
		defineExceptionMembers(t)
	}
	defineStringMembers()
}

func defineExceptionMembers(t *Type) {
	t.defineConstructor(nil, func(args []any) (any, error) {
		return &Exception{Type: t}, nil
	})
	t.defineConstructor([]*Parameter{Param("message", String)}, func(args []any) (any, error) {
		msg, _ := args[0].(string)
		return &Exception{Type: t, Message: msg}, nil
	})
	if t == ExceptionType {
		t.defineProperty("Message", String, nil, func(recv any, _ []any) (any, error) {
			return recv.(*Exception).Error(), nil
		}, nil, false)
	}
}

func defineStringMembers() {
	t := String
	t.defineProperty("Length", Int, nil, func(recv any, _ []any) (any, error) {
		return utf8.RuneCountInString(recv.(string)), nil
	}, nil, false)
	t.defineProperty("Chars", Char, []*Parameter{Param("index", Int)}, func(recv any, index []any) (any, error) {
		s := []rune(recv.(string))
		i := index[0].(int)
		if i < 0 || i >= len(s) {
			return nil, Throwf(IndexOutOfRangeException, "index %d out of range [0:%d]", i, len(s))
		}
		return s[i], nil
	}, nil, false)
	t.defineMethod("Substring", String, []*Parameter{
		Param("startIndex", Int),
		Param("length", Int),
	}, func(recv any, args []any) (any, error) {
		s := []rune(recv.(string))
		start, n := args[0].(int), args[1].(int)
		if start < 0 || n < 0 || start+n > len(s) {
			return nil, Throwf(ArgumentOutOfRangeException, "substring [%d:%d] out of range [0:%d]", start, start+n, len(s))
		}
		return string(s[start : start+n]), nil
	}, false)
}

func defineArrayMembers(t *Type) {
	t.defineProperty("Length", Int, nil, func(recv any, _ []any) (any, error) {
		return recv.(*Array).Len(), nil
	}, nil, false)
	t.defineMethod("GetLength", Int, []*Parameter{Param("dimension", Int)}, func(recv any, args []any) (any, error) {
		a := recv.(*Array)
		d := args[0].(int)
		if d < 0 || d >= len(a.lengths) {
			return nil, Throwf(IndexOutOfRangeException, "dimension %d out of range [0:%d]", d, len(a.lengths))
		}
		return a.lengths[d], nil
	}, false)
}

func defineTaskMembers(t *Type) {
	t.defineProperty("IsCompleted", Bool, nil, func(recv any, _ []any) (any, error) {
		return recv.(*task.Task).IsCompleted(), nil
	}, nil, false)
	t.defineMethod("GetResult", t.elem, nil, func(recv any, _ []any) (any, error) {
		return recv.(*task.Task).Result()
	}, false)
	t.defineMethod("OnCompleted", Void, []*Parameter{
		Param("continuation", FuncOf(Void)),
	}, func(recv any, args []any) (any, error) {
		c, ok := args[0].(Callable)
		if !ok {
			return nil, Throwf(NullReferenceException, "continuation is null")
		}
		recv.(*task.Task).OnCompleted(func() {
			if _, err := c.Call(nil); err != nil {
				slog.Error("task continuation failed", "err", err)
			}
		})
		return nil, nil
	}, false)
}

func defineTaskSourceMembers(t, taskType *Type) {
	t.defineConstructor(nil, func(args []any) (any, error) {
		return task.NewSource(), nil
	})
	t.defineProperty("Task", taskType, nil, func(recv any, _ []any) (any, error) {
		return recv.(*task.Source).Task(), nil
	}, nil, false)
	var params []*Parameter
	if t.elem != Void {
		params = []*Parameter{Param("result", t.elem)}
	}
	t.defineMethod("SetResult", Void, params, func(recv any, args []any) (any, error) {
		var v any
		if len(args) > 0 {
			v = args[0]
		}
		return nil, recv.(*task.Source).SetResult(v)
	}, false)
	t.defineMethod("SetException", Void, []*Parameter{
		Param("exception", ExceptionType),
	}, func(recv any, args []any) (any, error) {
		x, _ := args[0].(*Exception)
		var err error = x
		if x != nil && x.Message == "" && x.Err != nil && x.Type == ExceptionType {
			// Report wrapped Go errors, such as task.ErrCanceled, as is.
			err = x.Err
		}
		return nil, recv.(*task.Source).SetError(err)
	}, false)
}
