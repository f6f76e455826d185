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

// Package task implements the completion mechanism targeted by lowered
// await expressions.
//
// A Task completes at most once, with either a value or an error. Code
// waiting for a task registers a continuation with OnCompleted; the
// continuation runs on the goroutine that completes the task, or
// immediately if the task has already completed. Cancellation is not a
// separate state: a canceled task is a task that failed with ErrCanceled.
package task

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrCanceled is the failure of a canceled task.
	ErrCanceled = errors.New("task canceled")

	// ErrNotCompleted is returned by Result for a pending task.
	ErrNotCompleted = errors.New("task not completed")

	// ErrCompleted is returned when completing a task a second time.
	ErrCompleted = errors.New("task already completed")
)

// A Task is the consumer side of an asynchronous operation.
type Task struct {
	mu    sync.Mutex
	done  chan struct{}
	value any
	err   error
	conts []func()
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// IsCompleted reports whether t has completed, successfully or not.
func (t *Task) IsCompleted() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome of a completed task. It returns
// ErrNotCompleted if t is still pending.
func (t *Task) Result() (any, error) {
	if !t.IsCompleted() {
		return nil, ErrNotCompleted
	}
	return t.value, t.err
}

// Wait blocks until t completes or ctx is done.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel that is closed when t completes.
func (t *Task) Done() <-chan struct{} { return t.done }

// OnCompleted registers f to be called once t completes. If t has already
// completed, f is called before OnCompleted returns.
func (t *Task) OnCompleted(f func()) {
	t.mu.Lock()
	if !t.IsCompleted() {
		t.conts = append(t.conts, f)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	f()
}

func (t *Task) complete(v any, err error) error {
	t.mu.Lock()
	if t.IsCompleted() {
		t.mu.Unlock()
		return ErrCompleted
	}
	t.value, t.err = v, err
	conts := t.conts
	t.conts = nil
	close(t.done)
	t.mu.Unlock()

	for _, f := range conts {
		f()
	}
	return nil
}

// A Source is the producer side of a Task.
type Source struct {
	t *Task
}

// NewSource returns a Source for a new pending task.
func NewSource() *Source {
	return &Source{t: newTask()}
}

// Task returns the task completed by s.
func (s *Source) Task() *Task { return s.t }

// SetResult completes the task successfully with value v.
func (s *Source) SetResult(v any) error {
	return s.t.complete(v, nil)
}

// SetError completes the task with a failure.
func (s *Source) SetError(err error) error {
	if err == nil {
		err = errors.New("task failed with a nil error")
	}
	return s.t.complete(nil, err)
}

// SetCanceled completes the task with ErrCanceled.
func (s *Source) SetCanceled() error {
	return s.t.complete(nil, ErrCanceled)
}

// FromResult returns a completed task with value v.
func FromResult(v any) *Task {
	s := NewSource()
	s.SetResult(v)
	return s.t
}

// FromError returns a failed task.
func FromError(err error) *Task {
	s := NewSource()
	s.SetError(err)
	return s.t
}

// Go runs f on a new goroutine and returns a task for its outcome.
func Go(f func() (any, error)) *Task {
	s := NewSource()
	go func() {
		v, err := f()
		if err != nil {
			s.SetError(err)
			return
		}
		s.SetResult(v)
	}()
	return s.t
}

// Yield returns a task that completes with no value on a new goroutine.
func Yield() *Task {
	return Go(func() (any, error) { return nil, nil })
}
