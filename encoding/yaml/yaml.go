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

// Package yaml decodes expression trees from YAML documents.
//
// A document describes a single tree. Mappings are operations, named by
// their first key; the remaining keys are the operands of the operation:
//
//	block:
//	  - assign: [$i, 1]
//	  - while: {lt: [$i, 3]}
//	    body:
//	      assign: [$i, 1]
//	      op: add
//	  - $i
//	vars: {i: int}
//
// Plain scalars are constants, except for unquoted strings starting with
// a dollar sign, which refer to a variable in scope. Sequences are blocks.
// Trees are built with the node factories of package expr, so decoding
// fails with the same errors as constructing an invalid tree, annotated
// with the position of the offending YAML node.
//
// Types are written as in the String method of types.Type: int?, string[],
// int[,] and task<int>, plus the names of the types in Config.Types.
// Within flow collections such type names must be quoted, as in
// {m: "int[,]", n: "int?"}.
package yaml

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

// Config configures a Decoder.
type Config struct {
	// Types lists the classes and structs a document may refer to by name,
	// in addition to the predeclared types.
	Types []*types.Type
}

var predeclared = []*types.Type{
	types.Void,
	types.Bool,
	types.Int,
	types.Float,
	types.Decimal,
	types.Char,
	types.String,
	types.Object,
	types.ExceptionType,
	types.NullReferenceException,
	types.IndexOutOfRangeException,
	types.ArgumentOutOfRangeException,
	types.InvalidCastException,
	types.DivideByZeroException,
	types.InvalidOperationException,
	types.OverflowException,
}

// A Decoder reads expression trees from a stream of YAML documents.
type Decoder struct {
	yamlDecoder *yaml.Decoder
	filename    string
	types       map[string]*types.Type

	// decodeErr is returned by any further calls to Decode when not nil.
	decodeErr error
}

// NewDecoder returns a Decoder reading from r. The filename is used for
// position information in errors.
func NewDecoder(filename string, r io.Reader, cfg *Config) *Decoder {
	d := &Decoder{
		yamlDecoder: yaml.NewDecoder(r),
		filename:    filename,
		types:       map[string]*types.Type{},
	}
	for _, t := range predeclared {
		d.types[t.String()] = t
	}
	if cfg != nil {
		for _, t := range cfg.Types {
			d.types[t.String()] = t
		}
	}
	return d
}

// Decode returns the tree described by the next YAML document. It returns
// io.EOF once no more documents are available.
func (d *Decoder) Decode() (expr.Node, error) {
	if err := d.decodeErr; err != nil {
		return nil, err
	}
	var yn yaml.Node
	if err := d.yamlDecoder.Decode(&yn); err != nil {
		if err == io.EOF {
			// Any further Decode calls must return EOF to avoid an endless loop.
			d.decodeErr = io.EOF
			return nil, io.EOF
		}
		d.decodeErr = errors.Newf(errors.Argument, errors.Pos{Filename: d.filename}, "invalid YAML: %v", err)
		return nil, d.decodeErr
	}
	s := &state{
		Decoder: d,
		labels:  map[string]*expr.LabelTarget{},
		aliases: map[*yaml.Node]bool{},
	}
	root := &yn
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, s.errf(root, "empty document")
		}
		root = root.Content[0]
	}
	return s.node(root)
}

// Unmarshal decodes the single tree described by the YAML document b.
func Unmarshal(filename string, b []byte, cfg *Config) (expr.Node, error) {
	d := NewDecoder(filename, bytes.NewReader(b), cfg)
	n, err := d.Decode()
	switch {
	case err == io.EOF:
		return nil, errors.Newf(errors.Argument, errors.Pos{Filename: filename}, "no document found")
	case err != nil:
		return nil, err
	}
	switch _, err := d.Decode(); {
	case err == nil:
		return nil, errors.Newf(errors.Argument, errors.Pos{Filename: filename}, "expected a single document")
	case err != io.EOF:
		return nil, err
	}
	return n, nil
}

// state holds the scopes of a document being decoded.
type state struct {
	*Decoder

	scope *scope

	// labels maps label names to targets within the innermost lambda.
	labels map[string]*expr.LabelTarget

	// aliases guards against cyclic YAML aliases.
	aliases map[*yaml.Node]bool
}

type scope struct {
	parent *scope
	vars   map[string]*expr.Var
}

func (s *state) push(vars ...*expr.Var) {
	sc := &scope{parent: s.scope, vars: make(map[string]*expr.Var, len(vars))}
	for _, v := range vars {
		if v != nil {
			sc.vars[v.Name()] = v
		}
	}
	s.scope = sc
}

func (s *state) pop() { s.scope = s.scope.parent }

func (s *state) lookup(n *yaml.Node, name string) (expr.Node, error) {
	for sc := s.scope; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, nil
		}
	}
	return nil, s.errf(n, "undefined variable %s", name)
}

func (s *state) pos(n *yaml.Node) errors.Pos {
	return errors.Pos{Filename: s.filename, Line: n.Line, Column: n.Column}
}

func (s *state) errf(n *yaml.Node, format string, args ...interface{}) error {
	return errors.Newf(errors.Argument, s.pos(n), format, args...)
}

// result converts the outcome of a factory to a plain node.
func result[T expr.Node](x T, err error) (expr.Node, error) {
	if err != nil {
		return nil, err
	}
	return x, nil
}

// node decodes n, attributing errors without a position to n.
func (s *state) node(n *yaml.Node) (expr.Node, error) {
	x, err := s.decode(n)
	if err != nil {
		return nil, errors.WithPos(err, s.pos(n))
	}
	return x, nil
}

func (s *state) decode(n *yaml.Node) (expr.Node, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if s.aliases[n] {
			return nil, s.errf(n, "alias %s refers to itself", n.Value)
		}
		s.aliases[n] = true
		defer delete(s.aliases, n)
		return s.node(n.Alias)

	case yaml.ScalarNode:
		if name, ok := strings.CutPrefix(n.Value, "$"); ok && n.ShortTag() == "!!str" &&
			n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 {
			return s.lookup(n, name)
		}
		v, err := s.scalar(n)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, s.errf(n, "null requires a type, as in {null: string}")
		}
		return result(expr.ConstOf(v))

	case yaml.SequenceNode:
		exprs, err := s.nodes(n)
		if err != nil {
			return nil, err
		}
		return result(expr.NewBlock(exprs...))

	case yaml.MappingNode:
		return s.mapping(n)
	}
	return nil, s.errf(n, "unexpected YAML node")
}

// nodes decodes the elements of a sequence. A nil node yields no elements
// and any other node a single element.
func (s *state) nodes(n *yaml.Node) ([]expr.Node, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		x, err := s.node(n)
		if err != nil {
			return nil, err
		}
		return []expr.Node{x}, nil
	}
	a := make([]expr.Node, len(n.Content))
	for i, c := range n.Content {
		x, err := s.node(c)
		if err != nil {
			return nil, err
		}
		a[i] = x
	}
	return a, nil
}

// pair decodes a sequence of exactly two nodes.
func (s *state) pair(n *yaml.Node) (x, y expr.Node, err error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
		return nil, nil, s.errf(n, "expected a sequence of two operands")
	}
	if x, err = s.node(n.Content[0]); err != nil {
		return nil, nil, err
	}
	if y, err = s.node(n.Content[1]); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// scalar returns the value of a plain scalar as typed by YAML.
func (s *state) scalar(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, s.errf(n, "expected a scalar")
	}
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, s.errf(n, "invalid boolean %s", n.Value)
		}
		return b, nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 0)
		if err != nil {
			return nil, s.errf(n, "invalid integer %s", n.Value)
		}
		return int(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, s.errf(n, "invalid float %s", n.Value)
		}
		return f, nil
	case "!!str":
		return n.Value, nil
	}
	return nil, s.errf(n, "unsupported scalar of type %s", n.ShortTag())
}

// value returns the runtime value of type t written as the scalar n.
func (s *state) value(n *yaml.Node, t *types.Type) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, s.errf(n, "expected a constant of type %s", t)
	}
	if n.ShortTag() == "!!null" {
		if !t.IsNullable() {
			return nil, s.errf(n, "null is not a value of type %s", t)
		}
		return nil, nil
	}
	v := n.Value
	switch t.NonNullable() {
	case types.Bool:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
	case types.Int:
		if i, err := strconv.ParseInt(v, 0, 0); err == nil {
			return int(i), nil
		}
	case types.Float:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	case types.Decimal:
		if d, _, err := apd.NewFromString(v); err == nil {
			return d, nil
		}
	case types.Char:
		if r, size := utf8.DecodeRuneInString(v); size > 0 && size == len(v) {
			return r, nil
		}
	case types.String:
		return v, nil
	case types.Object:
		return s.scalar(n)
	default:
		return nil, s.errf(n, "cannot write constants of type %s", t)
	}
	return nil, s.errf(n, "invalid %s constant %q", t, v)
}

// typ decodes a type name.
func (s *state) typ(n *yaml.Node) (*types.Type, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, s.errf(n, "expected a type name")
	}
	t, ok := s.parseType(strings.TrimSpace(n.Value))
	if !ok {
		return nil, s.errf(n, "unknown type %s", n.Value)
	}
	return t, nil
}

func (d *Decoder) parseType(name string) (*types.Type, bool) {
	switch {
	case strings.HasSuffix(name, "]"):
		i := strings.LastIndexByte(name, '[')
		if i < 0 {
			return nil, false
		}
		commas := name[i+1 : len(name)-1]
		if strings.Trim(commas, ",") != "" {
			return nil, false
		}
		t, ok := d.parseType(name[:i])
		if !ok || t == types.Void {
			return nil, false
		}
		return types.ArrayOf(t, len(commas)+1), true

	case strings.HasSuffix(name, "?"):
		t, ok := d.parseType(name[:len(name)-1])
		if !ok || !t.IsValueType() {
			return nil, false
		}
		return types.NullableOf(t), true

	case name == "task":
		return types.TaskOf(types.Void), true

	case strings.HasPrefix(name, "task<") && strings.HasSuffix(name, ">"):
		t, ok := d.parseType(name[len("task<") : len(name)-1])
		if !ok {
			return nil, false
		}
		return types.TaskOf(t), true
	}
	t, ok := d.types[name]
	return t, ok
}

// vars declares the variables of a mapping from names to types.
func (s *state) vars(n *yaml.Node) ([]*expr.Var, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, s.errf(n, "variables must be a mapping from names to types")
	}
	var vars []*expr.Var
	for i := 0; i < len(n.Content); i += 2 {
		t, err := s.typ(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		v, err := expr.Variable(t, n.Content[i].Value)
		if err != nil {
			return nil, errors.WithPos(err, s.pos(n.Content[i]))
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// target returns the label with the given name, creating it with type t,
// or Void if t is nil, on first use.
func (s *state) target(n *yaml.Node, t *types.Type) (*expr.LabelTarget, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		return nil, s.errf(n, "expected a label name")
	}
	if l, ok := s.labels[n.Value]; ok {
		if t != nil && l.Type() != t {
			return nil, s.errf(n, "label %s is of type %s, not %s", n.Value, l.Type(), t)
		}
		return l, nil
	}
	if t == nil {
		t = types.Void
	}
	l := expr.NewLabel(t, n.Value)
	s.labels[n.Value] = l
	return l, nil
}

// fields returns the keys of a mapping from index start on, which must
// all be among allowed.
func (s *state) fields(n *yaml.Node, start int, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, s.errf(n, "expected a mapping")
	}
	m := map[string]*yaml.Node{}
	for i := start; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if !contains(allowed, k.Value) {
			return nil, s.errf(k, "unexpected key %s", k.Value)
		}
		if _, dup := m[k.Value]; dup {
			return nil, s.errf(k, "duplicate key %s", k.Value)
		}
		m[k.Value] = n.Content[i+1]
	}
	return m, nil
}

func contains(a []string, s string) bool {
	for _, x := range a {
		if x == s {
			return true
		}
	}
	return false
}

// flag reports whether the optional boolean n is true.
func (s *state) flag(n *yaml.Node) (bool, error) {
	if n == nil {
		return false, nil
	}
	b, err := strconv.ParseBool(n.Value)
	if n.Kind != yaml.ScalarNode || err != nil {
		return false, s.errf(n, "expected a boolean")
	}
	return b, nil
}
