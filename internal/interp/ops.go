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

package interp

import (
	"math"
	"reflect"

	"github.com/cockroachdb/apd/v3"

	"github.com/cue-exp/exprtree/errors"
	"github.com/cue-exp/exprtree/expr"
	"github.com/cue-exp/exprtree/types"
)

// decimalContext is used for all decimal arithmetic.
var decimalContext = apd.BaseContext.WithPrecision(34)

func unary(op expr.UnaryOp, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch op {
	case expr.NotOp:
		switch v := v.(type) {
		case bool:
			return !v, nil
		case int:
			return ^v, nil
		}
	case expr.NegateOp:
		switch v := v.(type) {
		case int:
			return -v, nil
		case float64:
			return -v, nil
		case *apd.Decimal:
			return new(apd.Decimal).Neg(v), nil
		}
	}
	return nil, errors.InvalidOpf("invalid operand %T for unary %v", v, op)
}

func binary(op expr.BinaryOp, x, y any) (any, error) {
	switch op {
	case expr.EqualOp:
		return equal(x, y), nil
	case expr.NotEqualOp:
		return !equal(x, y), nil
	}
	if op == expr.AddOp {
		// A null string operand is treated as empty.
		s, sok := x.(string)
		t, tok := y.(string)
		if (sok || tok) && (sok || x == nil) && (tok || y == nil) {
			return s + t, nil
		}
	}
	if x == nil || y == nil {
		if op.IsComparison() {
			return false, nil
		}
		return nil, nil
	}
	switch x := x.(type) {
	case int:
		return intOp(op, x, y.(int))
	case float64:
		return floatOp(op, x, y.(float64))
	case *apd.Decimal:
		return decimalOp(op, x, y.(*apd.Decimal))
	case rune:
		return compare(op, cmp3(x, y.(rune)))
	case string:
		return compare(op, cmp3(x, y.(string)))
	case bool:
		y := y.(bool)
		switch op {
		case expr.AndOp:
			return x && y, nil
		case expr.OrOp:
			return x || y, nil
		case expr.XorOp:
			return x != y, nil
		}
	}
	return nil, errors.InvalidOpf("invalid operands %T and %T for %v", x, y, op)
}

func intOp(op expr.BinaryOp, x, y int) (any, error) {
	switch op {
	case expr.AddOp:
		return x + y, nil
	case expr.SubtractOp:
		return x - y, nil
	case expr.MultiplyOp:
		return x * y, nil
	case expr.DivideOp, expr.ModuloOp:
		if y == 0 {
			return nil, types.Throwf(types.DivideByZeroException, "integer division by zero")
		}
		if op == expr.DivideOp {
			return x / y, nil
		}
		return x % y, nil
	case expr.AndOp:
		return x & y, nil
	case expr.OrOp:
		return x | y, nil
	case expr.XorOp:
		return x ^ y, nil
	}
	return compare(op, cmp3(x, y))
}

func floatOp(op expr.BinaryOp, x, y float64) (any, error) {
	switch op {
	case expr.AddOp:
		return x + y, nil
	case expr.SubtractOp:
		return x - y, nil
	case expr.MultiplyOp:
		return x * y, nil
	case expr.DivideOp:
		return x / y, nil
	case expr.ModuloOp:
		return math.Mod(x, y), nil
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, nil
	}
	return compare(op, cmp3(x, y))
}

func decimalOp(op expr.BinaryOp, x, y *apd.Decimal) (any, error) {
	var f func(d, x, y *apd.Decimal) (apd.Condition, error)
	switch op {
	case expr.AddOp:
		f = decimalContext.Add
	case expr.SubtractOp:
		f = decimalContext.Sub
	case expr.MultiplyOp:
		f = decimalContext.Mul
	case expr.DivideOp, expr.ModuloOp:
		if y.IsZero() {
			return nil, types.Throwf(types.DivideByZeroException, "decimal division by zero")
		}
		f = decimalContext.Quo
		if op == expr.ModuloOp {
			f = decimalContext.Rem
		}
	default:
		return compare(op, x.Cmp(y))
	}
	d := new(apd.Decimal)
	if _, err := f(d, x, y); err != nil {
		return nil, types.Throwf(types.OverflowException, "%v", err)
	}
	return d, nil
}

type ordered interface {
	~int | ~int32 | ~float64 | ~string
}

func cmp3[T ordered](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compare(op expr.BinaryOp, c int) (any, error) {
	switch op {
	case expr.LessOp:
		return c < 0, nil
	case expr.LessEqualOp:
		return c <= 0, nil
	case expr.GreaterOp:
		return c > 0, nil
	case expr.GreaterEqualOp:
		return c >= 0, nil
	}
	return nil, errors.InvalidOpf("invalid operator %v", op)
}

// equal reports whether two runtime values are equal. Decimals and structs
// compare by value, other instances by identity.
func equal(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	switch x := x.(type) {
	case *apd.Decimal:
		y, ok := y.(*apd.Decimal)
		return ok && x.Cmp(y) == 0
	case *types.Instance:
		y, ok := y.(*types.Instance)
		if !ok {
			return false
		}
		if x.Type().Kind() != types.StructKind || x.Type() != y.Type() {
			return x == y
		}
		for _, f := range x.Type().Fields() {
			if !equal(x.Load(f), y.Load(f)) {
				return false
			}
		}
		return true
	}
	if !reflect.TypeOf(x).Comparable() || reflect.TypeOf(x) != reflect.TypeOf(y) {
		return false
	}
	return x == y
}

// convert converts v to type t.
func convert(v any, t *types.Type) (any, error) {
	if t == types.Void {
		return nil, nil
	}
	if v == nil {
		if t.IsNullable() {
			return nil, nil
		}
		return nil, types.Throwf(types.InvalidOperationException, "null value cannot be converted to %s", t)
	}
	target := t.NonNullable()
	switch target.Kind() {
	case types.IntKind, types.FloatKind, types.DecimalKind, types.CharKind:
		if types.TypeOf(v) != nil && (types.TypeOf(v).IsNumeric() || types.TypeOf(v) == types.Char) {
			return convertNumber(v, target.Kind())
		}
	case types.ObjectKind:
		return v, nil
	}
	if !target.Accepts(v) {
		return nil, types.Throwf(types.InvalidCastException, "cannot cast %s to %s", describe(v), t)
	}
	return v, nil
}

func describe(v any) string {
	if t := types.TypeOf(v); t != nil {
		return t.String()
	}
	return reflect.TypeOf(v).String()
}

func convertNumber(v any, k types.Kind) (any, error) {
	switch k {
	case types.IntKind:
		return toInt(v)
	case types.CharKind:
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return rune(i), nil
	case types.FloatKind:
		switch v := v.(type) {
		case int:
			return float64(v), nil
		case rune:
			return float64(v), nil
		case float64:
			return v, nil
		case *apd.Decimal:
			return v.Float64()
		}
	case types.DecimalKind:
		switch v := v.(type) {
		case int:
			return apd.New(int64(v), 0), nil
		case rune:
			return apd.New(int64(v), 0), nil
		case float64:
			d, err := new(apd.Decimal).SetFloat64(v)
			if err != nil {
				return nil, types.Throwf(types.OverflowException, "%v", err)
			}
			return d, nil
		case *apd.Decimal:
			return v, nil
		}
	}
	return nil, types.Throwf(types.InvalidCastException, "cannot convert %T to %v", v, k)
}

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case rune:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, types.Throwf(types.OverflowException, "%v cannot be converted to int", v)
		}
		return int(v), nil
	case *apd.Decimal:
		var d apd.Decimal
		c := *decimalContext
		c.Rounding = apd.RoundDown
		if _, err := c.RoundToIntegralValue(&d, v); err != nil {
			return 0, types.Throwf(types.OverflowException, "%v", err)
		}
		i, err := d.Int64()
		if err != nil {
			return 0, types.Throwf(types.OverflowException, "%v", err)
		}
		return int(i), nil
	}
	return 0, types.Throwf(types.InvalidCastException, "cannot convert %T to int", v)
}
