package config

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromCty converts an evaluated value into the engine's value model: strings,
// int64 for whole numbers, float64 otherwise, bools, nil for null, and
// []any / map[string]any for collections.
func FromCty(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty.Equals(cty.String):
		return val.AsString(), nil
	case ty.Equals(cty.Bool):
		return val.True(), nil
	case ty.Equals(cty.Number):
		return fromNumber(val.AsBigFloat()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			v, err := FromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			v, err := FromCty(elem)
			if err != nil {
				return nil, err
			}
			out[key.AsString()] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

func fromNumber(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	v, _ := f.Float64()
	return v
}

// ToCty converts an engine value for use in expressions. Values without an
// HCL representation, such as callables, report ok=false.
func ToCty(v any) (val cty.Value, ok bool) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), true
	case []any:
		elems := make([]cty.Value, 0, len(x))
		for _, e := range x {
			ev, ok := ToCty(e)
			if !ok {
				return cty.NilVal, false
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), true
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		for k, e := range x {
			ev, ok := ToCty(e)
			if !ok {
				return cty.NilVal, false
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), true
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil || !(ty.Equals(cty.String) || ty.Equals(cty.Number) || ty.Equals(cty.Bool)) {
		return cty.NilVal, false
	}
	val, err = gocty.ToCtyValue(v, ty)
	if err != nil {
		return cty.NilVal, false
	}
	return val, true
}

func toCtyMap(values map[string]any) map[string]cty.Value {
	out := make(map[string]cty.Value, len(values))
	for name, v := range values {
		if val, ok := ToCty(v); ok {
			out[name] = val
		}
	}
	return out
}

// functions available to configuration expressions.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"join":      stdlib.JoinFunc,
		"split":     stdlib.SplitFunc,
		"format":    stdlib.FormatFunc,
		"replace":   stdlib.ReplaceFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"concat":    stdlib.ConcatFunc,
		"length":    stdlib.LengthFunc,
		"max":       stdlib.MaxFunc,
		"min":       stdlib.MinFunc,
	}
}
