// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package value

import pstruct "github.com/golang/protobuf/ptypes/struct"

// NewDictFromMap converts a plain Go map (as produced by the parser's
// generic dictionary-value syntax) into a Dict backed by the protobuf
// Struct/Value well-known types, the same building block the teacher's
// toir.Value function uses for the identical "arbitrary nested value"
// problem.
func NewDictFromMap(m map[string]interface{}) Dict {
	if m == nil {
		return Dict{}
	}
	fields := make(map[string]*pstruct.Value, len(m))
	for k, v := range m {
		fields[k] = toStructValue(v)
	}
	return Dict{Fields: &pstruct.Struct{Fields: fields}}
}

func toStructValue(v interface{}) *pstruct.Value {
	switch t := v.(type) {
	case nil:
		return &pstruct.Value{Kind: &pstruct.Value_NullValue{}}
	case bool:
		return &pstruct.Value{Kind: &pstruct.Value_BoolValue{BoolValue: t}}
	case float64:
		return &pstruct.Value{Kind: &pstruct.Value_NumberValue{NumberValue: t}}
	case string:
		return &pstruct.Value{Kind: &pstruct.Value_StringValue{StringValue: t}}
	case map[string]interface{}:
		d := NewDictFromMap(t)
		return &pstruct.Value{Kind: &pstruct.Value_StructValue{StructValue: d.Fields}}
	case []interface{}:
		vals := make([]*pstruct.Value, len(t))
		for i, item := range t {
			vals[i] = toStructValue(item)
		}
		return &pstruct.Value{Kind: &pstruct.Value_ListValue{ListValue: &pstruct.ListValue{Values: vals}}}
	default:
		return &pstruct.Value{Kind: &pstruct.Value_NullValue{}}
	}
}

// ToGo converts a Dict back into plain Go values, the inverse of
// NewDictFromMap; used by tests and by any future round-trip printer.
func (d Dict) ToGo() map[string]interface{} {
	if d.Fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(d.Fields.Fields))
	for k, v := range d.Fields.Fields {
		out[k] = fromStructValue(v)
	}
	return out
}

func fromStructValue(v *pstruct.Value) interface{} {
	switch t := v.GetKind().(type) {
	case *pstruct.Value_NullValue:
		return nil
	case *pstruct.Value_BoolValue:
		return t.BoolValue
	case *pstruct.Value_NumberValue:
		return t.NumberValue
	case *pstruct.Value_StringValue:
		return t.StringValue
	case *pstruct.Value_StructValue:
		return NewDict(t.StructValue).ToGo()
	case *pstruct.Value_ListValue:
		out := make([]interface{}, len(t.ListValue.Values))
		for i, item := range t.ListValue.Values {
			out[i] = fromStructValue(item)
		}
		return out
	default:
		return nil
	}
}
