package encode

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
)

// protoEncoder writes each record as a varint length-prefixed
// google.protobuf.Struct, readable with protodelim.UnmarshalFrom.
type protoEncoder struct{ w io.Writer }

func (e protoEncoder) Encode(r Record) error {
	msg, err := ProtoStruct(r)
	if err != nil {
		return err
	}
	_, err = protodelim.MarshalTo(e.w, msg)
	return err
}

// ProtoStruct converts r to a Struct with the same field names as the JSON
// form. Numbers become doubles, as in every Struct.
func ProtoStruct(r Record) (*structpb.Struct, error) {
	fields := map[string]any{"line": int64(r.Line)}
	if r.Keys != nil {
		fields["keys"] = widenList(r.Keys)
	}
	if r.Properties != nil {
		props := make(map[string]any, len(r.Properties))
		for k, v := range r.Properties {
			props[k] = widen(v)
		}
		fields["properties"] = props
	}
	if r.Values != nil {
		fields["values"] = widenList(r.Values)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.Line, err)
	}
	return s, nil
}

func widenList(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = widen(v)
	}
	return out
}

// widen maps the small integer types structpb does not accept.
func widen(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	default:
		return Normalize(v)
	}
}
