// Package encode writes converted records as a stream for downstream bulk
// importers: newline-delimited JSON, MessagePack, CBOR or length-delimited
// protobuf Structs.
//
// Domain values are normalized before encoding so every format carries the
// same plain representation: UUIDs, decimals and chars as strings, dates as
// YYYY-MM-DD.
package encode

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
	FormatProto   Format = "protobuf"
)

// ParseFormat accepts json (alias ndjson), msgpack, cbor or protobuf
// (alias proto).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON, "ndjson":
		return FormatJSON, nil
	case FormatMsgpack, FormatCBOR, FormatProto:
		return f, nil
	case "proto":
		return FormatProto, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, msgpack, cbor or protobuf)", s)
	}
}

// Record is one converted line. Exactly one of Properties (map-shaped) and
// Values (array-shaped) is set.
type Record struct {
	Line       int            `json:"line" msgpack:"line" cbor:"line"`
	Keys       []any          `json:"keys,omitempty" msgpack:"keys,omitempty" cbor:"keys,omitempty"`
	Properties map[string]any `json:"properties,omitempty" msgpack:"properties,omitempty" cbor:"properties,omitempty"`
	Values     []any          `json:"values,omitempty" msgpack:"values,omitempty" cbor:"values,omitempty"`
}

// NewRecord builds a Record from a map-shaped conversion. keys may be nil.
func NewRecord(line int, keys []pgtype.Text, p rowdata.Pairs) Record {
	props := make(map[string]any, p.Len())
	for i := 0; i < p.Len(); i++ {
		props[p.Name(i)] = Normalize(p.Value(i))
	}
	return Record{Line: line, Keys: rawKeys(keys), Properties: props}
}

// NewArrayRecord builds a Record from an array-shaped conversion.
func NewArrayRecord(line int, keys []pgtype.Text, values []any) Record {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = Normalize(v)
	}
	return Record{Line: line, Keys: rawKeys(keys), Values: vals}
}

func rawKeys(keys []pgtype.Text) []any {
	if len(keys) == 0 {
		return nil
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		if k.Valid {
			out[i] = k.String
		}
	}
	return out
}

// Normalize maps codec values to plain encodable ones. Non-finite floats
// become the strings "NaN", "+Inf" and "-Inf" in every format.
func Normalize(v any) any {
	switch x := v.(type) {
	case rowdata.Character:
		return x.String()
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return nonFinite(f)
		}
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nonFinite(x)
		}
		return x
	case uuid.UUID:
		return x.String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		dv, err := x.Value()
		if err != nil {
			return nil
		}
		return dv
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return v
	}
}

func nonFinite(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		return "NaN"
	}
}

// Encoder writes records to a stream.
type Encoder interface {
	Encode(Record) error
}

// NewEncoder returns an Encoder for format writing to w. Map keys are
// written in sorted order so output is stable across runs.
func NewEncoder(w io.Writer, format Format) (Encoder, error) {
	switch format {
	case FormatJSON, "":
		return jsonEncoder{json.NewEncoder(w)}, nil
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		return msgpackEncoder{enc}, nil
	case FormatCBOR:
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("cbor enc mode: %w", err)
		}
		return cborEncoder{em.NewEncoder(w)}, nil
	case FormatProto:
		return protoEncoder{w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type jsonEncoder struct{ enc *json.Encoder }

func (e jsonEncoder) Encode(r Record) error { return e.enc.Encode(r) }

type msgpackEncoder struct{ enc *msgpack.Encoder }

func (e msgpackEncoder) Encode(r Record) error { return e.enc.Encode(r) }

type cborEncoder struct{ enc *cbor.Encoder }

func (e cborEncoder) Encode(r Record) error { return e.enc.Encode(r) }
