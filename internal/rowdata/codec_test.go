package rowdata

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func mustCodec(t *testing.T, header string, cfg Config) *Codec {
	t.Helper()
	c, err := New(header, cfg)
	if err != nil {
		t.Fatalf("New(%q) error: %v", header, err)
	}
	return c
}

// ----------------------------------------------------------------------------
// Construction
// ----------------------------------------------------------------------------

func TestNew(t *testing.T) {
	c := mustCodec(t, "id:int,name,age:int", Config{Offset: 1})

	if c.Delimiter() != "," {
		t.Errorf("Delimiter() = %q, want default %q", c.Delimiter(), ",")
	}
	if c.NumColumns() != 3 {
		t.Errorf("NumColumns() = %d, want 3", c.NumColumns())
	}
	if c.NumProperties() != 2 {
		t.Errorf("NumProperties() = %d, want 2", c.NumProperties())
	}
	if got := c.Fields(); !reflect.DeepEqual(got, []string{"name", "age"}) {
		t.Errorf("Fields() = %v, want [name age]", got)
	}
	if got := c.Schema().Column(2); got != (Column{"age", Int}) {
		t.Errorf("Schema().Column(2) = %v, want age:int", got)
	}
}

func TestNew_FieldsWithoutOffset(t *testing.T) {
	c := mustCodec(t, "a,b:long", Config{})
	if got := c.Fields(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Fields() = %v, want [a b]", got)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cfg    Config
	}{
		{"unknown type", "id:int,name:varchar", Config{}},
		{"negative offset", "a,b", Config{Offset: -1}},
		{"offset past end", "a,b", Config{Offset: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.header, tt.cfg)
			if err == nil {
				t.Fatalf("New(%q, %+v) succeeded, want error", tt.header, tt.cfg)
			}
			if c != nil {
				t.Errorf("New returned codec alongside error")
			}
			if !errors.Is(err, ErrSchema) {
				t.Errorf("error %v is not ErrSchema", err)
			}
		})
	}
}

func TestNewWithSchema_EmptyDelimiter(t *testing.T) {
	_, err := NewWithSchema(NewSchema(Column{"a", String}), "", 0)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("error = %v, want ErrSchema", err)
	}
}

// ----------------------------------------------------------------------------
// Array- and map-shaped output
// ----------------------------------------------------------------------------

func TestCodec_Example(t *testing.T) {
	c := mustCodec(t, "id:int,name,age:int", Config{Delimiter: ",", Offset: 1})

	tests := []struct {
		line      string
		wantVals  []any
		wantPairs []any
	}{
		{"7,Alice,34", []any{"Alice", int32(34)}, []any{"name", "Alice", "age", int32(34)}},
		{"8,,29", []any{nil, int32(29)}, []any{"age", int32(29)}},
		{"9", []any{nil, nil}, []any{}},
		{"10,Bob", []any{"Bob", nil}, []any{"name", "Bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			vals, err := c.Values(tt.line, nil)
			if err != nil {
				t.Fatalf("Values(%q) error: %v", tt.line, err)
			}
			if !reflect.DeepEqual(vals, tt.wantVals) {
				t.Errorf("Values(%q) = %#v, want %#v", tt.line, vals, tt.wantVals)
			}
			if len(vals) != c.NumProperties() {
				t.Errorf("len(Values) = %d, want %d", len(vals), c.NumProperties())
			}

			p, err := c.Pairs(tt.line, nil)
			if err != nil {
				t.Fatalf("Pairs(%q) error: %v", tt.line, err)
			}
			if p.Count() != len(tt.wantPairs) {
				t.Errorf("Pairs(%q).Count() = %d, want %d", tt.line, p.Count(), len(tt.wantPairs))
			}
			if !reflect.DeepEqual(p.Entries(), tt.wantPairs) {
				t.Errorf("Pairs(%q) = %#v, want %#v", tt.line, p.Entries(), tt.wantPairs)
			}
		})
	}
}

func TestCodec_PairsCountMatchesPresentFields(t *testing.T) {
	c := mustCodec(t, "a,b,c,d", Config{})

	lines := map[string]int{
		"1,2,3,4": 4,
		"1,,3,":   2,
		",,,":     0,
		" ,2, ,4": 2,
	}

	for line, present := range lines {
		vals, err := c.Values(line, nil)
		if err != nil {
			t.Fatalf("Values(%q) error: %v", line, err)
		}
		nonNil := 0
		for _, v := range vals {
			if v != nil {
				nonNil++
			}
		}

		p, err := c.Pairs(line, nil)
		if err != nil {
			t.Fatalf("Pairs(%q) error: %v", line, err)
		}
		if p.Count() != 2*present || p.Count() != 2*nonNil {
			t.Errorf("Pairs(%q).Count() = %d, want %d", line, p.Count(), 2*present)
		}
		if p.Len() != present {
			t.Errorf("Pairs(%q).Len() = %d, want %d", line, p.Len(), present)
		}
	}
}

func TestCodec_Map(t *testing.T) {
	c := mustCodec(t, "id:int,name,age:int", Config{Offset: 1})

	m, err := c.Map("8,,29", nil)
	if err != nil {
		t.Fatalf("Map error: %v", err)
	}
	if _, ok := m["name"]; ok {
		t.Errorf("Map contains absent field name: %v", m)
	}
	if m["age"] != int32(29) {
		t.Errorf("Map[age] = %#v, want int32(29)", m["age"])
	}
	if _, ok := m["id"]; ok {
		t.Errorf("Map contains key column id: %v", m)
	}
}

func TestCodec_StringRoundTrip(t *testing.T) {
	c := mustCodec(t, "a,b,c", Config{})
	tokens := []any{"x", " y ", "z z"}

	vals, err := c.Values("x, y ,z z", nil)
	if err != nil {
		t.Fatalf("Values error: %v", err)
	}
	if !reflect.DeepEqual(vals, tokens) {
		t.Errorf("Values = %#v, want %#v", vals, tokens)
	}
}

func TestCodec_Idempotent(t *testing.T) {
	c := mustCodec(t, "id,score:double,ok:boolean", Config{Offset: 1})
	line := "k1,2.5,yes"

	first, err := c.Values(line, nil)
	if err != nil {
		t.Fatalf("Values error: %v", err)
	}
	second, err := c.Values(line, nil)
	if err != nil {
		t.Fatalf("Values error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Values not idempotent: %#v vs %#v", first, second)
	}

	p1, _ := c.Pairs(line, nil)
	p2, _ := c.Pairs(line, nil)
	if !reflect.DeepEqual(p1.Entries(), p2.Entries()) {
		t.Errorf("Pairs not idempotent: %#v vs %#v", p1.Entries(), p2.Entries())
	}
}

func TestCodec_ResultsDoNotAlias(t *testing.T) {
	c := mustCodec(t, "a,b", Config{})

	first, _ := c.Pairs("1,2", nil)
	if _, err := c.Pairs("3,", nil); err != nil {
		t.Fatalf("Pairs error: %v", err)
	}
	if !reflect.DeepEqual(first.Entries(), []any{"a", "1", "b", "2"}) {
		t.Errorf("earlier result changed after later call: %#v", first.Entries())
	}
}

func TestCodec_OffsetCoversAllColumns(t *testing.T) {
	c := mustCodec(t, "a,b", Config{Offset: 2})

	vals, err := c.Values("1,2", nil)
	if err != nil || len(vals) != 0 {
		t.Errorf("Values = %v, %v, want empty", vals, err)
	}
	p, err := c.Pairs("1,2", nil)
	if err != nil || p.Count() != 0 {
		t.Errorf("Pairs.Count() = %d, %v, want 0", p.Count(), err)
	}
}

// ----------------------------------------------------------------------------
// Arenas
// ----------------------------------------------------------------------------

func TestCodec_AppendValuesReusesArena(t *testing.T) {
	c := mustCodec(t, "id,n:int", Config{Offset: 1})
	arena := make([]any, 0, 8)

	arena, err := c.AppendValues(arena[:0], "a,1", nil)
	if err != nil {
		t.Fatalf("AppendValues error: %v", err)
	}
	arena, err = c.AppendValues(arena, "b,2", nil)
	if err != nil {
		t.Fatalf("AppendValues error: %v", err)
	}
	if !reflect.DeepEqual(arena, []any{int32(1), int32(2)}) {
		t.Errorf("arena = %#v, want [1 2]", arena)
	}
}

func TestCodec_AppendPairsCount(t *testing.T) {
	c := mustCodec(t, "a,b,c", Config{})
	dst := []any{"prefix", 0}

	out, err := c.AppendPairs(dst, "1,,3", nil)
	if err != nil {
		t.Fatalf("AppendPairs error: %v", err)
	}
	if count := len(out) - len(dst); count != 4 {
		t.Errorf("appended %d entries, want 4", count)
	}
	if !reflect.DeepEqual(out[2:], []any{"a", "1", "c", "3"}) {
		t.Errorf("appended = %#v", out[2:])
	}
}

// ----------------------------------------------------------------------------
// Conversion failures
// ----------------------------------------------------------------------------

func TestCodec_ConversionError(t *testing.T) {
	c := mustCodec(t, "id:int,name,age:int", Config{Offset: 1})

	_, err := c.Values("9,Bob,thirty", nil)
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}

	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *ConversionError", err)
	}
	if ce.Column != "age" || ce.Index != 2 || ce.Type != Int || ce.Value != "thirty" {
		t.Errorf("ConversionError = %+v, want column age index 2 int \"thirty\"", ce)
	}
}

func TestCodec_ConversionErrorLeavesArena(t *testing.T) {
	c := mustCodec(t, "a:int,b:int", Config{})

	tests := []struct {
		name   string
		append func([]any) ([]any, error)
	}{
		{"values", func(dst []any) ([]any, error) { return c.AppendValues(dst, "1,x", nil) }},
		{"pairs", func(dst []any) ([]any, error) { return c.AppendPairs(dst, "1,x", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := []any{"keep"}
			out, err := tt.append(dst)
			if err == nil {
				t.Fatal("expected conversion error")
			}
			if !reflect.DeepEqual(out, []any{"keep"}) {
				t.Errorf("arena after error = %#v, want [keep]", out)
			}
		})
	}
}

func TestCodec_AbsentValuesAreNotConverted(t *testing.T) {
	c := mustCodec(t, "a:int,b:date,c:uuid", Config{})

	vals, err := c.Values(", , ", nil)
	if err != nil {
		t.Fatalf("Values error: %v", err)
	}
	if !reflect.DeepEqual(vals, []any{nil, nil, nil}) {
		t.Errorf("Values = %#v, want all nil", vals)
	}
}

// ----------------------------------------------------------------------------
// Key prefix
// ----------------------------------------------------------------------------

func TestCodec_Keys(t *testing.T) {
	c := mustCodec(t, "id:int,name,age:int", Config{Offset: 1})

	keys := make([]pgtype.Text, 1)
	if _, err := c.Values("7,Alice,34", keys); err != nil {
		t.Fatalf("Values error: %v", err)
	}
	if keys[0] != (pgtype.Text{String: "7", Valid: true}) {
		t.Errorf("keys[0] = %+v, want 7", keys[0])
	}

	// Keys are raw tokens, including absent ones and unconverted values
	all := make([]pgtype.Text, 3)
	if _, err := c.Pairs(",Alice, 34", all); err != nil {
		t.Fatalf("Pairs error: %v", err)
	}
	want := []pgtype.Text{{}, {String: "Alice", Valid: true}, {String: " 34", Valid: true}}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("keys = %+v, want %+v", all, want)
	}
}

func TestCodec_KeysLongerThanSchema(t *testing.T) {
	c := mustCodec(t, "a,b", Config{Offset: 1})

	keys := make([]pgtype.Text, 4)
	keys[3] = pgtype.Text{String: "stale", Valid: true}
	if _, err := c.Values("x,y", keys); err != nil {
		t.Fatalf("Values error: %v", err)
	}
	if keys[1].String != "y" || keys[3].Valid {
		t.Errorf("keys = %+v, want [x y {} {}]", keys)
	}
}

func TestCodec_BufferSizeError(t *testing.T) {
	c := mustCodec(t, "src,dst,weight:double", Config{Offset: 2})

	keys := []pgtype.Text{{String: "untouched", Valid: true}}
	_, err := c.Values("a,b,1.5", keys)
	if !errors.Is(err, ErrBufferSize) {
		t.Fatalf("error = %v, want ErrBufferSize", err)
	}
	var be *BufferSizeError
	if !errors.As(err, &be) || be.Have != 1 || be.Want != 2 {
		t.Errorf("BufferSizeError = %+v, want have 1 want 2", be)
	}
	if keys[0].String != "untouched" {
		t.Errorf("keys written before size check: %+v", keys)
	}

	if _, err := c.Pairs("a,b,1.5", keys); !errors.Is(err, ErrBufferSize) {
		t.Errorf("Pairs error = %v, want ErrBufferSize", err)
	}
}

func TestCodec_KeysUntouchedOnConversionError(t *testing.T) {
	c := mustCodec(t, "id,n:int", Config{Offset: 1})

	keys := []pgtype.Text{{String: "old", Valid: true}}
	if _, err := c.Values("new,x", keys); err == nil {
		t.Fatal("expected conversion error")
	}
	if keys[0].String != "old" {
		t.Errorf("keys[0] = %+v, want old", keys[0])
	}
}
