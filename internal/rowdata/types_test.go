package rowdata

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ----------------------------------------------------------------------------
// ParseType Tests
// ----------------------------------------------------------------------------

func TestParseType(t *testing.T) {
	tests := []struct {
		tag     string
		want    Type
		wantErr bool
	}{
		{"string", String, false},
		{"INT", Int, false},
		{"Long", Long, false},
		{" float ", Float, false},
		{"double", Double, false},
		{"boolean", Boolean, false},
		{"byte", Byte, false},
		{"short", Short, false},
		{"char", Char, false},
		{"date", Date, false},
		{"Numeric", Numeric, false},
		{"uuid", UUID, false},
		{"integer", String, true},
		{"", String, true},
		{"int:extra", String, true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseType(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrSchema) {
					t.Errorf("ParseType(%q) error %v is not ErrSchema", tt.tag, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestTypeStringRoundTrip(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("ParseType(%q) error: %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
}

// ----------------------------------------------------------------------------
// Convert Tests
// ----------------------------------------------------------------------------

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		input   string
		want    any
		wantErr bool
	}{
		// String never fails and keeps the raw token
		{"string keeps spaces", String, "  Alice ", "  Alice ", false},
		{"string numeric text", String, "42", "42", false},

		// Integers
		{"int", Int, "34", int32(34), false},
		{"int trimmed", Int, " 34 ", int32(34), false},
		{"int negative", Int, "-7", int32(-7), false},
		{"int overflow", Int, "2147483648", nil, true},
		{"int words", Int, "thirty", nil, true},
		{"int decimal", Int, "3.5", nil, true},
		{"long", Long, "9000000000", int64(9000000000), false},
		{"long words", Long, "big", nil, true},
		{"byte", Byte, "127", int8(127), false},
		{"byte overflow", Byte, "128", nil, true},
		{"short", Short, "-300", int16(-300), false},
		{"short overflow", Short, "40000", nil, true},

		// Floating point
		{"float", Float, "1.5", float32(1.5), false},
		{"float invalid", Float, "1.5.5", nil, true},
		{"double", Double, "3.25", 3.25, false},
		{"double exponent", Double, "1e3", 1000.0, false},
		{"double invalid", Double, "abc", nil, true},

		// Booleans
		{"bool true", Boolean, "true", true, false},
		{"bool yes mixed case", Boolean, "Yes", true, false},
		{"bool one", Boolean, "1", true, false},
		{"bool f", Boolean, "f", false, false},
		{"bool no", Boolean, " no ", false, false},
		{"bool invalid", Boolean, "maybe", nil, true},

		// Characters
		{"char", Char, "x", Character('x'), false},
		{"char multibyte", Char, "é", Character('é'), false},
		{"char trimmed", Char, " y ", Character('y'), false},
		{"char too long", Char, "xy", nil, true},

		// Dates
		{"date iso", Date, "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"date us", Date, "01/15/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"date text month", Date, "Jan 15, 2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"date compact", Date, "20240115", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"date invalid", Date, "not a date", nil, true},

		// UUIDs
		{"uuid", UUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), false},
		{"uuid invalid", UUID, "6ba7b810", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Convert(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%v.Convert(%q) error = %v, wantErr %v", tt.typ, tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var ce *ConversionError
				if !errors.As(err, &ce) {
					t.Fatalf("error %T is not *ConversionError", err)
				}
				if ce.Value != tt.input || ce.Type != tt.typ {
					t.Errorf("ConversionError = %+v, want value %q type %v", ce, tt.input, tt.typ)
				}
				if got != nil {
					t.Errorf("got %v alongside error, want nil", got)
				}
				return
			}
			if want, ok := tt.want.(time.Time); ok {
				if gotTime, ok := got.(time.Time); !ok || !gotTime.Equal(want) {
					t.Errorf("%v.Convert(%q) = %v, want %v", tt.typ, tt.input, got, want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("%v.Convert(%q) = %#v (%T), want %#v (%T)", tt.typ, tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvert_WrapsParseError(t *testing.T) {
	_, err := Int.Convert("thirty")
	if !errors.Is(err, ErrConversion) {
		t.Errorf("error %v is not ErrConversion", err)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("error %v does not wrap strconv.ErrSyntax", err)
	}
}

func TestConvert_Numeric(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"123", 123, false},
		{"-456", -456, false},
		{"123.45", 123.45, false},
		{".99", 0.99, false},
		{"$1,234.56", 1234.56, false},
		{"€1234.56", 1234.56, false},
		{"(123.45)", -123.45, false},
		{"($1,234.56)", -1234.56, false},
		{"  999.99  ", 999.99, false},
		{"abc", 0, true},
		{"1.5e10", 0, true},
		{"12abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Numeric.Convert(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Numeric.Convert(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			n, ok := got.(pgtype.Numeric)
			if !ok {
				t.Fatalf("Numeric.Convert(%q) returned %T, want pgtype.Numeric", tt.input, got)
			}
			f, err := n.Float64Value()
			if err != nil || !f.Valid {
				t.Fatalf("Float64Value() = %v, %v", f, err)
			}
			if math.Abs(f.Float64-tt.want) > 1e-9 {
				t.Errorf("Numeric.Convert(%q) = %v, want %v", tt.input, f.Float64, tt.want)
			}
		})
	}
}

func TestConvert_TwoDigitYearPivot(t *testing.T) {
	original := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = original }()
	TwoDigitYearPivot = 20

	currentYear := time.Now().Year()

	got, err := Date.Convert("1/5/24")
	if err != nil {
		t.Fatalf("Date.Convert error: %v", err)
	}
	if y := got.(time.Time).Year(); y != 2024 {
		t.Errorf("year = %d, want 2024", y)
	}

	// Two-digit years past the pivot belong to the previous century
	past := (currentYear + TwoDigitYearPivot + 1) % 100
	got, err = Date.Convert("1/5/" + strconv.Itoa(100 + past)[1:])
	if err != nil {
		t.Fatalf("Date.Convert error: %v", err)
	}
	if y := got.(time.Time).Year(); y > currentYear+TwoDigitYearPivot {
		t.Errorf("year = %d, want at most %d", y, currentYear+TwoDigitYearPivot)
	}
}
