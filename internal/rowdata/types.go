package rowdata

// types.go defines the closed set of column types a header may declare and
// the conversion from a raw token to a typed Go value.
//
// Conversions never coerce: a value that does not parse as the declared type
// yields a *ConversionError. String is the only type that keeps the raw token
// untouched; every other type trims surrounding whitespace before parsing.

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Type is a declared column type. The zero value is String.
type Type int

const (
	String Type = iota
	Int
	Long
	Float
	Double
	Boolean
	Byte
	Short
	Char
	Date
	Numeric
	UUID
)

// typeNames maps each Type to its header tag. Order follows the constants.
var typeNames = [...]string{
	String:  "string",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Boolean: "boolean",
	Byte:    "byte",
	Short:   "short",
	Char:    "char",
	Date:    "date",
	Numeric: "numeric",
	UUID:    "uuid",
}

// Types returns every declared type in tag order.
func Types() []Type {
	out := make([]Type, len(typeNames))
	for i := range typeNames {
		out[i] = Type(i)
	}
	return out
}

// String returns the header tag for t.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// ParseType resolves a header type tag, ignoring case and surrounding space.
func ParseType(tag string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(tag))
	for i, name := range typeNames {
		if name == key {
			return Type(i), nil
		}
	}
	return String, &SchemaError{Column: -1, Token: tag, Reason: fmt.Sprintf("unknown type %q", tag)}
}

// Character is the value of a char column. Encoders write it as a
// one-character string, not a code point.
type Character rune

// String returns the character itself.
func (c Character) String() string { return string(rune(c)) }

// Value implements driver.Valuer as text, for text and char(1) columns.
func (c Character) Value() (driver.Value, error) { return c.String(), nil }

// errNotOneRune is the parse error for a char value that is not a single rune.
var errNotOneRune = errors.New("expected exactly one character")

// Convert parses raw as t. The result types are:
//
//	String  string          Byte    int8
//	Int     int32           Short   int16
//	Long    int64           Char    Character
//	Float   float32         Date    time.Time
//	Double  float64         Numeric pgtype.Numeric
//	Boolean bool            UUID    uuid.UUID
//
// The returned error is a *ConversionError without column context; the codec
// fills in column name and index.
func (t Type) Convert(raw string) (any, error) {
	if t == String {
		return raw, nil
	}

	s := strings.TrimSpace(raw)
	var (
		v   any
		err error
	)

	switch t {
	case Int:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		v = int32(n)
	case Long:
		v, err = strconv.ParseInt(s, 10, 64)
	case Float:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case Double:
		v, err = strconv.ParseFloat(s, 64)
	case Boolean:
		v, err = parseBool(s)
	case Byte:
		var n int64
		n, err = strconv.ParseInt(s, 10, 8)
		v = int8(n)
	case Short:
		var n int64
		n, err = strconv.ParseInt(s, 10, 16)
		v = int16(n)
	case Char:
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || size != len(s) || r == utf8.RuneError {
			err = errNotOneRune
		}
		v = Character(r)
	case Date:
		v, err = parseDate(s)
	case Numeric:
		v, err = parseNumeric(s)
	case UUID:
		v, err = uuid.Parse(s)
	default:
		err = fmt.Errorf("unsupported type %d", int(t))
	}

	if err != nil {
		return nil, &ConversionError{Index: -1, Type: t, Value: raw, Err: err}
	}
	return v, nil
}

// ----------------------------------------------------------------------------
// Lenient parsers for spreadsheet-exported data
// ----------------------------------------------------------------------------

var errInvalidBool = errors.New("not a boolean")

// parseBool accepts true/false, t/f, yes/no, y/n and 1/0 in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, errInvalidBool
	}
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

var errInvalidDate = errors.New("unrecognized date format")

func parseDate(s string) (time.Time, error) {
	// 4-digit layouts are unambiguous, try them first
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}

	return time.Time{}, errInvalidDate
}

// numericRegex matches a plain decimal after currency cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var errInvalidNumeric = errors.New("not a decimal number")

// parseNumeric handles currency symbols, thousands separators and the
// accounting form "(123.45)" for negatives.
func parseNumeric(s string) (pgtype.Numeric, error) {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, errInvalidNumeric
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
