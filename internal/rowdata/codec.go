package rowdata

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultDelimiter is used when Config.Delimiter is empty.
const DefaultDelimiter = ","

// Config holds codec construction settings.
type Config struct {
	// Delimiter separates fields in both header and data lines (default ",").
	Delimiter string

	// Offset is the number of leading key columns. Key columns are not
	// converted and never appear in Values or Pairs output.
	Offset int
}

// Codec converts delimited data lines into typed records for one header.
//
// A Codec keeps a single scratch row between calls and is not safe for
// concurrent use. Build one per worker.
type Codec struct {
	schema Schema
	delim  string
	offset int
	fields []string // property column names
	row    row
}

// New parses header and returns a codec ready to convert lines.
// An unknown type tag or an offset outside [0, columns] is a *SchemaError.
func New(header string, cfg Config) (*Codec, error) {
	delim := cfg.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}

	schema, err := ParseSchema(header, delim)
	if err != nil {
		return nil, err
	}
	return NewWithSchema(schema, delim, cfg.Offset)
}

// NewWithSchema builds a codec from an already parsed schema.
func NewWithSchema(schema Schema, delimiter string, offset int) (*Codec, error) {
	if delimiter == "" {
		return nil, &SchemaError{Column: -1, Reason: "empty delimiter"}
	}
	if offset < 0 || offset > schema.Len() {
		return nil, &SchemaError{
			Column: -1,
			Reason: fmt.Sprintf("offset %d out of range [0, %d]", offset, schema.Len()),
		}
	}

	fields := make([]string, 0, schema.Len()-offset)
	for i := offset; i < schema.Len(); i++ {
		fields = append(fields, schema.cols[i].Name)
	}

	return &Codec{
		schema: schema,
		delim:  delimiter,
		offset: offset,
		fields: fields,
		row:    newRow(schema.Len()),
	}, nil
}

// Schema returns the parsed header.
func (c *Codec) Schema() Schema { return c.schema }

// Delimiter returns the field delimiter.
func (c *Codec) Delimiter() string { return c.delim }

// Offset returns the number of leading key columns.
func (c *Codec) Offset() int { return c.offset }

// NumColumns returns the number of header columns, i.e. the line size.
func (c *Codec) NumColumns() int { return c.schema.Len() }

// NumProperties returns the number of converted columns after the offset.
func (c *Codec) NumProperties() int { return len(c.fields) }

// Fields returns the property column names in output order.
func (c *Codec) Fields() []string {
	return append([]string(nil), c.fields...)
}

// Values converts line into a new slice with one entry per property column.
// Absent fields are nil. When keys is non-nil, raw tokens are copied into it
// as described on AppendValues.
func (c *Codec) Values(line string, keys []pgtype.Text) ([]any, error) {
	return c.AppendValues(make([]any, 0, len(c.fields)), line, keys)
}

// AppendValues is Values writing into a caller-owned arena. It appends
// NumProperties() entries to dst and returns the extended slice. On error
// dst is returned at its original length.
//
// keys, when non-nil, must hold at least Offset() entries. The first
// min(len(keys), NumColumns()) raw tokens are copied in, absent ones as
// invalid; any extra slots are reset. keys is only written on success.
func (c *Codec) AppendValues(dst []any, line string, keys []pgtype.Text) ([]any, error) {
	if err := c.checkKeys(keys); err != nil {
		return dst, err
	}
	c.row.tokenize(line, c.delim)

	base := len(dst)
	for i := c.offset; i < c.schema.Len(); i++ {
		if !c.row.present[i] {
			dst = append(dst, nil)
			continue
		}
		v, err := c.convert(i)
		if err != nil {
			return dst[:base], err
		}
		dst = append(dst, v)
	}

	c.copyKeys(keys)
	return dst, nil
}

// Pairs converts line into name/value pairs for the present property fields.
// Absent fields are left out entirely.
func (c *Codec) Pairs(line string, keys []pgtype.Text) (Pairs, error) {
	kv, err := c.AppendPairs(make([]any, 0, 2*len(c.fields)), line, keys)
	if err != nil {
		return Pairs{}, err
	}
	return Pairs{kv: kv}, nil
}

// AppendPairs is Pairs writing alternating name, value entries into a
// caller-owned arena. The number of entries appended is the pair count and
// is always even. keys is handled as in AppendValues.
func (c *Codec) AppendPairs(dst []any, line string, keys []pgtype.Text) ([]any, error) {
	if err := c.checkKeys(keys); err != nil {
		return dst, err
	}
	c.row.tokenize(line, c.delim)

	base := len(dst)
	for i := c.offset; i < c.schema.Len(); i++ {
		if !c.row.present[i] {
			continue
		}
		v, err := c.convert(i)
		if err != nil {
			return dst[:base], err
		}
		dst = append(dst, c.schema.cols[i].Name, v)
	}

	c.copyKeys(keys)
	return dst, nil
}

// Map converts line into a property name to value map without absent fields.
func (c *Codec) Map(line string, keys []pgtype.Text) (map[string]any, error) {
	p, err := c.Pairs(line, keys)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

func (c *Codec) convert(i int) (any, error) {
	col := c.schema.cols[i]
	v, err := col.Type.Convert(c.row.vals[i])
	if err != nil {
		if ce, ok := err.(*ConversionError); ok {
			ce.Column = col.Name
			ce.Index = i
			return nil, ce
		}
		return nil, err
	}
	return v, nil
}

func (c *Codec) checkKeys(keys []pgtype.Text) error {
	if keys != nil && len(keys) < c.offset {
		return &BufferSizeError{Have: len(keys), Want: c.offset}
	}
	return nil
}

func (c *Codec) copyKeys(keys []pgtype.Text) {
	if keys == nil {
		return
	}
	n := min(len(keys), c.schema.Len())
	for i := 0; i < n; i++ {
		keys[i] = pgtype.Text{String: c.row.vals[i], Valid: c.row.present[i]}
	}
	clear(keys[n:])
}

// Pairs is a map-shaped record: alternating column name and converted value
// for each present property field, in column order.
type Pairs struct {
	kv []any
}

// Count returns the number of entries, twice the number of present fields.
func (p Pairs) Count() int { return len(p.kv) }

// Len returns the number of name/value pairs.
func (p Pairs) Len() int { return len(p.kv) / 2 }

// Name returns the i-th pair's column name.
func (p Pairs) Name(i int) string { return p.kv[2*i].(string) }

// Value returns the i-th pair's converted value.
func (p Pairs) Value(i int) any { return p.kv[2*i+1] }

// Entries returns the flat name, value slice. It is owned by p.
func (p Pairs) Entries() []any { return p.kv }

// Map returns the pairs as a map.
func (p Pairs) Map() map[string]any {
	m := make(map[string]any, p.Len())
	for i := 0; i < p.Len(); i++ {
		m[p.Name(i)] = p.Value(i)
	}
	return m
}
