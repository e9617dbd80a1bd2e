package rowdata

import (
	"strings"
)

// TypeSeparator splits a header token into column name and type tag.
const TypeSeparator = ":"

// Column is one header column: its name and declared type.
type Column struct {
	Name string
	Type Type
}

// Schema is the ordered column list parsed from a header line.
// Column order is significant; array-shaped output follows it.
type Schema struct {
	cols []Column
}

// ParseSchema splits headerLine on delimiter and reads an optional type tag
// from each token ("name:type"). Only the first separator counts, so
// "a:b:c" is column "a" with tag "b:c", which is rejected as unknown.
// Tokens without a tag are String columns.
func ParseSchema(headerLine, delimiter string) (Schema, error) {
	if delimiter == "" {
		return Schema{}, &SchemaError{Column: -1, Reason: "empty delimiter"}
	}

	tokens := strings.Split(headerLine, delimiter)
	cols := make([]Column, len(tokens))

	for i, tok := range tokens {
		name, tag, tagged := strings.Cut(tok, TypeSeparator)
		if !tagged {
			cols[i] = Column{Name: tok, Type: String}
			continue
		}

		typ, err := ParseType(tag)
		if err != nil {
			return Schema{}, &SchemaError{Column: i, Token: tok, Reason: "unknown type " + strings.TrimSpace(tag)}
		}
		cols[i] = Column{Name: name, Type: typ}
	}

	return Schema{cols: cols}, nil
}

// NewSchema builds a schema from explicit columns, copying the slice.
func NewSchema(cols ...Column) Schema {
	return Schema{cols: append([]Column(nil), cols...)}
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.cols) }

// Column returns the i-th column.
func (s Schema) Column(i int) Column { return s.cols[i] }

// Columns returns a copy of the column list.
func (s Schema) Columns() []Column {
	return append([]Column(nil), s.cols...)
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}
