// Package rowdata converts delimited text lines into typed records.
//
// A header line declares the columns and, optionally, their types:
//
//	id:int,name,age:int,joined:date
//
// Columns without a tag are strings. Unknown tags fail at construction with
// a *SchemaError.
//
// # Key prefix and properties
//
// [Config.Offset] splits the columns in two. The leading key columns (ids,
// node labels and the like) are passed through as raw tokens when the caller
// asks for them. The remaining property columns are converted and emitted.
//
// # Output shapes
//
// Array-shaped output ([Codec.Values]) has one slot per property column and
// keeps nil for absent fields, for callers that need fixed positions such as
// a COPY into a table. Map-shaped output ([Codec.Pairs], [Codec.Map]) drops
// absent fields entirely, for callers building sparse property sets.
//
//	c, err := rowdata.New("id:int,name,age:int", rowdata.Config{Offset: 1})
//	...
//	vals, err := c.Values("8,,29", nil)  // [nil, int32(29)]
//	p, err := c.Pairs("8,,29", nil)      // age=29, Count() == 2
//
// # Absent fields
//
// Two adjacent delimiters mean the field between them is absent, as does a
// field holding only whitespace or a line that ends early. There is no
// quoting: a delimiter always splits.
//
// A Codec reuses an internal scratch row and must not be shared between
// goroutines. Build one per worker.
package rowdata
