// Package importer reads a delimited text stream line by line and converts
// each data line with a rowdata.Codec built from the stream's header.
//
// A Reader satisfies pgx.CopyFromSource, so a file can be bulk loaded with
// CopyFrom without materializing its rows.
package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// ErrEmptyInput is returned when the input has no header line.
var ErrEmptyInput = errors.New("empty input: no header line")

// ErrWrongShape is returned by Values or Pairs when the reader was opened
// for the other output shape.
var ErrWrongShape = errors.New("record shape does not match reader options")

// DefaultMaxLineBytes is the longest line the Reader accepts by default.
const DefaultMaxLineBytes = 1 << 20

// Shape selects the record form produced per line.
type Shape int

const (
	// ShapeArray yields one value per property column, nil when absent.
	ShapeArray Shape = iota
	// ShapeMap yields name/value pairs for present property fields only.
	ShapeMap
)

// ParseShape accepts "array" or "map".
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "array":
		return ShapeArray, nil
	case "map":
		return ShapeMap, nil
	default:
		return ShapeArray, fmt.Errorf("unknown record shape %q (want array or map)", s)
	}
}

func (s Shape) String() string {
	if s == ShapeMap {
		return "map"
	}
	return "array"
}

// SchemaSource parses header lines, typically through a cache shared by
// several readers.
type SchemaSource interface {
	Parse(header, delimiter string) (rowdata.Schema, error)
}

// Options configures a Reader.
type Options struct {
	rowdata.Config

	// Schemas parses the header when set; otherwise each Reader parses its own.
	Schemas SchemaSource

	Shape Shape

	// SkipInvalid records lines that fail conversion as FailedRows and keeps
	// going. When false the first failure ends the scan.
	SkipInvalid bool

	// MaxLineBytes bounds a single line (default DefaultMaxLineBytes).
	MaxLineBytes int
}

// LineError ties an error to its 1-based input line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// FailedRow is a data line skipped because it did not convert.
type FailedRow struct {
	LineNumber int
	Reason     string
	Data       string
	Err        error
}

// Reader converts the data lines of a delimited stream. It is not safe for
// concurrent use; its codec and buffers are reused across lines.
type Reader struct {
	opts    Options
	scanner *bufio.Scanner
	counter *countingReader
	codec   *rowdata.Codec

	line   int // 1-based number of the current line
	rows   int // records produced
	values []any
	pairs  rowdata.Pairs
	keys   []pgtype.Text
	failed []FailedRow
	err    error
}

var _ pgx.CopyFromSource = (*Reader)(nil)

// NewReader reads the header from r and returns a Reader positioned before
// the first data line. size is the input length in bytes if known, for
// Progress. Blank lines before the header are skipped.
func NewReader(r io.Reader, size int64, opts Options) (*Reader, error) {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}

	in, counter := wrapInput(r, size)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, min(64*1024, opts.MaxLineBytes)), opts.MaxLineBytes)

	rd := &Reader{opts: opts, scanner: sc, counter: counter}

	header, ok := rd.nextLine()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, ErrEmptyInput
	}

	codec, err := newCodec(header, opts)
	if err != nil {
		return nil, &LineError{Line: rd.line, Err: err}
	}
	rd.codec = codec
	rd.values = make([]any, 0, codec.NumProperties())
	if codec.Offset() > 0 {
		rd.keys = make([]pgtype.Text, codec.Offset())
	}

	return rd, nil
}

func newCodec(header string, opts Options) (*rowdata.Codec, error) {
	if opts.Schemas == nil {
		return rowdata.New(header, opts.Config)
	}
	delim := opts.Delimiter
	if delim == "" {
		delim = rowdata.DefaultDelimiter
	}
	schema, err := opts.Schemas.Parse(header, delim)
	if err != nil {
		return nil, err
	}
	return rowdata.NewWithSchema(schema, delim, opts.Offset)
}

// nextLine returns the next non-blank line with invalid UTF-8 repaired.
func (r *Reader) nextLine() (string, bool) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		return strings.ToValidUTF8(text, "?"), true
	}
	return "", false
}

// Scan advances to the next data line that converts. It returns false at
// end of input or on the first error; check Err afterwards.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}

	for {
		text, ok := r.nextLine()
		if !ok {
			if err := r.scanner.Err(); err != nil {
				r.err = &LineError{Line: r.line + 1, Err: err}
			}
			return false
		}

		err := r.convert(text)
		if err == nil {
			r.rows++
			return true
		}

		if r.opts.SkipInvalid && errors.Is(err, rowdata.ErrConversion) {
			r.failed = append(r.failed, FailedRow{LineNumber: r.line, Reason: err.Error(), Data: text, Err: err})
			continue
		}
		r.err = &LineError{Line: r.line, Err: err}
		return false
	}
}

func (r *Reader) convert(text string) error {
	var err error
	if r.opts.Shape == ShapeMap {
		r.pairs, err = r.codec.Pairs(text, r.keys)
		return err
	}
	r.values, err = r.codec.AppendValues(r.values[:0], text, r.keys)
	return err
}

// Next is Scan, for pgx.CopyFromSource.
func (r *Reader) Next() bool { return r.Scan() }

// Values returns the current array-shaped record. The slice is reused by
// the next Scan.
func (r *Reader) Values() ([]any, error) {
	if r.opts.Shape != ShapeArray {
		return nil, ErrWrongShape
	}
	return r.values, nil
}

// Pairs returns the current map-shaped record.
func (r *Reader) Pairs() (rowdata.Pairs, error) {
	if r.opts.Shape != ShapeMap {
		return rowdata.Pairs{}, ErrWrongShape
	}
	return r.pairs, nil
}

// Keys returns the raw key-prefix tokens of the current line, or nil when
// the offset is zero. The slice is reused by the next Scan.
func (r *Reader) Keys() []pgtype.Text { return r.keys }

// Err returns the error that stopped Scan, if any. End of input is not an
// error.
func (r *Reader) Err() error { return r.err }

// Line returns the 1-based input line number of the current record.
func (r *Reader) Line() int { return r.line }

// Rows returns the number of records produced so far.
func (r *Reader) Rows() int { return r.rows }

// Failed returns the lines skipped under SkipInvalid.
func (r *Reader) Failed() []FailedRow { return r.failed }

// Fields returns the property column names.
func (r *Reader) Fields() []string { return r.codec.Fields() }

// Codec returns the reader's codec.
func (r *Reader) Codec() *rowdata.Codec { return r.codec }

// Progress returns the percentage of input bytes consumed, 0 if the size
// was not given.
func (r *Reader) Progress() int { return r.counter.progress() }
