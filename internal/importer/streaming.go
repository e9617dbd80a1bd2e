package importer

// streaming.go wraps the raw input so the line scanner sees clean text:
//
//   - UTF-8 BOM removal for files saved by Windows tools
//   - byte counting for progress reporting
//
// Invalid UTF-8 is repaired per line by the Reader, since lines are the unit
// of work and a line never splits a rune.

import (
	"bufio"
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// countingReader tracks bytes read for progress reporting.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
	total     int64 // 0 if unknown
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *countingReader) progress() int {
	if r.total <= 0 {
		return 0
	}
	p := int(r.bytesRead * 100 / r.total)
	return min(p, 100)
}

// wrapInput applies BOM skipping under byte counting. Counting sits
// outermost so progress reflects bytes of the original input.
func wrapInput(r io.Reader, total int64) (io.Reader, *countingReader) {
	counter := &countingReader{reader: r, total: total}
	return skipBOM(counter), counter
}
