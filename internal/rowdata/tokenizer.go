package rowdata

import "strings"

// scanState is the tokenizer's position relative to fields and delimiters.
type scanState uint8

const (
	awaitValue     scanState = iota // at the start of a field
	inValue                         // reading a field's text
	awaitSeparator                  // just after a field's text
)

// row is the transient per-line token buffer, one slot per schema column.
// present[i] is false for an absent field.
type row struct {
	vals    []string
	present []bool
}

func newRow(n int) row {
	return row{vals: make([]string, n), present: make([]bool, n)}
}

func (r *row) set(i int, v string) {
	r.vals[i] = v
	r.present[i] = true
}

func (r *row) clear(i int) {
	r.vals[i] = ""
	r.present[i] = false
}

// tokenize fills r from line. Exactly len(r.vals) slots are written.
//
// A delimiter met while awaiting a value is that field's token and marks it
// absent; it is not followed by a second delimiter. After a value, a single
// delimiter is consumed unless the field was the last one. A value that is
// only whitespace is absent; otherwise the untrimmed text is kept. Missing
// trailing fields are absent and text past the last column is ignored.
func (r *row) tokenize(line, delim string) {
	n := len(r.vals)
	pos := 0
	state := awaitValue

	for i := 0; i < n; {
		switch state {
		case awaitValue:
			if pos >= len(line) {
				for ; i < n; i++ {
					r.clear(i)
				}
				return
			}
			if strings.HasPrefix(line[pos:], delim) {
				r.clear(i)
				pos += len(delim)
				i++
				continue
			}
			state = inValue

		case inValue:
			end := strings.Index(line[pos:], delim)
			if end < 0 {
				end = len(line) - pos
			}
			tok := line[pos : pos+end]
			pos += end
			if strings.TrimSpace(tok) == "" {
				r.clear(i)
			} else {
				r.set(i, tok)
			}
			state = awaitSeparator

		case awaitSeparator:
			if i < n-1 && strings.HasPrefix(line[pos:], delim) {
				pos += len(delim)
			}
			i++
			state = awaitValue
		}
	}
}
