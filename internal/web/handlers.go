package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/rowimport/internal/config"
	"github.com/JonMunkholm/rowimport/internal/encode"
	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/logging"
	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// TypesResponse lists the column type tags a header may use.
type TypesResponse struct {
	Types     []string `json:"types"`
	Separator string   `json:"separator"`
	Default   string   `json:"default"`
}

// ColumnInfo describes one header column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Key  bool   `json:"key"`
}

// LineProblem is a data line that did not convert.
type LineProblem struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Column  string `json:"column,omitempty"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// PreviewResponse is the result of a preview run.
type PreviewResponse struct {
	Delimiter string          `json:"delimiter"`
	Offset    int             `json:"offset"`
	Shape     string          `json:"shape"`
	Columns   []ColumnInfo    `json:"columns"`
	Fields    []string        `json:"fields"`
	Rows      []encode.Record `json:"rows"`
	Errors    []LineProblem   `json:"errors"`
	Truncated bool            `json:"truncated"`
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	types := rowdata.Types()
	resp := TypesResponse{
		Types:     make([]string, len(types)),
		Separator: rowdata.TypeSeparator,
		Default:   rowdata.String.String(),
	}
	for i, t := range types {
		resp.Types[i] = t.String()
	}
	writeJSON(w, r, resp)
}

// handlePreview converts the posted text and returns up to limit records.
//
// Query parameters override the server defaults:
//   - delimiter: field delimiter, \t and \| escapes accepted
//   - offset: number of key columns
//   - shape: map or array
//   - limit: maximum records returned, capped by the server
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts, limit, err := s.previewOptions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body io.Reader = r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}

	rd, err := importer.NewReader(body, r.ContentLength, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	codec := rd.Codec()
	resp := PreviewResponse{
		Delimiter: codec.Delimiter(),
		Offset:    codec.Offset(),
		Shape:     opts.Shape.String(),
		Columns:   columnInfo(codec),
		Fields:    codec.Fields(),
		Rows:      make([]encode.Record, 0, limit),
		Errors:    []LineProblem{},
	}

	for len(resp.Rows) < limit && rd.Scan() {
		resp.Rows = append(resp.Rows, record(rd, opts.Shape))
	}
	if err := rd.Err(); err != nil {
		respondError(w, r, err)
		return
	}
	resp.Truncated = len(resp.Rows) == limit && rd.Scan()

	for _, f := range rd.Failed() {
		if len(resp.Errors) == limit {
			resp.Truncated = true
			break
		}
		resp.Errors = append(resp.Errors, lineProblem(f))
	}

	logging.WithFields(r.Context(), "columns", codec.NumColumns(), "offset", codec.Offset()).
		Debug("preview", "rows", len(resp.Rows), "errors", len(resp.Errors), "truncated", resp.Truncated)

	writeJSON(w, r, resp)
}

// previewOptions builds reader options from the query and server defaults.
// Previews always collect conversion failures instead of stopping.
func (s *Server) previewOptions(r *http.Request) (importer.Options, int, error) {
	opts := s.opts.Defaults
	opts.SkipInvalid = true
	limit := s.opts.MaxRows

	q := r.URL.Query()
	if v := q.Get("delimiter"); v != "" {
		opts.Delimiter = config.UnescapeDelimiter(v)
		if strings.Contains(opts.Delimiter, rowdata.TypeSeparator) {
			return opts, 0, fmt.Errorf("%w: delimiter %q must not contain the type separator %q",
				errBadRequest, opts.Delimiter, rowdata.TypeSeparator)
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, 0, fmt.Errorf("%w: offset %q is not a non-negative integer", errBadRequest, v)
		}
		opts.Offset = n
	}
	if v := q.Get("shape"); v != "" {
		shape, err := importer.ParseShape(v)
		if err != nil {
			return opts, 0, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		opts.Shape = shape
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, 0, fmt.Errorf("%w: limit %q is not a positive integer", errBadRequest, v)
		}
		limit = min(n, s.opts.MaxRows)
	}
	return opts, limit, nil
}

func columnInfo(c *rowdata.Codec) []ColumnInfo {
	cols := c.Schema().Columns()
	out := make([]ColumnInfo, len(cols))
	for i, col := range cols {
		out[i] = ColumnInfo{Name: col.Name, Type: col.Type.String(), Key: i < c.Offset()}
	}
	return out
}

func record(rd *importer.Reader, shape importer.Shape) encode.Record {
	if shape == importer.ShapeMap {
		p, _ := rd.Pairs()
		return encode.NewRecord(rd.Line(), rd.Keys(), p)
	}
	vals, _ := rd.Values()
	return encode.NewArrayRecord(rd.Line(), rd.Keys(), vals)
}

func lineProblem(f importer.FailedRow) LineProblem {
	p := LineProblem{
		Line:    f.LineNumber,
		Code:    MapError(f.Err).Code,
		Message: f.Reason,
	}
	var ce *rowdata.ConversionError
	if errors.As(f.Err, &ce) {
		p.Column = ce.Column
		p.Type = ce.Type.String()
		p.Value = ce.Value
	}
	return p
}
