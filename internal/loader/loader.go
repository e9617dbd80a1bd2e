// Package loader bulk loads converted rows into PostgreSQL with COPY.
//
// Each file gets its own importer.Reader, and therefore its own codec, so
// files can be loaded in parallel without sharing conversion state.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/logging"
)

// Copier runs a COPY FROM. Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Config configures a Loader.
type Config struct {
	// Reader settings shared by every file. Shape is forced to array.
	Reader importer.Options

	// IncludeKeys also copies the key-prefix columns, as text, ahead of the
	// converted property columns.
	IncludeKeys bool

	MaxConcurrent int
	MaxWait       time.Duration
}

// Result describes one file load.
type Result struct {
	LoadID     uuid.UUID
	Table      string
	FileName   string
	Columns    []string
	Inserted   int64
	Skipped    int
	FailedRows []importer.FailedRow
	Duration   time.Duration
	Error      string // Non-empty if the load failed
}

// Loader copies delimited files into tables.
type Loader struct {
	db      Copier
	cfg     Config
	limiter *Limiter
}

// New returns a Loader writing through db.
func New(db Copier, cfg Config) *Loader {
	cfg.Reader.Shape = importer.ShapeArray
	return &Loader{
		db:      db,
		cfg:     cfg,
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
	}
}

// Load copies the rows of r into table. table may be schema-qualified
// ("public.people"). size is the input length if known, for progress logs.
// A non-nil Result is returned even on failure.
func (l *Loader) Load(ctx context.Context, table, fileName string, r io.Reader, size int64) (*Result, error) {
	start := time.Now()
	res := &Result{LoadID: uuid.New(), Table: table, FileName: fileName}
	log := logging.WithFields(ctx, "load_id", res.LoadID, "table", table, "file", fileName)

	fail := func(err error) (*Result, error) {
		res.Duration = time.Since(start)
		res.Error = err.Error()
		log.Error("load failed", "error", err, "inserted", res.Inserted, "skipped", res.Skipped)
		return res, err
	}

	rd, err := importer.NewReader(r, size, l.cfg.Reader)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", fileName, err))
	}

	var src pgx.CopyFromSource = rd
	res.Columns = rd.Fields()
	if l.cfg.IncludeKeys && rd.Codec().Offset() > 0 {
		keyNames := rd.Codec().Schema().Names()[:rd.Codec().Offset()]
		res.Columns = append(keyNames, res.Columns...)
		src = &keyedSource{rd: rd}
	}
	if len(res.Columns) == 0 {
		return fail(fmt.Errorf("%s: no columns to load", fileName))
	}

	log.Info("load started", "columns", len(res.Columns))

	n, err := l.db.CopyFrom(ctx, identifier(table), res.Columns, src)
	res.Inserted = n
	res.FailedRows = rd.Failed()
	res.Skipped = len(res.FailedRows)
	if err != nil {
		return fail(fmt.Errorf("copy into %s: %w", table, err))
	}

	res.Duration = time.Since(start)
	log.Info("load complete",
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// LoadFile opens path and loads it into table.
func (l *Loader) LoadFile(ctx context.Context, table, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return &Result{Table: table, FileName: filepath.Base(path), Error: err.Error()}, err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return l.Load(ctx, table, filepath.Base(path), f, size)
}

// LoadFiles loads paths into table concurrently, at most MaxConcurrent at a
// time. Results are in path order; the error joins every failure.
func (l *Loader) LoadFiles(ctx context.Context, table string, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			if err := l.limiter.Acquire(ctx); err != nil {
				results[i] = &Result{Table: table, FileName: filepath.Base(path), Error: err.Error()}
				errs[i] = fmt.Errorf("%s: %w", path, err)
				return
			}
			defer l.limiter.Release()

			results[i], errs[i] = l.LoadFile(ctx, table, path)
		}(i, path)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// keyedSource prepends the raw key columns to each array-shaped record.
type keyedSource struct {
	rd  *importer.Reader
	buf []any
}

func (s *keyedSource) Next() bool { return s.rd.Next() }

func (s *keyedSource) Values() ([]any, error) {
	vals, err := s.rd.Values()
	if err != nil {
		return nil, err
	}
	s.buf = s.buf[:0]
	for _, k := range s.rd.Keys() {
		s.buf = append(s.buf, k)
	}
	return append(s.buf, vals...), nil
}

func (s *keyedSource) Err() error { return s.rd.Err() }
