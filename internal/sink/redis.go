// Package sink delivers encoded records to external systems.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/rowimport/internal/encode"
)

// DefaultBatchSize is the number of records sent per RPUSH.
const DefaultBatchSize = 500

// ErrNilClient is returned by NewRedisList without a client.
var ErrNilClient = errors.New("sink: nil redis client")

// Pusher appends to a list. Satisfied by *redis.Client, *redis.ClusterClient
// and redis.UniversalClient.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisList appends each record, encoded in one format, as an element of a
// Redis list. Records are sent in batches; call Flush after the last one.
// A RedisList is not safe for concurrent use.
type RedisList struct {
	ctx     context.Context
	rdb     Pusher
	key     string
	batch   int
	buf     bytes.Buffer
	enc     encode.Encoder
	trim    bool // drop the JSON encoder's trailing newline
	pending []any
	pushed  int64
}

var _ encode.Encoder = (*RedisList)(nil)

// NewRedisList returns a sink appending to key. ctx bounds every RPUSH.
// batch <= 0 means DefaultBatchSize.
func NewRedisList(ctx context.Context, rdb Pusher, key string, format encode.Format, batch int) (*RedisList, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	l := &RedisList{ctx: ctx, rdb: rdb, key: key, batch: batch, trim: format == encode.FormatJSON || format == ""}
	enc, err := encode.NewEncoder(&l.buf, format)
	if err != nil {
		return nil, err
	}
	l.enc = enc
	return l, nil
}

// Encode queues r and pushes the batch once it is full.
func (l *RedisList) Encode(r encode.Record) error {
	l.buf.Reset()
	if err := l.enc.Encode(r); err != nil {
		return err
	}
	b := l.buf.Bytes()
	if l.trim {
		b = bytes.TrimSuffix(b, []byte("\n"))
	}
	l.pending = append(l.pending, bytes.Clone(b))

	if len(l.pending) >= l.batch {
		return l.Flush()
	}
	return nil
}

// Flush pushes queued records.
func (l *RedisList) Flush() error {
	if len(l.pending) == 0 {
		return nil
	}
	if err := l.rdb.RPush(l.ctx, l.key, l.pending...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", l.key, err)
	}
	l.pushed += int64(len(l.pending))
	clear(l.pending)
	l.pending = l.pending[:0]
	return nil
}

// Pushed returns the number of records delivered so far.
func (l *RedisList) Pushed() int64 { return l.pushed }
