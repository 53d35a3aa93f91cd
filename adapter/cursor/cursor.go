// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"
	"errors"
	"iter"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Cursor implements domain.Cursor. Documents are pulled from the underlying
// sequence one at a time, as [Cursor.Next] is called.
type Cursor struct {
	next   func() (domain.Document, error, bool)
	stop   func()
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	cur    domain.Document
	err    error
}

// NewCursor returns a new implementation of Cursor reading from seq. The
// cursor must be closed to release the sequence.
func NewCursor(ctx context.Context, seq iter.Seq2[domain.Document, error], options ...domain.CursorOption) (domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := domain.CursorOptions{
		Decoder: decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&opts)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	next, stop := iter.Pull2(seq)
	return &Cursor{
		next:   next,
		stop:   stop,
		ctx:    ctx,
		cancel: cancel,
		dec:    opts.Decoder,
	}, nil
}

// Err implements domain.Cursor. It returns the error that ended the
// iteration, if any, or the reason the cursor context is done.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return context.Cause(c.ctx)
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if c.cur == nil {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.cur, target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	if errors.Is(context.Cause(c.ctx), domain.ErrCursorClosed) {
		return domain.ErrCursorClosed
	}
	c.stop()
	c.cancel(domain.ErrCursorClosed)
	c.cur = nil
	return nil
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	select {
	case <-c.ctx.Done():
		c.cur = nil
		return false
	default:
	}
	if c.err != nil {
		return false
	}
	doc, err, ok := c.next()
	if !ok {
		c.cur = nil
		c.stop()
		return false
	}
	if err != nil {
		c.err = err
		c.cur = nil
		c.stop()
		return false
	}
	c.cur = doc
	return true
}
