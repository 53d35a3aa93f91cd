package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/dolmen-go/contextio"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

const maxLineSize = 16 * 1024 * 1024

// ErrCorruptData is returned when the ratio of undecodable lines of a stream
// is above the configured threshold.
type ErrCorruptData struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptData) Error() string {
	return fmt.Sprintf(
		"%.1f%% of the data is corrupt, more than given corruptAlertThreshold (%.1f%%)",
		e.CorruptionRate*100, e.CorruptAlertThreshold*100,
	)
}

// Reader is a [domain.Source] over newline delimited MongoDB extended JSON
// documents. Empty lines are ignored. Reading stops as soon as the consumer
// stops pulling documents or the context is done.
type Reader struct {
	open                  func() (io.ReadCloser, error)
	corruptAlertThreshold float64
	log                   *zap.Logger
	docFac                domain.DocumentFactory
}

func newReader(open func() (io.ReadCloser, error), opts ...ReaderOption) *Reader {
	r := &Reader{open: open, docFac: data.NewDocument}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// NewReader returns a source reading from rd. rd can only be consumed once,
// so the source should not be queried more than once.
func NewReader(rd io.Reader, opts ...ReaderOption) *Reader {
	return newReader(func() (io.ReadCloser, error) {
		return io.NopCloser(rd), nil
	}, opts...)
}

// NewFile returns a source that opens the file at path on every query.
func NewFile(path string, opts ...ReaderOption) *Reader {
	return newReader(func() (io.ReadCloser, error) {
		return os.Open(path)
	}, opts...)
}

// Documents implements [domain.Source].
func (r *Reader) Documents(ctx context.Context) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		rc, err := r.open()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()

		lineStream := bufio.NewScanner(contextio.NewReader(ctx, rc))
		lineStream.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		var lineNumber, corruptItems, dataLength int
		for lineStream.Scan() {
			lineNumber++
			line := lineStream.Bytes()
			if len(line) == 0 {
				continue
			}
			dataLength++

			doc, err := r.decode(line)
			if err != nil {
				err = fmt.Errorf("line %d: %w", lineNumber, err)
				if r.corruptAlertThreshold <= 0 {
					yield(nil, err)
					return
				}
				corruptItems++
				r.log.Warn("skipping corrupt line", zap.Error(err))
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := lineStream.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = ctx.Err()
			}
			yield(nil, err)
			return
		}
		if dataLength > 0 && corruptItems > 0 {
			corruptionRate := float64(corruptItems) / float64(dataLength)
			if corruptionRate > r.corruptAlertThreshold {
				yield(nil, ErrCorruptData{
					CorruptionRate:        corruptionRate,
					CorruptItems:          corruptItems,
					DataLength:            dataLength,
					CorruptAlertThreshold: r.corruptAlertThreshold,
				})
			}
		}
	}
}

func (r *Reader) decode(line []byte) (domain.Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(line, false, &d); err != nil {
		return nil, domain.ErrDecode{Source: err}
	}
	return r.docFac(d)
}
