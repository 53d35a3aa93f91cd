package source

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
	_ "modernc.org/sqlite"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

type M = data.M

type A = []any

func collect(ctx context.Context, src domain.Source) ([]domain.Document, error) {
	var res []domain.Document
	for doc, err := range src.Documents(ctx) {
		if err != nil {
			return res, err
		}
		res = append(res, doc)
	}
	return res, nil
}

func ids(docs []domain.Document) []any {
	res := make([]any, len(docs))
	for n, d := range docs {
		res[n] = d.ID()
	}
	return res
}

type SliceTestSuite struct {
	suite.Suite
}

func (s *SliceTestSuite) TestDocuments() {
	src, err := FromValues(M{"_id": 1}, M{"_id": 2})
	s.Require().NoError(err)
	s.Equal(2, src.Len())

	docs, err := collect(context.Background(), src)
	s.NoError(err)
	s.Equal([]any{1, 2}, ids(docs))

	// sources can be read again
	docs, err = collect(context.Background(), src)
	s.NoError(err)
	s.Len(docs, 2)
}

func (s *SliceTestSuite) TestEarlyStop() {
	src, err := FromValues(M{"_id": 1}, M{"_id": 2}, M{"_id": 3})
	s.Require().NoError(err)
	count := 0
	for range src.Documents(context.Background()) {
		count++
		break
	}
	s.Equal(1, count)
}

func (s *SliceTestSuite) TestCanceled() {
	src, err := FromValues(M{"_id": 1})
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = collect(ctx, src)
	s.ErrorIs(err, context.Canceled)
}

func (s *SliceTestSuite) TestInvalidValue() {
	_, err := FromValues(M{"_id": 1}, 3)
	s.ErrorAs(err, &domain.ErrDocumentType{})
}

func TestSliceTestSuite(t *testing.T) {
	suite.Run(t, new(SliceTestSuite))
}

type CollectionTestSuite struct {
	suite.Suite
	c   *Collection
	ctx context.Context
}

func (s *CollectionTestSuite) SetupTest() {
	var err error
	s.c, err = NewCollection(WithIndex("age", "tags"))
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.Require().NoError(s.c.Insert(s.ctx,
		M{"_id": 3, "age": 30, "tags": A{"a", "b"}},
		M{"_id": 1, "age": 10, "tags": A{"b"}},
		M{"_id": 2, "age": 20},
		M{"_id": 4, "age": 30, "tags": A{"a", "a"}},
	))
}

func (s *CollectionTestSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *CollectionTestSuite) TestFullScan() {
	docs, err := collect(s.ctx, s.c)
	s.NoError(err)
	s.Equal([]any{1, 2, 3, 4}, ids(docs))
	s.Equal(4, s.c.Len())
}

func (s *CollectionTestSuite) TestGeneratedID() {
	s.Require().NoError(s.c.Insert(s.ctx, M{"age": 5}))
	src, err := s.c.Equal("age", 5)
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.Require().Len(docs, 1)
	s.IsType(primitive.ObjectID{}, docs[0].ID())
}

// A failing insertion leaves the collection untouched.
func (s *CollectionTestSuite) TestDuplicateID() {
	err := s.c.Insert(s.ctx, M{"_id": 5, "age": 50}, M{"_id": 1})
	s.ErrorIs(err, ErrDuplicateID)
	s.Equal(4, s.c.Len())

	src, err := s.c.Equal("age", 50)
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.Empty(docs)

	err = s.c.Insert(s.ctx, M{"_id": 6}, M{"_id": 6})
	s.ErrorIs(err, ErrDuplicateID)
	s.Equal(4, s.c.Len())
}

func (s *CollectionTestSuite) TestEqual() {
	src, err := s.c.Equal("age", 30, 10, 30)
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{1, 3, 4}, ids(docs))

	src, err = s.c.Equal("_id", 2)
	s.Require().NoError(err)
	docs, err = collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{2}, ids(docs))
}

// Every element of an array is a key, and documents are yielded once.
func (s *CollectionTestSuite) TestArrayKeys() {
	src, err := s.c.Equal("tags", "a", "b")
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.ElementsMatch([]any{1, 3, 4}, ids(docs))

	src, err = s.c.Equal("tags", nil)
	s.Require().NoError(err)
	docs, err = collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{2}, ids(docs))
}

func (s *CollectionTestSuite) TestRange() {
	src, err := s.c.Range("age", M{"$gt": 10, "$lte": 30})
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{2}, ids(docs)[:1])
	s.ElementsMatch([]any{2, 3, 4}, ids(docs))

	src, err = s.c.Range("_id", M{"$lt": 3})
	s.Require().NoError(err)
	docs, err = collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{1, 2}, ids(docs))

	_, err = s.c.Range("age", M{"$in": A{1}})
	s.ErrorAs(err, &ErrUnknownBound{})
}

// Bounds are normalized like equality keys, even when the document factory
// keeps values as they are.
func (s *CollectionTestSuite) TestRangeNormalizesBounds() {
	shallow := func(v any) (domain.Document, error) {
		m, ok := v.(M)
		if !ok {
			return data.NewDocument(v)
		}
		d, err := data.NewDocument(nil)
		if err != nil {
			return nil, err
		}
		for k, x := range m {
			d.Set(k, x)
		}
		return d, nil
	}
	c, err := NewCollection(WithIndex("at"), WithDocumentFactory(shallow))
	s.Require().NoError(err)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(c.Insert(s.ctx,
		data.D{{Key: "_id", Value: 1}, {Key: "at", Value: day}},
		data.D{{Key: "_id", Value: 2}, {Key: "at", Value: day.AddDate(0, 0, 1)}},
	))

	bound := primitive.NewDateTimeFromTime(day)
	src, err := c.Range("at", M{"$lte": bound})
	s.Require().NoError(err)
	docs, err := collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{1}, ids(docs))

	src, err = c.Equal("at", bound)
	s.Require().NoError(err)
	docs, err = collect(s.ctx, src)
	s.NoError(err)
	s.Equal([]any{1}, ids(docs))
}

func (s *CollectionTestSuite) TestNoIndex() {
	_, err := s.c.Equal("name", 1)
	var target ErrNoIndex
	s.ErrorAs(err, &target)
	s.Equal("name", target.Field)

	_, err = s.c.Range("name", M{"$gt": 1})
	s.ErrorAs(err, &target)
}

// Yielded documents are copies.
func (s *CollectionTestSuite) TestCopies() {
	docs, err := collect(s.ctx, s.c)
	s.Require().NoError(err)
	docs[0].Set("age", 99)

	docs, err = collect(s.ctx, s.c)
	s.Require().NoError(err)
	s.Equal(10, docs[0].Get("age"))
}

func (s *CollectionTestSuite) TestCanceled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := collect(ctx, s.c)
	s.ErrorIs(err, context.Canceled)
	s.ErrorIs(s.c.Insert(ctx, M{}), context.Canceled)
}

func (s *CollectionTestSuite) TestConcurrentAccess() {
	before := s.c.Len()
	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	for n := range workers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- s.c.Insert(s.ctx, M{"_id": 1000 + n, "age": n})
		}()
		go func() {
			defer wg.Done()
			_, err := collect(s.ctx, s.c)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Equal(before+workers, s.c.Len())
}

func (s *CollectionTestSuite) TestInvalidIndex() {
	_, err := NewCollection(WithIndex("a..b"))
	s.ErrorAs(err, &domain.ErrInvalidFieldPath{})
}

func TestCollectionTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionTestSuite))
}

type ReaderTestSuite struct {
	suite.Suite
}

const lines = `{"_id": 1, "x": [{"a": 1}, {"a": 2}]}

{"_id": {"$oid": "5f1d7f4e8e4b2c3a1c9e4d21"}, "d": {"$date": "2020-01-02T03:04:05Z"}, "r": {"$regularExpression": {"pattern": "ab", "options": "i"}}}
`

func (s *ReaderTestSuite) TestDocuments() {
	docs, err := collect(context.Background(), NewReader(strings.NewReader(lines)))
	s.Require().NoError(err)
	s.Require().Len(docs, 2)

	s.Equal(int32(1), docs[0].ID())
	x, ok := docs[0].Get("x").([]any)
	s.Require().True(ok)
	s.Len(x, 2)
	s.Implements((*domain.Document)(nil), x[0])

	oid, err := primitive.ObjectIDFromHex("5f1d7f4e8e4b2c3a1c9e4d21")
	s.Require().NoError(err)
	s.Equal(oid, docs[1].ID())
	s.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), docs[1].Get("d"))
	s.Equal(primitive.Regex{Pattern: "ab", Options: "i"}, docs[1].Get("r"))
}

func (s *ReaderTestSuite) TestCorruptLine() {
	_, err := collect(context.Background(), NewReader(strings.NewReader("{\"a\": 1}\n{bad\n")))
	s.ErrorAs(err, &domain.ErrDecode{})
	s.ErrorContains(err, "line 2")
}

func (s *ReaderTestSuite) TestCorruptAlertThreshold() {
	in := "{\"a\": 1}\n{bad\n{\"a\": 2}\n{\"a\": 3}\n"

	docs, err := collect(context.Background(), NewReader(strings.NewReader(in), WithCorruptAlertThreshold(0.3)))
	s.NoError(err)
	s.Len(docs, 3)

	docs, err = collect(context.Background(), NewReader(strings.NewReader(in), WithCorruptAlertThreshold(0.2)))
	var target ErrCorruptData
	s.ErrorAs(err, &target)
	s.Equal(1, target.CorruptItems)
	s.Equal(4, target.DataLength)
	s.Len(docs, 3)
}

func (s *ReaderTestSuite) TestCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := collect(ctx, NewReader(strings.NewReader(lines)))
	s.ErrorIs(err, context.Canceled)
}

func (s *ReaderTestSuite) TestReadError() {
	errRead := errors.New("read error")
	_, err := collect(context.Background(), NewReader(io.MultiReader(strings.NewReader("{\"a\": 1}\n"), errReader{errRead})))
	s.ErrorIs(err, errRead)
}

func (s *ReaderTestSuite) TestFile() {
	path := filepath.Join(s.T().TempDir(), "data.jsonl")
	s.Require().NoError(os.WriteFile(path, []byte(lines), 0o600))

	src := NewFile(path)
	for range 2 {
		docs, err := collect(context.Background(), src)
		s.NoError(err)
		s.Len(docs, 2)
	}

	_, err := collect(context.Background(), NewFile(filepath.Join(s.T().TempDir(), "missing")))
	s.ErrorIs(err, os.ErrNotExist)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

type SQLTestSuite struct {
	suite.Suite
	db *sql.DB
}

func (s *SQLTestSuite) SetupTest() {
	var err error
	s.db, err = sql.Open("sqlite", ":memory:")
	s.Require().NoError(err)
	s.db.SetMaxOpenConns(1)

	_, err = s.db.Exec("CREATE TABLE docs (id INTEGER PRIMARY KEY, doc TEXT NOT NULL)")
	s.Require().NoError(err)

	for _, v := range []any{
		M{"_id": 1, "x": A{M{"a": 1}}},
		M{"_id": 2, "x": A{M{"a": 2}}},
		M{"_id": 3},
	} {
		doc, err := data.NewDocument(v)
		s.Require().NoError(err)
		b, err := data.ToExtJSON(doc)
		s.Require().NoError(err)
		_, err = s.db.Exec("INSERT INTO docs (doc) VALUES (?)", string(b))
		s.Require().NoError(err)
	}
}

func (s *SQLTestSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *SQLTestSuite) TestDocuments() {
	docs, err := collect(context.Background(), NewSQL(s.db, "SELECT doc FROM docs ORDER BY id"))
	s.NoError(err)
	s.Equal([]any{int32(1), int32(2), int32(3)}, ids(docs))

	docs, err = collect(context.Background(), NewSQL(s.db, "SELECT doc FROM docs WHERE id > ? ORDER BY id", 1))
	s.NoError(err)
	s.Len(docs, 2)
}

// Stopping early releases the connection, so the next query does not block.
func (s *SQLTestSuite) TestEarlyStop() {
	src := NewSQL(s.db, "SELECT doc FROM docs ORDER BY id")
	for range src.Documents(context.Background()) {
		break
	}
	docs, err := collect(context.Background(), src)
	s.NoError(err)
	s.Len(docs, 3)
}

func (s *SQLTestSuite) TestErrors() {
	_, err := collect(context.Background(), NewSQL(s.db, "SELECT doc FROM missing"))
	s.ErrorContains(err, "querying documents")

	_, err = s.db.Exec("INSERT INTO docs (doc) VALUES ('{bad')")
	s.Require().NoError(err)
	docs, err := collect(context.Background(), NewSQL(s.db, "SELECT doc FROM docs ORDER BY id"))
	s.ErrorAs(err, &domain.ErrDecode{})
	s.Len(docs, 3)
}

func TestSQLTestSuite(t *testing.T) {
	suite.Run(t, new(SQLTestSuite))
}
