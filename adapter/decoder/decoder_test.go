package decoder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

type item struct {
	Name string `docproj:"name"`
	Qty  int    `docproj:"qty"`
}

type order struct {
	ID      string    `docproj:"_id"`
	Items   []item    `docproj:"items"`
	Created time.Time `docproj:"created"`
}

type DecoderTestSuite struct {
	suite.Suite
	dec domain.Decoder
}

func (s *DecoderTestSuite) SetupTest() {
	s.dec = NewDecoder()
}

func (s *DecoderTestSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *DecoderTestSuite) doc(v any) domain.Document {
	d, err := data.NewDocument(v)
	s.Require().NoError(err)
	return d
}

func (s *DecoderTestSuite) TestStruct() {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	doc := s.doc(data.M{
		"_id":     "a1",
		"items":   []any{data.M{"name": "pen", "qty": 2}, data.M{"name": "ink"}},
		"created": ts,
	})

	var o order
	s.NoError(s.dec.Decode(doc, &o))
	s.Equal(order{
		ID:      "a1",
		Items:   []item{{Name: "pen", Qty: 2}, {Name: "ink"}},
		Created: ts,
	}, o)
}

func (s *DecoderTestSuite) TestMap() {
	doc := s.doc(data.M{"a": data.M{"b": 1}, "c": []any{1, "x"}})

	var m map[string]any
	s.NoError(s.dec.Decode(doc, &m))
	s.Equal(map[string]any{"a": map[string]any{"b": 1}, "c": []any{1, "x"}}, m)
}

func (s *DecoderTestSuite) TestObjectID() {
	id := primitive.NewObjectID()
	doc := s.doc(data.M{"_id": id})

	var o order
	s.NoError(s.dec.Decode(doc, &o))
	s.Equal(id.Hex(), o.ID)

	var m map[string]any
	s.NoError(s.dec.Decode(doc, &m))
	s.Equal(id, m["_id"])
}

func (s *DecoderTestSuite) TestStringTime() {
	var o order
	s.NoError(s.dec.Decode(map[string]any{"created": "2024-05-01T00:00:00Z"}, &o))
	s.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), o.Created)
}

func (s *DecoderTestSuite) TestDocumentTarget() {
	src := s.doc(data.M{"a": 1})

	var doc domain.Document
	s.NoError(s.dec.Decode(src, &doc))
	s.Equal(src, doc)
	s.NotSame(src, doc)

	doc.Set("a", 2)
	s.Equal(1, src.Get("a"))
}

func (s *DecoderTestSuite) TestInvalidTargets() {
	s.Run("Nil", func() {
		s.ErrorIs(s.dec.Decode(data.M{}, nil), domain.ErrTargetNil{})
	})
	s.Run("NilPointer", func() {
		var o *order
		s.ErrorIs(s.dec.Decode(data.M{}, o), domain.ErrTargetNil{})
	})
	s.Run("NonPointer", func() {
		s.ErrorIs(s.dec.Decode(data.M{}, order{}), domain.ErrNonPointer)
	})
}

func (s *DecoderTestSuite) TestDecodeError() {
	var o order
	err := s.dec.Decode(s.doc(data.M{"items": "nope"}), &o)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func (s *DecoderTestSuite) TestDocumentFactoryError() {
	errFac := errors.New("factory error")
	s.dec = NewDecoder(WithDocumentFactory(func(any) (domain.Document, error) {
		return nil, errFac
	}))

	var doc domain.Document
	err := s.dec.Decode(data.M{}, &doc)
	s.ErrorIs(err, errFac)
	s.ErrorAs(err, &domain.ErrDecode{})
}

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}
