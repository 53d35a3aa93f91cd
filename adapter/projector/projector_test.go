package projector

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/elemmatcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/planner"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

type M = data.M

type D = data.D

type A = []any

type elemMatcherMock struct{ mock.Mock }

// Compile implements [domain.ElementMatcher].
func (e *elemMatcherMock) Compile(field string, arg any) (domain.ElemMatchSpec, error) {
	call := e.Called(field, arg)
	return call.Get(0).(domain.ElemMatchSpec), call.Error(1)
}

// Match implements [domain.ElementMatcher].
func (e *elemMatcherMock) Match(spec domain.ElemMatchSpec, doc domain.Document) (domain.MatchResult, error) {
	call := e.Called(spec, doc)
	return call.Get(0).(domain.MatchResult), call.Error(1)
}

type ProjectorTestSuite struct {
	suite.Suite
	proj domain.Projector
}

func (s *ProjectorTestSuite) SetupTest() {
	s.proj = NewProjector()
}

func (s *ProjectorTestSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ProjectorTestSuite) doc(v any) domain.Document {
	d, err := data.NewDocument(v)
	s.Require().NoError(err)
	return d
}

// project matches doc against filter, plans projection and projects the
// document, the same way a query does.
func (s *ProjectorTestSuite) project(filter, projection, doc any) domain.Document {
	pred, err := matcher.NewMatcher().Compile(filter)
	s.Require().NoError(err)
	plan, err := planner.NewPlanner().Plan(pred, projection)
	s.Require().NoError(err)

	d := s.doc(doc)
	details := domain.NewMatchDetails()
	ok, err := pred.MatchDetails(d, details)
	s.Require().NoError(err)
	s.Require().True(ok)

	res, err := s.proj.Project(d, plan, details)
	s.Require().NoError(err)
	return res
}

func (s *ProjectorTestSuite) assertDoc(expected any, actual domain.Document) {
	s.Equal(data.ToMap(s.doc(expected)), data.ToMap(actual))
}

func (s *ProjectorTestSuite) keys(d domain.Document) []string {
	var res []string
	for k := range d.Keys() {
		res = append(res, k)
	}
	return res
}

func (s *ProjectorTestSuite) TestEmptyPlan() {
	d := s.doc(M{"a": 1})
	res, err := s.proj.Project(d, nil, nil)
	s.NoError(err)
	s.Same(d, res)

	res, err = s.proj.Project(d, &domain.Plan{}, nil)
	s.NoError(err)
	s.Same(d, res)
}

func (s *ProjectorTestSuite) TestInclusion() {
	doc := D{{Key: "_id", Value: 1}, {Key: "a", Value: 1}, {Key: "b", Value: M{"c": 2, "d": 3}}, {Key: "e", Value: 4}}

	res := s.project(nil, M{"a": 1, "e": 1}, doc)
	s.Equal([]string{"_id", "a", "e"}, s.keys(res))

	res = s.project(nil, D{{Key: "e", Value: 1}, {Key: "a", Value: 1}, {Key: "_id", Value: 0}}, doc)
	s.Equal([]string{"a", "e"}, s.keys(res))

	res = s.project(nil, M{"b.c": 1}, doc)
	s.assertDoc(M{"_id": 1, "b": M{"c": 2}}, res)

	res = s.project(nil, M{"_id": 1}, doc)
	s.assertDoc(M{"_id": 1}, res)

	res = s.project(nil, M{"missing": 1}, doc)
	s.assertDoc(M{"_id": 1}, res)
}

func (s *ProjectorTestSuite) TestExclusion() {
	doc := D{{Key: "_id", Value: 1}, {Key: "a", Value: 1}, {Key: "b", Value: M{"c": 2, "d": 3}}, {Key: "e", Value: 4}}

	res := s.project(nil, M{"a": 0}, doc)
	s.Equal([]string{"_id", "b", "e"}, s.keys(res))

	res = s.project(nil, M{"b.c": 0, "_id": 0}, doc)
	s.assertDoc(M{"a": 1, "b": M{"d": 3}, "e": 4}, res)

	res = s.project(nil, M{"_id": 0}, doc)
	s.assertDoc(M{"a": 1, "b": M{"c": 2, "d": 3}, "e": 4}, res)
}

// Nested paths descend into arrays of documents. In an inclusion other
// elements are dropped.
func (s *ProjectorTestSuite) TestNestedArrays() {
	doc := M{"a": A{M{"b": 1, "c": 2}, 5, M{"c": 3}, A{M{"b": 4}}}}

	res := s.project(nil, M{"a.b": 1, "_id": 0}, doc)
	s.assertDoc(M{"a": A{M{"b": 1}, M{}, A{M{"b": 4}}}}, res)

	res = s.project(nil, M{"a.b": 0}, doc)
	s.assertDoc(M{"a": A{M{"c": 2}, 5, M{"c": 3}, A{M{}}}}, res)
}

// Excluded fields never appear and included fields keep their whole shape.
func (s *ProjectorTestSuite) TestShapePreserved() {
	doc := M{"x": A{M{"a": 1, "b": M{"c": A{1, 2}}}}, "y": M{"z": A{M{"w": 1}}}, "n": 3}

	res := s.project(nil, M{"x": 1, "y": 1, "_id": 0}, doc)
	s.assertDoc(M{"x": A{M{"a": 1, "b": M{"c": A{1, 2}}}}, "y": M{"z": A{M{"w": 1}}}}, res)

	res = s.project(nil, M{"n": 0, "y": 0}, doc)
	s.False(res.Has("n"))
	s.False(res.Has("y"))
	s.assertDoc(M{"x": A{M{"a": 1, "b": M{"c": A{1, 2}}}}}, res)
}

func (s *ProjectorTestSuite) TestSingleObjectMatch() {
	doc := M{"_id": 4, "group": 4, "x": A{M{"a": 1, "b": 4}, M{"a": -6, "c": 3}}}
	res := s.project(M{"group": 4}, M{"x": M{"$elemMatch": M{"a": -6}}}, doc)
	s.assertDoc(M{"_id": 4, "x": A{M{"a": -6, "c": 3}}}, res)

	res = s.project(M{"group": 4}, M{"x": M{"$elemMatch": M{"a": M{"$lte": 2}}}}, doc)
	s.assertDoc(M{"_id": 4, "x": A{M{"a": 1, "b": 4}}}, res)
}

func (s *ProjectorTestSuite) TestSingleNumberMatch() {
	doc := M{"_id": 1, "group": 1, "b": A{1, 2, 3, 4, 5}}
	res := s.project(M{"group": 1}, M{"b": M{"$elemMatch": 4}}, doc)
	s.assertDoc(M{"_id": 1, "b": A{4}}, res)
}

// An $elemMatch rule with no matching element omits the field.
func (s *ProjectorTestSuite) TestElemMatchNoMatch() {
	doc := M{"_id": 1, "b": A{1, 2}, "c": 1}
	res := s.project(nil, M{"b": M{"$elemMatch": 9}, "c": 1}, doc)
	s.assertDoc(M{"_id": 1, "c": 1}, res)
	s.False(res.Has("b"))

	res = s.project(nil, M{"z": M{"$elemMatch": 9}}, doc)
	s.assertDoc(M{"_id": 1}, res)
}

func (s *ProjectorTestSuite) TestPositional() {
	doc := M{"_id": 2, "group": 2, "x": A{M{"a": 1, "b": 2}, M{"a": 2, "c": 3}, M{"a": 1, "d": 5}}}
	res := s.project(M{"group": 2, "x.a": 2}, M{"x.$": 1}, doc)
	s.assertDoc(M{"_id": 2, "x": A{M{"a": 2, "c": 3}}}, res)

	res = s.project(M{"x.a": 1}, M{"x.$": 1, "group": 1}, doc)
	s.assertDoc(M{"_id": 2, "group": 2, "x": A{M{"a": 1, "b": 2}}}, res)

	doc = M{"_id": 3, "b": A{1, 2, 3, 4, 5}}
	res = s.project(M{"b": M{"$gt": 3}}, M{"b.$": 1}, doc)
	s.assertDoc(M{"_id": 3, "b": A{4}}, res)
}

// A positional rule without a recorded position omits the field.
func (s *ProjectorTestSuite) TestPositionalNoPosition() {
	doc := M{"_id": 2, "x": A{M{"a": 1}}}
	res := s.project(M{"x.a": M{"$ne": 5}}, M{"x.$": 1}, doc)
	s.assertDoc(M{"_id": 2}, res)
}

func (s *ProjectorTestSuite) TestMultipleElemMatch() {
	doc := M{"_id": 5, "x": A{M{"a": 1, "b": 2}, M{"a": 3, "b": 4}}, "y": A{M{"c": 1, "d": 2}, M{"c": 3, "d": 4}}}
	res := s.project(nil, D{
		{Key: "x", Value: M{"$elemMatch": M{"a": 1}}},
		{Key: "y", Value: M{"$elemMatch": M{"c": 3}}},
	}, doc)
	s.assertDoc(M{"_id": 5, "x": A{M{"a": 1, "b": 2}}, "y": A{M{"c": 3, "d": 4}}}, res)
}

func (s *ProjectorTestSuite) TestDottedElemMatch() {
	doc := M{"_id": 9, "group": 9, "x": A{
		M{"y": A{M{"a": 1, "b": 2}, M{"a": 3, "b": 4}}},
		M{"z": A{M{"a": 1, "b": 2}, M{"a": 3, "b": 4}}},
	}}
	res := s.project(M{"group": 9}, M{"x.y": M{"$elemMatch": M{"a": 1}}}, doc)
	s.assertDoc(M{"_id": 9, "x": A{M{"y": A{M{"a": 1, "b": 2}, M{"a": 3, "b": 4}}}}}, res)

	res = s.project(M{"group": 9}, M{"x.y": M{"$elemMatch": M{"a": 7}}}, doc)
	s.assertDoc(M{"_id": 9}, res)
}

// Projecting an already projected document again changes nothing.
func (s *ProjectorTestSuite) TestIdempotent() {
	proj := M{"x": M{"$elemMatch": M{"a": -6}}}
	doc := M{"_id": 4, "x": A{M{"a": 1, "b": 4}, M{"a": -6, "c": 3}}}
	first := s.project(nil, proj, doc)
	second := s.project(nil, proj, first)
	s.assertDoc(data.ToMap(first), second)
	s.assertDoc(M{"_id": 4, "x": A{M{"a": -6, "c": 3}}}, second)
}

func (s *ProjectorTestSuite) TestAllMatches() {
	s.proj = NewProjector(WithElementMatcher(elemmatcher.NewElementMatcher(elemmatcher.WithAllMatches(true))))
	doc := M{"_id": 1, "b": A{1, 2, 3, 4, 5}}
	res := s.project(nil, M{"b": M{"$elemMatch": M{"$gte": 3}}}, doc)
	s.assertDoc(M{"_id": 1, "b": A{3, 4, 5}}, res)
}

func (s *ProjectorTestSuite) TestSlice() {
	doc := M{"_id": 1, "b": A{1, 2, 3, 4, 5}, "c": "x"}
	tests := []struct {
		arg      any
		expected A
	}{
		{arg: 2, expected: A{1, 2}},
		{arg: -2, expected: A{4, 5}},
		{arg: 10, expected: A{1, 2, 3, 4, 5}},
		{arg: -10, expected: A{1, 2, 3, 4, 5}},
		{arg: A{1, 2}, expected: A{2, 3}},
		{arg: A{-2, 1}, expected: A{4}},
		{arg: A{7, 1}, expected: A{}},
		{arg: 0, expected: A{}},
		{arg: math.MinInt, expected: A{1, 2, 3, 4, 5}},
		{arg: math.MaxInt, expected: A{1, 2, 3, 4, 5}},
		{arg: A{-2, math.MaxInt}, expected: A{4, 5}},
		{arg: A{1, math.MaxInt}, expected: A{2, 3, 4, 5}},
		{arg: A{math.MinInt, 2}, expected: A{1, 2}},
		{arg: A{math.MaxInt, 2}, expected: A{}},
	}
	for _, tt := range tests {
		res := s.project(nil, M{"b": M{"$slice": tt.arg}}, doc)
		s.assertDoc(M{"_id": 1, "b": tt.expected, "c": "x"}, res)
	}

	res := s.project(nil, M{"c": M{"$slice": 1}}, doc)
	s.Equal("x", res.Get("c"))

	res = s.project(nil, M{"b": M{"$slice": 1}, "_id": 1}, doc)
	s.assertDoc(M{"_id": 1, "b": A{1}}, res)
}

// Whole elements survive a dotted $elemMatch, including keys outside the
// matched path.
func (s *ProjectorTestSuite) TestDottedElemMatchSiblings() {
	doc := M{"_id": 1, "x": A{
		M{"w": 5, "y": A{M{"a": 1}}, "v": M{"k": 1}},
		M{"w": 6, "y": A{M{"a": 2}}},
	}}
	res := s.project(nil, M{"x.y": M{"$elemMatch": M{"a": 1}}}, doc)
	s.assertDoc(M{"_id": 1, "x": A{M{"w": 5, "y": A{M{"a": 1}}, "v": M{"k": 1}}}}, res)

	res = s.project(nil, M{"x.y": M{"$elemMatch": M{"a": 2}}, "_id": 0}, doc)
	s.assertDoc(M{"x": A{M{"w": 6, "y": A{M{"a": 2}}}}}, res)
}

// The source document is never modified.
func (s *ProjectorTestSuite) TestSourceUntouched() {
	doc := s.doc(M{"_id": 1, "b": A{1, 2, 3}, "c": M{"d": 1, "e": 2}})
	before := data.ToMap(doc)

	plan, err := planner.NewPlanner().Plan(nil, M{"c.d": 0, "b": M{"$slice": 1}})
	s.Require().NoError(err)
	_, err = s.proj.Project(doc, plan, nil)
	s.Require().NoError(err)
	s.Equal(before, data.ToMap(doc))
}

func (s *ProjectorTestSuite) TestElementMatcherError() {
	em := new(elemMatcherMock)
	spec := domain.ElemMatchSpec{Field: "b", Path: []string{"b"}}
	doc := s.doc(M{"b": 1})
	em.On("Match", spec, doc).Return(domain.MatchResult{}, domain.ErrInvalidFieldPath{Path: []string{"b"}}).Once()

	s.proj = NewProjector(WithElementMatcher(em))
	plan := &domain.Plan{
		Inclusion: true,
		Fields:    []domain.FieldPlan{{Field: "b", Path: []string{"b"}, Rule: domain.RuleElemMatch, ElemMatch: &spec}},
	}
	_, err := s.proj.Project(doc, plan, nil)
	s.ErrorAs(err, &domain.ErrInvalidFieldPath{})
	em.AssertExpectations(s.T())
}

func (s *ProjectorTestSuite) TestDocumentFactoryError() {
	errFac := errors.New("factory error")
	s.proj = NewProjector(WithDocumentFactory(func(any) (domain.Document, error) {
		return nil, errFac
	}))
	plan := &domain.Plan{Fields: []domain.FieldPlan{{Field: "a", Path: []string{"a"}, Rule: domain.RuleExclude}}}
	_, err := s.proj.Project(s.doc(M{"a": 1}), plan, nil)
	s.ErrorIs(err, errFac)

	plan.Inclusion = true
	_, err = s.proj.Project(s.doc(M{"a": 1}), plan, nil)
	s.ErrorIs(err, errFac)
}

func TestProjectorTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectorTestSuite))
}
