package docproj_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/vinicius-lino-figueiredo/docproj"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/source"
)

type M = data.M

var sizes = [...]int{1, 10, 100, 1_000, 10_000}

func newSlice(b *testing.B, size int) *source.Slice {
	values := make([]any, size)
	for n := range size {
		values[n] = M{
			"_id":  n,
			"code": n,
			"x": []any{
				M{"a": n % 3, "b": n},
				M{"a": n % 5, "c": n},
				M{"a": n % 7, "d": n},
			},
		}
	}
	src, err := source.FromValues(values...)
	if err != nil {
		b.Fatal(err)
	}
	return src
}

func drain(b *testing.B, engine *docproj.Engine, src docproj.Source, filter any, opts ...docproj.FindOption) {
	seq, err := engine.Iter(context.Background(), src, filter, opts...)
	if err != nil {
		b.Fatal(err)
	}
	for _, err := range seq {
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFind(b *testing.B) {
	engine := docproj.New()

	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs=%d", size), func(b *testing.B) {
			src := newSlice(b, size)

			b.Run("Existing", func(b *testing.B) {
				for b.Loop() {
					drain(b, engine, src, M{"code": rand.Intn(size)})
				}
			})

			b.Run("NonExisting", func(b *testing.B) {
				m := M{"code": size + 12}
				for b.Loop() {
					drain(b, engine, src, m)
				}
			})
		})
	}
}

func BenchmarkFindWithIndex(b *testing.B) {
	ctx := context.Background()
	engine := docproj.New()

	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs=%d", size), func(b *testing.B) {
			coll, err := source.NewCollection(source.WithIndex("code"))
			if err != nil {
				b.Fatal(err)
			}
			for n := range size {
				if err := coll.Insert(ctx, M{"_id": n, "code": n}); err != nil {
					b.Fatal(err)
				}
			}

			for b.Loop() {
				b.StopTimer()
				code := rand.Intn(size)
				b.StartTimer()
				src, err := coll.Equal("code", code)
				if err != nil {
					b.FailNow()
				}
				drain(b, engine, src, M{"code": code})
			}
		})
	}
}

func BenchmarkProjection(b *testing.B) {
	projections := []struct {
		name       string
		projection any
		filter     any
	}{
		{"Inclusion", M{"code": 1}, nil},
		{"Exclusion", M{"x": 0}, nil},
		{"ElemMatch", M{"x": M{"$elemMatch": M{"a": 1}}}, nil},
		{"Positional", M{"x.$": 1}, M{"x.a": 2}},
		{"Slice", M{"x": M{"$slice": -1}}, nil},
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs=%d", size), func(b *testing.B) {
			src := newSlice(b, size)

			for _, p := range projections {
				b.Run(p.name, func(b *testing.B) {
					engine := docproj.New()
					for b.Loop() {
						drain(b, engine, src, p.filter, docproj.WithProjection(p.projection))
					}
				})
			}

			b.Run("AllMatches", func(b *testing.B) {
				engine := docproj.New(docproj.WithAllMatches(true))
				proj := docproj.WithProjection(M{"x": M{"$elemMatch": M{"a": M{"$lt": 2}}}})
				for b.Loop() {
					drain(b, engine, src, nil, proj)
				}
			})
		})
	}
}

func BenchmarkFindOne(b *testing.B) {
	ctx := context.Background()
	engine := docproj.New()

	var t M

	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs=%d", size), func(b *testing.B) {
			src := newSlice(b, size)

			b.Run("Existing", func(b *testing.B) {
				for b.Loop() {
					b.StopTimer()
					code := rand.Intn(size)
					b.StartTimer()
					err := engine.FindOne(ctx, src, M{"code": code}, &t)
					if err != nil {
						b.Log(err.Error())
						b.FailNow()
					}
				}
			})

			b.Run("NonExisting", func(b *testing.B) {
				m := M{"code": size + 12}
				for b.Loop() {
					err := engine.FindOne(ctx, src, m, &t)
					if err == nil {
						b.FailNow()
					}
				}
			})
		})
	}
}

func BenchmarkSort(b *testing.B) {
	engine := docproj.New()

	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs=%d", size), func(b *testing.B) {
			src := newSlice(b, size)
			sort := docproj.WithSort(docproj.Sort{{Key: "code", Order: -1}})
			for b.Loop() {
				drain(b, engine, src, nil, sort, docproj.WithLimit(10))
			}
		})
	}
}
