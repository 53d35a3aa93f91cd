package source

import (
	"github.com/vinicius-lino-figueiredo/bst"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

type bstComparer struct {
	comparer domain.Comparer
}

// newBSTComparer orders index keys with the document value ranking. Values
// stored under the same key are told apart by identity.
func newBSTComparer(comparer domain.Comparer) bst.Comparer[any, domain.Document] {
	return &bstComparer{
		comparer: comparer,
	}
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	return bc.comparer.Compare(a, b)
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a domain.Document, b domain.Document) (bool, error) {
	return a == b, nil
}
