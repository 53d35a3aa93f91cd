// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

// Decoder implements domain.Decoder.
type Decoder struct {
	docFac domain.DocumentFactory
}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder(opts ...Option) domain.Decoder {
	d := &Decoder{docFac: data.NewDocument}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode implements domain.Decoder. Documents are decoded into structs and
// maps using the `docproj` struct tag. A pointer to a [domain.Document]
// receives a copy of the source.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil{}
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}
	if value.IsNil() {
		return domain.ErrTargetNil{}
	}

	if p, ok := target.(*domain.Document); ok {
		doc, err := d.docFac(source)
		if err != nil {
			return domain.ErrDecode{Source: err}
		}
		*p = doc
		return nil
	}

	if doc, ok := source.(domain.Document); ok {
		source = data.ToMap(doc)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    structure.TagName,
		Result:     target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(objectIDHook, mapstructure.StringToTimeHookFunc(time.RFC3339)),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		return domain.ErrDecode{Source: err}
	}
	return nil
}
