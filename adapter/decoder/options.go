package decoder

import "github.com/vinicius-lino-figueiredo/docproj/domain"

// Option configures a [Decoder].
type Option func(*Decoder)

// WithDocumentFactory sets the factory used when the decoding target is a
// [domain.Document].
func WithDocumentFactory(f domain.DocumentFactory) Option {
	return func(d *Decoder) {
		d.docFac = f
	}
}
