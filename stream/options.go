package stream

import (
	"github.com/flowrec/flowrec/codec"
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/internal/options"
)

// Option configures a Stream at construction time, per spec §9's "pass
// configuration through an options struct that the stream borrows
// read-only", using the same generic functional-options package the
// header package is built on.
type Option = options.Option[*Stream]

// WithRegistry overrides the codec.Registry the stream consults on
// ReadHeader/WriteHeader. Defaults to codec.Default.
func WithRegistry(r *codec.Registry) Option {
	return options.NoError(func(s *Stream) { s.registry = r })
}

// WithHeader sets the stream's header field at construction time.
// ReadHeader replaces it with the header it parses, and WriteHeader with
// the header passed to it, before either uses it; the header given here is
// therefore neither serialized nor consulted for codec lookup in any mode.
func WithHeader(h *header.Header) Option {
	return options.NoError(func(s *Stream) { s.hdr = h })
}
