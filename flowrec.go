// Package flowrec implements a binary network-flow record file format: a
// self-describing header, a registry of bit-packed per-(format,version)
// record codecs, and a stream facade for reading, writing, and appending
// flow records.
//
// NewReader and NewWriter are convenience wrappers around the stream
// package for the common case of "open one path, read/write the header,
// loop over records". Callers needing append mode, a custom codec.Registry,
// or fine-grained state-machine control use the stream package directly.
package flowrec

import (
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/stream"
)

// Reader is a bound, header-read stream ready for ReadRecord.
type Reader struct {
	*stream.Stream

	Header *header.Header
}

// NewReader opens path for reading and parses its header in one step.
func NewReader(path string, opts ...stream.Option) (*Reader, error) {
	s, err := stream.New(stream.ModeRead, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.Bind(path); err != nil {
		return nil, err
	}

	if err := s.Open(); err != nil {
		return nil, err
	}

	h, err := s.ReadHeader()
	if err != nil {
		return nil, err
	}

	return &Reader{Stream: s, Header: h}, nil
}

// Writer is a bound, header-written stream ready for WriteRecord.
type Writer struct {
	*stream.Stream
}

// NewWriter creates path, truncating any existing file, and serializes h as
// its header in one step. h is consulted for Format/RecordVersion/
// Compression/ByteOrder; RecordLength is filled in automatically if still
// zero.
func NewWriter(path string, h *header.Header, opts ...stream.Option) (*Writer, error) {
	s, err := stream.New(stream.ModeWrite, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.Bind(path); err != nil {
		return nil, err
	}

	if err := s.Open(); err != nil {
		return nil, err
	}

	if err := s.WriteHeader(h); err != nil {
		return nil, err
	}

	return &Writer{Stream: s}, nil
}

// NewAppender opens an existing file in append mode, reusing its header
// (spec §4.2: "Appending reuses Opened via a seek to end-of-data and keeps
// the existing header").
func NewAppender(path string, opts ...stream.Option) (*Writer, error) {
	s, err := stream.New(stream.ModeAppend, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.Bind(path); err != nil {
		return nil, err
	}

	if err := s.Open(); err != nil {
		return nil, err
	}

	if _, err := s.ReadHeader(); err != nil {
		return nil, err
	}

	return &Writer{Stream: s}, nil
}
