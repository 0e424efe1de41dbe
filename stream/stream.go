// Package stream implements the stream facade spec §4.5 describes: the
// caller-visible Open/ReadHeader/WriteHeader/ReadRecord/WriteRecord surface
// that binds a path, applies the header-selected codec, honors the file's
// byte order, and enforces the record-length and state-machine invariants
// spec §4.2/§5 name.
//
// The overall Bind → Open → read-header → loop{read/write-record} → Close
// shape and the "state kept in struct fields, advanced by each call" style
// are grounded on nfdump's StreamReader/NFStream.Row (other_examples
// stream.go): a block-oriented reader that parses a fixed header once,
// then serves records one at a time from an internal cursor. The
// single-use, not-thread-safe contract documented below follows the
// teacher's NumericEncoder/NumericDecoder doc-comment convention of
// calling this out explicitly.
//
// A Stream is NOT safe for concurrent use (spec §5: distinct streams may
// be used from distinct threads, but a single stream has no internal
// locking). Once a fatal error has occurred, every further ReadHeader,
// WriteHeader, ReadRecord or WriteRecord call returns that same error;
// after Close or Destroy those calls return a Closed error.
package stream

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/flowrec/flowrec/codec"
	"github.com/flowrec/flowrec/compress"
	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/internal/options"
	"github.com/flowrec/flowrec/internal/pool"
)

// Stream is the caller-visible handle to one flow-record file, opened for
// reading, writing, or appending (spec §3.4, §4.5).
type Stream struct {
	mode  Mode
	state state

	path string
	f    *os.File

	registry *codec.Registry
	hdr      *header.Header
	module   codec.Module
	version  format.Version

	recordLength    uint16
	swapFields      []endian.Field
	swapNeeded      bool
	fileStartMillis int64

	reader io.Reader
	writer io.Writer

	compressCodec compress.Codec
	writeBuf      *pool.ByteBuffer
	dataStart     int64

	recBuf    *pool.ByteBuffer
	recordIdx int64
	copyInput io.Writer

	headerDone bool
	fatalErr   error
}

const recordReaderBufSize = 64 * 1024

// New returns an unbound Stream for the given Mode. Call Bind, then Open,
// then ReadHeader/WriteHeader, before any ReadRecord/WriteRecord.
func New(mode Mode, opts ...Option) (*Stream, error) {
	s := &Stream{
		mode:     mode,
		state:    stateUninit,
		registry: codec.Default,
	}

	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// Bind associates the stream with path (spec §4.5 "bind(path)"). Valid
// only once, from the Uninit state.
func (s *Stream) Bind(path string) error {
	if s.state != stateUninit {
		return errs.New(errs.KindPreviouslyOpened).WithContext(path, -1)
	}

	s.path = path
	s.state = stateBound

	return nil
}

// Open acquires the underlying file descriptor (spec §4.5 "open()"),
// refusing a terminal (spec §4.5) and a stream that is unbound or already
// open.
func (s *Stream) Open() error {
	switch s.state {
	case stateUninit:
		return errs.New(errs.KindNotBound)
	case stateBound:
		// proceed
	default:
		return errs.New(errs.KindPreviouslyOpened).WithContext(s.path, -1)
	}

	f, err := s.openFile()
	if err != nil {
		return errs.Wrap(err).WithContext(s.path, -1)
	}

	if isTerminal(f) {
		f.Close()
		return errs.New(errs.KindIsTerminal).WithContext(s.path, -1)
	}

	s.f = f
	s.state = stateOpened

	return nil
}

func (s *Stream) openFile() (*os.File, error) {
	switch s.mode {
	case ModeRead:
		return os.Open(s.path)
	case ModeWrite:
		return os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	case ModeAppend:
		return os.OpenFile(s.path, os.O_RDWR, 0o644)
	default:
		return nil, errs.ErrUnsupportedIoMode
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode()&os.ModeCharDevice != 0
}

// Close flushes any buffered/compressed output and releases the file
// descriptor (spec §4.5 "close()"). Idempotent: closing an already-closed
// stream is a no-op.
func (s *Stream) Close() error {
	if s.f == nil {
		s.state = stateClosed
		return nil
	}

	var closeErr error
	if s.mode != ModeRead && s.fatalErr == nil {
		closeErr = s.flushWrite()
	}

	if err := s.f.Close(); err != nil && closeErr == nil {
		closeErr = err
	}

	s.f = nil
	s.state = stateClosed

	return closeErr
}

// Destroy closes the stream and, if it was opened for writing or
// appending but never completed a header (an aborted create), removes the
// bound file — mirroring the cleanup a failed stream construction needs
// so a half-written file is never left behind.
func (s *Stream) Destroy() error {
	path := s.path
	incomplete := s.mode != ModeRead && !s.headerDone

	err := s.Close()

	if incomplete && path != "" {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}

	return err
}

// requireState returns errs.NotOpen/errs.Closed if the stream is not in
// want, and the sticky fatal error if one has already occurred.
func (s *Stream) requireState(want state) error {
	if s.fatalErr != nil {
		return s.fatalErr
	}

	if s.state == stateClosed {
		return errs.New(errs.KindClosed).WithContext(s.path, -1)
	}

	if s.state != want {
		return errs.New(errs.KindNotOpen).WithContext(s.path, -1)
	}

	return nil
}

// fail records err as the stream's sticky fatal error and transitions to
// Closed (spec §5: "a partially written record ... transitions the stream
// to a fatal state; subsequent writes fail with the original error").
func (s *Stream) fail(err error) error {
	wrapped := toStreamError(err, s.path)
	s.fatalErr = wrapped
	s.state = stateClosed

	return wrapped
}

func toStreamError(err error, path string) error {
	var se *errs.StreamError
	if errors.As(err, &se) {
		return se.WithContext(path, -1)
	}

	switch {
	case errors.Is(err, errs.ErrBadMagic):
		return errs.New(errs.KindBadMagic).WithContext(path, -1)
	case errors.Is(err, errs.ErrLegacyHeader):
		return errs.New(errs.KindLegacyHeader).WithContext(path, -1)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errs.New(errs.KindShortRead).WithContext(path, -1)
	default:
		return errs.Wrap(err).WithContext(path, -1)
	}
}

// flushWrite finishes the write-side buffering strategy Open/WriteHeader
// selected: a plain bufio.Writer for uncompressed streams, or, for
// compressed ones, the accumulated in-memory buffer compressed and written
// in one shot (spec's framing of compression as a "complete data-section
// payload" collaborator, §1 and SPEC_FULL.md's domain stack).
func (s *Stream) flushWrite() error {
	if bw, ok := s.writer.(*bufio.Writer); ok {
		return bw.Flush()
	}

	if s.writeBuf == nil {
		return nil
	}

	compressed, err := s.compressCodec.Compress(s.writeBuf.Bytes())
	if err != nil {
		return err
	}

	switch s.mode {
	case ModeWrite:
		_, err = s.f.Write(compressed)
		return err
	case ModeAppend:
		if _, err = s.f.Seek(s.dataStart, io.SeekStart); err != nil {
			return err
		}

		if _, err = s.f.Write(compressed); err != nil {
			return err
		}

		pos, err := s.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}

		return s.f.Truncate(pos)
	default:
		return nil
	}
}
