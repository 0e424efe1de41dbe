package stream

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/flowrec/flowrec/codec"
	"github.com/flowrec/flowrec/compress"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/internal/pool"
)

// ReadHeader parses the file header and prepares the codec module it names
// (spec §4.5 "read_header()"). Valid only from Opened, in ModeRead or
// ModeAppend; transitions to Active on success.
func (s *Stream) ReadHeader() (*header.Header, error) {
	if err := s.requireState(stateOpened); err != nil {
		return nil, err
	}

	if s.mode == ModeWrite {
		return nil, s.fail(newMisuseErr("read_header called on a write-mode stream"))
	}

	h, err := header.Parse(s.f)
	if err != nil {
		return nil, s.fail(err)
	}

	s.hdr = h

	if err := s.prepareCodec(codec.ModeRead); err != nil {
		return nil, s.fail(err)
	}

	if err := s.setupPackedFileHint(); err != nil {
		return nil, s.fail(err)
	}

	switch s.mode {
	case ModeRead:
		if err := s.setupReader(); err != nil {
			return nil, s.fail(err)
		}
	case ModeAppend:
		// Parse returns a fully locked header; rebuild it as a modifiable
		// copy so it can drop to entries-only.
		ah, err := header.New()
		if err != nil {
			return nil, s.fail(err)
		}

		if err := header.Copy(ah, h, header.CopyAll); err != nil {
			return nil, s.fail(err)
		}

		if err := ah.SetSilkProducerVersion(h.SilkProducerVersion()); err != nil {
			return nil, s.fail(err)
		}

		ah.LockEntriesOnly()
		h = ah
		s.hdr = ah

		if err := s.setupAppendWriter(); err != nil {
			return nil, s.fail(err)
		}
	}

	s.headerDone = true
	s.state = stateActive

	return h, nil
}

// WriteHeader serializes h and prepares the codec it names (spec §4.5
// "write_header(header)"). Valid only from Opened, in ModeWrite;
// transitions to Active on success. The caller's header must already carry
// format/compression/byte-order; record_length is filled in here via
// codec.Prepare if still zero.
func (s *Stream) WriteHeader(h *header.Header) error {
	if err := s.requireState(stateOpened); err != nil {
		return err
	}

	if s.mode != ModeWrite {
		return s.fail(newMisuseErr("write_header called on a non-write-mode stream"))
	}

	s.hdr = h

	if err := s.prepareCodec(codec.ModeWrite); err != nil {
		return s.fail(err)
	}

	s.setupPackedFileHintFromClock()

	if err := h.Serialize(s.f); err != nil {
		return s.fail(err)
	}

	if err := s.setupWriter(); err != nil {
		return s.fail(err)
	}

	s.headerDone = true
	s.state = stateActive

	return nil
}

// prepareCodec looks up h.Format() in the stream's registry and runs
// codec.Prepare, caching the module, resolved version, record length and
// swap-field list the record I/O path needs on every call.
func (s *Stream) prepareCodec(mode codec.Mode) error {
	m, err := s.registry.Lookup(s.hdr.Format())
	if err != nil {
		return err
	}

	version, err := codec.Prepare(mode, m, s.hdr)
	if err != nil {
		return err
	}

	s.module = m
	s.version = version
	s.recordLength = s.hdr.RecordLength()
	s.swapFields = m.SwapFields(version)
	s.swapNeeded = s.hdr.ByteOrder() != header.BigEndian

	return nil
}

// setupPackedFileHint derives fileStartMillis from the header's packed-file
// entry, if one is present (spec §4.2's file-start-time hint for relative
// timestamp fields). Absent an entry, the hint stays zero and every codec's
// relative-offset fields are interpreted relative to the Unix epoch.
func (s *Stream) setupPackedFileHint() error {
	entries := s.hdr.EntriesOfType(header.EntryTypePackedFile)
	if len(entries) == 0 {
		return nil
	}

	info, err := entries[0].PackedFileInfo()
	if err != nil {
		return err
	}

	s.fileStartMillis = info.StartHour * 1000

	return nil
}

// setupPackedFileHintFromClock gives a newly created write-mode stream a
// file-start-time hint of the current hour, matching the packed-file entry
// convention's "truncated to hour" semantics, when the caller's header
// carries no packed-file entry of its own.
func (s *Stream) setupPackedFileHintFromClock() {
	entries := s.hdr.EntriesOfType(header.EntryTypePackedFile)
	if len(entries) > 0 {
		if info, err := entries[0].PackedFileInfo(); err == nil {
			s.fileStartMillis = info.StartHour * 1000
			return
		}
	}

	now := time.Now().UTC()
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	s.fileStartMillis = hour.UnixMilli()
}

// setupReader selects the uncompressed or whole-buffer-decompressed reading
// strategy for ModeRead (spec's framing of compression as an external,
// whole-payload collaborator; SPEC_FULL.md domain stack).
func (s *Stream) setupReader() error {
	if s.hdr.Compression() == format.CompressionNone {
		s.reader = bufio.NewReaderSize(s.f, recordReaderBufSize)
		return nil
	}

	c, err := compress.GetCodec(s.hdr.Compression())
	if err != nil {
		return err
	}

	s.compressCodec = c

	raw, err := readAllRemaining(s.f)
	if err != nil {
		return err
	}

	plain, err := c.Decompress(raw)
	if err != nil {
		return err
	}

	s.reader = newByteSliceReader(plain)

	return nil
}

// setupWriter selects the uncompressed streaming or whole-buffer-compressed
// writing strategy for ModeWrite.
func (s *Stream) setupWriter() error {
	if s.hdr.Compression() == format.CompressionNone {
		s.writer = bufio.NewWriter(s.f)
		return nil
	}

	c, err := compress.GetCodec(s.hdr.Compression())
	if err != nil {
		return err
	}

	s.compressCodec = c
	s.writeBuf = pool.GetRecordBuffer()
	s.writeBuf.Reset()
	s.writer = &poolBufferWriter{buf: s.writeBuf}

	return nil
}

// setupAppendWriter selects the append-mode strategy: uncompressed append
// seeks to end-of-data and streams new records from there; compressed
// append decompresses the existing data section into memory, remembers
// where it began on disk (dataStart), and accumulates new records on top
// so Close can recompress and rewrite the whole section in place.
func (s *Stream) setupAppendWriter() error {
	if s.hdr.Compression() == format.CompressionNone {
		if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
			return err
		}

		s.writer = bufio.NewWriter(s.f)

		return nil
	}

	c, err := compress.GetCodec(s.hdr.Compression())
	if err != nil {
		return err
	}

	s.compressCodec = c

	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	s.dataStart = pos

	raw, err := readAllRemaining(s.f)
	if err != nil {
		return err
	}

	plain, err := c.Decompress(raw)
	if err != nil {
		return err
	}

	s.writeBuf = pool.GetRecordBuffer()
	s.writeBuf.Reset()
	s.writeBuf.SetLength(len(plain))
	copy(s.writeBuf.Bytes(), plain)
	s.writer = &poolBufferWriter{buf: s.writeBuf}

	return nil
}

func newMisuseErr(msg string) error {
	return fmt.Errorf("stream: %s", msg)
}
