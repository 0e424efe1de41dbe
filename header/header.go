// Package header implements the file header described in spec §3.2/§4.4:
// a fixed 16-byte start block followed by an ordered, sentinel-terminated
// list of typed entries, with a builder-style lifecycle
// (Modifiable → EntriesOnly/Locked).
//
// The serialization shape (Parse/Bytes split, always-big-endian prefix vs
// per-engine-selected fields) is grounded on the teacher's
// section.NumericHeader.Parse/Bytes; the "read a fixed struct, validate
// magic and version immediately" idiom is grounded on nfdump's
// StreamReader (binary.Read into NFHeader, then check Magic/Version).
package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/internal/options"
)

// State is the header's lifecycle state (spec §3.2 "Lifecycle").
type State uint8

const (
	// StateModifiable allows every setter and AddEntry.
	StateModifiable State = iota
	// StateEntriesOnly allows AddEntry but no other mutation; entered when
	// a stream reopens an existing file for append.
	StateEntriesOnly
	// StateLocked allows no mutation at all; entered once a stream opens
	// for reading, or after a writer serializes its header.
	StateLocked
)

// Header is the self-describing file header every stream reads or writes
// before the data section (spec §3.2).
type Header struct {
	state State

	byteOrder        ByteOrderFlag
	formatCode       format.Code
	fileVersion      uint8
	recordVersion    format.Version
	compression      format.CompressionMethod
	silkProducerVers uint32
	recordLength     uint16

	entries []Entry
}

// Option configures a Header at construction time (spec §9: "pass
// configuration through an options struct that the stream borrows
// read-only"), following the teacher's generic functional-options package.
type Option = options.Option[*Header]

// WithByteOrder sets the data section's byte order.
func WithByteOrder(o ByteOrderFlag) Option {
	return options.New(func(h *Header) error { return h.SetByteOrder(o) })
}

// WithFormat sets the format code.
func WithFormat(c format.Code) Option {
	return options.New(func(h *Header) error { return h.SetFormat(c) })
}

// WithFileVersion sets the file_version byte.
func WithFileVersion(v uint8) Option {
	return options.New(func(h *Header) error { return h.SetFileVersion(v) })
}

// WithRecordVersion sets the record_version.
func WithRecordVersion(v format.Version) Option {
	return options.New(func(h *Header) error { return h.SetRecordVersion(v) })
}

// WithCompression sets the compression_method byte.
func WithCompression(m format.CompressionMethod) Option {
	return options.New(func(h *Header) error { return h.SetCompression(m) })
}

// WithRecordLength sets record_length_bytes.
func WithRecordLength(n uint16) Option {
	return options.New(func(h *Header) error { return h.SetRecordLength(n) })
}

// WithEntry appends an entry at construction time.
func WithEntry(e Entry) Option {
	return options.New(func(h *Header) error { return h.AddEntry(e) })
}

// New returns a modifiable header with the modern-layout defaults: file
// version 16, big-endian data section, no compression, record_length 0
// (filled in by the selected codec module's Prepare step per spec §3.3).
func New(opts ...Option) (*Header, error) {
	h := &Header{
		state:       StateModifiable,
		byteOrder:   BigEndian,
		fileVersion: MinFileVersion,
		compression: format.CompressionNone,
	}

	if err := options.Apply(h, opts...); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Header) requireModifiable() error {
	if h.state != StateModifiable {
		return errs.ErrHeaderLocked
	}

	return nil
}

func (h *Header) requireEntryWritable() error {
	if h.state == StateLocked {
		return errs.ErrHeaderLocked
	}

	return nil
}

// SetByteOrder sets the data section's byte order flag.
func (h *Header) SetByteOrder(o ByteOrderFlag) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.byteOrder = o

	return nil
}

// ByteOrder returns the data section's byte order flag.
func (h *Header) ByteOrder() ByteOrderFlag { return h.byteOrder }

// SetFormat sets the format code.
func (h *Header) SetFormat(c format.Code) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.formatCode = c

	return nil
}

// Format returns the format code.
func (h *Header) Format() format.Code { return h.formatCode }

// SetFileVersion sets the file_version byte.
func (h *Header) SetFileVersion(v uint8) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.fileVersion = v

	return nil
}

// FileVersion returns the file_version byte.
func (h *Header) FileVersion() uint8 { return h.fileVersion }

// SetRecordVersion sets the record_version.
func (h *Header) SetRecordVersion(v format.Version) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.recordVersion = v

	return nil
}

// RecordVersion returns the record_version.
func (h *Header) RecordVersion() format.Version { return h.recordVersion }

// SetCompression sets the compression_method byte.
func (h *Header) SetCompression(m format.CompressionMethod) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.compression = m

	return nil
}

// Compression returns the compression_method byte.
func (h *Header) Compression() format.CompressionMethod { return h.compression }

// SetRecordLength sets record_length_bytes.
func (h *Header) SetRecordLength(n uint16) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.recordLength = n

	return nil
}

// RecordLength returns record_length_bytes.
func (h *Header) RecordLength() uint16 { return h.recordLength }

// SetSilkProducerVersion sets the 4-byte producer-version field.
func (h *Header) SetSilkProducerVersion(v uint32) error {
	if err := h.requireModifiable(); err != nil {
		return err
	}

	h.silkProducerVers = v

	return nil
}

// SilkProducerVersion returns the 4-byte producer-version field.
func (h *Header) SilkProducerVersion() uint32 { return h.silkProducerVers }

// AddEntry appends an entry. Valid while Modifiable or EntriesOnly.
func (h *Header) AddEntry(e Entry) error {
	if err := h.requireEntryWritable(); err != nil {
		return err
	}

	h.entries = append(h.entries, e)

	return nil
}

// Entries returns a copy of the entry list in insertion order.
func (h *Header) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)

	return out
}

// EntriesOfType returns every entry with the given type id, in insertion
// order.
func (h *Header) EntriesOfType(id EntryTypeID) []Entry {
	var out []Entry

	for _, e := range h.entries {
		if e.TypeID == id {
			out = append(out, e)
		}
	}

	return out
}

// State returns the header's current lifecycle state.
func (h *Header) State() State { return h.state }

// Lock transitions the header to fully locked: no further mutation of any
// kind is accepted.
func (h *Header) Lock() {
	h.state = StateLocked
}

// LockEntriesOnly transitions the header to entries-only: AddEntry still
// succeeds, every other setter now fails with ErrHeaderLocked. A stream
// reopening an existing file for append uses this.
func (h *Header) LockEntriesOnly() {
	if h.state == StateModifiable {
		h.state = StateEntriesOnly
	}
}

// recordAlignedPadding returns the number of zero-padding bytes the
// sentinel entry must carry so the data section begins at a record_length
// boundary, matching spec §4.4's "enough trailing padding to align the
// data section to a record boundary".
func (h *Header) recordAlignedPadding(headerBytesSoFar int) int {
	if h.recordLength == 0 {
		return 0
	}

	rem := headerBytesSoFar % int(h.recordLength)
	if rem == 0 {
		return 0
	}

	return int(h.recordLength) - rem
}

// Serialize writes the start block, every entry, and the padded sentinel
// to w, per spec §4.4. It does not write the data section; callers write
// record bytes separately via the stream facade. Serialize locks h on
// success (spec §3.2: "once ... the header is serialized, transitions to
// locked").
func (h *Header) Serialize(w io.Writer) error {
	var start [StartBlockSize]byte
	copy(start[0:4], Magic[:])
	start[4] = byte(h.byteOrder)
	start[5] = byte(h.formatCode)
	start[6] = h.fileVersion
	start[7] = byte(h.compression)
	binary.BigEndian.PutUint32(start[8:12], h.silkProducerVers)
	binary.BigEndian.PutUint16(start[12:14], h.recordLength)
	binary.BigEndian.PutUint16(start[14:16], uint16(h.recordVersion))

	if _, err := w.Write(start[:]); err != nil {
		return err
	}

	written := StartBlockSize

	for _, e := range h.entries {
		if err := e.writeTo(w); err != nil {
			return err
		}

		written += int(e.TotalLength())
	}

	pad := h.recordAlignedPadding(written + entryPrefixSize)
	sentinel := Entry{TypeID: entryTypeSentinel, Payload: make([]byte, pad)}
	if err := sentinel.writeTo(w); err != nil {
		return err
	}

	h.Lock()

	return nil
}

// Parse reads the start block and entry list from r into a fresh,
// already-locked Header (spec §4.4: parsing transitions straight to
// Locked — a reader never mutates a header it just read). Validates the
// magic number and file_version >= MinFileVersion before reading any
// entries, mirroring nfdump's StreamReader doing the same check
// immediately after reading its fixed header struct.
func Parse(r io.Reader) (*Header, error) {
	var start [StartBlockSize]byte
	if _, err := io.ReadFull(r, start[:]); err != nil {
		return nil, err
	}

	if start[0] != Magic[0] || start[1] != Magic[1] || start[2] != Magic[2] || start[3] != Magic[3] {
		return nil, errs.ErrBadMagic
	}

	fileVersion := start[6]
	if fileVersion < MinFileVersion {
		return nil, fmt.Errorf("%w: file_version %d", errs.ErrLegacyHeader, fileVersion)
	}

	h := &Header{
		state:            StateLocked,
		byteOrder:        ByteOrderFlag(start[4]),
		formatCode:       format.Code(start[5]),
		fileVersion:      fileVersion,
		compression:      format.CompressionMethod(start[7]),
		silkProducerVers: binary.BigEndian.Uint32(start[8:12]),
		recordLength:     binary.BigEndian.Uint16(start[12:14]),
		recordVersion:    format.Version(binary.BigEndian.Uint16(start[14:16]) & 0xFF),
	}

	for {
		e, err := readEntry(r)
		if err != nil {
			return nil, err
		}

		if e.TypeID == entryTypeSentinel {
			break
		}

		h.entries = append(h.entries, e)
	}

	return h, nil
}

// CopyMask selects which parts of a header Copy transfers (spec §4.4).
type CopyMask uint16

const (
	CopyByteOrder CopyMask = 1 << iota
	CopyFormat
	CopyFileVersion
	CopyCompression
	CopyRecordLength
	CopyRecordVersion
	CopyEntries

	CopyAll = CopyByteOrder | CopyFormat | CopyFileVersion | CopyCompression |
		CopyRecordLength | CopyRecordVersion | CopyEntries
)

// Copy copies the fields CopyMask selects from src into dst. dst must be
// modifiable (or entries-only, if mask is CopyEntries only).
func Copy(dst, src *Header, mask CopyMask) error {
	if mask&CopyEntries != 0 {
		for _, e := range src.entries {
			if err := dst.AddEntry(e); err != nil {
				return err
			}
		}
	}

	if mask&^CopyEntries == 0 {
		return nil
	}

	if err := dst.requireModifiable(); err != nil {
		return err
	}

	if mask&CopyByteOrder != 0 {
		dst.byteOrder = src.byteOrder
	}

	if mask&CopyFormat != 0 {
		dst.formatCode = src.formatCode
	}

	if mask&CopyFileVersion != 0 {
		dst.fileVersion = src.fileVersion
	}

	if mask&CopyCompression != 0 {
		dst.compression = src.compression
	}

	if mask&CopyRecordLength != 0 {
		dst.recordLength = src.recordLength
	}

	if mask&CopyRecordVersion != 0 {
		dst.recordVersion = src.recordVersion
	}

	return nil
}
