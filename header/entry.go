package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flowrec/flowrec/errs"
)

// EntryTypeID identifies a header entry's payload shape (spec §3.2). It is
// opaque to the core beyond dispatching to the (optional) pack/unpack pair
// registered for it; unknown type ids are preserved verbatim.
type EntryTypeID uint32

// Entry is one typed, length-prefixed block in the header's entry list.
// Payload is the raw on-disk bytes (total_length-8); known entry types
// expose typed accessors layered on top (see packed_file.go and friends).
type Entry struct {
	TypeID  EntryTypeID
	Payload []byte
}

// TotalLength is the on-disk total_length field: 8 (the type_id+
// total_length prefix) plus len(Payload).
func (e Entry) TotalLength() uint32 {
	return entryPrefixSize + uint32(len(e.Payload))
}

// writeTo writes (type_id, total_length, payload) in big-endian, per
// spec §3.2/§4.4 ("Pack functions must emit the (type_id, total_length)
// header in big-endian").
func (e Entry) writeTo(w io.Writer) error {
	var prefix [entryPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[0:4], uint32(e.TypeID))
	binary.BigEndian.PutUint32(prefix[4:8], e.TotalLength())

	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}

	if len(e.Payload) == 0 {
		return nil
	}

	_, err := w.Write(e.Payload)

	return err
}

// readEntry reads one (type_id, total_length, payload) tuple from r.
// total_length < entryPrefixSize is malformed (spec §7 HeaderBadEntry);
// the sentinel entry (type_id == 0) is returned with whatever payload
// length its total_length declares, which callers use as padding.
func readEntry(r io.Reader) (Entry, error) {
	var prefix [entryPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Entry{}, err
	}

	typeID := EntryTypeID(binary.BigEndian.Uint32(prefix[0:4]))
	totalLength := binary.BigEndian.Uint32(prefix[4:8])

	if totalLength < entryPrefixSize {
		return Entry{}, fmt.Errorf("%w: entry type %d declares total_length %d < %d",
			errs.ErrHeaderBadEntry, typeID, totalLength, entryPrefixSize)
	}

	payloadLen := totalLength - entryPrefixSize
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Entry{}, err
		}
	}

	return Entry{TypeID: typeID, Payload: payload}, nil
}

// NewInvocationEntry builds an entry holding a free-text command-line
// string (entry type 2).
func NewInvocationEntry(cmdline string) Entry {
	return Entry{TypeID: EntryTypeInvocation, Payload: []byte(cmdline)}
}

// NewAnnotationEntry builds an entry holding free text (entry type 3).
func NewAnnotationEntry(text string) Entry {
	return Entry{TypeID: EntryTypeAnnotation, Payload: []byte(text)}
}

// NewProbenameEntry builds an entry holding a probe name (entry type 4).
func NewProbenameEntry(name string) Entry {
	return Entry{TypeID: EntryTypeProbename, Payload: []byte(name)}
}

// String returns Payload decoded as text, for entry types whose payload is
// a free-text or command-line string (invocation, annotation, probename).
func (e Entry) String() string {
	return string(e.Payload)
}

// PackedFileInfo is the typed view of entry type 1's payload: the
// packed-file metadata spec §3.2 names (start_hour, flowtype, sensor).
type PackedFileInfo struct {
	StartHour  int64 // unix seconds, truncated to the hour
	FlowtypeID uint16
	SensorID   uint16
}

// NewPackedFileEntry builds an entry type 1 from typed fields.
func NewPackedFileEntry(info PackedFileInfo) Entry {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint64(payload[0:8], uint64(info.StartHour))
	binary.BigEndian.PutUint16(payload[8:10], info.FlowtypeID)
	binary.BigEndian.PutUint16(payload[10:12], info.SensorID)

	return Entry{TypeID: EntryTypePackedFile, Payload: payload}
}

// PackedFileInfo decodes e's payload as entry type 1. Returns
// ErrHeaderBadEntry if e is not that type or is too short.
func (e Entry) PackedFileInfo() (PackedFileInfo, error) {
	if e.TypeID != EntryTypePackedFile {
		return PackedFileInfo{}, fmt.Errorf("%w: entry type %d is not packed-file metadata", errs.ErrHeaderBadEntry, e.TypeID)
	}

	if len(e.Payload) < 12 {
		return PackedFileInfo{}, fmt.Errorf("%w: packed-file entry too short", errs.ErrHeaderBadEntry)
	}

	return PackedFileInfo{
		StartHour:  int64(binary.BigEndian.Uint64(e.Payload[0:8])),
		FlowtypeID: binary.BigEndian.Uint16(e.Payload[8:10]),
		SensorID:   binary.BigEndian.Uint16(e.Payload[10:12]),
	}, nil
}

// NewTombstoneEntry builds an entry type 10 from a producer-supplied
// sequence counter.
func NewTombstoneEntry(sequence uint32) Entry {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, sequence)

	return Entry{TypeID: EntryTypeTombstone, Payload: payload}
}

// TombstoneSequence decodes e's payload as entry type 10.
func (e Entry) TombstoneSequence() (uint32, error) {
	if e.TypeID != EntryTypeTombstone {
		return 0, fmt.Errorf("%w: entry type %d is not a tombstone", errs.ErrHeaderBadEntry, e.TypeID)
	}

	if len(e.Payload) < 4 {
		return 0, fmt.Errorf("%w: tombstone entry too short", errs.ErrHeaderBadEntry)
	}

	return binary.BigEndian.Uint32(e.Payload), nil
}
