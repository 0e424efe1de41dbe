package header

// Sizes and constants for the fixed start block and entry list (spec §3.2,
// §6.1 — the bit-exact table is authoritative over the prose list earlier
// in §3.2, since only §6 is marked bit-exact).
const (
	// StartBlockSize is the fixed size of the header's start block.
	StartBlockSize = 16

	// MinFileVersion is the smallest file_version the "modern layout"
	// supports; anything below it is a legacy header this core declines
	// to parse (ErrLegacyHeader).
	MinFileVersion = 16

	// entryPrefixSize is the size of an entry's (type_id, total_length)
	// prefix, always present even for the zero-payload sentinel entry.
	entryPrefixSize = 8
)

// Magic is the fixed 4-byte value every header's start block begins with.
var Magic = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}

// ByteOrderFlag selects the data section's byte order. The header's own
// start block and entry list are always big-endian on disk regardless of
// this flag (spec §3.2).
type ByteOrderFlag uint8

const (
	BigEndian    ByteOrderFlag = 0
	LittleEndian ByteOrderFlag = 1
)

func (f ByteOrderFlag) String() string {
	if f == LittleEndian {
		return "little"
	}

	return "big"
}

// Known header entry type ids (spec §3.2). Types 5-9 are reserved for
// upper layers and never produced by this core, but are preserved verbatim
// like any other unrecognized type id.
const (
	EntryTypePackedFile EntryTypeID = 1  // start_hour, flowtype, sensor
	EntryTypeInvocation EntryTypeID = 2  // command line string
	EntryTypeAnnotation EntryTypeID = 3  // free text
	EntryTypeProbename  EntryTypeID = 4  // probe name
	EntryTypeTombstone  EntryTypeID = 10 // producer-supplied sequence counter

	// entryTypeSentinel terminates the entry list.
	entryTypeSentinel EntryTypeID = 0
)
