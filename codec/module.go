package codec

import (
	"fmt"

	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/record"
)

// Mode selects which half of the version-dispatch contract Prepare runs
// (spec §4.2: "if mode == write and version == ANY: version = default").
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// Module is one (format_code) family's pack/unpack table, covering every
// version it supports (spec §3.3, §4.2). Modules are installed once at
// registry construction and never mutated afterward (spec §5: "installed at
// startup and are thereafter immutable").
type Module interface {
	// DefaultVersion is the version a writer uses when the header requests
	// format.ANY.
	DefaultVersion() format.Version

	// SupportsVersion reports whether v is one this module packs/unpacks.
	SupportsVersion(v format.Version) bool

	// RecordLength is the fixed on-disk length for v, or 0 if v is
	// unsupported.
	RecordLength(v format.Version) uint16

	// Pack encodes rec into buf, which is exactly RecordLength(v) bytes.
	// fileStartMillis is the header's file-start-time hint (spec §2, §3.4);
	// formats that store an absolute timestamp ignore it.
	Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error

	// Unpack decodes buf, which is exactly RecordLength(v) bytes, into a
	// fresh record.
	Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error)

	// SwapFields lists every fixed-offset multi-byte integer in
	// RecordLength(v) bytes that the stream facade must byte-reverse when
	// the file's byte_order_flag requests little-endian (spec §4.5). Pack
	// and Unpack always work in big-endian; the stream applies this list
	// after Pack/before write and after read/before Unpack.
	SwapFields(v format.Version) []endian.Field
}

// Prepare runs the version-dispatch contract spec §4.2 gives in pseudocode:
// pick the default version on write if the header requests ANY, reject an
// unsupported version, and reconcile the header's record_length with the
// module's. A header that already declares a non-zero record_length which
// disagrees with the module's is a structural contradiction between the
// registry and an already-serialized file, not a recoverable error — spec
// §7 reserves panic/abort for exactly this case.
func Prepare(mode Mode, m Module, h *header.Header) (format.Version, error) {
	version := h.RecordVersion()
	if mode == ModeWrite && version == format.ANY {
		version = m.DefaultVersion()
	}

	if !m.SupportsVersion(version) {
		return 0, fmt.Errorf("%w: version %d for format %s", errs.ErrUnsupportedVersion, version, h.Format())
	}

	length := m.RecordLength(version)

	switch {
	case h.RecordLength() == 0 && mode == ModeWrite:
		if err := h.SetRecordLength(length); err != nil {
			return 0, err
		}
	case h.RecordLength() != 0 && h.RecordLength() != length:
		panic(fmt.Sprintf("codec: header record_length=%d disagrees with module record_length=%d for %s version %d",
			h.RecordLength(), length, h.Format(), version))
	}

	return version, nil
}
