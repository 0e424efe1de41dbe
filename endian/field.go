package endian

// Field names one fixed-offset multi-byte integer within a packed record
// that must be reversed when the file's byte-order flag requests an order
// other than the canonical big-endian every codec module's Pack function
// writes in (spec §4.5: "a swap_flag that per-format swap macros
// consult"). Width is 2, 4, or 8.
type Field struct {
	Offset int
	Width  int
}

// SwapFields reverses every field in fields within buf, in place. Modules
// list only the true multi-byte integers here; bit-packed sub-fields
// (P1-P5) are always written and read big-endian by their own packers,
// whatever the file's byte order, and are never included.
func SwapFields(buf []byte, fields []Field) {
	for _, f := range fields {
		switch f.Width {
		case 2:
			Swap16(buf, f.Offset)
		case 4:
			Swap32(buf, f.Offset)
		case 8:
			Swap64(buf, f.Offset)
		}
	}
}
