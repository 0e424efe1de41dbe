// Package endian provides the in-place byte-order primitives the stream
// facade applies to packed records: fixed-offset 16/32/64-bit swaps and the
// per-format field tables that drive them. Codec modules always pack
// big-endian; when a file's byte_order_flag requests little-endian, the
// stream reverses each listed field after Pack/before Unpack.
package endian

import "encoding/binary"

// Swap16 reverses the 2 bytes at b[pos:pos+2] in place, by round-tripping
// the value through encoding/binary in the opposite byte order.
func Swap16(b []byte, pos int) {
	v := binary.BigEndian.Uint16(b[pos : pos+2])
	binary.LittleEndian.PutUint16(b[pos:pos+2], v)
}

// Swap32 reverses the 4 bytes at b[pos:pos+4] in place.
func Swap32(b []byte, pos int) {
	v := binary.BigEndian.Uint32(b[pos : pos+4])
	binary.LittleEndian.PutUint32(b[pos:pos+4], v)
}

// Swap64 reverses the 8 bytes at b[pos:pos+8] in place.
func Swap64(b []byte, pos int) {
	v := binary.BigEndian.Uint64(b[pos : pos+8])
	binary.LittleEndian.PutUint64(b[pos:pos+8], v)
}
