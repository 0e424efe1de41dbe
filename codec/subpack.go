// Package codec dispatches a file's (format_code, record_version) pair to
// the module that owns its pack/unpack functions (spec §3.3/§4.3).
//
// This file holds the shared sub-packers (P1-P5, spec §4.2) that per-format
// modules compose with their own fields. Bit offsets within each sub-pack
// beyond what spec.md states explicitly (the P4 srv_flg_pkts embedding) are
// this core's own choice: spec.md describes these packs qualitatively, not
// bit-exact, so any internally-consistent, round-tripping placement
// satisfies it.
package codec

import (
	"encoding/binary"

	"github.com/flowrec/flowrec/format"
)

// packP1 combines protocol, the three flag fields, and tcp_state into the
// 4-byte tuple spec §4.2 P1 describes: prot_or_flags, tcp_state (with the
// is_tcp bit folded into its top bit), rest_or_flags, and a reserved byte.
func packP1(protocol, flags, initFlags, restFlags, tcpState uint8) [4]byte {
	var protOrFlags, restOrFlags uint8

	switch {
	case protocol != format.ProtocolTCP:
		protOrFlags = protocol
		restOrFlags = flags
	case tcpState&format.TCPStateExpanded != 0:
		protOrFlags = initFlags
		restOrFlags = restFlags
	default:
		protOrFlags = flags
	}

	ts := tcpState
	if protocol == format.ProtocolTCP {
		ts |= 0x80
	}

	return [4]byte{protOrFlags, ts, restOrFlags, 0}
}

// unpackP1 reverses packP1. protocol must already be known from elsewhere in
// the record layout: unpackP1 takes it from the caller and does not read it
// back from the tuple (for non-TCP records packP1 stores it in
// prot_or_flags, which is ignored here).
func unpackP1(b [4]byte, protocol uint8) (flags, initFlags, restFlags, tcpState uint8) {
	protOrFlags, ts, restOrFlags := b[0], b[1]&^0x80, b[2]

	switch {
	case protocol != format.ProtocolTCP:
		flags = restOrFlags
	case ts&format.TCPStateExpanded != 0:
		initFlags = protOrFlags
		restFlags = restOrFlags
		flags = initFlags | restFlags
	default:
		flags = protOrFlags
	}

	return flags, initFlags, restFlags, ts
}

// p2 is the decoded form of spec §4.2 P2 ("sbb/pef pack"): a 12-bit
// start-offset in seconds, a 14.6 BPP ratio, a 20-bit packet count with its
// ×64 multiplier flag, and an 11-bit elapsed-seconds count, packed into 8
// bytes big-endian.
type p2 struct {
	StartOffsetSec uint16
	Bpp            uint32 // 14.6 fixed point, 20 bits
	PktsStored     uint32 // 20 bits
	Mult           bool
	ElapsedSec     uint16 // 11 bits
}

func packP2(v p2) [8]byte {
	word := uint64(v.StartOffsetSec&0xFFF)<<52 |
		uint64(v.Bpp&0xFFFFF)<<32 |
		uint64(v.PktsStored&0xFFFFF)<<12 |
		uint64(v.ElapsedSec&0x7FF)<<1

	if v.Mult {
		word |= 1
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], word)

	return buf
}

func unpackP2(buf [8]byte) p2 {
	word := binary.BigEndian.Uint64(buf[:])

	return p2{
		StartOffsetSec: uint16(word>>52) & 0xFFF,
		Bpp:            uint32(word>>32) & 0xFFFFF,
		PktsStored:     uint32(word>>12) & 0xFFFFF,
		ElapsedSec:     uint16(word>>1) & 0x7FF,
		Mult:           word&1 != 0,
	}
}

// p3 is the decoded form of spec §4.2 P3 ("time/bytes/pkts/flags pack"): a
// newer quantization with separate second/millisecond fields for both start
// offset and elapsed time. Packed into a 12-byte, field-per-slot window
// (each field byte-aligned rather than bit-crammed; Mult and IsTCP ride in
// bits 12 and 13 of the elapsed-seconds slot) since spec.md states P3's
// field widths but not a bit-exact cross-byte layout.
type p3 struct {
	StartOffsetSec  uint16 // 12 bits
	StartOffsetMsec uint16 // 10 bits
	ElapsedSec      uint16 // 12 bits
	ElapsedMsec     uint16 // 10 bits
	Mult            bool
	IsTCP           bool
	PktsStored      uint32 // 20 bits
	ProtoOrFlags    uint8
}

func packP3(v p3) [12]byte {
	var buf [12]byte

	binary.BigEndian.PutUint16(buf[0:2], v.StartOffsetSec&0xFFF)
	binary.BigEndian.PutUint16(buf[2:4], v.StartOffsetMsec&0x3FF)

	elapsedSec := v.ElapsedSec & 0xFFF
	if v.Mult {
		elapsedSec |= 1 << 12
	}

	if v.IsTCP {
		elapsedSec |= 1 << 13
	}

	binary.BigEndian.PutUint16(buf[4:6], elapsedSec)
	binary.BigEndian.PutUint16(buf[6:8], v.ElapsedMsec&0x3FF)

	pkts := v.PktsStored & 0xFFFFF
	buf[8] = byte(pkts >> 16)
	buf[9] = byte(pkts >> 8)
	buf[10] = byte(pkts)
	buf[11] = v.ProtoOrFlags

	return buf
}

func unpackP3(buf [12]byte) p3 {
	elapsedSec := binary.BigEndian.Uint16(buf[4:6])
	pkts := uint32(buf[8])<<16 | uint32(buf[9])<<8 | uint32(buf[10])

	return p3{
		StartOffsetSec:  binary.BigEndian.Uint16(buf[0:2]) & 0xFFF,
		StartOffsetMsec: binary.BigEndian.Uint16(buf[2:4]) & 0x3FF,
		ElapsedSec:      elapsedSec & 0xFFF,
		ElapsedMsec:     binary.BigEndian.Uint16(buf[6:8]) & 0x3FF,
		Mult:            elapsedSec&(1<<12) != 0,
		IsTCP:           elapsedSec&(1<<13) != 0,
		PktsStored:      pkts,
		ProtoOrFlags:    buf[11],
	}
}

// p4 is the decoded form of spec §4.2 P4 ("flags/times/volumes pack"): a
// 22-bit start-msec-offset, a 22-bit elapsed-msec, a 14.6 BPP ratio, and a
// 20-bit packet count, packed into the 12-byte window a format embeds it
// in. The srv_flg_pkts word's bit 20/22 embedding (spec §6.3, Web v5) is
// part of this shared layout so any P4 consumer gets it for free.
type p4 struct {
	StartMsecOffset uint32 // 22 bits
	ElapsedMsec     uint32 // 22 bits
	BppInt          uint16 // 14 bits
	BppFrac         uint8  // 6 bits
	PktsStored      uint32 // 20 bits
	SrvPort         uint8  // 2 bits
	SrcIsServer     bool
}

func packP4(v p4) [12]byte {
	w0 := (v.StartMsecOffset&0x3FFFFF)<<10 | (v.ElapsedMsec>>12)&0x3FF
	w1 := (v.ElapsedMsec&0xFFF)<<20 | (uint32(v.BppInt)&0x3FFF)<<6 | uint32(v.BppFrac)&0x3F

	w2 := v.PktsStored & 0xFFFFF
	w2 |= uint32(v.SrvPort&0x3) << 20

	if v.SrcIsServer {
		w2 |= 1 << 22
	}

	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], w0)
	binary.BigEndian.PutUint32(buf[4:8], w1)
	binary.BigEndian.PutUint32(buf[8:12], w2)

	return buf
}

func unpackP4(buf [12]byte) p4 {
	w0 := binary.BigEndian.Uint32(buf[0:4])
	w1 := binary.BigEndian.Uint32(buf[4:8])
	w2 := binary.BigEndian.Uint32(buf[8:12])

	return p4{
		StartMsecOffset: (w0 >> 10) & 0x3FFFFF,
		ElapsedMsec:     (w0&0x3FF)<<12 | (w1 >> 20),
		BppInt:          uint16((w1 >> 6) & 0x3FFF),
		BppFrac:         uint8(w1 & 0x3F),
		PktsStored:      w2 & 0xFFFFF,
		SrvPort:         uint8((w2 >> 20) & 0x3),
		SrcIsServer:     w2&(1<<22) != 0,
	}
}

// p5 is the decoded form of spec §4.2 P5 ("times/flags/proto pack"): an
// 8-bit rest_flags, a 1-bit is_tcp, a 22-bit start-msec-offset, an 8-bit
// proto-or-initflags, and an 8-bit tcp_state, packed into 6 bytes
// big-endian (8+1+22+8+8 = 47 bits, rounded up to 6 bytes with one spare
// bit left as reserved).
type p5 struct {
	RestFlags       uint8
	IsTCP           bool
	StartMsecOffset uint32 // 22 bits
	ProtoOrInit     uint8
	TCPState        uint8
}

func packP5(v p5) [6]byte {
	var buf [6]byte
	buf[0] = v.RestFlags

	word := v.StartMsecOffset & 0x3FFFFF
	if v.IsTCP {
		word |= 1 << 22
	}

	buf[1] = byte(word >> 15)
	buf[2] = byte(word >> 7)
	buf[3] = byte(word << 1)
	buf[4] = v.ProtoOrInit
	buf[5] = v.TCPState

	return buf
}

func unpackP5(buf [6]byte) p5 {
	word := uint32(buf[1])<<15 | uint32(buf[2])<<7 | uint32(buf[3])>>1

	return p5{
		RestFlags:       buf[0],
		IsTCP:           word&(1<<22) != 0,
		StartMsecOffset: word & 0x3FFFFF,
		ProtoOrInit:     buf[4],
		TCPState:        buf[5],
	}
}
