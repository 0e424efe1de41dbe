// Package bits provides the bit-field primitives every per-format codec
// composes: sub-byte get/set, the 14.6 bytes-per-packet fixed-point
// encoding, and the packet-count ×64 scaling used by the older formats
// (spec §4.1).
//
// These are the inline-function replacement for the teacher's packed-field
// bit-mask getters/setters (section.NumericFlag.SetTimestampEncoding and
// friends), generalized from two fixed 4-bit fields to an arbitrary
// offset/width pair, per spec §9's instruction to turn
// GET_MASKED_BITS/SET_MASKED_BITS macros into small inline functions.
package bits

// GetBits extracts width bits from b starting at bit offset (LSB = 0).
// Width must be in [1,8] and offset+width <= 8; callers within this module
// only ever pass compile-time-constant, in-range values.
func GetBits(b byte, offset, width uint) byte {
	mask := byte(1<<width) - 1
	return (b >> offset) & mask
}

// SetBits writes value's low width bits into *b at bit offset, leaving the
// other bits of *b untouched.
func SetBits(b *byte, value byte, offset, width uint) {
	mask := byte(1<<width) - 1
	*b = (*b &^ (mask << offset)) | ((value & mask) << offset)
}

// BppPrecision is the number of fractional bits in the 14.6 bytes-per-packet
// fixed-point encoding (6 fractional bits, 14 integer bits).
const BppPrecision = 64 // 2^6

// MaxBppInteger bounds the integer part EncodeBPP accepts: a quotient of
// 2^14 or more is rejected.
const MaxBppInteger = 1 << 14

// EncodeBPP computes the bytes/pkts ratio as 14.6 fixed point: 14 integer
// bits, 6 fractional bits. The 20-bit result is returned widened to uint32
// since it does not fit a uint16; callers that pack it into a bit-field
// window use GetBits/SetBits or direct shifts on that window. The
// fractional part truncates (spec §9 open question 2 — this asymmetry with
// DecodeBPP's rounding is load-bearing for on-disk compatibility and must
// not be "fixed").
//
// Returns ok=false if the integer quotient would not fit in 14 bits.
func EncodeBPP(bytes, pkts uint64) (bpp uint32, ok bool) {
	if pkts == 0 {
		return 0, false
	}

	q := bytes / pkts
	if q >= MaxBppInteger {
		return 0, false
	}

	r := bytes % pkts
	frac := (r * BppPrecision) / pkts

	return uint32(q)<<6 | uint32(frac), true
}

// DecodeBPP reconstructs bytes = q*pkts + round(frac*pkts/64) from a 14.6
// fixed-point bpp value, using round-to-nearest with ties rounding up
// (banker's round toward the next integer on an exact half, per spec §4.1).
// The result may differ from the original encoder input by up to
// floor(pkts/64)+1; this is inherent to the format, not a bug.
func DecodeBPP(bpp uint32, pkts uint64) uint64 {
	q := uint64(bpp >> 6)
	frac := uint64(bpp & 0x3F)

	return q*pkts + (frac*pkts+32)/64
}

// MaxRawPkts bounds the packet counts EncodePkts stores without ×64
// scaling: counts below 2^20 are stored as-is.
const MaxRawPkts = 1 << 20

// MaxScaledPkts bounds the original packet counts EncodePkts accepts: a
// count of 2^26 or more is rejected, since its ×64-scaled value would no
// longer fit in 20 bits.
const MaxScaledPkts = 1 << 26

// EncodePkts splits pkts into a 20-bit stored value and a 1-bit multiplier
// flag: pkts below 2^20 are stored as-is (mult=0); larger counts are
// divided by 64 and flagged (mult=1). Returns ok=false if pkts is too large
// to represent even after scaling.
func EncodePkts(pkts uint32) (stored uint32, mult bool, ok bool) {
	if pkts < MaxRawPkts {
		return pkts, false, true
	}

	if pkts >= MaxScaledPkts {
		return 0, false, false
	}

	return pkts / 64, true, true
}

// DecodePkts reverses EncodePkts: multiplies stored by 64 iff mult is set.
func DecodePkts(stored uint32, mult bool) uint32 {
	if mult {
		return stored * 64
	}

	return stored
}
