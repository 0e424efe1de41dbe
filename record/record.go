// Package record defines the in-memory flow record (spec §3.1) every codec
// module packs to and unpacks from a fixed-length byte buffer.
//
// The field shape follows the teacher's typed-accessor style
// (small, single-purpose getter/setter methods with short doc comments)
// applied to the record fields nfdump's NFRecord carries on the wire
// (tagged variable-length IPs, union/init/rest TCP flag triplet, SNMP
// interface ids, sensor/flowtype classification ids).
package record

import (
	"net/netip"
	"time"

	"github.com/flowrec/flowrec/format"
)

// Record is a single flow record, caller-owned. The codec reads from and
// writes into memory the caller supplies; Record itself never touches I/O.
type Record struct {
	StartTime time.Time // millisecond resolution
	Elapsed   time.Duration // non-negative

	SrcIP     netip.Addr
	DstIP     netip.Addr
	NextHopIP netip.Addr

	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	Pkts  uint64
	Bytes uint64

	Input  uint16
	Output uint16

	SensorID   uint16
	FlowtypeID uint16

	TCPFlags  uint8 // union OR of all flags seen
	InitFlags uint8 // flags on first packet (meaningful only if EXPANDED)
	RestFlags uint8 // flags on all remaining packets (meaningful only if EXPANDED)
	TCPState  uint8 // bit 0 = EXPANDED; other bits opaque to the core

	Application uint16 // 0 = unknown/unspecified
	Memo        uint16
}

// Expanded reports whether the EXPANDED bit is set in TCPState, i.e.
// InitFlags/RestFlags carry independent information.
func (r *Record) Expanded() bool {
	return r.TCPState&format.TCPStateExpanded != 0
}

// SetExpanded sets or clears the EXPANDED bit in TCPState.
func (r *Record) SetExpanded(v bool) {
	if v {
		r.TCPState |= format.TCPStateExpanded
	} else {
		r.TCPState &^= format.TCPStateExpanded
	}
}

// IsTCP reports whether Protocol is TCP.
func (r *Record) IsTCP() bool {
	return r.Protocol == format.ProtocolTCP
}

// NormalizeExpanded applies the reader compatibility fix-up from spec
// §4.2: a bug in pre-3.6 writers could set EXPANDED spuriously. If
// EXPANDED is set but the record is non-TCP, or both InitFlags and
// RestFlags are zero, the bit and both flag fields are cleared.
func (r *Record) NormalizeExpanded() {
	if !r.Expanded() {
		return
	}

	if !r.IsTCP() || (r.InitFlags == 0 && r.RestFlags == 0) {
		r.SetExpanded(false)
		r.InitFlags = 0
		r.RestFlags = 0
	}
}

// StartTimeMillis returns StartTime as milliseconds since the Unix epoch,
// the wire representation every format uses (directly or as an offset
// from the file-start time).
func (r *Record) StartTimeMillis() int64 {
	return r.StartTime.UnixMilli()
}

// ElapsedMillis returns Elapsed as a non-negative millisecond count.
func (r *Record) ElapsedMillis() uint32 {
	ms := r.Elapsed.Milliseconds()
	if ms < 0 {
		return 0
	}

	return uint32(ms)
}

// IsIPv6 reports whether any of SrcIP/DstIP/NextHopIP is a "real" (i.e. not
// 4-in-6-mapped) IPv6 address — the condition formats that store only
// IPv4 must reject per spec §4.2's IP version policy.
func (r *Record) IsIPv6() bool {
	return isRealV6(r.SrcIP) || isRealV6(r.DstIP) || isRealV6(r.NextHopIP)
}

func isRealV6(a netip.Addr) bool {
	if !a.IsValid() || a.Is4() {
		return false
	}

	return !a.Is4In6()
}
