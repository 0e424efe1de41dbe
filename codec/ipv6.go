package codec

import (
	"encoding/binary"
	"net/netip"
	"time"

	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

// ipv6Module implements format.CodeIPv6 and, with the routing flag set,
// format.CodeIPv6Routing: Generic v5's absolute-time layout widened to
// 16-byte addresses. IPv4 addresses are written in their ::ffff:0:0/96
// mapping; on read a mapped address is unmapped back to native v4 (spec
// §4.2 IP version policy — this core reads as native v4 rather than
// requesting v6-mapping). CodeIPv6 (72 bytes) drops the next hop;
// CodeIPv6Routing (88 bytes) appends it.
type ipv6Module struct {
	routing bool
}

var _ Module = ipv6Module{}

func (ipv6Module) DefaultVersion() format.Version { return 1 }

func (ipv6Module) SupportsVersion(v format.Version) bool { return v == 1 }

func (m ipv6Module) RecordLength(format.Version) uint16 {
	if m.routing {
		return 88
	}

	return 72
}

func (m ipv6Module) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if rec.Pkts == 0 {
		return errs.New(errs.KindPktsZero)
	}

	if rec.Bytes < rec.Pkts {
		return errs.New(errs.KindPktsGtBytes)
	}

	if rec.Pkts >= 1<<32 || rec.Bytes >= 1<<32 {
		return errs.New(errs.KindPktsOverflow)
	}

	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.StartTimeMillis()))
	binary.BigEndian.PutUint32(buf[8:12], rec.ElapsedMillis())
	binary.BigEndian.PutUint16(buf[12:14], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[14:16], rec.DstPort)
	buf[16] = rec.Protocol
	buf[17] = byte(rec.FlowtypeID)
	binary.BigEndian.PutUint16(buf[18:20], rec.SensorID)
	buf[20] = rec.TCPFlags
	buf[21] = rec.InitFlags
	buf[22] = rec.RestFlags
	buf[23] = rec.TCPState
	binary.BigEndian.PutUint16(buf[24:26], rec.Application)
	binary.BigEndian.PutUint16(buf[26:28], rec.Memo)
	binary.BigEndian.PutUint16(buf[28:30], rec.Input)
	binary.BigEndian.PutUint16(buf[30:32], rec.Output)
	binary.BigEndian.PutUint32(buf[32:36], uint32(rec.Pkts))
	binary.BigEndian.PutUint32(buf[36:40], uint32(rec.Bytes))
	putIPv6(buf[40:56], rec.SrcIP)
	putIPv6(buf[56:72], rec.DstIP)

	if m.routing {
		putIPv6(buf[72:88], rec.NextHopIP)
	}

	return nil
}

// ipv6SwapFields excludes the three 16-byte addresses: they are byte
// strings, not integers, and have the same representation in either byte
// order.
var ipv6SwapFields = []endian.Field{
	{Offset: 0, Width: 8},  // sTime
	{Offset: 8, Width: 4},  // elapsed
	{Offset: 12, Width: 2}, // sPort
	{Offset: 14, Width: 2}, // dPort
	{Offset: 18, Width: 2}, // sensor
	{Offset: 24, Width: 2}, // application
	{Offset: 26, Width: 2}, // memo
	{Offset: 28, Width: 2}, // input
	{Offset: 30, Width: 2}, // output
	{Offset: 32, Width: 4}, // pkts
	{Offset: 36, Width: 4}, // bytes
}

func (ipv6Module) SwapFields(format.Version) []endian.Field { return ipv6SwapFields }

func (m ipv6Module) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	rec := &record.Record{
		StartTime:   time.UnixMilli(int64(binary.BigEndian.Uint64(buf[0:8]))).UTC(),
		Elapsed:     time.Duration(binary.BigEndian.Uint32(buf[8:12])) * time.Millisecond,
		SrcPort:     binary.BigEndian.Uint16(buf[12:14]),
		DstPort:     binary.BigEndian.Uint16(buf[14:16]),
		Protocol:    buf[16],
		FlowtypeID:  uint16(buf[17]),
		SensorID:    binary.BigEndian.Uint16(buf[18:20]),
		TCPFlags:    buf[20],
		InitFlags:   buf[21],
		RestFlags:   buf[22],
		TCPState:    buf[23],
		Application: binary.BigEndian.Uint16(buf[24:26]),
		Memo:        binary.BigEndian.Uint16(buf[26:28]),
		Input:       binary.BigEndian.Uint16(buf[28:30]),
		Output:      binary.BigEndian.Uint16(buf[30:32]),
		Pkts:        uint64(binary.BigEndian.Uint32(buf[32:36])),
		Bytes:       uint64(binary.BigEndian.Uint32(buf[36:40])),
		SrcIP:       ipv6FromBytes(buf[40:56]),
		DstIP:       ipv6FromBytes(buf[56:72]),
	}

	if m.routing {
		rec.NextHopIP = ipv6FromBytes(buf[72:88])
	}

	rec.NormalizeExpanded()

	return rec, nil
}

func putIPv6(dst []byte, a netip.Addr) {
	if !a.IsValid() {
		return
	}

	a16 := a.As16()
	copy(dst, a16[:])
}

func ipv6FromBytes(b []byte) netip.Addr {
	a := netip.AddrFrom16([16]byte(b))
	if a.Is4In6() {
		return a.Unmap()
	}

	return a
}
