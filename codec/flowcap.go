package codec

import (
	"encoding/binary"
	"time"

	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

// flowcapModule implements format.CodeFlowcap. Versions 5 and 6 share the
// same 38-byte layout and packer (spec §6.3); they differ only in v6's
// read-time zeroing of Application (spec §9 open question 1, preserved
// verbatim per that note: do not "fix" the asymmetry between v6's read and
// write behavior).
type flowcapModule struct{}

var _ Module = flowcapModule{}

func (flowcapModule) DefaultVersion() format.Version { return 5 }

func (flowcapModule) SupportsVersion(v format.Version) bool {
	return v == 5 || v == 6
}

func (flowcapModule) RecordLength(format.Version) uint16 { return 38 }

func (m flowcapModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
	}

	if rec.Pkts == 0 {
		return errs.New(errs.KindPktsZero)
	}

	if rec.Bytes < rec.Pkts {
		return errs.New(errs.KindPktsGtBytes)
	}

	if rec.Bytes >= 1<<32 {
		return errs.New(errs.KindPktsOverflow)
	}

	pkts := rec.Pkts
	if pkts > 0xFFFFFF {
		pkts = 0xFFFFFF // saturate, spec §4.2 "3-byte packet count"
	}

	elapsedSec, err := elapsedSecondsCapped(rec.Elapsed, 16, true)
	if err != nil {
		return err
	}

	msec := uint32(rec.StartTime.UnixMilli() % 1000)
	elapsedMsecPart := uint32(rec.Elapsed.Milliseconds() % 1000)

	putIPv4(buf[0:4], rec.SrcIP)
	putIPv4(buf[4:8], rec.DstIP)
	binary.BigEndian.PutUint32(buf[8:12], uint32(rec.Bytes))
	binary.BigEndian.PutUint32(buf[12:16], uint32(rec.StartTime.Unix()))
	binary.BigEndian.PutUint16(buf[16:18], uint16(elapsedSec))
	binary.BigEndian.PutUint16(buf[18:20], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[20:22], rec.DstPort)
	binary.BigEndian.PutUint16(buf[22:24], servicePortOf(rec))
	binary.BigEndian.PutUint16(buf[24:26], rec.Input)
	binary.BigEndian.PutUint16(buf[26:28], rec.Output)
	buf[28] = byte(pkts >> 16)
	buf[29] = byte(pkts >> 8)
	buf[30] = byte(pkts)
	buf[31] = rec.Protocol
	buf[32] = rec.TCPFlags
	buf[33] = rec.InitFlags
	buf[34] = rec.TCPState

	buf[35] = byte((msec >> 2) & 0xFF)
	buf[36] = byte((msec&0x3)<<6 | (elapsedMsecPart>>4)&0x3F)
	buf[37] = byte((elapsedMsecPart << 4) & 0xF0)

	return nil
}

// flowcapSwapFields lists the layout's true multi-byte integers (spec
// §4.5). The 3-byte pkts field and the hand-packed time_frac trio are
// excluded: spec §6.3 states time_frac "is always big-endian packed by
// hand" regardless of byte_order_flag, and a 3-byte field has no native
// swap primitive.
var flowcapSwapFields = []endian.Field{
	{Offset: 0, Width: 4},  // sIP
	{Offset: 4, Width: 4},  // dIP
	{Offset: 8, Width: 4},  // bytes
	{Offset: 12, Width: 4}, // sTime_sec
	{Offset: 16, Width: 2}, // elapsed_sec
	{Offset: 18, Width: 2}, // sPort
	{Offset: 20, Width: 2}, // dPort
	{Offset: 22, Width: 2}, // servicePort
	{Offset: 24, Width: 2}, // input
	{Offset: 26, Width: 2}, // output
}

func (flowcapModule) SwapFields(format.Version) []endian.Field { return flowcapSwapFields }

func (m flowcapModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	sTimeSec := int64(binary.BigEndian.Uint32(buf[12:16]))
	elapsedSec := binary.BigEndian.Uint16(buf[16:18])
	pkts := uint64(buf[28])<<16 | uint64(buf[29])<<8 | uint64(buf[30])

	msec := uint32(buf[35])<<2 | uint32(buf[36])>>6
	elapsedMsecPart := uint32(buf[36]&0x3F)<<4 | uint32(buf[37])>>4

	protocol := buf[31]
	tcpState := buf[34]

	rec := &record.Record{
		StartTime:  time.Unix(sTimeSec, 0).Add(time.Duration(msec) * time.Millisecond).UTC(),
		Elapsed:    time.Duration(elapsedSec)*time.Second + time.Duration(elapsedMsecPart)*time.Millisecond,
		SrcIP:      ipv4FromBytes(buf[0:4]),
		DstIP:      ipv4FromBytes(buf[4:8]),
		Bytes:      uint64(binary.BigEndian.Uint32(buf[8:12])),
		SrcPort:    binary.BigEndian.Uint16(buf[18:20]),
		DstPort:    binary.BigEndian.Uint16(buf[20:22]),
		Input:      binary.BigEndian.Uint16(buf[24:26]),
		Output:     binary.BigEndian.Uint16(buf[26:28]),
		Pkts:       pkts,
		Protocol:   protocol,
		TCPFlags:   buf[32],
		InitFlags:  buf[33],
		TCPState:   tcpState,
	}

	if tcpState&format.TCPStateExpanded != 0 {
		rec.RestFlags = rec.TCPFlags
	}

	rec.NormalizeExpanded()

	if v == 6 {
		// Open question 1: v6's packer is the v5 packer and never wrote
		// Application, but the field is still cleared here unconditionally
		// on read, matching the upstream behavior verbatim rather than
		// "fixing" the asymmetry.
		rec.Application = 0
	}

	return rec, nil
}

// servicePortOf picks whichever of src/dst port looks like the server side
// (the lower-numbered port), Flowcap's servicePort field. Lossy on decode:
// nothing in record.Record round-trips it, since no Record field
// corresponds to it once src/dst are already known.
func servicePortOf(rec *record.Record) uint16 {
	if rec.SrcPort != 0 && (rec.DstPort == 0 || rec.SrcPort < rec.DstPort) {
		return rec.SrcPort
	}

	return rec.DstPort
}
