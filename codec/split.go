package codec

import (
	"encoding/binary"
	"time"

	"github.com/flowrec/flowrec/bits"
	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

// splitModule implements format.CodeSplit: the minimal five-tuple-plus-
// volumes layout built on the newer P3 quantization (spec §4.2), with the
// BPP ratio alongside since P3 itself carries only times/pkts/flags.
// Layout (28 bytes): sIP, dIP, sPort, dPort, P3, bpp:u32.
//
// P3's proto-or-flags slot means this format keeps either the protocol
// (non-TCP, flags dropped) or the combined TCP flags (TCP, protocol
// implied); the expanded init/rest split is not representable and is
// collapsed to the union on write.
type splitModule struct{}

var _ Module = splitModule{}

func (splitModule) DefaultVersion() format.Version { return 1 }

func (splitModule) SupportsVersion(v format.Version) bool { return v == 1 }

func (splitModule) RecordLength(format.Version) uint16 { return 28 }

func (m splitModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
	}

	bpp, err := pktsAndBytesForBPP(rec.Pkts, rec.Bytes)
	if err != nil {
		return err
	}

	if rec.Pkts > 1<<32-1 {
		return errs.New(errs.KindPktsOverflow)
	}

	stored, mult, ok := bits.EncodePkts(uint32(rec.Pkts))
	if !ok {
		return errs.New(errs.KindPktsOverflow)
	}

	offsetMs, err := startOffsetMillis(rec.StartTime, fileStartMillis, 22)
	if err != nil {
		return err
	}

	offsetSec := offsetMs / 1000
	if offsetSec >= 1<<12 {
		return errs.New(errs.KindStartTimeOverflow).WithLimits(errs.Limits{StartOffsetMax: 1<<12 - 1})
	}

	elapsedSec, err := elapsedSecondsCapped(rec.Elapsed, 12, false)
	if err != nil {
		return err
	}

	protoOrFlags := rec.Protocol
	if rec.IsTCP() {
		protoOrFlags = rec.TCPFlags
	}

	putIPv4(buf[0:4], rec.SrcIP)
	putIPv4(buf[4:8], rec.DstIP)
	binary.BigEndian.PutUint16(buf[8:10], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[10:12], rec.DstPort)

	p3bytes := packP3(p3{
		StartOffsetSec:  uint16(offsetSec),
		StartOffsetMsec: uint16(offsetMs % 1000),
		ElapsedSec:      uint16(elapsedSec),
		ElapsedMsec:     uint16(rec.Elapsed.Milliseconds() % 1000),
		Mult:            mult,
		IsTCP:           rec.IsTCP(),
		PktsStored:      stored,
		ProtoOrFlags:    protoOrFlags,
	})
	copy(buf[12:24], p3bytes[:])

	binary.BigEndian.PutUint32(buf[24:28], bpp)

	return nil
}

var splitSwapFields = []endian.Field{
	{Offset: 0, Width: 4},  // sIP
	{Offset: 4, Width: 4},  // dIP
	{Offset: 8, Width: 2},  // sPort
	{Offset: 10, Width: 2}, // dPort
	{Offset: 24, Width: 4}, // bpp
}

func (splitModule) SwapFields(format.Version) []endian.Field { return splitSwapFields }

func (m splitModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	var p3arr [12]byte
	copy(p3arr[:], buf[12:24])
	pv := unpackP3(p3arr)

	pkts := bits.DecodePkts(pv.PktsStored, pv.Mult)
	bpp := binary.BigEndian.Uint32(buf[24:28])

	var protocol, flags uint8
	if pv.IsTCP {
		protocol = format.ProtocolTCP
		flags = pv.ProtoOrFlags
	} else {
		protocol = pv.ProtoOrFlags
	}

	startOffsetMs := int64(pv.StartOffsetSec)*1000 + int64(pv.StartOffsetMsec)

	rec := &record.Record{
		StartTime: time.UnixMilli(fileStartMillis + startOffsetMs).UTC(),
		Elapsed:   time.Duration(pv.ElapsedSec)*time.Second + time.Duration(pv.ElapsedMsec)*time.Millisecond,
		SrcIP:     ipv4FromBytes(buf[0:4]),
		DstIP:     ipv4FromBytes(buf[4:8]),
		SrcPort:   binary.BigEndian.Uint16(buf[8:10]),
		DstPort:   binary.BigEndian.Uint16(buf[10:12]),
		Protocol:  protocol,
		TCPFlags:  flags,
		Pkts:      uint64(pkts),
		Bytes:     bits.DecodeBPP(bpp, uint64(pkts)),
	}

	return rec, nil
}
