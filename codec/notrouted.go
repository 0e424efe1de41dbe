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

// notRoutedModule implements format.CodeNotRouted: the compact legacy
// layout spec §4.2 describes P1 and P2 as backing ("older format"). This
// core's own choice of field order and total length (spec.md gives P1/P2's
// bit widths but not a byte table for this format): sIP, dIP, sPort, dPort,
// P1 (protocol/flags), P2 (times/bpp/pkts), a trailing protocol byte, 25
// bytes total. The trailing byte carries the full protocol number, which
// Unpack hands to unpackP1 to decide how to read flags/tcp_state;
// unpackP1 does not recover the protocol from the P1 tuple itself.
type notRoutedModule struct{}

var _ Module = notRoutedModule{}

func (notRoutedModule) DefaultVersion() format.Version { return 1 }

func (notRoutedModule) SupportsVersion(v format.Version) bool { return v == 1 }

func (notRoutedModule) RecordLength(format.Version) uint16 { return 25 }

func (m notRoutedModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
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

	startOffsetSec, err := startOffsetSeconds(rec.StartTime, fileStartMillis, 12)
	if err != nil {
		return err
	}

	elapsedSec, err := elapsedSecondsCapped(rec.Elapsed, 11, false)
	if err != nil {
		return err
	}

	putIPv4(buf[0:4], rec.SrcIP)
	putIPv4(buf[4:8], rec.DstIP)
	binary.BigEndian.PutUint16(buf[8:10], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[10:12], rec.DstPort)

	p1 := packP1(rec.Protocol, rec.TCPFlags, rec.InitFlags, rec.RestFlags, rec.TCPState)
	copy(buf[12:16], p1[:])

	p2bytes := packP2(p2{
		StartOffsetSec: uint16(startOffsetSec),
		Bpp:            bpp,
		PktsStored:     stored,
		Mult:           mult,
		ElapsedSec:     uint16(elapsedSec),
	})
	copy(buf[16:24], p2bytes[:])

	buf[24] = rec.Protocol

	return nil
}

// notRoutedSwapFields excludes the P1/P2 sub-packs at bytes 12..24 and the
// trailing protocol byte: P1/P2 are always written and read big-endian by
// their packers, whatever the file's byte order.
var notRoutedSwapFields = []endian.Field{
	{Offset: 0, Width: 4}, // sIP
	{Offset: 4, Width: 4}, // dIP
	{Offset: 8, Width: 2}, // sPort
	{Offset: 10, Width: 2}, // dPort
}

func (notRoutedModule) SwapFields(format.Version) []endian.Field { return notRoutedSwapFields }

func (m notRoutedModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	protocol := buf[24]
	var p1arr [4]byte
	copy(p1arr[:], buf[12:16])
	flags, initFlags, restFlags, tcpState := unpackP1(p1arr, protocol)

	var p2arr [8]byte
	copy(p2arr[:], buf[16:24])
	pv := unpackP2(p2arr)

	pkts := bits.DecodePkts(pv.PktsStored, pv.Mult)
	startOffsetMs := int64(pv.StartOffsetSec) * 1000
	elapsed := time.Duration(pv.ElapsedSec) * time.Second

	rec := &record.Record{
		StartTime: time.UnixMilli(fileStartMillis + startOffsetMs).UTC(),
		Elapsed:   elapsed,
		SrcIP:     ipv4FromBytes(buf[0:4]),
		DstIP:     ipv4FromBytes(buf[4:8]),
		SrcPort:   binary.BigEndian.Uint16(buf[8:10]),
		DstPort:   binary.BigEndian.Uint16(buf[10:12]),
		Protocol:  protocol,
		TCPFlags:  flags,
		InitFlags: initFlags,
		RestFlags: restFlags,
		TCPState:  tcpState,
		Pkts:      uint64(pkts),
		Bytes:     bits.DecodeBPP(pv.Bpp, uint64(pkts)),
	}

	rec.NormalizeExpanded()

	return rec, nil
}
