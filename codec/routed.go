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

// routedModule implements format.CodeRouted: NotRouted's compact P1+P2
// layout extended with the routing data that format exists to keep — the
// next-hop address and the SNMP interface pair, the interfaces squeezed
// into single bytes. Field order and total length (31 bytes) are this
// core's own choice, same caveat as notRoutedModule: spec.md gives the
// sub-pack widths, not a byte table for this format.
type routedModule struct{}

var _ Module = routedModule{}

func (routedModule) DefaultVersion() format.Version { return 1 }

func (routedModule) SupportsVersion(v format.Version) bool { return v == 1 }

func (routedModule) RecordLength(format.Version) uint16 { return 31 }

func (m routedModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
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

	input, err := snmpByte(rec.Input)
	if err != nil {
		return err
	}

	output, err := snmpByte(rec.Output)
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

	putIPv4(buf[24:28], rec.NextHopIP)
	buf[28] = input
	buf[29] = output
	buf[30] = rec.Protocol

	return nil
}

var routedSwapFields = []endian.Field{
	{Offset: 0, Width: 4},  // sIP
	{Offset: 4, Width: 4},  // dIP
	{Offset: 8, Width: 2},  // sPort
	{Offset: 10, Width: 2}, // dPort
	{Offset: 24, Width: 4}, // nhIP
}

func (routedModule) SwapFields(format.Version) []endian.Field { return routedSwapFields }

func (m routedModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	protocol := buf[30]
	var p1arr [4]byte
	copy(p1arr[:], buf[12:16])
	flags, initFlags, restFlags, tcpState := unpackP1(p1arr, protocol)

	var p2arr [8]byte
	copy(p2arr[:], buf[16:24])
	pv := unpackP2(p2arr)

	pkts := bits.DecodePkts(pv.PktsStored, pv.Mult)

	rec := &record.Record{
		StartTime: time.UnixMilli(fileStartMillis + int64(pv.StartOffsetSec)*1000).UTC(),
		Elapsed:   time.Duration(pv.ElapsedSec) * time.Second,
		SrcIP:     ipv4FromBytes(buf[0:4]),
		DstIP:     ipv4FromBytes(buf[4:8]),
		NextHopIP: ipv4FromBytes(buf[24:28]),
		SrcPort:   binary.BigEndian.Uint16(buf[8:10]),
		DstPort:   binary.BigEndian.Uint16(buf[10:12]),
		Protocol:  protocol,
		TCPFlags:  flags,
		InitFlags: initFlags,
		RestFlags: restFlags,
		TCPState:  tcpState,
		Input:     uint16(buf[28]),
		Output:    uint16(buf[29]),
		Pkts:      uint64(pkts),
		Bytes:     bits.DecodeBPP(pv.Bpp, uint64(pkts)),
	}

	rec.NormalizeExpanded()

	return rec, nil
}
