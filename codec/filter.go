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

// filterModule implements format.CodeFilter: the P1+P2 legacy layout carrying
// everything a post-hoc selection tool needs to re-classify its output —
// the five-tuple, full flag state, sensor and flowtype ids, the SNMP
// interface pair (as single bytes), and the next hop. Layout (34 bytes):
// sIP, dIP, sPort, dPort, P1, P2, proto, flowtype:u8, sensor:u16, input:u8,
// output:u8, nhIP.
type filterModule struct{}

var _ Module = filterModule{}

func (filterModule) DefaultVersion() format.Version { return 2 }

func (filterModule) SupportsVersion(v format.Version) bool { return v == 2 }

func (filterModule) RecordLength(format.Version) uint16 { return 34 }

func (m filterModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
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

	buf[24] = rec.Protocol
	buf[25] = byte(rec.FlowtypeID)
	binary.BigEndian.PutUint16(buf[26:28], rec.SensorID)
	buf[28] = input
	buf[29] = output
	putIPv4(buf[30:34], rec.NextHopIP)

	return nil
}

var filterSwapFields = []endian.Field{
	{Offset: 0, Width: 4},  // sIP
	{Offset: 4, Width: 4},  // dIP
	{Offset: 8, Width: 2},  // sPort
	{Offset: 10, Width: 2}, // dPort
	{Offset: 26, Width: 2}, // sensor
	{Offset: 30, Width: 4}, // nhIP
}

func (filterModule) SwapFields(format.Version) []endian.Field { return filterSwapFields }

func (m filterModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
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

	rec := &record.Record{
		StartTime:  time.UnixMilli(fileStartMillis + int64(pv.StartOffsetSec)*1000).UTC(),
		Elapsed:    time.Duration(pv.ElapsedSec) * time.Second,
		SrcIP:      ipv4FromBytes(buf[0:4]),
		DstIP:      ipv4FromBytes(buf[4:8]),
		NextHopIP:  ipv4FromBytes(buf[30:34]),
		SrcPort:    binary.BigEndian.Uint16(buf[8:10]),
		DstPort:    binary.BigEndian.Uint16(buf[10:12]),
		Protocol:   protocol,
		FlowtypeID: uint16(buf[25]),
		SensorID:   binary.BigEndian.Uint16(buf[26:28]),
		TCPFlags:   flags,
		InitFlags:  initFlags,
		RestFlags:  restFlags,
		TCPState:   tcpState,
		Input:      uint16(buf[28]),
		Output:     uint16(buf[29]),
		Pkts:       uint64(pkts),
		Bytes:      bits.DecodeBPP(pv.Bpp, uint64(pkts)),
	}

	rec.NormalizeExpanded()

	return rec, nil
}
