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

// genericModule implements format.CodeGeneric. Version 5's 52-byte layout
// is spec §6.3's literal worked example (scenario S1); version 3 is a
// smaller, pre-SNMP-interface predecessor sharing the same absolute-time
// encoding, added so every writer numeric policy (§4.2) has a concrete
// format to exercise pkts==0/overflow checks against, per scenario S4.
type genericModule struct{}

var _ Module = genericModule{}

func (genericModule) DefaultVersion() format.Version { return 5 }

func (genericModule) SupportsVersion(v format.Version) bool {
	return v == 3 || v == 5
}

func (genericModule) RecordLength(v format.Version) uint16 {
	switch v {
	case 3:
		return 36
	case 5:
		return 52
	default:
		return 0
	}
}

func (m genericModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if rec.Pkts == 0 {
		return errs.New(errs.KindPktsZero)
	}

	if rec.Bytes < rec.Pkts {
		return errs.New(errs.KindPktsGtBytes)
	}

	switch v {
	case 5:
		return packGeneric5(rec, buf)
	case 3:
		return packGeneric3(rec, buf)
	default:
		return errs.New(errs.KindUnsupportedVersion)
	}
}

// swapFieldsV5 and swapFieldsV3 list the true multi-byte integers in each
// version's layout (spec §4.5); proto/flowtype/flags/tcpState bytes are
// single bytes and need no entry.
var swapFieldsV5 = []endian.Field{
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
	{Offset: 40, Width: 4}, // sIP
	{Offset: 44, Width: 4}, // dIP
	{Offset: 48, Width: 4}, // nhIP
}

var swapFieldsV3 = []endian.Field{
	{Offset: 0, Width: 8},  // sTime
	{Offset: 8, Width: 4},  // elapsed
	{Offset: 12, Width: 2}, // sPort
	{Offset: 14, Width: 2}, // dPort
	{Offset: 25, Width: 4}, // pkts
	{Offset: 29, Width: 4}, // bytes
}

func (genericModule) SwapFields(v format.Version) []endian.Field {
	switch v {
	case 5:
		return swapFieldsV5
	case 3:
		return swapFieldsV3
	default:
		return nil
	}
}

func (m genericModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	switch v {
	case 5:
		return unpackGeneric5(buf)
	case 3:
		return unpackGeneric3(buf)
	default:
		return nil, errs.New(errs.KindUnsupportedVersion)
	}
}

// packGeneric5 writes the 52-byte layout spec §6.3 gives byte-for-byte:
// sTime:i64 | elapsed:u32 | sPort:u16 | dPort:u16 | proto:u8 | flowtype:u8 |
// sensor:u16 | flags:u8 | initFlags:u8 | restFlags:u8 | tcpState:u8 |
// application:u16 | memo:u16 | input:u16 | output:u16 | pkts:u32 | bytes:u32
// | sIP:u32 | dIP:u32 | nhIP:u32.
func packGeneric5(rec *record.Record, buf []byte) error {
	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
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
	putIPv4(buf[40:44], rec.SrcIP)
	putIPv4(buf[44:48], rec.DstIP)
	putIPv4(buf[48:52], rec.NextHopIP)

	return nil
}

func unpackGeneric5(buf []byte) (*record.Record, error) {
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
		SrcIP:       ipv4FromBytes(buf[40:44]),
		DstIP:       ipv4FromBytes(buf[44:48]),
		NextHopIP:   ipv4FromBytes(buf[48:52]),
	}

	rec.NormalizeExpanded()

	return rec, nil
}

// packGeneric3 is a 36-byte predecessor dropping application/memo/nhIP and
// storing SNMP interfaces as single bytes, this core's own choice of which
// fields an older version drops (spec.md does not give v3's byte table).
func packGeneric3(rec *record.Record, buf []byte) error {
	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
	}

	if rec.Pkts >= 1<<32 || rec.Bytes >= 1<<32 {
		return errs.New(errs.KindPktsOverflow)
	}

	input, err := snmpByte(rec.Input)
	if err != nil {
		return err
	}

	output, err := snmpByte(rec.Output)
	if err != nil {
		return err
	}

	sensor, err := sensorByte(rec.SensorID)
	if err != nil {
		return err
	}

	binary.BigEndian.PutUint64(buf[0:8], uint64(rec.StartTimeMillis()))
	binary.BigEndian.PutUint32(buf[8:12], rec.ElapsedMillis())
	binary.BigEndian.PutUint16(buf[12:14], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[14:16], rec.DstPort)
	buf[16] = rec.Protocol
	buf[17] = byte(rec.FlowtypeID)
	buf[18] = sensor
	p1 := packP1(rec.Protocol, rec.TCPFlags, rec.InitFlags, rec.RestFlags, rec.TCPState)
	copy(buf[19:23], p1[:])
	buf[23] = input
	buf[24] = output
	binary.BigEndian.PutUint32(buf[25:29], uint32(rec.Pkts))
	binary.BigEndian.PutUint32(buf[29:33], uint32(rec.Bytes))
	// buf[33:36] is reserved padding in the 36-byte v3 layout.

	return nil
}

func unpackGeneric3(buf []byte) (*record.Record, error) {
	protocol := buf[16]
	flags, initFlags, restFlags, tcpState := unpackP1([4]byte(buf[19:23]), protocol)

	rec := &record.Record{
		StartTime:  time.UnixMilli(int64(binary.BigEndian.Uint64(buf[0:8]))).UTC(),
		Elapsed:    time.Duration(binary.BigEndian.Uint32(buf[8:12])) * time.Millisecond,
		SrcPort:    binary.BigEndian.Uint16(buf[12:14]),
		DstPort:    binary.BigEndian.Uint16(buf[14:16]),
		Protocol:   protocol,
		FlowtypeID: uint16(buf[17]),
		SensorID:   uint16(buf[18]),
		TCPFlags:   flags,
		InitFlags:  initFlags,
		RestFlags:  restFlags,
		TCPState:   tcpState,
		Input:      uint16(buf[23]),
		Output:     uint16(buf[24]),
		Pkts:       uint64(binary.BigEndian.Uint32(buf[25:29])),
		Bytes:      uint64(binary.BigEndian.Uint32(buf[29:33])),
	}

	rec.NormalizeExpanded()

	return rec, nil
}

func putIPv4(dst []byte, a netip.Addr) {
	if !a.IsValid() {
		return
	}

	a4 := a.Unmap().As4()
	copy(dst, a4[:])
}

func ipv4FromBytes(b []byte) netip.Addr {
	return netip.AddrFrom4([4]byte(b))
}
