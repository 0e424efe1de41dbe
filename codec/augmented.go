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

// augmentedModule implements format.CodeAugmented: the P4 millisecond
// quantization plus the 8-byte trailer spec §4.2 names as P4's optional
// extension (tcp_state, rest_flags, 16-bit application), widened here with
// init_flags, the flag union, and the memo so the full expanded TCP state
// round-trips. Layout (34 bytes): P4 | trailer | sIP | dIP | sPort | dPort |
// proto | reserved. The trailer, like the P4 words, is hand-packed
// big-endian regardless of the file byte order.
type augmentedModule struct{}

var _ Module = augmentedModule{}

func (augmentedModule) DefaultVersion() format.Version { return 1 }

func (augmentedModule) SupportsVersion(v format.Version) bool { return v == 1 }

func (augmentedModule) RecordLength(format.Version) uint16 { return 34 }

func (m augmentedModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if err := packAugmentedCore(rec, buf, fileStartMillis, 0, false); err != nil {
		return err
	}

	binary.BigEndian.PutUint16(buf[28:30], rec.SrcPort)
	binary.BigEndian.PutUint16(buf[30:32], rec.DstPort)
	buf[32] = rec.Protocol
	buf[33] = 0

	return nil
}

// packAugmentedCore fills buf[0:28] — the P4 words, trailer, and address
// pair — shared with augWebModule, which layers the web server-port
// encoding into P4's srv bits and stores only the client port after it.
func packAugmentedCore(rec *record.Record, buf []byte, fileStartMillis int64, srvPort uint8, srcIsServer bool) error {
	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
	}

	bpp, err := pktsAndBytesForBPP(rec.Pkts, rec.Bytes)
	if err != nil {
		return err
	}

	if rec.Pkts >= 1<<20 {
		return errs.New(errs.KindPktsOverflow).WithLimits(errs.Limits{PktsMax: 1<<20 - 1})
	}

	startOffset, err := startOffsetMillis(rec.StartTime, fileStartMillis, 22)
	if err != nil {
		return err
	}

	elapsedMs := rec.ElapsedMillis()
	if elapsedMs >= 1<<22 {
		return errs.New(errs.KindElapsedOverflow).WithLimits(errs.Limits{ElapsedMax: 1<<22 - 1})
	}

	words := packP4(p4{
		StartMsecOffset: startOffset,
		ElapsedMsec:     elapsedMs,
		BppInt:          uint16(bpp >> 6),
		BppFrac:         uint8(bpp & 0x3F),
		PktsStored:      uint32(rec.Pkts),
		SrvPort:         srvPort,
		SrcIsServer:     srcIsServer,
	})
	copy(buf[0:12], words[:])

	buf[12] = rec.TCPState
	buf[13] = rec.RestFlags
	binary.BigEndian.PutUint16(buf[14:16], rec.Application)
	buf[16] = rec.InitFlags
	buf[17] = rec.TCPFlags
	binary.BigEndian.PutUint16(buf[18:20], rec.Memo)

	putIPv4(buf[20:24], rec.SrcIP)
	putIPv4(buf[24:28], rec.DstIP)

	return nil
}

var augmentedSwapFields = []endian.Field{
	{Offset: 20, Width: 4}, // sIP
	{Offset: 24, Width: 4}, // dIP
	{Offset: 28, Width: 2}, // sPort
	{Offset: 30, Width: 2}, // dPort
}

func (augmentedModule) SwapFields(format.Version) []endian.Field { return augmentedSwapFields }

func (m augmentedModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	rec, _ := unpackAugmented(buf, fileStartMillis)
	rec.SrcPort = binary.BigEndian.Uint16(buf[28:30])
	rec.DstPort = binary.BigEndian.Uint16(buf[30:32])
	rec.Protocol = buf[32]

	rec.NormalizeExpanded()

	return rec, nil
}

// unpackAugmented decodes the P4 words, trailer, and address pair common to
// Augmented and AugWeb, returning the decoded P4 so AugWeb can recover its
// port encoding. Ports and protocol are left for the caller.
func unpackAugmented(buf []byte, fileStartMillis int64) (*record.Record, p4) {
	var words [12]byte
	copy(words[:], buf[0:12])
	p := unpackP4(words)

	bppValue := uint32(p.BppInt)<<6 | uint32(p.BppFrac)

	rec := &record.Record{
		StartTime:   time.UnixMilli(fileStartMillis + int64(p.StartMsecOffset)).UTC(),
		Elapsed:     time.Duration(p.ElapsedMsec) * time.Millisecond,
		TCPState:    buf[12],
		RestFlags:   buf[13],
		Application: binary.BigEndian.Uint16(buf[14:16]),
		InitFlags:   buf[16],
		TCPFlags:    buf[17],
		Memo:        binary.BigEndian.Uint16(buf[18:20]),
		SrcIP:       ipv4FromBytes(buf[20:24]),
		DstIP:       ipv4FromBytes(buf[24:28]),
		Pkts:        uint64(p.PktsStored),
		Bytes:       bits.DecodeBPP(bppValue, uint64(p.PktsStored)),
	}

	return rec, p
}
