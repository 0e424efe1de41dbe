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

// webModule implements format.CodeWeb. Version 5's 22-byte layout is
// built from the shared P4 sub-pack plus two addresses and a client port
// (spec §6.3): P4 at bytes 0..11, sIP at 12..15, dIP at 16..19, clientPort
// at 20..21. The server-port/server-side encoding is spec §4.2's "Web
// ports" rule: 2 bits choosing among {80, 443, 8080, other}, 1 bit for
// which side is the server.
type webModule struct{}

var _ Module = webModule{}

func (webModule) DefaultVersion() format.Version { return 5 }

func (webModule) SupportsVersion(v format.Version) bool { return v == 5 }

func (webModule) RecordLength(format.Version) uint16 { return 22 }

var webKnownServerPorts = map[uint16]uint8{80: 0, 443: 1, 8080: 2}

func encodeSrvPort(port uint16) uint8 {
	if code, ok := webKnownServerPorts[port]; ok {
		return code
	}

	return 3
}

// decodeSrvPort reverses encodeSrvPort. Code 3 ("other") loses the original
// port; spec §4.2 requires callers to treat it as 0.
func decodeSrvPort(code uint8) uint16 {
	switch code {
	case 0:
		return 80
	case 1:
		return 443
	case 2:
		return 8080
	default:
		return 0
	}
}

func (m webModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if !rec.IsTCP() {
		return errs.New(errs.KindProtocolMismatch)
	}

	if rec.IsIPv6() {
		return errs.New(errs.KindUnsupportedIpv6)
	}

	bpp, err := pktsAndBytesForBPP(rec.Pkts, rec.Bytes)
	if err != nil {
		return err
	}

	if rec.Pkts >= 1<<20 {
		return errs.New(errs.KindPktsOverflow)
	}

	startOffset, err := startOffsetMillis(rec.StartTime, fileStartMillis, 22)
	if err != nil {
		return err
	}

	elapsedMs := rec.ElapsedMillis()
	if elapsedMs >= 1<<22 {
		return errs.New(errs.KindElapsedOverflow).WithLimits(errs.Limits{ElapsedMax: 1<<22 - 1})
	}

	srcIsServer := false
	serverPort := rec.DstPort
	clientPort := rec.SrcPort

	if _, ok := webKnownServerPorts[rec.SrcPort]; ok {
		if _, dstKnown := webKnownServerPorts[rec.DstPort]; !dstKnown {
			srcIsServer = true
			serverPort = rec.SrcPort
			clientPort = rec.DstPort
		}
	}

	p := p4{
		StartMsecOffset: startOffset,
		ElapsedMsec:     elapsedMs,
		BppInt:          uint16(bpp >> 6),
		BppFrac:         uint8(bpp & 0x3F),
		PktsStored:      uint32(rec.Pkts),
		SrvPort:         encodeSrvPort(serverPort),
		SrcIsServer:     srcIsServer,
	}
	words := packP4(p)
	copy(buf[0:12], words[:])

	putIPv4(buf[12:16], rec.SrcIP)
	putIPv4(buf[16:20], rec.DstIP)
	binary.BigEndian.PutUint16(buf[20:22], clientPort)

	return nil
}

// webSwapFields excludes the P4 sub-pack at bytes 0..11: its words are
// always written and read big-endian by packP4/unpackP4, whatever the
// file's byte order.
var webSwapFields = []endian.Field{
	{Offset: 12, Width: 4}, // sIP
	{Offset: 16, Width: 4}, // dIP
	{Offset: 20, Width: 2}, // clientPort
}

func (webModule) SwapFields(format.Version) []endian.Field { return webSwapFields }

func (m webModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	var words [12]byte
	copy(words[:], buf[0:12])
	p := unpackP4(words)

	clientPort := binary.BigEndian.Uint16(buf[20:22])
	serverPort := decodeSrvPort(p.SrvPort)

	srcPort, dstPort := clientPort, serverPort
	if p.SrcIsServer {
		srcPort, dstPort = serverPort, clientPort
	}

	bppValue := uint32(p.BppInt)<<6 | uint32(p.BppFrac)

	rec := &record.Record{
		StartTime: time.UnixMilli(fileStartMillis + int64(p.StartMsecOffset)).UTC(),
		Elapsed:   time.Duration(p.ElapsedMsec) * time.Millisecond,
		SrcIP:     ipv4FromBytes(buf[12:16]),
		DstIP:     ipv4FromBytes(buf[16:20]),
		SrcPort:   srcPort,
		DstPort:   dstPort,
		Protocol:  format.ProtocolTCP,
		Pkts:      uint64(p.PktsStored),
		Bytes:     bits.DecodeBPP(bppValue, uint64(p.PktsStored)),
	}

	return rec, nil
}
