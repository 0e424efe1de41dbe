package codec

import (
	"encoding/binary"

	"github.com/flowrec/flowrec/endian"
	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

// augWebModule implements format.CodeAugWeb: Augmented's P4-plus-trailer
// layout specialized to web traffic the way the plain Web format is — the
// port pair collapses to a client port plus the 2-bit server-port encoding
// and 1-bit server-side flag already reserved in P4's srv_flg_pkts word
// (spec §4.2 "Web ports", §6.3). TCP-only; 30 bytes.
type augWebModule struct{}

var _ Module = augWebModule{}

func (augWebModule) DefaultVersion() format.Version { return 1 }

func (augWebModule) SupportsVersion(v format.Version) bool { return v == 1 }

func (augWebModule) RecordLength(format.Version) uint16 { return 30 }

func (m augWebModule) Pack(v format.Version, fileStartMillis int64, rec *record.Record, buf []byte) error {
	if !m.SupportsVersion(v) {
		return errs.New(errs.KindUnsupportedVersion)
	}

	if !rec.IsTCP() {
		return errs.New(errs.KindProtocolMismatch)
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

	if err := packAugmentedCore(rec, buf, fileStartMillis, encodeSrvPort(serverPort), srcIsServer); err != nil {
		return err
	}

	binary.BigEndian.PutUint16(buf[28:30], clientPort)

	return nil
}

var augWebSwapFields = []endian.Field{
	{Offset: 20, Width: 4}, // sIP
	{Offset: 24, Width: 4}, // dIP
	{Offset: 28, Width: 2}, // clientPort
}

func (augWebModule) SwapFields(format.Version) []endian.Field { return augWebSwapFields }

func (m augWebModule) Unpack(v format.Version, fileStartMillis int64, buf []byte) (*record.Record, error) {
	if !m.SupportsVersion(v) {
		return nil, errs.New(errs.KindUnsupportedVersion)
	}

	rec, p := unpackAugmented(buf, fileStartMillis)

	clientPort := binary.BigEndian.Uint16(buf[28:30])
	serverPort := decodeSrvPort(p.SrvPort)

	rec.SrcPort, rec.DstPort = clientPort, serverPort
	if p.SrcIsServer {
		rec.SrcPort, rec.DstPort = serverPort, clientPort
	}

	rec.Protocol = format.ProtocolTCP

	rec.NormalizeExpanded()

	return rec, nil
}
