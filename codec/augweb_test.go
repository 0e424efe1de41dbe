package codec

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

func TestAugWebRoundTripKnownServerPort(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime:   fileStart.Add(250 * time.Millisecond),
		Elapsed:     900 * time.Millisecond,
		SrcIP:       netip.MustParseAddr("203.0.113.10"),
		DstIP:       netip.MustParseAddr("203.0.113.20"),
		SrcPort:     49152,
		DstPort:     443,
		Protocol:    format.ProtocolTCP,
		TCPFlags:    0x1B,
		Application: 443,
		Pkts:        20,
		Bytes:       30_000,
	}

	m := augWebModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.SrcPort, got.SrcPort)
	require.Equal(t, rec.DstPort, got.DstPort)
	require.Equal(t, format.ProtocolTCP, got.Protocol)
	require.Equal(t, rec.Application, got.Application)
	require.Equal(t, rec.Pkts, got.Pkts)
	require.Equal(t, rec.Bytes, got.Bytes)
}

func TestAugWebSrcIsServer(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart,
		SrcIP:     netip.MustParseAddr("203.0.113.10"),
		DstIP:     netip.MustParseAddr("203.0.113.20"),
		SrcPort:   80,
		DstPort:   51000,
		Protocol:  format.ProtocolTCP,
		Pkts:      5,
		Bytes:     500,
	}

	m := augWebModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, uint16(80), got.SrcPort)
	require.Equal(t, uint16(51000), got.DstPort)
}

func TestAugWebOtherServerPortDecodesToZero(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart,
		SrcIP:     netip.MustParseAddr("203.0.113.10"),
		DstIP:     netip.MustParseAddr("203.0.113.20"),
		SrcPort:   49152,
		DstPort:   8443,
		Protocol:  format.ProtocolTCP,
		Pkts:      5,
		Bytes:     500,
	}

	m := augWebModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.SrcPort, got.SrcPort)
	require.Zero(t, got.DstPort)
}

func TestAugWebRejectsNonTCP(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("203.0.113.10"),
		DstIP:    netip.MustParseAddr("203.0.113.20"),
		Protocol: 17,
		Pkts:     1,
		Bytes:    40,
	}

	m := augWebModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, 0, rec, buf)
	require.ErrorIs(t, err, errs.ErrProtocolMismatch)
}
