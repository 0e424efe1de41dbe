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

func TestNotRoutedRoundTripTCP(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart.Add(90 * time.Second),
		Elapsed:   30 * time.Second,
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		SrcPort:   1234,
		DstPort:   80,
		Protocol:  format.ProtocolTCP,
		TCPFlags:  0x1B,
		TCPState:  format.TCPStateExpanded,
		InitFlags: 0x02,
		RestFlags: 0x19,
		Pkts:      50,
		Bytes:     60_000,
	}

	m := notRoutedModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.SrcIP, got.SrcIP)
	require.Equal(t, rec.DstIP, got.DstIP)
	require.Equal(t, rec.SrcPort, got.SrcPort)
	require.Equal(t, rec.DstPort, got.DstPort)
	require.Equal(t, rec.Protocol, got.Protocol)
	require.Equal(t, rec.InitFlags, got.InitFlags)
	require.Equal(t, rec.RestFlags, got.RestFlags)
	require.Equal(t, rec.Pkts, got.Pkts)
	require.Equal(t, rec.StartTime, got.StartTime)
	require.Equal(t, rec.Elapsed, got.Elapsed)
}

func TestNotRoutedRoundTripNonTCP(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart,
		Elapsed:   0,
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		SrcPort:   53,
		DstPort:   5353,
		Protocol:  17,
		TCPFlags:  0x00,
		Pkts:      1,
		Bytes:     40,
	}

	m := notRoutedModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.Protocol, got.Protocol)
	require.Equal(t, rec.Pkts, got.Pkts)
}

func TestNotRoutedRejectsIPv6(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("2001:db8::1"),
		DstIP:    netip.MustParseAddr("10.2.2.2"),
		Protocol: format.ProtocolTCP,
		Pkts:     1,
		Bytes:    40,
	}

	m := notRoutedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, 0, rec, buf)
	require.ErrorIs(t, err, errs.ErrUnsupportedIpv6)
}

func TestNotRoutedStartTimeUnderflowRejected(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart.Add(-time.Second),
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		Protocol:  format.ProtocolTCP,
		Pkts:      1,
		Bytes:     40,
	}

	m := notRoutedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, fileStart.UnixMilli(), rec, buf)
	require.ErrorIs(t, err, errs.ErrStartTimeUnderflow)
}
