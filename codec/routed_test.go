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

func TestRoutedRoundTrip(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart.Add(120 * time.Second),
		Elapsed:   45 * time.Second,
		SrcIP:     netip.MustParseAddr("192.0.2.1"),
		DstIP:     netip.MustParseAddr("192.0.2.2"),
		NextHopIP: netip.MustParseAddr("192.0.2.254"),
		SrcPort:   40000,
		DstPort:   443,
		Protocol:  format.ProtocolTCP,
		TCPFlags:  0x1B,
		TCPState:  format.TCPStateExpanded,
		InitFlags: 0x02,
		RestFlags: 0x19,
		Input:     10,
		Output:    20,
		Pkts:      200,
		Bytes:     100_000,
	}

	m := routedModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.SrcIP, got.SrcIP)
	require.Equal(t, rec.DstIP, got.DstIP)
	require.Equal(t, rec.NextHopIP, got.NextHopIP)
	require.Equal(t, rec.Input, got.Input)
	require.Equal(t, rec.Output, got.Output)
	require.Equal(t, rec.Protocol, got.Protocol)
	require.Equal(t, rec.InitFlags, got.InitFlags)
	require.Equal(t, rec.RestFlags, got.RestFlags)
	require.Equal(t, rec.Pkts, got.Pkts)
	require.Equal(t, rec.Bytes, got.Bytes)
	require.Equal(t, rec.StartTime, got.StartTime)
	require.Equal(t, rec.Elapsed, got.Elapsed)
}

func TestRoutedSnmpOverflowRejected(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("192.0.2.1"),
		DstIP:    netip.MustParseAddr("192.0.2.2"),
		Protocol: 17,
		Input:    300,
		Pkts:     1,
		Bytes:    40,
	}

	m := routedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, rec.StartTime.UnixMilli(), rec, buf)
	require.ErrorIs(t, err, errs.ErrSnmpOverflow)
}

func TestRoutedElapsedOverflowRejected(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("192.0.2.1"),
		DstIP:    netip.MustParseAddr("192.0.2.2"),
		Protocol: 17,
		Elapsed:  time.Duration(1<<11) * time.Second,
		Pkts:     1,
		Bytes:    40,
	}

	m := routedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, rec.StartTime.UnixMilli(), rec, buf)
	require.ErrorIs(t, err, errs.ErrElapsedOverflow)
}
