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

func TestAugmentedRoundTripExpandedTCP(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime:   fileStart.Add(4500 * time.Millisecond),
		Elapsed:     1234 * time.Millisecond,
		SrcIP:       netip.MustParseAddr("203.0.113.5"),
		DstIP:       netip.MustParseAddr("203.0.113.6"),
		SrcPort:     50123,
		DstPort:     993,
		Protocol:    format.ProtocolTCP,
		TCPFlags:    0x1B,
		TCPState:    format.TCPStateExpanded | 0x80,
		InitFlags:   0x02,
		RestFlags:   0x19,
		Application: 993,
		Memo:        0xBEEF,
		Pkts:        100,
		Bytes:       150_000,
	}

	m := augmentedModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.StartTime, got.StartTime)
	require.Equal(t, rec.Elapsed, got.Elapsed)
	require.Equal(t, rec.SrcIP, got.SrcIP)
	require.Equal(t, rec.DstIP, got.DstIP)
	require.Equal(t, rec.SrcPort, got.SrcPort)
	require.Equal(t, rec.DstPort, got.DstPort)
	require.Equal(t, rec.TCPState, got.TCPState)
	require.Equal(t, rec.InitFlags, got.InitFlags)
	require.Equal(t, rec.RestFlags, got.RestFlags)
	require.Equal(t, rec.TCPFlags, got.TCPFlags)
	require.Equal(t, rec.Application, got.Application)
	require.Equal(t, rec.Memo, got.Memo)
	require.Equal(t, rec.Pkts, got.Pkts)
	require.Equal(t, rec.Bytes, got.Bytes)
}

func TestAugmentedBPPQuantizationBound(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart,
		SrcIP:     netip.MustParseAddr("203.0.113.5"),
		DstIP:     netip.MustParseAddr("203.0.113.6"),
		Protocol:  17,
		Pkts:      1000,
		Bytes:     1_234_567, // not a multiple of pkts: exercises the fraction
	}

	m := augmentedModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)

	bound := rec.Pkts/64 + 1
	diff := int64(got.Bytes) - int64(rec.Bytes)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, int64(bound))
}

func TestAugmentedPktsOverflowRejected(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("203.0.113.5"),
		DstIP:    netip.MustParseAddr("203.0.113.6"),
		Protocol: 17,
		Pkts:     1 << 20,
		Bytes:    1 << 21,
	}

	m := augmentedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, 0, rec, buf)
	require.ErrorIs(t, err, errs.ErrPktsOverflow)
}

func TestAugmentedElapsedOverflowRejected(t *testing.T) {
	rec := &record.Record{
		SrcIP:    netip.MustParseAddr("203.0.113.5"),
		DstIP:    netip.MustParseAddr("203.0.113.6"),
		Protocol: 17,
		Elapsed:  time.Duration(1<<22) * time.Millisecond,
		Pkts:     1,
		Bytes:    40,
	}

	m := augmentedModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, rec.StartTime.UnixMilli(), rec, buf)
	require.ErrorIs(t, err, errs.ErrElapsedOverflow)
}
