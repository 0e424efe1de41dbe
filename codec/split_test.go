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

func TestSplitRoundTripTCPMilliseconds(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart.Add(90*time.Second + 123*time.Millisecond),
		Elapsed:   30*time.Second + 456*time.Millisecond,
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		SrcPort:   1234,
		DstPort:   80,
		Protocol:  format.ProtocolTCP,
		TCPFlags:  0x1B,
		Pkts:      50,
		Bytes:     60_000,
	}

	m := splitModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, rec.StartTime, got.StartTime)
	require.Equal(t, rec.Elapsed, got.Elapsed)
	require.Equal(t, rec.Protocol, got.Protocol)
	require.Equal(t, rec.TCPFlags, got.TCPFlags)
	require.Equal(t, rec.Pkts, got.Pkts)
	require.Equal(t, rec.Bytes, got.Bytes)
}

func TestSplitRoundTripNonTCPKeepsProtocol(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart,
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		SrcPort:   53,
		DstPort:   5353,
		Protocol:  17,
		Pkts:      1,
		Bytes:     40,
	}

	m := splitModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, uint8(17), got.Protocol)
	require.Zero(t, got.TCPFlags)
}

func TestSplitScaledPacketCount(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	// Above the 20-bit raw cap: stored /64 with the multiplier flag, so the
	// decoded count comes back rounded down to a multiple of 64.
	rec := &record.Record{
		StartTime: fileStart,
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		Protocol:  17,
		Pkts:      2_000_000,
		Bytes:     2_000_000,
	}

	m := splitModule{}
	buf := make([]byte, m.RecordLength(1))
	require.NoError(t, m.Pack(1, fileStart.UnixMilli(), rec, buf))

	got, err := m.Unpack(1, fileStart.UnixMilli(), buf)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000/64*64), got.Pkts)
}

func TestSplitStartOffsetSecondsOverflowRejected(t *testing.T) {
	fileStart := time.UnixMilli(1_700_000_000_000).UTC()
	rec := &record.Record{
		StartTime: fileStart.Add(time.Duration(1<<12) * time.Second),
		SrcIP:     netip.MustParseAddr("10.1.1.1"),
		DstIP:     netip.MustParseAddr("10.2.2.2"),
		Protocol:  17,
		Pkts:      1,
		Bytes:     40,
	}

	m := splitModule{}
	buf := make([]byte, m.RecordLength(1))
	err := m.Pack(1, fileStart.UnixMilli(), rec, buf)
	require.ErrorIs(t, err, errs.ErrStartTimeOverflow)
}
