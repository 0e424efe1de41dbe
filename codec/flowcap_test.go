package codec

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/record"
)

func TestFlowcapTimeFracPacking(t *testing.T) {
	rec := &record.Record{
		StartTime: time.UnixMilli(1_700_000_000_123).UTC(),
		Elapsed:   4500 * time.Millisecond,
		SrcIP:     netip.MustParseAddr("10.0.0.1"),
		DstIP:     netip.MustParseAddr("10.0.0.2"),
		Protocol:  format.ProtocolTCP,
		Pkts:      10,
		Bytes:     1000,
	}

	m := flowcapModule{}
	buf := make([]byte, m.RecordLength(5))
	require.NoError(t, m.Pack(5, 0, rec, buf))

	require.Equal(t, byte(0x1E), buf[35])
	require.Equal(t, byte(0xDF), buf[36])
	require.Equal(t, byte(0x40), buf[37])

	got, err := m.Unpack(5, 0, buf)
	require.NoError(t, err)
	require.Equal(t, rec.StartTime.UnixMilli()%1000, got.StartTime.UnixMilli()%1000)
	require.Equal(t, rec.Elapsed.Milliseconds()%1000, got.Elapsed.Milliseconds()%1000)
}

func TestFlowcapV6ClearsApplicationOnRead(t *testing.T) {
	rec := &record.Record{
		StartTime: time.UnixMilli(1_700_000_000_000).UTC(),
		Elapsed:   time.Second,
		SrcIP:     netip.MustParseAddr("10.0.0.1"),
		DstIP:     netip.MustParseAddr("10.0.0.2"),
		Protocol:  format.ProtocolTCP,
		Pkts:      1,
		Bytes:     40,
	}

	m := flowcapModule{}
	buf := make([]byte, m.RecordLength(6))
	require.NoError(t, m.Pack(6, 0, rec, buf))

	got, err := m.Unpack(6, 0, buf)
	require.NoError(t, err)
	require.Zero(t, got.Application)
}

func TestFlowcapElapsedSaturates(t *testing.T) {
	rec := &record.Record{
		StartTime: time.UnixMilli(0).UTC(),
		Elapsed:   200_000 * time.Second,
		SrcIP:     netip.MustParseAddr("10.0.0.1"),
		DstIP:     netip.MustParseAddr("10.0.0.2"),
		Protocol:  format.ProtocolTCP,
		Pkts:      1,
		Bytes:     40,
	}

	m := flowcapModule{}
	buf := make([]byte, m.RecordLength(5))
	require.NoError(t, m.Pack(5, 0, rec, buf))
	require.Equal(t, []byte{0xFF, 0xFF}, buf[16:18])
}
