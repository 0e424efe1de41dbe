package stream

import (
	"io"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowrec/flowrec/errs"
	"github.com/flowrec/flowrec/format"
	"github.com/flowrec/flowrec/header"
	"github.com/flowrec/flowrec/record"
)

func sampleRecords(n int) []*record.Record {
	out := make([]*record.Record, n)
	base := time.UnixMilli(1_700_000_000_000).UTC()

	for i := range out {
		out[i] = &record.Record{
			StartTime: base.Add(time.Duration(i) * time.Second),
			Elapsed:   time.Duration(i+1) * 500 * time.Millisecond,
			SrcIP:     netip.MustParseAddr("10.0.0.1"),
			DstIP:     netip.MustParseAddr("10.0.0.2"),
			NextHopIP: netip.MustParseAddr("10.0.0.254"),
			SrcPort:   uint16(1000 + i),
			DstPort:   443,
			Protocol:  format.ProtocolTCP,
			Pkts:      uint64(i + 1),
			Bytes:     uint64((i + 1) * 100),
			Input:     1,
			Output:    2,
		}
	}

	return out
}

// fixtureStartHour is the hour-truncated timestamp that precedes every
// record sampleRecords produces, supplied via a packed-file entry so Pack's
// start-offset computation never underflows.
const fixtureStartHour int64 = 1_699_999_200

func writeFixture(t *testing.T, path string, opts ...header.Option) {
	t.Helper()

	hdrOpts := append([]header.Option{
		header.WithFormat(format.CodeGeneric),
		header.WithRecordVersion(5),
		header.WithEntry(header.NewPackedFileEntry(header.PackedFileInfo{StartHour: fixtureStartHour})),
	}, opts...)

	h, err := header.New(hdrOpts...)
	require.NoError(t, err)

	s, err := New(ModeWrite)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())
	require.NoError(t, s.WriteHeader(h))

	for _, rec := range sampleRecords(3) {
		require.NoError(t, s.WriteRecord(rec))
	}

	require.NoError(t, s.Close())
}

func TestStreamWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")
	writeFixture(t, path)

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	h, err := s.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, format.CodeGeneric, h.Format())

	want := sampleRecords(3)
	for i, wrec := range want {
		got, err := s.ReadRecord()
		require.NoErrorf(t, err, "record %d", i)
		require.Equal(t, wrec.SrcPort, got.SrcPort)
		require.Equal(t, wrec.Pkts, got.Pkts)
		require.Equal(t, wrec.Bytes, got.Bytes)
	}

	_, err = s.ReadRecord()
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, s.Close())
}

func TestStreamAppendReusesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")
	writeFixture(t, path)

	s, err := New(ModeAppend)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	h, err := s.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, header.StateEntriesOnly, h.State())

	extra := sampleRecords(2)[0]
	require.NoError(t, s.WriteRecord(extra))
	require.NoError(t, s.Close())

	r, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, r.Bind(path))
	require.NoError(t, r.Open())
	_, err = r.ReadHeader()
	require.NoError(t, err)

	count := 0
	for {
		_, err := r.ReadRecord()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		count++
	}

	require.Equal(t, 4, count)
	require.NoError(t, r.Close())
}

func TestStreamCompressedWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.z")
	writeFixture(t, path, header.WithCompression(format.CompressionZlib))

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	_, err = s.ReadHeader()
	require.NoError(t, err)

	count := 0
	for {
		_, err := s.ReadRecord()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		count++
	}

	require.Equal(t, 3, count)
	require.NoError(t, s.Close())
}

func TestStreamByteOrderSwapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.le")
	writeFixture(t, path, header.WithByteOrder(header.LittleEndian))

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	h, err := s.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, header.LittleEndian, h.ByteOrder())

	want := sampleRecords(3)
	for i, wrec := range want {
		got, err := s.ReadRecord()
		require.NoErrorf(t, err, "record %d", i)
		require.Equal(t, wrec.SrcPort, got.SrcPort)
		require.Equal(t, wrec.DstPort, got.DstPort)
		require.Equal(t, wrec.SrcIP, got.SrcIP)
		require.Equal(t, wrec.Pkts, got.Pkts)
	}

	require.NoError(t, s.Close())
}

func TestStreamUnknownFormatRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")

	h, err := header.New(header.WithFormat(format.Code(0xEE)))
	require.NoError(t, err)

	s, err := New(ModeWrite)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	err = s.WriteHeader(h)
	require.ErrorIs(t, err, errs.ErrUnsupportedFormat)
}

func TestStreamNotBoundRejected(t *testing.T) {
	s, err := New(ModeRead)
	require.NoError(t, err)

	err = s.Open()
	require.ErrorIs(t, err, errs.ErrNotBound)
}

func TestStreamDoubleBindRejected(t *testing.T) {
	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(filepath.Join(t.TempDir(), "a.dat")))

	err = s.Bind("somewhere-else")
	require.ErrorIs(t, err, errs.ErrPreviouslyOpened)
}

func TestStreamDoubleOpenRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")
	writeFixture(t, path)

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	err = s.Open()
	require.ErrorIs(t, err, errs.ErrPreviouslyOpened)
	require.NoError(t, s.Close())
}

func TestStreamReadBeforeHeaderRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")
	writeFixture(t, path)

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())

	_, err = s.ReadRecord()
	require.ErrorIs(t, err, errs.ErrNotOpen)
}

func TestStreamUseAfterCloseRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.dat")
	writeFixture(t, path)

	s, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())
	_, err = s.ReadHeader()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ReadRecord()
	require.ErrorIs(t, err, errs.ErrClosed)
}

func TestStreamDestroyRemovesIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.dat")

	s, err := New(ModeWrite)
	require.NoError(t, err)
	require.NoError(t, s.Bind(path))
	require.NoError(t, s.Open())
	require.NoError(t, s.Destroy())

	rs, err := New(ModeRead)
	require.NoError(t, err)
	require.NoError(t, rs.Bind(path))
	err = rs.Open()
	require.Error(t, err)
}
