package record

import (
	"net/netip"
	"testing"
	"time"

	"github.com/flowrec/flowrec/format"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExpandedClearsNonTCP(t *testing.T) {
	r := &Record{Protocol: 17, TCPState: format.TCPStateExpanded, InitFlags: 0x02, RestFlags: 0x19}
	r.NormalizeExpanded()

	require.False(t, r.Expanded())
	require.Zero(t, r.InitFlags)
	require.Zero(t, r.RestFlags)
}

func TestNormalizeExpandedClearsWhenFlagsZero(t *testing.T) {
	r := &Record{Protocol: format.ProtocolTCP, TCPState: format.TCPStateExpanded}
	r.NormalizeExpanded()

	require.False(t, r.Expanded())
}

func TestNormalizeExpandedPreservesValidExpansion(t *testing.T) {
	r := &Record{Protocol: format.ProtocolTCP, TCPState: format.TCPStateExpanded, InitFlags: 0x02, RestFlags: 0x19}
	r.NormalizeExpanded()

	require.True(t, r.Expanded())
	require.Equal(t, uint8(0x02), r.InitFlags)
	require.Equal(t, uint8(0x19), r.RestFlags)
}

func TestValidateForWrite(t *testing.T) {
	r := &Record{Pkts: 0, Bytes: 0}
	err := r.ValidateForWrite()
	require.Error(t, err)
	require.Equal(t, err.Kind.String(), "PktsZero")

	r = &Record{Pkts: 10, Bytes: 5}
	err = r.ValidateForWrite()
	require.Error(t, err)
	require.Equal(t, err.Kind.String(), "PktsGtBytes")

	r = &Record{Pkts: 10, Bytes: 10}
	require.Nil(t, r.ValidateForWrite())
}

func TestIsIPv6(t *testing.T) {
	r := &Record{SrcIP: netip.MustParseAddr("10.1.2.3")}
	require.False(t, r.IsIPv6())

	r = &Record{SrcIP: netip.MustParseAddr("2001:db8::1")}
	require.True(t, r.IsIPv6())

	mapped := netip.MustParseAddr("::ffff:10.1.2.3")
	r = &Record{SrcIP: mapped}
	require.False(t, r.IsIPv6())
}

func TestElapsedMillis(t *testing.T) {
	r := &Record{Elapsed: 4500 * time.Millisecond}
	require.Equal(t, uint32(4500), r.ElapsedMillis())
}
