// Package format defines the small closed enumerations used throughout
// flowrec: on-disk format codes, the TCP-state EXPANDED bit, and the file
// header's compression-method byte.
package format

import "fmt"

// Code identifies an on-disk record layout family (spec §6.2). It is stored
// as a single byte in the file header and never interpreted by the core
// beyond dispatching to the matching codec.Module.
type Code uint8

// Recognized format codes. Values are fixed by the on-disk contract; unknown
// codes are preserved verbatim during header pass-through copies.
const (
	CodeIPFIX       Code = 0x0A
	CodeIPv6        Code = 0x0B
	CodeIPv6Routing Code = 0x0C
	CodeAugSnmpOut  Code = 0x0D
	CodeAugRouting  Code = 0x0E
	CodeRouted      Code = 0x10
	CodeNotRouted   Code = 0x11
	CodeSplit       Code = 0x12
	CodeFilter      Code = 0x13
	CodeAugmented   Code = 0x14
	CodeAugWeb      Code = 0x15
	CodeGeneric     Code = 0x16
	CodeFlowcap     Code = 0x1C
	CodeIpset       Code = 0x1D
	CodeWeb         Code = 0x1F
	CodeBag         Code = 0x21
	CodePrefixmap   Code = 0x25
)

func (c Code) String() string {
	switch c {
	case CodeIPFIX:
		return "IPFIX"
	case CodeIPv6:
		return "IPv6"
	case CodeIPv6Routing:
		return "IPv6Routing"
	case CodeAugSnmpOut:
		return "AugSnmpOut"
	case CodeAugRouting:
		return "AugRouting"
	case CodeRouted:
		return "Routed"
	case CodeNotRouted:
		return "NotRouted"
	case CodeSplit:
		return "Split"
	case CodeFilter:
		return "Filter"
	case CodeAugmented:
		return "Augmented"
	case CodeAugWeb:
		return "AugWeb"
	case CodeGeneric:
		return "Generic"
	case CodeFlowcap:
		return "Flowcap"
	case CodeIpset:
		return "Ipset"
	case CodeWeb:
		return "Web"
	case CodeBag:
		return "Bag"
	case CodePrefixmap:
		return "Prefixmap"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(c))
	}
}

// Version selects which of a format's supported record layouts is active.
// ANY (0) is reserved: on a writer it means "use the module's default
// version"; on a reader it is never valid.
type Version uint8

// ANY requests the writer default version; never valid on a reader.
const ANY Version = 0

// CompressionMethod identifies how the data section of a file is compressed.
// It is stored as a single byte in the file header (spec §6.1 offset 7).
type CompressionMethod uint8

const (
	CompressionNone   CompressionMethod = 0
	CompressionZlib   CompressionMethod = 1
	CompressionLzo1x  CompressionMethod = 2
	CompressionSnappy CompressionMethod = 3
	// CompressionLZ4 and CompressionZstd are core extensions beyond the
	// three methods spec.md names explicitly for byte 7; see SPEC_FULL.md's
	// domain-stack compression table.
	CompressionLZ4  CompressionMethod = 4
	CompressionZstd CompressionMethod = 5
)

func (m CompressionMethod) String() string {
	switch m {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionLzo1x:
		return "lzo1x"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// TCPStateExpanded is the bit within Record.TCPState indicating that
// InitFlags/RestFlags carry independent information rather than TCPFlags
// being the sole union field (spec §3.1, glossary "EXPANDED").
const TCPStateExpanded uint8 = 0x01

// ProtocolTCP is the IP protocol number for TCP, the only protocol for
// which InitFlags/RestFlags/EXPANDED are meaningful.
const ProtocolTCP uint8 = 6
