package codec

import (
	"time"

	"github.com/flowrec/flowrec/bits"
	"github.com/flowrec/flowrec/errs"
)

// startOffsetMillis returns start's offset from fileStartMillis in
// milliseconds, enforcing the writer numeric policies spec §4.2 names:
// StartTimeUnderflow if start precedes the file-start time, StartTimeOverflow
// if the offset would not fit in capBits.
func startOffsetMillis(start time.Time, fileStartMillis int64, capBits uint) (uint32, error) {
	offset := start.UnixMilli() - fileStartMillis
	if offset < 0 {
		return 0, errs.New(errs.KindStartTimeUnderflow).WithLimits(errs.Limits{})
	}

	limit := uint64(1) << capBits
	if uint64(offset) >= limit {
		return 0, errs.New(errs.KindStartTimeOverflow).WithLimits(errs.Limits{StartOffsetMax: uint32(limit - 1)})
	}

	return uint32(offset), nil
}

// startOffsetSeconds is startOffsetMillis truncated to whole seconds, for
// the older second-granularity formats (spec §4.2 P2).
func startOffsetSeconds(start time.Time, fileStartMillis int64, capBits uint) (uint32, error) {
	offsetMs := start.UnixMilli() - fileStartMillis
	if offsetMs < 0 {
		return 0, errs.New(errs.KindStartTimeUnderflow)
	}

	offsetSec := uint64(offsetMs) / 1000

	limit := uint64(1) << capBits
	if offsetSec >= limit {
		return 0, errs.New(errs.KindStartTimeOverflow).WithLimits(errs.Limits{StartOffsetMax: uint32(limit - 1)})
	}

	return uint32(offsetSec), nil
}

// elapsedSecondsCapped converts elapsed to whole seconds and enforces the
// cap in capBits. If saturate is true, an overflow saturates to the cap's
// all-ones value instead of failing (spec §4.2: "unless the cap is 16-bit
// seconds in which case the field is saturated to 0xFFFF").
func elapsedSecondsCapped(elapsed time.Duration, capBits uint, saturate bool) (uint32, error) {
	sec := uint64(elapsed / time.Second)
	limit := uint64(1) << capBits

	if sec >= limit {
		if saturate {
			return uint32(limit - 1), nil
		}

		return 0, errs.New(errs.KindElapsedOverflow).WithLimits(errs.Limits{ElapsedMax: uint32(limit - 1)})
	}

	return uint32(sec), nil
}

// pktsAndBytesForBPP validates the write-time pkts/bytes invariants (spec
// §3.1/§4.2: pkts>0, bytes>=pkts) and encodes the BPP ratio.
func pktsAndBytesForBPP(pkts, bytesCount uint64) (bpp uint32, err error) {
	if pkts == 0 {
		return 0, errs.New(errs.KindPktsZero)
	}

	if bytesCount < pkts {
		return 0, errs.New(errs.KindPktsGtBytes)
	}

	bpp, ok := bits.EncodeBPP(bytesCount, pkts)
	if !ok {
		return 0, errs.New(errs.KindBppOverflow)
	}

	return bpp, nil
}

// snmpByte validates an 8-bit-only SNMP interface id.
func snmpByte(v uint16) (uint8, error) {
	if v > 0xFF {
		return 0, errs.New(errs.KindSnmpOverflow).WithLimits(errs.Limits{SnmpMax: 0xFF})
	}

	return uint8(v), nil
}

// sensorByte validates an 8-bit-only sensor id.
func sensorByte(v uint16) (uint8, error) {
	if v > 0xFF {
		return 0, errs.New(errs.KindSensorOverflow).WithLimits(errs.Limits{SensorMax: 0xFF})
	}

	return uint8(v), nil
}
