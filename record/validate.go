package record

import "github.com/flowrec/flowrec/errs"

// ValidateForWrite checks the format-independent write preconditions from
// spec §3.1/§4.2 that apply to every count-storing format: pkts must be
// nonzero, and bytes must be >= pkts whenever pkts > 0. Per-format modules
// layer their own additional numeric-policy checks (elapsed/bpp/snmp/
// sensor overflow, protocol mismatch) on top of this.
func (r *Record) ValidateForWrite() *errs.StreamError {
	if r.Pkts == 0 {
		return errs.New(errs.KindPktsZero)
	}

	if r.Bytes < r.Pkts {
		return errs.New(errs.KindPktsGtBytes)
	}

	return nil
}
