package errs

import "fmt"

// Limits lets a StreamError interpolate the numeric limit the active codec
// module declares for the Kind that failed (e.g. pktsMax for
// KindPktsOverflow), matching spec §4.6's "resolves numeric limits per
// error kind from the active codec" requirement. A zero value for a given
// Kind means "no limit applies" and is omitted from the message.
type Limits struct {
	ElapsedMax     uint32
	PktsMax        uint32
	BppMax         uint32
	StartOffsetMax uint32
	SnmpMax        uint32
	SensorMax      uint32
}

// StreamError is the contextual error returned by stream operations: a
// Kind plus the pathname and record index active when it occurred, and an
// optional wrapped I/O error for KindIO.
type StreamError struct {
	Kind       Kind
	Path       string
	RecordIdx  int64
	Limits     Limits
	Underlying error
}

func (e *StreamError) Error() string {
	msg := e.message()
	if e.Path == "" {
		return msg
	}

	if e.RecordIdx >= 0 {
		return fmt.Sprintf("%s: %s (record %d)", e.Path, msg, e.RecordIdx)
	}

	return fmt.Sprintf("%s: %s", e.Path, msg)
}

func (e *StreamError) Unwrap() error {
	if e.Kind == KindIO {
		return e.Underlying
	}

	return Sentinel(e.Kind)
}

// message renders the one-line human message for e.Kind, interpolating
// whichever limit in e.Limits applies.
func (e *StreamError) message() string {
	switch {
	case e.Kind == KindPktsOverflow && e.Limits.PktsMax != 0:
		return fmt.Sprintf("packet count exceeds this format's maximum of %d", e.Limits.PktsMax)
	case e.Kind == KindBppOverflow && e.Limits.BppMax != 0:
		return fmt.Sprintf("bytes-per-packet ratio exceeds this format's maximum of %d", e.Limits.BppMax)
	case e.Kind == KindElapsedOverflow && e.Limits.ElapsedMax != 0:
		return fmt.Sprintf("elapsed time exceeds this format's maximum of %d", e.Limits.ElapsedMax)
	case e.Kind == KindStartTimeOverflow && e.Limits.StartOffsetMax != 0:
		return fmt.Sprintf("start time offset exceeds this format's maximum of %d", e.Limits.StartOffsetMax)
	case e.Kind == KindSnmpOverflow && e.Limits.SnmpMax != 0:
		return fmt.Sprintf("SNMP interface id exceeds this format's maximum of %d", e.Limits.SnmpMax)
	case e.Kind == KindSensorOverflow && e.Limits.SensorMax != 0:
		return fmt.Sprintf("sensor id exceeds this format's maximum of %d", e.Limits.SensorMax)
	case e.Kind == KindIO:
		return fmt.Sprintf("i/o error: %v", e.Underlying)
	default:
		if sentinel := Sentinel(e.Kind); sentinel != nil {
			return sentinel.Error()
		}

		return e.Kind.String()
	}
}

// New creates a StreamError for Kind k with no path/record context yet;
// stream operations fill Path/RecordIdx in before returning it to the
// caller.
func New(k Kind) *StreamError {
	return &StreamError{Kind: k, RecordIdx: -1}
}

// Wrap creates a KindIO StreamError wrapping an underlying I/O error.
func Wrap(err error) *StreamError {
	return &StreamError{Kind: KindIO, RecordIdx: -1, Underlying: err}
}

// WithContext returns a copy of e with path and record index filled in.
func (e *StreamError) WithContext(path string, recordIdx int64) *StreamError {
	cp := *e
	cp.Path = path
	cp.RecordIdx = recordIdx

	return &cp
}

// WithLimits returns a copy of e with the numeric limits filled in from the
// active codec module.
func (e *StreamError) WithLimits(l Limits) *StreamError {
	cp := *e
	cp.Limits = l

	return &cp
}
