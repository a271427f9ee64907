package schemacheck

import "github.com/reoring/schemacheck/structtype"

// Validity is the outcome class of a validation.
type Validity int

const (
	Valid   Validity = iota
	Invalid          // The configuration cannot be used.
	Warning          // Reserved; no rule in this module produces it yet.
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "VALID"
	case Invalid:
		return "INVALID"
	case Warning:
		return "WARNING"
	}
	return "UNKNOWN"
}

// Stage records how far a rule got before it stopped.
type Stage int

const (
	StageResolve Stage = iota
	StageParse
	StageConvert
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageResolve:
		return "resolve"
	case StageParse:
		return "parse"
	case StageConvert:
		return "convert"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// Result is produced fresh by every validation and never modified afterwards.
type Result struct {
	Rule     string
	Validity Validity
	Stage    Stage
	Message  string
	Cause    error               // nil when Valid
	Type     structtype.DataType // set when Valid
}

// OK reports whether the result is not Invalid.
func (r Result) OK() bool { return r.Validity != Invalid }
