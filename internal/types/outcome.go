package types

// Outcome is the explicit tri-state used for attempt flags. The zero value
// is OutcomeUnknown so a missing column value never reads as a negative.
type Outcome string

const (
	OutcomeUnknown  Outcome = "unknown"
	OutcomePositive Outcome = "positive"
	OutcomeNegative Outcome = "negative"
)

func (o Outcome) Known() bool {
	return o == OutcomePositive || o == OutcomeNegative
}

// IsPositive reports a definite positive; unknown is not positive.
func (o Outcome) IsPositive() bool { return o == OutcomePositive }

// IsNegative reports a definite negative; unknown is not negative.
func (o Outcome) IsNegative() bool { return o == OutcomeNegative }

// OutcomeFromBool lifts a known boolean into the tri-state.
func OutcomeFromBool(v bool) Outcome {
	if v {
		return OutcomePositive
	}
	return OutcomeNegative
}
